/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudops/opsscripts/pkg/operator"
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "opsctl",
		Short:        "Operational scripts for the AWS test accounts",
		Version:      operator.Version,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(&cobra.Command{Use: "completion", Hidden: true})
	rootCmd.AddCommand(NewReclaimCommand(), NewLoadTestHostsCommand(), NewCWPCommand())
	cobra.EnableCommandSorting = false
	return rootCmd
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
