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
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/spf13/cobra"

	"github.com/cloudops/opsscripts/pkg/operator"
	"github.com/cloudops/opsscripts/pkg/operator/options"
	"github.com/cloudops/opsscripts/pkg/providers/instance"
	"github.com/cloudops/opsscripts/pkg/utils/env"
)

type LoadTestHostsOptions struct {
	Region   string
	TagKey   string
	TagValue string
}

func NewLoadTestHostsCommand() *cobra.Command {
	opts := LoadTestHostsOptions{}
	cmd := &cobra.Command{
		Use:   "loadtest-hosts",
		Short: "Print the private DNS names of running load-testing instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var optFns []func(*config.LoadOptions) error
			if key, secret := env.WithDefaultString("awsKey", ""), env.WithDefaultString("awsSecret", ""); key != "" && secret != "" {
				optFns = append(optFns, operator.WithStaticCredentials(key, secret))
			}
			cfg, err := operator.LoadConfig(cmd.Context(), &options.Options{Region: opts.Region, RetryAttempts: 3}, optFns...)
			if err != nil {
				return err
			}
			return PrintHosts(cmd, instance.NewDefaultProvider(ec2.NewFromConfig(cfg)), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Region, "region", "us-east-2", "Region of the load-testing fleet")
	cmd.Flags().StringVar(&opts.TagKey, "tag-key", "Name", "Tag key that marks load-testing instances")
	cmd.Flags().StringVar(&opts.TagValue, "tag-value", "load-testing", "Tag value that marks load-testing instances")
	return cmd
}

// PrintHosts writes the private DNS name of each matching instance on its own line
func PrintHosts(cmd *cobra.Command, provider instance.Provider, opts LoadTestHostsOptions) error {
	instances, err := provider.ListRunningByTag(cmd.Context(), opts.TagKey, opts.TagValue)
	if err != nil {
		return err
	}
	for _, i := range instances {
		fmt.Fprintln(cmd.OutOrStdout(), i.PrivateDNSName)
	}
	return nil
}
