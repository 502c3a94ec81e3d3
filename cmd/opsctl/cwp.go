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
	"bytes"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/cloudops/opsscripts/pkg/cwp"
	"github.com/cloudops/opsscripts/pkg/utils/env"
	"github.com/cloudops/opsscripts/pkg/utils/log"
)

type CWPOptions struct {
	Endpoint    string
	ContentType string
	Column      int
	APIVersion  int
	PrintToken  bool
	Verbose     bool
}

func NewCWPCommand() *cobra.Command {
	opts := CWPOptions{}
	cmd := &cobra.Command{
		Use:   "cwp",
		Short: "Query the security platform API and print unique values of a CSV column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunCWP(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "API endpoint to query, e.g. /audits/incidents")
	cmd.Flags().StringVar(&opts.ContentType, "content-type", cwp.DefaultContentType, "Content type requested from the endpoint")
	cmd.Flags().IntVar(&opts.Column, "column", 4, "Zero-indexed CSV column whose unique values are printed")
	cmd.Flags().IntVar(&opts.APIVersion, "api-version", cwp.DefaultAPIVersion, "API version")
	cmd.Flags().BoolVar(&opts.PrintToken, "print-token", false, "Print the session token before querying")
	cmd.Flags().BoolVar(&opts.Verbose, "verbose", false, "Log HTTP retries")
	lo.Must0(cmd.MarkFlagRequired("endpoint"))
	return cmd
}

// RunCWP authenticates with PC_IDENTITY and PC_SECRET against PC_URL and prints the response.
// CSV responses are reduced to the unique values of the selected column.
func RunCWP(cmd *cobra.Command, opts CWPOptions) error {
	names := []string{"PC_URL", "PC_IDENTITY", "PC_SECRET"}
	vars := lo.Map(names, func(name string, _ int) string { return env.WithDefaultString(name, "") })
	var errs error
	for i, name := range names {
		if vars[i] == "" {
			errs = multierr.Append(errs, fmt.Errorf("environment variable %s is not set", name))
		}
	}
	if errs != nil {
		return errs
	}
	baseURL, identity, secret := vars[0], vars[1], vars[2]
	var clientOpts []cwp.Option
	if opts.Verbose {
		logger, err := log.NewLogger("debug")
		if err != nil {
			return err
		}
		clientOpts = append(clientOpts, cwp.WithLogger(logger))
	}
	client := cwp.NewClient(baseURL, opts.APIVersion, clientOpts...)
	token, err := client.Authenticate(cmd.Context(), identity, secret)
	if err != nil {
		return err
	}
	if opts.PrintToken {
		fmt.Fprintln(cmd.OutOrStdout(), token)
	}
	body, err := client.Get(cmd.Context(), token, opts.Endpoint, opts.ContentType)
	if err != nil {
		return err
	}
	if !strings.Contains(opts.ContentType, "csv") {
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	}
	values, err := cwp.UniqueColumnValues(bytes.NewReader(body), opts.Column)
	if err != nil {
		return err
	}
	for _, v := range values {
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return nil
}
