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
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/cloudops/opsscripts/pkg/operator"
	"github.com/cloudops/opsscripts/pkg/operator/options"
	"github.com/cloudops/opsscripts/pkg/reclaimer"
	"github.com/cloudops/opsscripts/pkg/utils/log"
)

func NewReclaimCommand() *cobra.Command {
	opts := &options.Options{}
	fs := flag.NewFlagSet("reclaim", flag.ContinueOnError)
	opts.AddFlags(fs)
	cmd := &cobra.Command{
		Use:   "reclaim",
		Short: "Delete EC2 instances and EKS clusters older than the age threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Validate(); err != nil {
				return fmt.Errorf("validating options, %w", err)
			}
			logger, err := log.NewLogger(opts.LogLevel)
			if err != nil {
				return err
			}
			ctx := logr.NewContext(cmd.Context(), logger)
			cfg, err := operator.LoadConfig(ctx, opts)
			if err != nil {
				return err
			}
			opts.Region = cfg.Region
			op := operator.NewOperator(cfg, opts, prometheus.NewRegistry())
			result, err := reclaimer.New(opts, op.InstanceProvider, op.ClusterProvider, op.Clock, logger, op.Metrics, op.MetricsClient).Reclaim(ctx)
			if op.Pusher != nil {
				if perr := op.Pusher.Push(ctx); perr != nil {
					logger.Error(perr, "pushing metrics")
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), EvaluationTable(result.Evaluations))
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
			return nil
		},
	}
	cmd.Flags().AddGoFlagSet(fs)
	return cmd
}

// EvaluationTable renders one row per evaluated resource
func EvaluationTable(evaluations []reclaimer.Evaluation) string {
	out := bytes.Buffer{}
	table := newTable(&out)
	table.SetHeader([]string{"Kind", "ID", "Decision", "Age", "Deleted", "Node Groups", "Tags"})
	table.AppendBulk(lo.Map(evaluations, func(e reclaimer.Evaluation, _ int) []string {
		return []string{
			string(e.Kind),
			e.ID,
			string(e.Decision),
			e.Age.String(),
			fmt.Sprint(e.Deleted),
			strings.Join(e.NodeGroups, ","),
			formatTags(e.Tags),
		}
	}))
	table.Render()
	return out.String()
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}

func formatTags(tags map[string]string) string {
	pairs := lo.MapToSlice(tags, func(k, v string) string { return k + "=" + v })
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
