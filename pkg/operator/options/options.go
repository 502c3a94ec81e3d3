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

package options

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/cloudops/opsscripts/pkg/utils/env"
)

const (
	DefaultProtectionTagName = "do-not-delete"
	DefaultAgeThreshold      = 24 * time.Hour
)

// Options for the stale resource reclaimer
type Options struct {
	Region                   string
	ProtectionTagName        string
	AgeThreshold             time.Duration
	DryRun                   bool
	RetryAttempts            int
	RetryDelay               time.Duration
	NodeGroupPollInterval    time.Duration
	NodeGroupDeletionTimeout time.Duration
	RunTimeout               time.Duration
	MetricsDatabase          string
	MetricsTable             string
	MetricsRegion            string
	PushGatewayURL           string
	LogLevel                 string
}

// AddFlags registers flags for every field, defaulting each flag to its environment variable
func (o *Options) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.Region, "region", env.WithDefaultString("AWS_REGION", ""), "The AWS region to reclaim resources in. Resolved from the invocation context, the SDK default chain, or IMDS when empty.")
	fs.StringVar(&o.ProtectionTagName, "protection-tag-name", env.WithDefaultString("PROTECTION_TAG_NAME", DefaultProtectionTagName), "Resources carrying this tag with the value \"true\" (case-insensitive) are never deleted")
	fs.DurationVar(&o.AgeThreshold, "age-threshold", env.WithDefaultDuration("AGE_THRESHOLD", DefaultAgeThreshold), "Minimum age of a resource before it is deleted")
	fs.BoolVar(&o.DryRun, "dry-run", env.WithDefaultBool("DRY_RUN", false), "Evaluate and log decisions without issuing any delete calls")
	fs.IntVar(&o.RetryAttempts, "retry-attempts", env.WithDefaultInt("RETRY_ATTEMPTS", 5), "Number of attempts for a provider call that is throttled")
	fs.DurationVar(&o.RetryDelay, "retry-delay", env.WithDefaultDuration("RETRY_DELAY", time.Second), "Initial backoff delay between throttled provider calls")
	fs.DurationVar(&o.NodeGroupPollInterval, "node-group-poll-interval", env.WithDefaultDuration("NODE_GROUP_POLL_INTERVAL", 15*time.Second), "Interval between node group deletion status checks")
	fs.DurationVar(&o.NodeGroupDeletionTimeout, "node-group-deletion-timeout", env.WithDefaultDuration("NODE_GROUP_DELETION_TIMEOUT", 10*time.Minute), "Maximum time to wait for a single node group to be deleted, no longer than run-timeout")
	fs.DurationVar(&o.RunTimeout, "run-timeout", env.WithDefaultDuration("RUN_TIMEOUT", 14*time.Minute), "Maximum duration of a whole reclaim run, 0 disables the limit")
	fs.StringVar(&o.MetricsDatabase, "metrics-database", env.WithDefaultString("METRICS_DATABASE", ""), "Timestream database that receives deletion counts, disabled when empty")
	fs.StringVar(&o.MetricsTable, "metrics-table", env.WithDefaultString("METRICS_TABLE", ""), "Timestream table that receives deletion counts")
	fs.StringVar(&o.MetricsRegion, "metrics-region", env.WithDefaultString("METRICS_REGION", ""), "Region of the Timestream database, defaults to the reclaim region")
	fs.StringVar(&o.PushGatewayURL, "pushgateway-url", env.WithDefaultString("PUSHGATEWAY_URL", ""), "Prometheus Pushgateway that receives run metrics, disabled when empty")
	fs.StringVar(&o.LogLevel, "log-level", env.WithDefaultString("LOG_LEVEL", "info"), "Log verbosity, one of debug, info, warn, error")
}

// Parse reads the passed flags, environment variables, and default values, then validates the result
func (o *Options) Parse(fs *flag.FlagSet, args ...string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("parsing flags, %w", err)
	}
	if err := o.Validate(); err != nil {
		return fmt.Errorf("validating options, %w", err)
	}
	return nil
}

// New returns Options populated from the environment and defaults
func New() (*Options, error) {
	opts := &Options{}
	fs := flag.NewFlagSet("reclaimer", flag.ContinueOnError)
	opts.AddFlags(fs)
	if err := opts.Parse(fs); err != nil {
		return nil, err
	}
	return opts, nil
}
