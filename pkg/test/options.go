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

package test

import (
	"fmt"
	"time"

	"github.com/imdario/mergo"
	"github.com/samber/lo"

	"github.com/cloudops/opsscripts/pkg/fake"
	"github.com/cloudops/opsscripts/pkg/operator/options"
)

type OptionsFields struct {
	Region                   *string
	ProtectionTagName        *string
	AgeThreshold             *time.Duration
	DryRun                   *bool
	RetryAttempts            *int
	RetryDelay               *time.Duration
	NodeGroupPollInterval    *time.Duration
	NodeGroupDeletionTimeout *time.Duration
	RunTimeout               *time.Duration
	MetricsDatabase          *string
	MetricsTable             *string
	MetricsRegion            *string
	PushGatewayURL           *string
	LogLevel                 *string
}

// Options returns options suited for tests: no backoff wait and millisecond polling
func Options(overrides ...OptionsFields) *options.Options {
	opts := OptionsFields{}
	for _, override := range overrides {
		if err := mergo.Merge(&opts, override, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge options: %s", err))
		}
	}
	return &options.Options{
		Region:                   lo.FromPtrOr(opts.Region, fake.DefaultRegion),
		ProtectionTagName:        lo.FromPtrOr(opts.ProtectionTagName, options.DefaultProtectionTagName),
		AgeThreshold:             lo.FromPtrOr(opts.AgeThreshold, options.DefaultAgeThreshold),
		DryRun:                   lo.FromPtrOr(opts.DryRun, false),
		RetryAttempts:            lo.FromPtrOr(opts.RetryAttempts, 3),
		RetryDelay:               lo.FromPtrOr(opts.RetryDelay, time.Millisecond),
		NodeGroupPollInterval:    lo.FromPtrOr(opts.NodeGroupPollInterval, NodeGroupPollInterval),
		NodeGroupDeletionTimeout: lo.FromPtrOr(opts.NodeGroupDeletionTimeout, NodeGroupDeletionTimeout),
		RunTimeout:               lo.FromPtrOr(opts.RunTimeout, time.Minute),
		MetricsDatabase:          lo.FromPtrOr(opts.MetricsDatabase, ""),
		MetricsTable:             lo.FromPtrOr(opts.MetricsTable, ""),
		MetricsRegion:            lo.FromPtrOr(opts.MetricsRegion, ""),
		PushGatewayURL:           lo.FromPtrOr(opts.PushGatewayURL, ""),
		LogLevel:                 lo.FromPtrOr(opts.LogLevel, "debug"),
	}
}
