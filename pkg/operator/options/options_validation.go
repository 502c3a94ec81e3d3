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
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func (o *Options) Validate() error {
	return multierr.Combine(
		o.validateRetentionPolicy(),
		o.validateRetry(),
		o.validateNodeGroupPolling(),
		o.validateMetrics(),
		o.validateLogLevel(),
	)
}

func (o *Options) validateRetentionPolicy() error {
	var err error
	if strings.TrimSpace(o.ProtectionTagName) == "" {
		err = multierr.Append(err, fmt.Errorf("missing field, protection-tag-name"))
	}
	if o.AgeThreshold <= 0 {
		err = multierr.Append(err, fmt.Errorf("age-threshold must be positive, got %s", o.AgeThreshold))
	}
	return err
}

func (o *Options) validateRetry() error {
	var err error
	if o.RetryAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("retry-attempts must be at least 1, got %d", o.RetryAttempts))
	}
	if o.RetryDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("retry-delay cannot be negative"))
	}
	if o.RunTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("run-timeout cannot be negative"))
	}
	return err
}

func (o *Options) validateNodeGroupPolling() error {
	if o.NodeGroupPollInterval <= 0 {
		return fmt.Errorf("node-group-poll-interval must be positive, got %s", o.NodeGroupPollInterval)
	}
	if o.NodeGroupDeletionTimeout < o.NodeGroupPollInterval {
		return fmt.Errorf("node-group-deletion-timeout (%s) cannot be shorter than node-group-poll-interval (%s)", o.NodeGroupDeletionTimeout, o.NodeGroupPollInterval)
	}
	if o.RunTimeout > 0 && o.NodeGroupDeletionTimeout > o.RunTimeout {
		return fmt.Errorf("node-group-deletion-timeout (%s) cannot be longer than run-timeout (%s)", o.NodeGroupDeletionTimeout, o.RunTimeout)
	}
	return nil
}

func (o *Options) validateMetrics() error {
	var err error
	if (o.MetricsDatabase == "") != (o.MetricsTable == "") {
		err = multierr.Append(err, fmt.Errorf("metrics-database and metrics-table must be set together"))
	}
	if o.PushGatewayURL != "" {
		endpoint, parseErr := url.Parse(o.PushGatewayURL)
		// url.Parse() will accept a lot of input without error; make
		// sure it's a real URL
		if parseErr != nil || !endpoint.IsAbs() || endpoint.Hostname() == "" {
			err = multierr.Append(err, fmt.Errorf("%q not a valid pushgateway-url", o.PushGatewayURL))
		}
	}
	return err
}

func (o *Options) validateLogLevel() error {
	if _, err := zap.ParseAtomicLevel(o.LogLevel); err != nil {
		return fmt.Errorf("invalid log-level %q", o.LogLevel)
	}
	return nil
}
