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

package operator

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	"github.com/go-logr/logr"
	prometheusv2 "github.com/jonathan-innis/aws-sdk-go-prometheus/v2"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"k8s.io/utils/clock"

	sdk "github.com/cloudops/opsscripts/pkg/aws"
	awscache "github.com/cloudops/opsscripts/pkg/cache"
	"github.com/cloudops/opsscripts/pkg/metrics"
	"github.com/cloudops/opsscripts/pkg/operator/options"
	"github.com/cloudops/opsscripts/pkg/providers/cluster"
	"github.com/cloudops/opsscripts/pkg/providers/identity"
	"github.com/cloudops/opsscripts/pkg/providers/instance"
)

// Version is overridden at build time
var Version = "unspecified"

// Operator holds the AWS clients and providers for a single region
type Operator struct {
	Config   aws.Config
	Clock    clock.Clock
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	EC2API             sdk.EC2API
	EKSAPI             sdk.EKSAPI
	STSAPI             sdk.STSAPI
	TimestreamWriteAPI sdk.TimestreamWriteAPI

	IdentityProvider identity.Provider
	InstanceProvider instance.Provider
	ClusterProvider  cluster.Provider

	// MetricsClient and Pusher are nil unless configured
	MetricsClient metrics.Client
	Pusher        *metrics.Pusher
}

// LoadConfig loads the SDK configuration from the default chain. The configured region wins
// over the environment, and IMDS is consulted when neither provides one.
func LoadConfig(ctx context.Context, opts *options.Options, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, append([]func(*config.LoadOptions) error{
		config.WithRetryMaxAttempts(opts.RetryAttempts),
	}, optFns...)...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config, %w", err)
	}
	cfg = WithUserAgent(cfg)
	if opts.Region != "" {
		cfg.Region = opts.Region
	}
	if cfg.Region == "" {
		logr.FromContextOrDiscard(ctx).V(1).Info("retrieving region from IMDS")
		region, err := imds.NewFromConfig(cfg).GetRegion(ctx, &imds.GetRegionInput{})
		if err != nil {
			return aws.Config{}, fmt.Errorf("retrieving region from IMDS, %w", err)
		}
		cfg.Region = region.Region
	}
	logr.FromContextOrDiscard(ctx).WithValues("region", cfg.Region).V(1).Info("discovered region")
	return cfg, nil
}

// WithStaticCredentials uses the key pair instead of the default credential chain
func WithStaticCredentials(accessKeyID, secretAccessKey string) func(*config.LoadOptions) error {
	return config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""))
}

func WithUserAgent(cfg aws.Config) aws.Config {
	userAgent := fmt.Sprintf("opsscripts-%s", Version)
	cfg.APIOptions = append(cfg.APIOptions,
		awsmiddleware.AddUserAgentKey(userAgent),
	)
	return cfg
}

// NewOperator builds clients and providers for cfg.Region. SDK client metrics and the reclaimer's
// own metrics are registered on registry.
func NewOperator(cfg aws.Config, opts *options.Options, registry *prometheus.Registry) *Operator {
	// prometheusv2.WithPrometheusMetrics is used until the upstream aws-sdk-go-v2 supports
	// Prometheus metrics for client-side metrics out-of-the-box
	// See: https://github.com/aws/aws-sdk-go-v2/issues/1744
	cfg = prometheusv2.WithPrometheusMetrics(cfg, registry)
	clk := clock.RealClock{}

	ec2api := ec2.NewFromConfig(cfg)
	eksapi := eks.NewFromConfig(cfg)
	stsapi := sts.NewFromConfig(cfg)
	timestreamwriteapi := timestreamwrite.NewFromConfig(cfg, metrics.WithRegion(lo.Ternary(opts.MetricsRegion != "", opts.MetricsRegion, cfg.Region)))

	identityProvider := identity.NewDefaultProvider(stsapi, cache.New(awscache.CallerIdentityTTL, awscache.DefaultCleanupInterval))
	instanceProvider := instance.NewDefaultProvider(ec2api)
	clusterProvider := cluster.NewDefaultProvider(cfg.Region, eksapi, identityProvider, opts.NodeGroupPollInterval, opts.NodeGroupDeletionTimeout)

	op := &Operator{
		Config:   cfg,
		Clock:    clk,
		Registry: registry,
		Metrics:  metrics.New(registry),

		EC2API:             ec2api,
		EKSAPI:             eksapi,
		STSAPI:             stsapi,
		TimestreamWriteAPI: timestreamwriteapi,

		IdentityProvider: identityProvider,
		InstanceProvider: instanceProvider,
		ClusterProvider:  clusterProvider,
	}
	if opts.MetricsDatabase != "" {
		op.MetricsClient = metrics.NewTimeStream(timestreamwriteapi, clk, opts.MetricsDatabase, opts.MetricsTable)
	}
	if opts.PushGatewayURL != "" {
		op.Pusher = metrics.NewPusher(opts.PushGatewayURL, registry, cfg.Region)
	}
	return op
}
