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

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloudops/opsscripts/pkg/operator"
	"github.com/cloudops/opsscripts/pkg/operator/options"
	"github.com/cloudops/opsscripts/pkg/reclaimer"
)

// Response is returned to the invoking scheduler. Failed runs return an error instead.
type Response struct {
	Success bool   `json:"success"`
	Summary string `json:"summary"`
}

type OperatorFactory func(ctx context.Context, opts *options.Options) (*operator.Operator, error)

type LoggerFactory func(level string) (logr.Logger, error)

// Handler runs one reclaim per invocation. Operators are cached per region for as long as the
// container stays warm; resources themselves are always listed fresh.
type Handler struct {
	opts        *options.Options
	newOperator OperatorFactory
	newLogger   LoggerFactory

	mu        sync.Mutex
	operators map[string]*operator.Operator
}

func New(opts *options.Options, newOperator OperatorFactory, newLogger LoggerFactory) *Handler {
	return &Handler{
		opts:        opts,
		newOperator: newOperator,
		newLogger:   newLogger,
		operators:   map[string]*operator.Operator{},
	}
}

// DefaultOperatorFactory loads the SDK configuration and builds an operator with its own registry
func DefaultOperatorFactory(ctx context.Context, opts *options.Options) (*operator.Operator, error) {
	cfg, err := operator.LoadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	return operator.NewOperator(cfg, opts, prometheus.NewRegistry()), nil
}

func (h *Handler) Invoke(ctx context.Context, event json.RawMessage) (Response, error) {
	log, err := h.newLogger(h.opts.LogLevel)
	if err != nil {
		return Response{}, err
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.WithValues("request-id", lc.AwsRequestID)
	}
	ctx = logr.NewContext(ctx, log)
	log.V(1).Info("received event", "event", string(event))

	opts := *h.opts
	opts.Region = RegionFromContext(ctx, h.opts.Region)
	op, err := h.operator(ctx, &opts)
	if err != nil {
		log.Error(err, "initializing aws clients")
		return Response{}, err
	}
	opts.Region = op.Config.Region

	result, err := reclaimer.New(&opts, op.InstanceProvider, op.ClusterProvider, op.Clock, log, op.Metrics, op.MetricsClient).Reclaim(ctx)
	if op.Pusher != nil {
		if perr := op.Pusher.Push(ctx); perr != nil {
			log.Error(perr, "pushing metrics")
		}
	}
	if err != nil {
		return Response{}, err
	}
	return Response{Success: result.Success, Summary: result.Summary}, nil
}

func (h *Handler) operator(ctx context.Context, opts *options.Options) (*operator.Operator, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if op, ok := h.operators[opts.Region]; ok {
		return op, nil
	}
	op, err := h.newOperator(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("creating operator for region %q, %w", opts.Region, err)
	}
	h.operators[opts.Region] = op
	return op, nil
}

// RegionFromContext returns the region of the invoked function's ARN, or fallback when the
// context carries no parsable invocation ARN
func RegionFromContext(ctx context.Context, fallback string) string {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok {
		return fallback
	}
	parsed, err := arn.Parse(lc.InvokedFunctionArn)
	if err != nil || parsed.Region == "" {
		logr.FromContextOrDiscard(ctx).V(1).Info("invocation arn carries no region", "arn", lc.InvokedFunctionArn)
		return fallback
	}
	return parsed.Region
}
