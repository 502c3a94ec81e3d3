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

package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cloudops/opsscripts/pkg/handler"
	"github.com/cloudops/opsscripts/pkg/metrics"
	"github.com/cloudops/opsscripts/pkg/operator"
	"github.com/cloudops/opsscripts/pkg/operator/options"
	"github.com/cloudops/opsscripts/pkg/test"
	logutil "github.com/cloudops/opsscripts/pkg/utils/log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const functionARN = "arn:aws:lambda:eu-central-1:123456789012:function:stale-resource-reclaimer"

var ctx context.Context
var awsEnv *test.Environment
var logs *observer.ObservedLogs
var regions []string
var factoryErr error
var pusher *metrics.Pusher

func TestHandler(t *testing.T) {
	ctx = context.Background()
	RegisterFailHandler(Fail)
	RunSpecs(t, "Handler")
}

var _ = BeforeSuite(func() {
	awsEnv = test.NewEnvironment()
})

var _ = BeforeEach(func() {
	awsEnv.Reset()
	regions = nil
	factoryErr = nil
	pusher = nil
})

func newHandler(opts *options.Options) *handler.Handler {
	return handler.New(opts,
		func(_ context.Context, opts *options.Options) (*operator.Operator, error) {
			regions = append(regions, opts.Region)
			if factoryErr != nil {
				return nil, factoryErr
			}
			registry := prometheus.NewRegistry()
			return &operator.Operator{
				Config:           aws.Config{Region: lo.Ternary(opts.Region != "", opts.Region, "us-west-2")},
				Clock:            awsEnv.Clock,
				Registry:         registry,
				Metrics:          metrics.New(registry),
				InstanceProvider: awsEnv.InstanceProvider,
				ClusterProvider:  awsEnv.ClusterProvider,
				IdentityProvider: awsEnv.IdentityProvider,
				Pusher:           pusher,
			}, nil
		},
		func(level string) (logr.Logger, error) {
			if _, err := logutil.NewLogger(level); err != nil {
				return logr.Discard(), err
			}
			var logger logr.Logger
			logger, logs = test.ObservedLogger()
			return logger, nil
		},
	)
}

func invocationContext(requestID string) context.Context {
	return lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{
		AwsRequestID:       requestID,
		InvokedFunctionArn: functionARN,
	})
}

var event = json.RawMessage(`{"source":"aws.events","detail-type":"Scheduled Event"}`)

var _ = Describe("Handler", func() {
	It("should reclaim in the region of the invoked function and summarize", func() {
		awsEnv.EC2API.AddInstances(test.Instance(test.InstanceOptions{LaunchTime: test.Epoch.Add(-25 * time.Hour)}))

		resp, err := newHandler(test.Options()).Invoke(invocationContext("req-1"), event)
		Expect(err).ToNot(HaveOccurred())
		Expect(resp).To(Equal(handler.Response{
			Success: true,
			Summary: "Evaluated 1 instance(s) and 0 cluster(s), deleted 1 instance(s) and 0 cluster(s)",
		}))
		Expect(regions).To(Equal([]string{"eu-central-1"}))
	})
	It("should tag every log entry with the request id", func() {
		_, err := newHandler(test.Options()).Invoke(invocationContext("req-42"), event)
		Expect(err).ToNot(HaveOccurred())
		Expect(logs.All()).ToNot(BeEmpty())
		for _, entry := range logs.All() {
			Expect(entry.ContextMap()).To(HaveKeyWithValue("request-id", "req-42"))
		}
	})
	It("should fall back to the configured region outside of lambda", func() {
		_, err := newHandler(test.Options(test.OptionsFields{Region: lo.ToPtr("ca-central-1")})).Invoke(ctx, event)
		Expect(err).ToNot(HaveOccurred())
		Expect(regions).To(Equal([]string{"ca-central-1"}))
	})
	It("should reuse the operator of a region across invocations", func() {
		h := newHandler(test.Options())
		for range 3 {
			_, err := h.Invoke(invocationContext("req"), event)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(regions).To(HaveLen(1))
	})
	It("should propagate reclaim errors instead of an unsuccessful response", func() {
		awsEnv.EC2API.AddInstances(test.Instance())
		awsEnv.EC2API.DescribeTagsBehavior.Error.Set(&smithy.GenericAPIError{Code: "InternalError"})
		resp, err := newHandler(test.Options()).Invoke(invocationContext("req"), event)
		Expect(err).To(HaveOccurred())
		Expect(resp).To(Equal(handler.Response{}))
	})
	It("should propagate operator failures", func() {
		factoryErr = errors.New("no credentials")
		_, err := newHandler(test.Options()).Invoke(invocationContext("req"), event)
		Expect(err).To(MatchError(ContainSubstring(`creating operator for region "eu-central-1", no credentials`)))
	})
	It("should reject an invalid log level", func() {
		_, err := newHandler(test.Options(test.OptionsFields{LogLevel: lo.ToPtr("loud")})).Invoke(invocationContext("req"), event)
		Expect(err).To(HaveOccurred())
		Expect(regions).To(BeEmpty())
	})
	It("should push metrics even when the run fails", func() {
		var pushes atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			pushes.Add(1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()
		pusher = metrics.NewPusher(server.URL, prometheus.NewRegistry(), "eu-central-1")

		awsEnv.EC2API.DescribeInstancesBehavior.Error.Set(&smithy.GenericAPIError{Code: "InternalError"})
		_, err := newHandler(test.Options()).Invoke(invocationContext("req"), event)
		Expect(err).To(HaveOccurred())
		Expect(pushes.Load()).To(Equal(int32(1)))
	})
})

var _ = Describe("RegionFromContext", func() {
	It("should parse the region from the invoked function arn", func() {
		Expect(handler.RegionFromContext(invocationContext("req"), "us-east-1")).To(Equal("eu-central-1"))
	})
	It("should return the fallback without an invocation context", func() {
		Expect(handler.RegionFromContext(ctx, "us-east-1")).To(Equal("us-east-1"))
	})
	It("should return the fallback for an unparsable arn", func() {
		c := lambdacontext.NewContext(ctx, &lambdacontext.LambdaContext{InvokedFunctionArn: "function"})
		Expect(handler.RegionFromContext(c, "us-east-1")).To(Equal("us-east-1"))
	})
})
