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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/cloudops/opsscripts/pkg/reclaimer"
	"github.com/cloudops/opsscripts/pkg/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var ctx context.Context
var environment *test.Environment

func TestOpsctl(t *testing.T) {
	ctx = context.Background()
	RegisterFailHandler(Fail)
	RunSpecs(t, "Opsctl")
}

var _ = BeforeSuite(func() {
	environment = test.NewEnvironment()
})

var _ = BeforeEach(func() {
	environment.Reset()
})

var _ = Describe("Reclaim", func() {
	It("should register every reclaimer option as a flag", func() {
		cmd := NewReclaimCommand()
		for _, name := range []string{"region", "protection-tag-name", "age-threshold", "dry-run", "run-timeout", "pushgateway-url"} {
			Expect(cmd.Flags().Lookup(name)).ToNot(BeNil(), name)
		}
	})
	It("should render one row per evaluation", func() {
		out := EvaluationTable([]reclaimer.Evaluation{
			{ID: "i-0123", Kind: reclaimer.KindInstance, Decision: reclaimer.DecisionExpired, Age: 25 * time.Hour, Deleted: true, Tags: map[string]string{"team": "qa", "Name": "web"}},
			{ID: "prod", Kind: reclaimer.KindCluster, Decision: reclaimer.DecisionProtected, Age: 48 * time.Hour, Tags: map[string]string{"do-not-delete": "true"}},
			{ID: "dev", Kind: reclaimer.KindCluster, Decision: reclaimer.DecisionExpired, Age: 30 * time.Hour, Deleted: true, NodeGroups: []string{"ng-a", "ng-b"}},
		})
		Expect(out).To(ContainSubstring("DECISION"))
		Expect(out).To(ContainSubstring("i-0123"))
		Expect(out).To(ContainSubstring("25h0m0s"))
		Expect(out).To(ContainSubstring("Name=web,team=qa"))
		Expect(out).To(ContainSubstring("do-not-delete=true"))
		Expect(out).To(ContainSubstring("ng-a,ng-b"))
	})
})

var _ = Describe("LoadTestHosts", func() {
	It("should default to the load-testing fleet in us-east-2", func() {
		cmd := NewLoadTestHostsCommand()
		Expect(cmd.Flags().Lookup("region").DefValue).To(Equal("us-east-2"))
		Expect(cmd.Flags().Lookup("tag-key").DefValue).To(Equal("Name"))
		Expect(cmd.Flags().Lookup("tag-value").DefValue).To(Equal("load-testing"))
	})
	It("should print the private dns name of running tagged instances", func() {
		environment.EC2API.AddInstances(
			test.Instance(test.InstanceOptions{PrivateDNSName: "ip-10-0-0-1.ec2.internal", Tags: map[string]string{"Name": "load-testing"}}),
			test.Instance(test.InstanceOptions{PrivateDNSName: "ip-10-0-0-2.ec2.internal", Tags: map[string]string{"Name": "load-testing"}, State: ec2types.InstanceStateNameStopped}),
			test.Instance(test.InstanceOptions{PrivateDNSName: "ip-10-0-0-3.ec2.internal", Tags: map[string]string{"Name": "web"}}),
			test.Instance(test.InstanceOptions{PrivateDNSName: "ip-10-0-0-4.ec2.internal", Tags: map[string]string{"Name": "load-testing"}}),
		)
		cmd := NewLoadTestHostsCommand()
		cmd.SetContext(ctx)
		out := bytes.Buffer{}
		cmd.SetOut(&out)
		Expect(PrintHosts(cmd, environment.InstanceProvider, LoadTestHostsOptions{TagKey: "Name", TagValue: "load-testing"})).To(Succeed())
		Expect(out.String()).To(Equal("ip-10-0-0-1.ec2.internal\nip-10-0-0-4.ec2.internal\n"))
	})
})

var _ = Describe("CWP", func() {
	var server *httptest.Server

	BeforeEach(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/v1/authenticate", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "t0k3n"})
		})
		mux.HandleFunc("/api/v1/audits/incidents", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer t0k3n" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.Header.Get("Content-Type") == "application/json" {
				_, _ = w.Write([]byte(`{"incidents":[]}`))
				return
			}
			_, _ = w.Write([]byte("id,host\n1,a\n2,b\n3,a\n4\n"))
		})
		server = httptest.NewServer(mux)
		GinkgoT().Setenv("PC_URL", server.URL)
		GinkgoT().Setenv("PC_IDENTITY", "identity")
		GinkgoT().Setenv("PC_SECRET", "secret")
	})
	AfterEach(func() {
		server.Close()
	})

	execute := func(args ...string) (string, error) {
		root := NewRootCommand()
		out := bytes.Buffer{}
		root.SetOut(&out)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(append([]string{"cwp"}, args...))
		err := root.ExecuteContext(ctx)
		return out.String(), err
	}

	It("should print the unique values of the selected column", func() {
		out, err := execute("--endpoint", "/audits/incidents", "--column", "1")
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("host\na\nb\n"))
	})
	It("should print the token when asked", func() {
		out, err := execute("--endpoint", "/audits/incidents", "--column", "0", "--print-token")
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(HavePrefix("t0k3n\n"))
	})
	It("should print non-csv responses as is", func() {
		out, err := execute("--endpoint", "/audits/incidents", "--content-type", "application/json")
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("{\"incidents\":[]}\n"))
	})
	It("should require an endpoint", func() {
		_, err := execute()
		Expect(err).To(MatchError(ContainSubstring("endpoint")))
	})
	It("should report every missing environment variable", func() {
		GinkgoT().Setenv("PC_IDENTITY", "")
		GinkgoT().Setenv("PC_SECRET", "")
		_, err := execute("--endpoint", "/audits/incidents")
		Expect(err).To(MatchError(ContainSubstring("PC_IDENTITY")))
		Expect(err).To(MatchError(ContainSubstring("PC_SECRET")))
	})
})
