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

package options_test

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/cloudops/opsscripts/pkg/operator/options"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestOptions(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Options")
}

var _ = Describe("Options", func() {
	var envState map[string]string
	var environmentVariables = []string{
		"AWS_REGION",
		"PROTECTION_TAG_NAME",
		"AGE_THRESHOLD",
		"DRY_RUN",
		"RETRY_ATTEMPTS",
		"RETRY_DELAY",
		"NODE_GROUP_POLL_INTERVAL",
		"NODE_GROUP_DELETION_TIMEOUT",
		"RUN_TIMEOUT",
		"METRICS_DATABASE",
		"METRICS_TABLE",
		"METRICS_REGION",
		"PUSHGATEWAY_URL",
		"LOG_LEVEL",
	}

	var fs *flag.FlagSet
	var opts *options.Options

	BeforeEach(func() {
		envState = map[string]string{}
		for _, ev := range environmentVariables {
			val, ok := os.LookupEnv(ev)
			if ok {
				envState[ev] = val
			}
			os.Unsetenv(ev)
		}
		fs = flag.NewFlagSet("reclaimer", flag.ContinueOnError)
		opts = &options.Options{}
		opts.AddFlags(fs)
	})

	AfterEach(func() {
		for _, ev := range environmentVariables {
			os.Unsetenv(ev)
		}
		for ev, val := range envState {
			os.Setenv(ev, val)
		}
	})

	Context("Defaults", func() {
		It("should default to a 24 hour threshold and the do-not-delete tag", func() {
			Expect(opts.Parse(fs)).To(Succeed())
			Expect(opts.AgeThreshold).To(Equal(24 * time.Hour))
			Expect(opts.ProtectionTagName).To(Equal("do-not-delete"))
			Expect(opts.DryRun).To(BeFalse())
			Expect(opts.RetryAttempts).To(Equal(5))
			Expect(opts.NodeGroupPollInterval).To(Equal(15 * time.Second))
			Expect(opts.NodeGroupDeletionTimeout).To(Equal(10 * time.Minute))
			Expect(opts.NodeGroupDeletionTimeout).To(BeNumerically("<", opts.RunTimeout))
			Expect(opts.LogLevel).To(Equal("info"))
		})
	})
	Context("Merging", func() {
		It("should prefer flags over environment variables", func() {
			os.Setenv("AWS_REGION", "env-region")
			os.Setenv("AGE_THRESHOLD", "48h")
			fs = flag.NewFlagSet("reclaimer", flag.ContinueOnError)
			opts = &options.Options{}
			opts.AddFlags(fs)
			Expect(opts.Parse(fs, "--region", "us-west-2", "--age-threshold", "12h", "--dry-run")).To(Succeed())
			Expect(opts.Region).To(Equal("us-west-2"))
			Expect(opts.AgeThreshold).To(Equal(12 * time.Hour))
			Expect(opts.DryRun).To(BeTrue())
		})
		It("should fall back to env vars when CLI flags aren't set", func() {
			os.Setenv("AWS_REGION", "eu-west-1")
			os.Setenv("PROTECTION_TAG_NAME", "keep")
			os.Setenv("DRY_RUN", "true")
			os.Setenv("METRICS_DATABASE", "ops")
			os.Setenv("METRICS_TABLE", "reclaimed")
			// flags must be registered after the environment is set
			fs = flag.NewFlagSet("reclaimer", flag.ContinueOnError)
			opts = &options.Options{}
			opts.AddFlags(fs)
			Expect(opts.Parse(fs)).To(Succeed())
			Expect(opts.Region).To(Equal("eu-west-1"))
			Expect(opts.ProtectionTagName).To(Equal("keep"))
			Expect(opts.DryRun).To(BeTrue())
			Expect(opts.MetricsDatabase).To(Equal("ops"))
			Expect(opts.MetricsTable).To(Equal("reclaimed"))
		})
	})
	Context("Validation", func() {
		It("should fail when the protection tag is empty", func() {
			Expect(opts.Parse(fs, "--protection-tag-name", " ")).ToNot(Succeed())
		})
		It("should fail when the age threshold is not positive", func() {
			Expect(opts.Parse(fs, "--age-threshold", "0s")).ToNot(Succeed())
		})
		It("should fail when retry attempts is below one", func() {
			Expect(opts.Parse(fs, "--retry-attempts", "0")).ToNot(Succeed())
		})
		It("should fail when the deletion timeout is shorter than the poll interval", func() {
			Expect(opts.Parse(fs, "--node-group-poll-interval", "1m", "--node-group-deletion-timeout", "30s")).ToNot(Succeed())
		})
		It("should fail when the deletion timeout is longer than the run timeout", func() {
			err := opts.Parse(fs, "--run-timeout", "5m", "--node-group-deletion-timeout", "6m")
			Expect(err).To(MatchError(ContainSubstring("cannot be longer than run-timeout")))
		})
		It("should allow any deletion timeout when the run timeout is disabled", func() {
			Expect(opts.Parse(fs, "--run-timeout", "0s", "--node-group-deletion-timeout", "1h")).To(Succeed())
		})
		It("should fail when only one of the metrics fields is set", func() {
			Expect(opts.Parse(fs, "--metrics-database", "ops")).ToNot(Succeed())
		})
		It("should fail on an invalid pushgateway URL", func() {
			Expect(opts.Parse(fs, "--pushgateway-url", "not a url")).ToNot(Succeed())
		})
		It("should fail on an unknown log level", func() {
			Expect(opts.Parse(fs, "--log-level", "chatty")).ToNot(Succeed())
		})
		It("should report every invalid field at once", func() {
			err := opts.Parse(fs, "--age-threshold", "-1h", "--retry-attempts", "0")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("age-threshold"))
			Expect(err.Error()).To(ContainSubstring("retry-attempts"))
		})
	})
})
