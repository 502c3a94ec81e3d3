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

package reclaimer_test

import (
	"time"

	"github.com/cloudops/opsscripts/pkg/reclaimer"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RetentionPolicy", func() {
	policy := reclaimer.RetentionPolicy{AgeThreshold: 24 * time.Hour, ProtectionTagName: "do-not-delete"}

	It("should protect regardless of age", func() {
		Expect(policy.Decide(map[string]string{"Do-not-delete": "TRUE"}, 1000*time.Hour)).To(Equal(reclaimer.DecisionProtected))
		Expect(policy.Decide(map[string]string{"Do-not-delete": "TRUE"}, time.Hour)).To(Equal(reclaimer.DecisionProtected))
	})
	It("should expire unprotected resources at or past the threshold", func() {
		Expect(policy.Decide(nil, 24*time.Hour)).To(Equal(reclaimer.DecisionExpired))
		Expect(policy.Decide(map[string]string{"do-not-delete": "false"}, 25*time.Hour)).To(Equal(reclaimer.DecisionExpired))
		Expect(policy.Decide(nil, 24*time.Hour-time.Nanosecond)).To(Equal(reclaimer.DecisionNotYetEligible))
	})
	It("should never expire negative ages", func() {
		Expect(policy.Decide(nil, -48*time.Hour)).To(Equal(reclaimer.DecisionNotYetEligible))
	})
	It("should only protect on a true value", func() {
		Expect(policy.IsProtected(map[string]string{"do-not-delete": " true"})).To(BeFalse())
		Expect(policy.IsProtected(map[string]string{"do-not-delete": "1"})).To(BeFalse())
		Expect(policy.IsProtected(map[string]string{"team": "true"})).To(BeFalse())
		Expect(policy.IsProtected(map[string]string{"team": "core", "DO-NOT-DELETE": "True"})).To(BeTrue())
	})
	It("should render the threshold in hours", func() {
		Expect(policy.String()).To(Equal("24 hours"))
		Expect(reclaimer.RetentionPolicy{AgeThreshold: 90 * time.Minute}.String()).To(Equal("1.5 hours"))
	})
})

var _ = Describe("Age", func() {
	It("should be zero for identical instants", func() {
		now := time.Now()
		Expect(reclaimer.AgeInHours(now, now)).To(BeZero())
	})
	It("should be consistent across time zones", func() {
		created := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.FixedZone("EST", -5*60*60))
		now := time.Date(2024, time.March, 2, 14, 0, 0, 0, time.UTC)
		Expect(reclaimer.Age(now, created)).To(Equal(24 * time.Hour))
		Expect(reclaimer.Age(now.In(time.FixedZone("CET", 60*60)), created.UTC())).To(Equal(24 * time.Hour))
		Expect(reclaimer.AgeInHours(now, created)).To(Equal(24.0))
	})
})
