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

package identity_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/samber/lo"

	awserrors "github.com/cloudops/opsscripts/pkg/errors"
	"github.com/cloudops/opsscripts/pkg/fake"
	"github.com/cloudops/opsscripts/pkg/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var ctx context.Context
var awsEnv *test.Environment

func TestIdentity(t *testing.T) {
	ctx = context.Background()
	RegisterFailHandler(Fail)
	RunSpecs(t, "IdentityProvider")
}

var _ = BeforeSuite(func() {
	awsEnv = test.NewEnvironment()
})

var _ = BeforeEach(func() {
	awsEnv.Reset()
})

var _ = Describe("IdentityProvider", func() {
	It("should resolve the account and partition of the caller", func() {
		id, err := awsEnv.IdentityProvider.Get(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(id.AccountID).To(Equal(fake.DefaultAccountID))
		Expect(id.Partition).To(Equal(fake.DefaultPartition))
	})
	It("should take the partition from the caller arn", func() {
		awsEnv.STSAPI.GetCallerIdentityBehavior.Output.Set(&sts.GetCallerIdentityOutput{
			Account: lo.ToPtr("210987654321"),
			Arn:     lo.ToPtr("arn:aws-us-gov:sts::210987654321:assumed-role/reclaimer/session"),
		})
		id, err := awsEnv.IdentityProvider.Get(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(id.AccountID).To(Equal("210987654321"))
		Expect(id.Partition).To(Equal("aws-us-gov"))
	})
	It("should only call STS once while cached", func() {
		for range 3 {
			_, err := awsEnv.IdentityProvider.Get(ctx)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(awsEnv.STSAPI.GetCallerIdentityBehavior.Calls()).To(Equal(1))
	})
	It("should not cache failures", func() {
		awsEnv.STSAPI.GetCallerIdentityBehavior.Error.Set(&smithy.GenericAPIError{Code: "ExpiredToken"})
		_, err := awsEnv.IdentityProvider.Get(ctx)
		Expect(err).To(MatchError(ContainSubstring("getting caller identity")))

		id, err := awsEnv.IdentityProvider.Get(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(id.AccountID).To(Equal(fake.DefaultAccountID))
		Expect(awsEnv.STSAPI.GetCallerIdentityBehavior.Calls()).To(Equal(2))
	})
	It("should fail when STS omits the account", func() {
		awsEnv.STSAPI.GetCallerIdentityBehavior.Output.Set(&sts.GetCallerIdentityOutput{
			Arn: lo.ToPtr("arn:aws:iam::123456789012:role/reclaimer"),
		})
		_, err := awsEnv.IdentityProvider.Get(ctx)
		Expect(awserrors.IsMissingField(err)).To(BeTrue())
	})
	It("should fail on a malformed arn", func() {
		awsEnv.STSAPI.GetCallerIdentityBehavior.Output.Set(&sts.GetCallerIdentityOutput{
			Account: lo.ToPtr(fake.DefaultAccountID),
			Arn:     lo.ToPtr("not-an-arn"),
		})
		_, err := awsEnv.IdentityProvider.Get(ctx)
		Expect(err).To(MatchError(ContainSubstring("parsing caller identity arn")))
	})
})
