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

package errors_test

import (
	"fmt"
	"testing"

	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/smithy-go"
	"github.com/samber/lo"

	awserrors "github.com/cloudops/opsscripts/pkg/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestErrors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Errors")
}

var _ = Describe("Errors", func() {
	Context("IsNotFound", func() {
		It("should match typed EKS not found errors", func() {
			err := fmt.Errorf("describing cluster, %w", &ekstypes.ResourceNotFoundException{Message: lo.ToPtr("gone")})
			Expect(awserrors.IsNotFound(err)).To(BeTrue())
			Expect(awserrors.IgnoreNotFound(err)).To(BeNil())
		})
		It("should match generic EC2 not found codes", func() {
			err := &smithy.GenericAPIError{Code: "InvalidInstanceID.NotFound"}
			Expect(awserrors.IsNotFound(err)).To(BeTrue())
		})
		It("should not match unrelated errors", func() {
			Expect(awserrors.IsNotFound(fmt.Errorf("connection reset"))).To(BeFalse())
			Expect(awserrors.IsNotFound(nil)).To(BeFalse())
			Expect(awserrors.IgnoreNotFound(fmt.Errorf("boom"))).To(HaveOccurred())
		})
	})
	Context("IsThrottled", func() {
		It("should match throttling codes through wrapping", func() {
			err := fmt.Errorf("listing clusters, %w", &smithy.GenericAPIError{Code: "ThrottlingException"})
			Expect(awserrors.IsThrottled(err)).To(BeTrue())
			Expect(awserrors.IsThrottled(&smithy.GenericAPIError{Code: "RequestLimitExceeded"})).To(BeTrue())
		})
		It("should not treat other API errors as throttling", func() {
			Expect(awserrors.IsThrottled(&smithy.GenericAPIError{Code: "InternalError"})).To(BeFalse())
			Expect(awserrors.IsThrottled(fmt.Errorf("timeout"))).To(BeFalse())
		})
	})
	Context("IsResourceInUse", func() {
		It("should match typed EKS in use errors through wrapping", func() {
			err := fmt.Errorf("deleting cluster, %w", &ekstypes.ResourceInUseException{Message: lo.ToPtr("deleting")})
			Expect(awserrors.IsResourceInUse(err)).To(BeTrue())
			Expect(awserrors.IsResourceInUse(&smithy.GenericAPIError{Code: "ResourceNotFoundException"})).To(BeFalse())
		})
	})
	Context("IsAccessDenied", func() {
		It("should match access denied codes", func() {
			Expect(awserrors.IsAccessDenied(&smithy.GenericAPIError{Code: "UnauthorizedOperation"})).To(BeTrue())
			Expect(awserrors.IsAccessDenied(&smithy.GenericAPIError{Code: "ThrottlingException"})).To(BeFalse())
		})
	})
	Context("MissingFieldError", func() {
		It("should be detectable when wrapped", func() {
			err := fmt.Errorf("evaluating instance, %w", awserrors.MissingFieldError{Resource: "instance i-123", Field: "LaunchTime"})
			Expect(awserrors.IsMissingField(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("instance i-123 is missing LaunchTime"))
		})
	})
})
