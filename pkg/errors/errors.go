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

package errors

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	AccessDeniedCode          = "AccessDenied"
	AccessDeniedExceptionCode = "AccessDeniedException"
)

var (
	// This is not an exhaustive list, add to it as needed
	notFoundErrorCodes = sets.New[string](
		"InvalidInstanceID.NotFound",
		"ResourceNotFoundException",
		"NotFoundException",
	)
	throttlingErrorCodes = sets.New[string](
		"Throttling",
		"ThrottlingException",
		"ThrottledException",
		"RequestLimitExceeded",
		"RequestThrottled",
		"RequestThrottledException",
		"TooManyRequestsException",
		"SlowDown",
	)
	resourceInUseErrorCodes = sets.New[string](
		"ResourceInUseException",
		"ResourceInUse",
	)
	accessDeniedErrorCodes = sets.New[string](
		AccessDeniedCode,
		AccessDeniedExceptionCode,
		"UnauthorizedOperation",
	)
)

// MissingFieldError is returned when a provider response lacks a field the reclaimer
// depends on, e.g. an instance without a LaunchTime.
type MissingFieldError struct {
	Resource string
	Field    string
}

func (e MissingFieldError) Error() string {
	return fmt.Sprintf("%s is missing %s", e.Resource, e.Field)
}

func IsMissingField(err error) bool {
	if err == nil {
		return false
	}
	var mfErr MissingFieldError
	return errors.As(err, &mfErr)
}

// NodeGroupDeletionFailedError is returned when EKS reports DELETE_FAILED for a node group
// that was asked to be deleted.
type NodeGroupDeletionFailedError struct {
	ClusterName   string
	NodeGroupName string
	Reason        string
}

func (e NodeGroupDeletionFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("node group %q of cluster %q failed to delete", e.NodeGroupName, e.ClusterName)
	}
	return fmt.Sprintf("node group %q of cluster %q failed to delete, %s", e.NodeGroupName, e.ClusterName, e.Reason)
}

// IsNotFound returns true if the err is an AWS error (even if it's
// wrapped) and is a known to mean "not found" (as opposed to a more
// serious or unexpected error)
func IsNotFound(err error) bool {
	return hasCode(err, notFoundErrorCodes)
}

// IgnoreNotFound returns nil if the error is a not found error, otherwise the error
func IgnoreNotFound(err error) error {
	if IsNotFound(err) {
		return nil
	}
	return err
}

// IsThrottled returns true if the error is an AWS error (even if it's
// wrapped) and signals that the caller exceeded a request rate
func IsThrottled(err error) bool {
	return hasCode(err, throttlingErrorCodes)
}

// IsResourceInUse returns true if the error is an AWS error (even if it's
// wrapped) and signals a conflicting operation on the resource, e.g. a delete
// that is already in progress
func IsResourceInUse(err error) bool {
	return hasCode(err, resourceInUseErrorCodes)
}

// IsAccessDenied returns true if the error is an AWS error (even if it's
// wrapped) and is known to mean "access denied" (as opposed to a more
// serious or unexpected error)
func IsAccessDenied(err error) bool {
	return hasCode(err, accessDeniedErrorCodes)
}

func hasCode(err error, codes sets.Set[string]) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return codes.Has(apiErr.ErrorCode())
	}
	return false
}
