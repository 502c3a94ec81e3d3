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

package log_test

import (
	"testing"

	"github.com/cloudops/opsscripts/pkg/utils/log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Log")
}

var _ = Describe("NewLogger", func() {
	It("should enable V(1) at debug", func() {
		logger, err := log.NewLogger("debug")
		Expect(err).ToNot(HaveOccurred())
		Expect(logger.V(1).Enabled()).To(BeTrue())
	})
	It("should disable V(1) at info", func() {
		logger, err := log.NewLogger("info")
		Expect(err).ToNot(HaveOccurred())
		Expect(logger.V(1).Enabled()).To(BeFalse())
	})
	It("should reject unknown levels", func() {
		_, err := log.NewLogger("chatty")
		Expect(err).To(HaveOccurred())
	})
})
