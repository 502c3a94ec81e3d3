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

package test

import (
	"strings"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cloudops/opsscripts/pkg/fake"

	. "github.com/onsi/ginkgo/v2" // nolint:revive,stylecheck
	. "github.com/onsi/gomega"    // nolint:revive,stylecheck
)

func ExpectTerminated(ec2api *fake.EC2API, ids ...string) {
	GinkgoHelper()
	for _, id := range ids {
		instance, ok := ec2api.Instance(id)
		Expect(ok).To(BeTrue(), "instance %s does not exist", id)
		Expect(instance.State.Name).To(Equal(ec2types.InstanceStateNameShuttingDown), "instance %s was not terminated", id)
	}
}

func ExpectNotTerminated(ec2api *fake.EC2API, ids ...string) {
	GinkgoHelper()
	for _, id := range ids {
		instance, ok := ec2api.Instance(id)
		Expect(ok).To(BeTrue(), "instance %s does not exist", id)
		Expect(instance.State.Name).ToNot(Equal(ec2types.InstanceStateNameShuttingDown), "instance %s was terminated", id)
	}
}

// ExpectLogged asserts that an entry mentioning the resource id contains the message fragment
func ExpectLogged(logs *observer.ObservedLogs, id string, fragment string) observer.LoggedEntry {
	GinkgoHelper()
	entry, ok := lo.Find(logs.All(), func(e observer.LoggedEntry) bool {
		return e.ContextMap()["id"] == id && strings.Contains(e.Message, fragment)
	})
	Expect(ok).To(BeTrue(), "no log entry for %s containing %q", id, fragment)
	return entry
}
