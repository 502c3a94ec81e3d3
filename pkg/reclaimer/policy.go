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

package reclaimer

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// RetentionPolicy decides whether a resource has outlived its usefulness
type RetentionPolicy struct {
	AgeThreshold      time.Duration
	ProtectionTagName string
}

// IsProtected is true when any tag key matches the protection tag name and its value is "true",
// both compared case-insensitively
func (p RetentionPolicy) IsProtected(tags map[string]string) bool {
	return lo.SomeBy(lo.Entries(tags), func(e lo.Entry[string, string]) bool {
		return strings.EqualFold(e.Key, p.ProtectionTagName) && strings.EqualFold(e.Value, "true")
	})
}

// Decide applies the protection tag first. Negative ages never reach the threshold.
func (p RetentionPolicy) Decide(tags map[string]string, age time.Duration) Decision {
	switch {
	case p.IsProtected(tags):
		return DecisionProtected
	case age >= p.AgeThreshold:
		return DecisionExpired
	default:
		return DecisionNotYetEligible
	}
}

func (p RetentionPolicy) String() string {
	return fmt.Sprintf("%g hours", p.AgeThreshold.Hours())
}

// Age is now - created, with both instants normalized to UTC
func Age(now, created time.Time) time.Duration {
	return now.UTC().Sub(created.UTC())
}

func AgeInHours(now, created time.Time) float64 {
	return Age(now, created).Hours()
}
