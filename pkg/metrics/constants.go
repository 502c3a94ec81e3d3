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

package metrics

const (
	// Common namespace for application metrics.
	Namespace = "reclaimer"

	// Common set of metric label names.
	KindLabel     = "kind"
	DecisionLabel = "decision"
	ResultLabel   = "result"
)

// DurationBuckets returns a []float64 of threshold values for run duration histograms. A run
// deleting clusters waits on node groups for minutes, so the buckets reach well past an hour.
// Each returned slice is new and may be modified without impacting other bucket definitions.
func DurationBuckets() []float64 {
	return []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 900, 1200, 1800, 2700, 3600}
}
