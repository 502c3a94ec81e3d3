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

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the counters a reclaim run reports. They are registered on the registry passed to
// New so a process can push or serve them alongside the SDK client metrics.
type Metrics struct {
	ResourcesEvaluated *prometheus.CounterVec
	ResourcesDeleted   *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
}

func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResourcesEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "resources",
				Name:      "evaluated_total",
				Help:      "Number of resources evaluated by the reclaimer, labeled by kind and retention decision.",
			},
			[]string{KindLabel, DecisionLabel},
		),
		ResourcesDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "resources",
				Name:      "deleted_total",
				Help:      "Number of resources deleted by the reclaimer, labeled by kind.",
			},
			[]string{KindLabel},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "run",
				Name:      "duration_seconds",
				Help:      "Duration of a reclaim run in seconds, labeled by result.",
				Buckets:   DurationBuckets(),
			},
			[]string{ResultLabel},
		),
	}
	registry.MustRegister(m.ResourcesEvaluated, m.ResourcesDeleted, m.RunDuration)
	return m
}

func (m *Metrics) Evaluated(kind, decision string) {
	m.ResourcesEvaluated.With(prometheus.Labels{KindLabel: kind, DecisionLabel: decision}).Inc()
}

func (m *Metrics) Deleted(kind string) {
	m.ResourcesDeleted.With(prometheus.Labels{KindLabel: kind}).Inc()
}

func (m *Metrics) ObserveRun(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.RunDuration.With(prometheus.Labels{ResultLabel: result}).Observe(d.Seconds())
}
