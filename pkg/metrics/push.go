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
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	PushJobName = "stale-resource-reclaimer"
)

// Pusher sends everything gathered from a registry to a Prometheus Pushgateway. A lambda run is
// too short lived to be scraped.
type Pusher struct {
	pusher *push.Pusher
}

func NewPusher(url string, gatherer prometheus.Gatherer, region string) *Pusher {
	return &Pusher{
		pusher: push.New(url, PushJobName).Gatherer(gatherer).Grouping("region", region),
	}
}

func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics, %w", err)
	}
	return nil
}
