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
	"time"
)

type Kind string

const (
	KindInstance Kind = "instance"
	KindCluster  Kind = "cluster"
)

// Resource is a tagged cloud object the reclaimer may delete
type Resource struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time
	Tags      map[string]string
	// NodeGroups is only populated for clusters selected for deletion
	NodeGroups []NodeGroup
}

type NodeGroup struct {
	Name        string
	ClusterName string
}

type Decision string

const (
	DecisionProtected      Decision = "protected"
	DecisionExpired        Decision = "expired"
	DecisionNotYetEligible Decision = "not-yet-eligible"
)

// Evaluation records the outcome for one resource
type Evaluation struct {
	ID         string
	Kind       Kind
	Decision   Decision
	Tags       map[string]string
	Age        time.Duration
	NodeGroups []string
	Deleted    bool
}

type Result struct {
	Success     bool
	Summary     string
	Evaluations []Evaluation
	Evaluated   map[Kind]int
	Deleted     map[Kind]int
}
