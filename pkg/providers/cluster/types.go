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

package cluster

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
)

// Cluster is an internal data representation of an EKS cluster
type Cluster struct {
	Name      string
	ARN       string
	Status    ekstypes.ClusterStatus
	CreatedAt time.Time
	Tags      map[string]string
}

func NewCluster(out ekstypes.Cluster, tags map[string]string) *Cluster {
	return &Cluster{
		Name:      aws.ToString(out.Name),
		ARN:       aws.ToString(out.Arn),
		Status:    out.Status,
		CreatedAt: aws.ToTime(out.CreatedAt),
		Tags:      tags,
	}
}
