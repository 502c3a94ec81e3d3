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

package instance

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"
)

// Instance is an internal data representation of an ec2types.Instance. It contains all the
// properties the reclaimer and the host lookups need.
type Instance struct {
	ID             string
	State          ec2types.InstanceStateName
	LaunchTime     time.Time
	PrivateDNSName string
	Tags           map[string]string
}

func NewInstance(out ec2types.Instance) *Instance {
	return &Instance{
		ID:             aws.ToString(out.InstanceId),
		State:          lo.FromPtr(out.State).Name,
		LaunchTime:     aws.ToTime(out.LaunchTime),
		PrivateDNSName: aws.ToString(out.PrivateDnsName),
		Tags: lo.SliceToMap(out.Tags, func(t ec2types.Tag) (string, string) {
			return aws.ToString(t.Key), aws.ToString(t.Value)
		}),
	}
}
