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
	"fmt"
	"strings"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/imdario/mergo"
	"github.com/samber/lo"

	"github.com/cloudops/opsscripts/pkg/fake"
)

type InstanceOptions struct {
	ID             string
	State          ec2types.InstanceStateName
	LaunchTime     time.Time
	PrivateDNSName string
	Tags           map[string]string
}

// Instance returns a running EC2 instance launched at Epoch unless overridden
func Instance(overrides ...InstanceOptions) ec2types.Instance {
	opts := InstanceOptions{}
	for _, override := range overrides {
		if err := mergo.Merge(&opts, override, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge instance options: %s", err))
		}
	}
	if opts.ID == "" {
		opts.ID = fmt.Sprintf("i-%s", strings.ToLower(randomdata.Alphanumeric(17)))
	}
	if opts.State == "" {
		opts.State = ec2types.InstanceStateNameRunning
	}
	if opts.LaunchTime.IsZero() {
		opts.LaunchTime = Epoch
	}
	if opts.PrivateDNSName == "" {
		opts.PrivateDNSName = fmt.Sprintf("ip-%s.%s.compute.internal", strings.ReplaceAll(randomdata.IpV4Address(), ".", "-"), fake.DefaultRegion)
	}
	return ec2types.Instance{
		InstanceId:     lo.ToPtr(opts.ID),
		State:          &ec2types.InstanceState{Name: opts.State},
		LaunchTime:     lo.ToPtr(opts.LaunchTime),
		PrivateDnsName: lo.ToPtr(opts.PrivateDNSName),
		Tags: lo.MapToSlice(opts.Tags, func(k, v string) ec2types.Tag {
			return ec2types.Tag{Key: lo.ToPtr(k), Value: lo.ToPtr(v)}
		}),
	}
}

type ClusterOptions struct {
	Name      string
	Status    ekstypes.ClusterStatus
	CreatedAt time.Time
	Tags      map[string]string
}

// Cluster returns an active EKS cluster created at Epoch unless overridden. Its ARN matches the
// one built from the fake caller identity.
func Cluster(overrides ...ClusterOptions) ekstypes.Cluster {
	opts := ClusterOptions{}
	for _, override := range overrides {
		if err := mergo.Merge(&opts, override, mergo.WithOverride); err != nil {
			panic(fmt.Sprintf("Failed to merge cluster options: %s", err))
		}
	}
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("cluster-%s", strings.ToLower(randomdata.Alphanumeric(8)))
	}
	if opts.Status == "" {
		opts.Status = ekstypes.ClusterStatusActive
	}
	if opts.CreatedAt.IsZero() {
		opts.CreatedAt = Epoch
	}
	return ekstypes.Cluster{
		Name:      lo.ToPtr(opts.Name),
		Arn:       lo.ToPtr(ClusterARN(opts.Name)),
		Status:    opts.Status,
		CreatedAt: lo.ToPtr(opts.CreatedAt),
		Tags:      lo.Assign(opts.Tags),
	}
}

func ClusterARN(name string) string {
	return arn.ARN{
		Partition: fake.DefaultPartition,
		Service:   "eks",
		Region:    fake.DefaultRegion,
		AccountID: fake.DefaultAccountID,
		Resource:  "cluster/" + name,
	}.String()
}

// NodeGroupNames returns n random node group names
func NodeGroupNames(n int) []string {
	return lo.Times(n, func(i int) string {
		return fmt.Sprintf("ng-%d-%s", i, strings.ToLower(randomdata.Alphanumeric(6)))
	})
}
