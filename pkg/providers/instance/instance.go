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
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"

	sdk "github.com/cloudops/opsscripts/pkg/aws"
	awserrors "github.com/cloudops/opsscripts/pkg/errors"
)

// LiveStates are the states of instances that still exist from a billing point of view.
// Instances shutting down or already terminated are never listed.
var LiveStates = []ec2types.InstanceStateName{
	ec2types.InstanceStateNamePending,
	ec2types.InstanceStateNameRunning,
	ec2types.InstanceStateNameStopping,
	ec2types.InstanceStateNameStopped,
}

type Provider interface {
	List(context.Context) ([]*Instance, error)
	ListRunningByTag(context.Context, string, string) ([]*Instance, error)
	Tags(context.Context, string) (map[string]string, error)
	Terminate(context.Context, string) error
}

type DefaultProvider struct {
	ec2api sdk.EC2API
}

func NewDefaultProvider(ec2api sdk.EC2API) *DefaultProvider {
	return &DefaultProvider{
		ec2api: ec2api,
	}
}

// List returns every live instance in the region, in the order EC2 reports them
func (p *DefaultProvider) List(ctx context.Context) ([]*Instance, error) {
	return p.describe(ctx, ec2types.Filter{
		Name:   aws.String("instance-state-name"),
		Values: lo.Map(LiveStates, func(s ec2types.InstanceStateName, _ int) string { return string(s) }),
	})
}

// ListRunningByTag returns the running instances carrying the tag key with exactly the given value
func (p *DefaultProvider) ListRunningByTag(ctx context.Context, key, value string) ([]*Instance, error) {
	return p.describe(ctx,
		ec2types.Filter{
			Name:   aws.String("instance-state-name"),
			Values: []string{string(ec2types.InstanceStateNameRunning)},
		},
		ec2types.Filter{
			Name:   aws.String(fmt.Sprintf("tag:%s", key)),
			Values: []string{value},
		},
	)
}

func (p *DefaultProvider) describe(ctx context.Context, filters ...ec2types.Filter) ([]*Instance, error) {
	var instances []*Instance
	paginator := ec2.NewDescribeInstancesPaginator(p.ec2api, &ec2.DescribeInstancesInput{
		Filters: filters,
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing ec2 instances, %w", err)
		}
		for _, reservation := range out.Reservations {
			for _, i := range reservation.Instances {
				instances = append(instances, NewInstance(i))
			}
		}
	}
	return instances, nil
}

// Tags looks up the tags of a single instance. An instance without tags yields an empty map.
func (p *DefaultProvider) Tags(ctx context.Context, id string) (map[string]string, error) {
	tags := map[string]string{}
	paginator := ec2.NewDescribeTagsPaginator(p.ec2api, &ec2.DescribeTagsInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("resource-id"),
				Values: []string{id},
			},
		},
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing tags for instance %q, %w", id, err)
		}
		for _, t := range out.Tags {
			tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
		}
	}
	return tags, nil
}

// Terminate is a no-op for instances that no longer exist
func (p *DefaultProvider) Terminate(ctx context.Context, id string) error {
	if _, err := p.ec2api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{id},
	}); awserrors.IgnoreNotFound(err) != nil {
		return fmt.Errorf("terminating instance %q, %w", id, err)
	}
	return nil
}
