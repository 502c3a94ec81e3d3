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

package fake

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/google/uuid"
	"github.com/samber/lo"

	sdk "github.com/cloudops/opsscripts/pkg/aws"
)

// EC2Behavior must be reset between tests otherwise tests will
// pollute each other.
type EC2Behavior struct {
	DescribeInstancesBehavior  MockedFunction[ec2.DescribeInstancesInput, ec2.DescribeInstancesOutput]
	DescribeTagsBehavior       MockedFunction[ec2.DescribeTagsInput, ec2.DescribeTagsOutput]
	TerminateInstancesBehavior MockedFunction[ec2.TerminateInstancesInput, ec2.TerminateInstancesOutput]

	// PageSize bounds the number of reservations returned per DescribeInstances page, 0 returns everything
	PageSize int

	mu        sync.RWMutex
	instances []ec2types.Instance
	pages     sync.Map // next token -> offset
}

// EC2API is an in-memory EC2 account holding instances in insertion order
type EC2API struct {
	sdk.EC2API
	EC2Behavior
}

func NewEC2API() *EC2API {
	return &EC2API{}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (e *EC2API) Reset() {
	e.DescribeInstancesBehavior.Reset()
	e.DescribeTagsBehavior.Reset()
	e.TerminateInstancesBehavior.Reset()
	e.PageSize = 0

	e.mu.Lock()
	defer e.mu.Unlock()
	e.instances = nil
	e.pages.Clear()
}

func (e *EC2API) AddInstances(instances ...ec2types.Instance) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instances = append(e.instances, instances...)
}

// Instance returns the stored instance with the given id
func (e *EC2API) Instance(id string) (ec2types.Instance, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return lo.Find(e.instances, func(i ec2types.Instance) bool { return lo.FromPtr(i.InstanceId) == id })
}

func (e *EC2API) DescribeInstances(_ context.Context, input *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	return e.DescribeInstancesBehavior.Invoke(input, func(input *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
		e.mu.RLock()
		defer e.mu.RUnlock()
		matched := lo.Filter(e.instances, func(i ec2types.Instance, _ int) bool {
			return lo.EveryBy(input.Filters, func(f ec2types.Filter) bool { return matchInstance(i, f) })
		})
		offset := 0
		if input.NextToken != nil {
			v, ok := e.pages.Load(lo.FromPtr(input.NextToken))
			if !ok {
				return nil, fmt.Errorf("invalid next token %q", lo.FromPtr(input.NextToken))
			}
			offset = v.(int)
		}
		end := len(matched)
		if e.PageSize > 0 && offset+e.PageSize < end {
			end = offset + e.PageSize
		}
		out := &ec2.DescribeInstancesOutput{
			Reservations: lo.Map(matched[offset:end], func(i ec2types.Instance, _ int) ec2types.Reservation {
				return ec2types.Reservation{Instances: []ec2types.Instance{i}}
			}),
		}
		if end < len(matched) {
			token := uuid.New().String()
			e.pages.Store(token, end)
			out.NextToken = lo.ToPtr(token)
		}
		return out, nil
	})
}

func (e *EC2API) DescribeTags(_ context.Context, input *ec2.DescribeTagsInput, _ ...func(*ec2.Options)) (*ec2.DescribeTagsOutput, error) {
	return e.DescribeTagsBehavior.Invoke(input, func(input *ec2.DescribeTagsInput) (*ec2.DescribeTagsOutput, error) {
		var ids []string
		for _, f := range input.Filters {
			switch lo.FromPtr(f.Name) {
			case "resource-id":
				ids = append(ids, f.Values...)
			default:
				panic("Unsupported mock filter")
			}
		}
		e.mu.RLock()
		defer e.mu.RUnlock()
		var tags []ec2types.TagDescription
		for _, i := range e.instances {
			if !lo.Contains(ids, lo.FromPtr(i.InstanceId)) {
				continue
			}
			tags = append(tags, lo.Map(i.Tags, func(t ec2types.Tag, _ int) ec2types.TagDescription {
				return ec2types.TagDescription{
					Key:          t.Key,
					Value:        t.Value,
					ResourceId:   i.InstanceId,
					ResourceType: ec2types.ResourceTypeInstance,
				}
			})...)
		}
		return &ec2.DescribeTagsOutput{Tags: tags}, nil
	})
}

func (e *EC2API) TerminateInstances(_ context.Context, input *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	return e.TerminateInstancesBehavior.Invoke(input, func(input *ec2.TerminateInstancesInput) (*ec2.TerminateInstancesOutput, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		var changes []ec2types.InstanceStateChange
		for idx := range e.instances {
			if !lo.Contains(input.InstanceIds, lo.FromPtr(e.instances[idx].InstanceId)) {
				continue
			}
			previous := e.instances[idx].State
			e.instances[idx].State = &ec2types.InstanceState{Name: ec2types.InstanceStateNameShuttingDown}
			changes = append(changes, ec2types.InstanceStateChange{
				InstanceId:    e.instances[idx].InstanceId,
				PreviousState: previous,
				CurrentState:  e.instances[idx].State,
			})
		}
		return &ec2.TerminateInstancesOutput{TerminatingInstances: changes}, nil
	})
}

func matchInstance(instance ec2types.Instance, filter ec2types.Filter) bool {
	switch name := lo.FromPtr(filter.Name); {
	case name == "instance-state-name":
		return instance.State != nil && lo.Contains(filter.Values, string(instance.State.Name))
	case name == "instance-id":
		return lo.Contains(filter.Values, lo.FromPtr(instance.InstanceId))
	case strings.HasPrefix(name, "tag:"):
		key := strings.TrimPrefix(name, "tag:")
		return lo.SomeBy(instance.Tags, func(t ec2types.Tag) bool {
			return lo.FromPtr(t.Key) == key && lo.Contains(filter.Values, lo.FromPtr(t.Value))
		})
	case name == "tag-key":
		return lo.SomeBy(instance.Tags, func(t ec2types.Tag) bool { return lo.Contains(filter.Values, lo.FromPtr(t.Key)) })
	default:
		panic("Unsupported mock filter")
	}
}
