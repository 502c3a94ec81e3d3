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
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/samber/lo"

	sdk "github.com/cloudops/opsscripts/pkg/aws"
)

// EKSBehavior must be reset between tests otherwise tests will
// pollute each other.
type EKSBehavior struct {
	ListClustersBehavior        MockedFunction[eks.ListClustersInput, eks.ListClustersOutput]
	DescribeClusterBehavior     MockedFunction[eks.DescribeClusterInput, eks.DescribeClusterOutput]
	ListTagsForResourceBehavior MockedFunction[eks.ListTagsForResourceInput, eks.ListTagsForResourceOutput]
	ListNodegroupsBehavior      MockedFunction[eks.ListNodegroupsInput, eks.ListNodegroupsOutput]
	DescribeNodegroupBehavior   MockedFunction[eks.DescribeNodegroupInput, eks.DescribeNodegroupOutput]
	DeleteNodegroupBehavior     MockedFunction[eks.DeleteNodegroupInput, eks.DeleteNodegroupOutput]
	DeleteClusterBehavior       MockedFunction[eks.DeleteClusterInput, eks.DeleteClusterOutput]

	// DeletingPolls is the number of DescribeNodegroup calls that report DELETING after a
	// node group deletion was requested, before the node group disappears
	DeletingPolls int
	// FailedNodegroups lists node group names that end up DELETE_FAILED once deleted
	FailedNodegroups []string

	mu         sync.RWMutex
	clusters   []ekstypes.Cluster
	nodegroups map[string][]string
	deleting   map[string]int
	deletions  []string
}

// EKSAPI is an in-memory EKS control plane. DeleteCluster rejects clusters that still own node groups,
// like the real service does.
type EKSAPI struct {
	sdk.EKSAPI
	EKSBehavior
}

func NewEKSAPI() *EKSAPI {
	return &EKSAPI{EKSBehavior: EKSBehavior{nodegroups: map[string][]string{}, deleting: map[string]int{}}}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (s *EKSAPI) Reset() {
	s.ListClustersBehavior.Reset()
	s.DescribeClusterBehavior.Reset()
	s.ListTagsForResourceBehavior.Reset()
	s.ListNodegroupsBehavior.Reset()
	s.DescribeNodegroupBehavior.Reset()
	s.DeleteNodegroupBehavior.Reset()
	s.DeleteClusterBehavior.Reset()
	s.DeletingPolls = 0
	s.FailedNodegroups = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusters = nil
	s.nodegroups = map[string][]string{}
	s.deleting = map[string]int{}
	s.deletions = nil
}

// AddCluster stores the cluster along with the names of its node groups
func (s *EKSAPI) AddCluster(cluster ekstypes.Cluster, nodegroups ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusters = append(s.clusters, cluster)
	s.nodegroups[lo.FromPtr(cluster.Name)] = append([]string{}, nodegroups...)
}

// Deletions returns "nodegroup/<cluster>/<name>" and "cluster/<name>" entries in the order the
// delete calls were accepted
func (s *EKSAPI) Deletions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.deletions...)
}

func (s *EKSAPI) ClusterExists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cluster(name)
	return ok
}

func (s *EKSAPI) ListClusters(_ context.Context, input *eks.ListClustersInput, _ ...func(*eks.Options)) (*eks.ListClustersOutput, error) {
	return s.ListClustersBehavior.Invoke(input, func(*eks.ListClustersInput) (*eks.ListClustersOutput, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return &eks.ListClustersOutput{
			Clusters: lo.Map(s.clusters, func(c ekstypes.Cluster, _ int) string { return lo.FromPtr(c.Name) }),
		}, nil
	})
}

func (s *EKSAPI) DescribeCluster(_ context.Context, input *eks.DescribeClusterInput, _ ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
	return s.DescribeClusterBehavior.Invoke(input, func(input *eks.DescribeClusterInput) (*eks.DescribeClusterOutput, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		cluster, ok := s.cluster(lo.FromPtr(input.Name))
		if !ok {
			return nil, clusterNotFound(lo.FromPtr(input.Name))
		}
		return &eks.DescribeClusterOutput{Cluster: &cluster}, nil
	})
}

func (s *EKSAPI) ListTagsForResource(_ context.Context, input *eks.ListTagsForResourceInput, _ ...func(*eks.Options)) (*eks.ListTagsForResourceOutput, error) {
	return s.ListTagsForResourceBehavior.Invoke(input, func(input *eks.ListTagsForResourceInput) (*eks.ListTagsForResourceOutput, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		cluster, ok := lo.Find(s.clusters, func(c ekstypes.Cluster) bool { return lo.FromPtr(c.Arn) == lo.FromPtr(input.ResourceArn) })
		if !ok {
			return nil, &ekstypes.NotFoundException{Message: lo.ToPtr(fmt.Sprintf("resource %s not found", lo.FromPtr(input.ResourceArn)))}
		}
		return &eks.ListTagsForResourceOutput{Tags: lo.Assign(cluster.Tags)}, nil
	})
}

func (s *EKSAPI) ListNodegroups(_ context.Context, input *eks.ListNodegroupsInput, _ ...func(*eks.Options)) (*eks.ListNodegroupsOutput, error) {
	return s.ListNodegroupsBehavior.Invoke(input, func(input *eks.ListNodegroupsInput) (*eks.ListNodegroupsOutput, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		name := lo.FromPtr(input.ClusterName)
		if _, ok := s.cluster(name); !ok {
			return nil, clusterNotFound(name)
		}
		return &eks.ListNodegroupsOutput{Nodegroups: append([]string{}, s.nodegroups[name]...)}, nil
	})
}

func (s *EKSAPI) DescribeNodegroup(_ context.Context, input *eks.DescribeNodegroupInput, _ ...func(*eks.Options)) (*eks.DescribeNodegroupOutput, error) {
	return s.DescribeNodegroupBehavior.Invoke(input, func(input *eks.DescribeNodegroupInput) (*eks.DescribeNodegroupOutput, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		clusterName, name := lo.FromPtr(input.ClusterName), lo.FromPtr(input.NodegroupName)
		if !lo.Contains(s.nodegroups[clusterName], name) {
			return nil, nodegroupNotFound(clusterName, name)
		}
		nodegroup := &ekstypes.Nodegroup{
			ClusterName:   input.ClusterName,
			NodegroupName: input.NodegroupName,
			Status:        ekstypes.NodegroupStatusActive,
		}
		key := clusterName + "/" + name
		remaining, deleting := s.deleting[key]
		switch {
		case !deleting:
		case lo.Contains(s.FailedNodegroups, name):
			nodegroup.Status = ekstypes.NodegroupStatusDeleteFailed
		case remaining > 0:
			s.deleting[key] = remaining - 1
			nodegroup.Status = ekstypes.NodegroupStatusDeleting
		default:
			delete(s.deleting, key)
			s.nodegroups[clusterName] = lo.Without(s.nodegroups[clusterName], name)
			return nil, nodegroupNotFound(clusterName, name)
		}
		return &eks.DescribeNodegroupOutput{Nodegroup: nodegroup}, nil
	})
}

func (s *EKSAPI) DeleteNodegroup(_ context.Context, input *eks.DeleteNodegroupInput, _ ...func(*eks.Options)) (*eks.DeleteNodegroupOutput, error) {
	return s.DeleteNodegroupBehavior.Invoke(input, func(input *eks.DeleteNodegroupInput) (*eks.DeleteNodegroupOutput, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		clusterName, name := lo.FromPtr(input.ClusterName), lo.FromPtr(input.NodegroupName)
		if !lo.Contains(s.nodegroups[clusterName], name) {
			return nil, nodegroupNotFound(clusterName, name)
		}
		if _, ok := s.deleting[clusterName+"/"+name]; ok {
			return nil, &ekstypes.ResourceInUseException{
				ClusterName:   input.ClusterName,
				NodegroupName: input.NodegroupName,
				Message:       lo.ToPtr(fmt.Sprintf("Nodegroup %s is currently being deleted", name)),
			}
		}
		s.deleting[clusterName+"/"+name] = s.DeletingPolls
		s.deletions = append(s.deletions, fmt.Sprintf("nodegroup/%s/%s", clusterName, name))
		return &eks.DeleteNodegroupOutput{Nodegroup: &ekstypes.Nodegroup{
			ClusterName:   input.ClusterName,
			NodegroupName: input.NodegroupName,
			Status:        ekstypes.NodegroupStatusDeleting,
		}}, nil
	})
}

func (s *EKSAPI) DeleteCluster(_ context.Context, input *eks.DeleteClusterInput, _ ...func(*eks.Options)) (*eks.DeleteClusterOutput, error) {
	return s.DeleteClusterBehavior.Invoke(input, func(input *eks.DeleteClusterInput) (*eks.DeleteClusterOutput, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		name := lo.FromPtr(input.Name)
		cluster, ok := s.cluster(name)
		if !ok {
			return nil, clusterNotFound(name)
		}
		if len(s.nodegroups[name]) > 0 {
			return nil, &ekstypes.ResourceInUseException{
				ClusterName: input.Name,
				Message:     lo.ToPtr(fmt.Sprintf("cluster %s has nodegroups attached", name)),
			}
		}
		s.clusters = lo.Reject(s.clusters, func(c ekstypes.Cluster, _ int) bool { return lo.FromPtr(c.Name) == name })
		delete(s.nodegroups, name)
		s.deletions = append(s.deletions, "cluster/"+name)
		cluster.Status = ekstypes.ClusterStatusDeleting
		return &eks.DeleteClusterOutput{Cluster: &cluster}, nil
	})
}

func (s *EKSAPI) cluster(name string) (ekstypes.Cluster, bool) {
	return lo.Find(s.clusters, func(c ekstypes.Cluster) bool { return lo.FromPtr(c.Name) == name })
}

func clusterNotFound(name string) error {
	return &ekstypes.ResourceNotFoundException{
		ClusterName: lo.ToPtr(name),
		Message:     lo.ToPtr(fmt.Sprintf("No cluster found for name: %s.", name)),
	}
}

func nodegroupNotFound(clusterName, name string) error {
	return &ekstypes.ResourceNotFoundException{
		ClusterName:   lo.ToPtr(clusterName),
		NodegroupName: lo.ToPtr(name),
		Message:       lo.ToPtr(fmt.Sprintf("No node group found for name: %s.", name)),
	}
}
