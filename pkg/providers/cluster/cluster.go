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
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"k8s.io/apimachinery/pkg/util/wait"

	sdk "github.com/cloudops/opsscripts/pkg/aws"
	awserrors "github.com/cloudops/opsscripts/pkg/errors"
	"github.com/cloudops/opsscripts/pkg/providers/identity"
)

type Provider interface {
	List(context.Context) ([]string, error)
	Get(context.Context, string) (*Cluster, error)
	NodeGroups(context.Context, string) ([]string, error)
	DeleteNodeGroup(context.Context, string, string) error
	WaitForNodeGroupDeletion(context.Context, string, string) error
	Delete(context.Context, string) error
}

type DefaultProvider struct {
	region           string
	eksapi           sdk.EKSAPI
	identityProvider identity.Provider

	pollInterval    time.Duration
	deletionTimeout time.Duration
}

func NewDefaultProvider(region string, eksapi sdk.EKSAPI, identityProvider identity.Provider, pollInterval, deletionTimeout time.Duration) *DefaultProvider {
	return &DefaultProvider{
		region:           region,
		eksapi:           eksapi,
		identityProvider: identityProvider,
		pollInterval:     pollInterval,
		deletionTimeout:  deletionTimeout,
	}
}

// List returns the names of every cluster in the region in the order EKS reports them
func (p *DefaultProvider) List(ctx context.Context) ([]string, error) {
	var names []string
	paginator := eks.NewListClustersPaginator(p.eksapi, &eks.ListClustersInput{})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing eks clusters, %w", err)
		}
		names = append(names, out.Clusters...)
	}
	return names, nil
}

// Get describes the cluster for its creation time and fetches its tags by ARN. The ARN is built
// from the caller's partition and account so that tag lookups work the same in every partition.
func (p *DefaultProvider) Get(ctx context.Context, name string) (*Cluster, error) {
	out, err := p.eksapi.DescribeCluster(ctx, &eks.DescribeClusterInput{
		Name: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("describing cluster %q, %w", name, err)
	}
	if out.Cluster == nil {
		return nil, awserrors.MissingFieldError{Resource: fmt.Sprintf("cluster %s", name), Field: "Cluster"}
	}
	if out.Cluster.CreatedAt == nil {
		return nil, awserrors.MissingFieldError{Resource: fmt.Sprintf("cluster %s", name), Field: "CreatedAt"}
	}
	clusterARN, err := p.ARN(ctx, name)
	if err != nil {
		return nil, err
	}
	tags, err := p.eksapi.ListTagsForResource(ctx, &eks.ListTagsForResourceInput{
		ResourceArn: aws.String(clusterARN),
	})
	if err != nil {
		return nil, fmt.Errorf("listing tags for cluster %q, %w", name, err)
	}
	return NewCluster(*out.Cluster, lo.Assign(tags.Tags)), nil
}

// ARN returns arn:<partition>:eks:<region>:<account>:cluster/<name>
func (p *DefaultProvider) ARN(ctx context.Context, name string) (string, error) {
	id, err := p.identityProvider.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving arn for cluster %q, %w", name, err)
	}
	return arn.ARN{
		Partition: id.Partition,
		Service:   "eks",
		Region:    p.region,
		AccountID: id.AccountID,
		Resource:  "cluster/" + name,
	}.String(), nil
}

func (p *DefaultProvider) NodeGroups(ctx context.Context, clusterName string) ([]string, error) {
	var names []string
	paginator := eks.NewListNodegroupsPaginator(p.eksapi, &eks.ListNodegroupsInput{
		ClusterName: aws.String(clusterName),
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing node groups for cluster %q, %w", clusterName, err)
		}
		names = append(names, out.Nodegroups...)
	}
	return names, nil
}

// DeleteNodeGroup requests deletion of the node group. A node group that is already gone, or whose
// deletion was requested by an earlier run, is not an error.
func (p *DefaultProvider) DeleteNodeGroup(ctx context.Context, clusterName, name string) error {
	_, err := p.eksapi.DeleteNodegroup(ctx, &eks.DeleteNodegroupInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(name),
	})
	if awserrors.IsResourceInUse(err) && p.nodeGroupDeleting(ctx, clusterName, name) {
		logr.FromContextOrDiscard(ctx).V(1).Info("node group deletion already in progress", "cluster", clusterName, "nodegroup", name)
		return nil
	}
	if awserrors.IgnoreNotFound(err) != nil {
		return fmt.Errorf("deleting node group %q of cluster %q, %w", name, clusterName, err)
	}
	return nil
}

func (p *DefaultProvider) nodeGroupDeleting(ctx context.Context, clusterName, name string) bool {
	out, err := p.eksapi.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(name),
	})
	if awserrors.IsNotFound(err) {
		return true
	}
	return err == nil && out.Nodegroup != nil && out.Nodegroup.Status == ekstypes.NodegroupStatusDeleting
}

// WaitForNodeGroupDeletion polls the node group until EKS no longer knows about it. DELETE_FAILED
// stops the wait with a NodeGroupDeletionFailedError. Throttled polls are retried on the next tick.
func (p *DefaultProvider) WaitForNodeGroupDeletion(ctx context.Context, clusterName, name string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("cluster", clusterName, "nodegroup", name)
	err := wait.PollUntilContextTimeout(ctx, p.pollInterval, p.deletionTimeout, false, func(ctx context.Context) (bool, error) {
		out, err := p.eksapi.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
			ClusterName:   aws.String(clusterName),
			NodegroupName: aws.String(name),
		})
		if awserrors.IsNotFound(err) {
			return true, nil
		}
		if awserrors.IsThrottled(err) {
			log.V(1).Info("throttled while polling node group")
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("describing node group %q of cluster %q, %w", name, clusterName, err)
		}
		if out.Nodegroup == nil {
			return false, awserrors.MissingFieldError{Resource: fmt.Sprintf("node group %s/%s", clusterName, name), Field: "Nodegroup"}
		}
		if out.Nodegroup.Status == ekstypes.NodegroupStatusDeleteFailed {
			return false, awserrors.NodeGroupDeletionFailedError{
				ClusterName:   clusterName,
				NodeGroupName: name,
				Reason:        healthReason(out.Nodegroup.Health),
			}
		}
		log.V(1).Info("waiting for node group deletion", "status", out.Nodegroup.Status)
		return false, nil
	})
	if err != nil && wait.Interrupted(err) {
		return fmt.Errorf("waiting %s for node group %q of cluster %q to be deleted, %w", p.deletionTimeout, name, clusterName, err)
	}
	return err
}

// Delete requests deletion of the cluster. EKS rejects the call while node groups remain; a
// cluster that is already deleting is not an error.
func (p *DefaultProvider) Delete(ctx context.Context, name string) error {
	_, err := p.eksapi.DeleteCluster(ctx, &eks.DeleteClusterInput{
		Name: aws.String(name),
	})
	if awserrors.IsResourceInUse(err) && p.clusterDeleting(ctx, name) {
		logr.FromContextOrDiscard(ctx).V(1).Info("cluster deletion already in progress", "cluster", name)
		return nil
	}
	if awserrors.IgnoreNotFound(err) != nil {
		return fmt.Errorf("deleting cluster %q, %w", name, err)
	}
	return nil
}

func (p *DefaultProvider) clusterDeleting(ctx context.Context, name string) bool {
	out, err := p.eksapi.DescribeCluster(ctx, &eks.DescribeClusterInput{
		Name: aws.String(name),
	})
	if awserrors.IsNotFound(err) {
		return true
	}
	return err == nil && out.Cluster != nil && out.Cluster.Status == ekstypes.ClusterStatusDeleting
}

func healthReason(health *ekstypes.NodegroupHealth) string {
	if health == nil {
		return ""
	}
	return strings.Join(lo.Map(health.Issues, func(i ekstypes.Issue, _ int) string {
		return fmt.Sprintf("%s: %s", i.Code, aws.ToString(i.Message))
	}), "; ")
}
