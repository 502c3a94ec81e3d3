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
	"context"
	"fmt"
	"strings"

	"github.com/avast/retry-go"
	"github.com/go-logr/logr"
	"github.com/samber/lo"
	"k8s.io/utils/clock"

	awserrors "github.com/cloudops/opsscripts/pkg/errors"
	"github.com/cloudops/opsscripts/pkg/metrics"
	"github.com/cloudops/opsscripts/pkg/operator/options"
	"github.com/cloudops/opsscripts/pkg/providers/cluster"
	"github.com/cloudops/opsscripts/pkg/providers/instance"
)

// Reclaimer deletes instances and clusters that are older than the retention policy allows and
// do not carry the protection tag. Resources are handled one at a time in provider order and the
// first error ends the run.
type Reclaimer struct {
	opts   *options.Options
	policy RetentionPolicy

	instanceProvider instance.Provider
	clusterProvider  cluster.Provider
	clock            clock.Clock
	log              logr.Logger

	metrics       *metrics.Metrics
	metricsClient metrics.Client
}

// New constructs a Reclaimer. metricsClient may be nil when no Timestream table is configured.
func New(opts *options.Options, instanceProvider instance.Provider, clusterProvider cluster.Provider, clk clock.Clock,
	log logr.Logger, m *metrics.Metrics, metricsClient metrics.Client) *Reclaimer {
	return &Reclaimer{
		opts: opts,
		policy: RetentionPolicy{
			AgeThreshold:      opts.AgeThreshold,
			ProtectionTagName: opts.ProtectionTagName,
		},
		instanceProvider: instanceProvider,
		clusterProvider:  clusterProvider,
		clock:            clk,
		log:              log,
		metrics:          m,
		metricsClient:    metricsClient,
	}
}

func (r *Reclaimer) Reclaim(ctx context.Context) (Result, error) {
	start := r.clock.Now()
	if r.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.RunTimeout)
		defer cancel()
	}
	ctx = logr.NewContext(ctx, r.log)
	r.log.Info("reclaiming stale resources", "region", r.opts.Region, "age-threshold", r.policy.String(),
		"protection-tag", r.policy.ProtectionTagName, "dry-run", r.opts.DryRun)

	result := Result{
		Evaluated: map[Kind]int{},
		Deleted:   map[Kind]int{},
	}
	err := r.reclaimInstances(ctx, &result)
	if err == nil {
		err = r.reclaimClusters(ctx, &result)
	}
	r.metrics.ObserveRun(r.clock.Since(start), err)
	if err != nil {
		r.log.Error(err, "reclaiming stale resources")
		return Result{}, err
	}
	result.Success = true
	result.Summary = r.summary(result)
	r.fireMetrics(ctx, result)
	r.log.Info(result.Summary)
	return result, nil
}

func (r *Reclaimer) reclaimInstances(ctx context.Context, result *Result) error {
	instances, err := withRetry(ctx, r, func() ([]*instance.Instance, error) { return r.instanceProvider.List(ctx) })
	if err != nil {
		return err
	}
	for _, i := range instances {
		if i.LaunchTime.IsZero() {
			return awserrors.MissingFieldError{Resource: fmt.Sprintf("instance %s", i.ID), Field: "LaunchTime"}
		}
		tags, err := withRetry(ctx, r, func() (map[string]string, error) { return r.instanceProvider.Tags(ctx, i.ID) })
		if err != nil {
			return err
		}
		if err := r.evaluate(ctx, result, &Resource{
			ID:        i.ID,
			Kind:      KindInstance,
			CreatedAt: i.LaunchTime.UTC(),
			Tags:      tags,
		}, r.terminateInstance); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reclaimer) reclaimClusters(ctx context.Context, result *Result) error {
	names, err := withRetry(ctx, r, func() ([]string, error) { return r.clusterProvider.List(ctx) })
	if err != nil {
		return err
	}
	for _, name := range names {
		c, err := withRetry(ctx, r, func() (*cluster.Cluster, error) { return r.clusterProvider.Get(ctx, name) })
		if err != nil {
			return err
		}
		if err := r.evaluate(ctx, result, &Resource{
			ID:        c.Name,
			Kind:      KindCluster,
			CreatedAt: c.CreatedAt.UTC(),
			Tags:      c.Tags,
		}, r.deleteCluster); err != nil {
			return err
		}
	}
	return nil
}

// evaluate applies the retention policy to one resource and deletes it when it has expired
func (r *Reclaimer) evaluate(ctx context.Context, result *Result, res *Resource, deleteFunc func(context.Context, *Resource) error) error {
	age := Age(r.clock.Now(), res.CreatedAt)
	decision := r.policy.Decide(res.Tags, age)
	log := r.log.WithValues("id", res.ID, "kind", res.Kind, "decision", decision, "tags", res.Tags, "age", age.String())

	evaluation := Evaluation{
		ID:       res.ID,
		Kind:     res.Kind,
		Decision: decision,
		Tags:     res.Tags,
		Age:      age,
	}
	result.Evaluated[res.Kind]++
	r.metrics.Evaluated(string(res.Kind), string(decision))

	switch decision {
	case DecisionProtected:
		log.Info(fmt.Sprintf("Skipping %s %s, protected by tag %q", res.Kind, res.ID, r.policy.ProtectionTagName))
	case DecisionNotYetEligible:
		if age < 0 {
			log.Info(fmt.Sprintf("Skipping %s %s, not older than %s, creation time is in the future", res.Kind, res.ID, r.policy), "reason", "creation-time-in-future")
		} else {
			log.Info(fmt.Sprintf("Skipping %s %s, not older than %s, eligible for deletion in the future", res.Kind, res.ID, r.policy))
		}
	case DecisionExpired:
		log.Info(fmt.Sprintf("Deleting %s %s, older than %s", res.Kind, res.ID, r.policy))
		if r.opts.DryRun {
			log.Info("dry run, skipping delete calls")
			break
		}
		if err := deleteFunc(logr.NewContext(ctx, log), res); err != nil {
			return err
		}
		evaluation.Deleted = true
		result.Deleted[res.Kind]++
		r.metrics.Deleted(string(res.Kind))
	}
	evaluation.NodeGroups = lo.Map(res.NodeGroups, func(ng NodeGroup, _ int) string { return ng.Name })
	result.Evaluations = append(result.Evaluations, evaluation)
	return nil
}

func (r *Reclaimer) terminateInstance(ctx context.Context, res *Resource) error {
	return r.retry(ctx, func() error { return r.instanceProvider.Terminate(ctx, res.ID) })
}

// deleteCluster deletes node groups one at a time, waiting for each to be gone, and the cluster last
func (r *Reclaimer) deleteCluster(ctx context.Context, res *Resource) error {
	log := logr.FromContextOrDiscard(ctx)
	names, err := withRetry(ctx, r, func() ([]string, error) { return r.clusterProvider.NodeGroups(ctx, res.ID) })
	if err != nil {
		return err
	}
	res.NodeGroups = lo.Map(names, func(name string, _ int) NodeGroup { return NodeGroup{Name: name, ClusterName: res.ID} })
	for _, ng := range res.NodeGroups {
		log.Info(fmt.Sprintf("Deleting node group %s of cluster %s", ng.Name, ng.ClusterName), "nodegroup", ng.Name)
		if err := r.retry(ctx, func() error { return r.clusterProvider.DeleteNodeGroup(ctx, ng.ClusterName, ng.Name) }); err != nil {
			return err
		}
		if err := r.clusterProvider.WaitForNodeGroupDeletion(ctx, ng.ClusterName, ng.Name); err != nil {
			return err
		}
		log.V(1).Info("deleted node group", "nodegroup", ng.Name)
	}
	return r.retry(ctx, func() error { return r.clusterProvider.Delete(ctx, res.ID) })
}

// retry repeats fn with exponential backoff while it is throttled. Any other error is returned
// immediately.
func (r *Reclaimer) retry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(uint(r.opts.RetryAttempts)),
		retry.Delay(r.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(awserrors.IsThrottled),
		retry.OnRetry(func(n uint, err error) {
			logr.FromContextOrDiscard(ctx).V(1).Info("retrying throttled call", "attempt", n+1, "error", err.Error())
		}),
	)
}

func withRetry[T any](ctx context.Context, r *Reclaimer, fn func() (T, error)) (T, error) {
	var out T
	err := r.retry(ctx, func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

func (r *Reclaimer) summary(result Result) string {
	verb := "deleted"
	deleted := result.Deleted
	if r.opts.DryRun {
		verb = "would delete"
		deleted = lo.CountValuesBy(lo.Filter(result.Evaluations, func(e Evaluation, _ int) bool {
			return e.Decision == DecisionExpired
		}), func(e Evaluation) Kind { return e.Kind })
	}
	return fmt.Sprintf("Evaluated %s, %s %s",
		counts(result.Evaluated), verb, counts(deleted))
}

func counts(byKind map[Kind]int) string {
	return strings.Join(lo.Map([]Kind{KindInstance, KindCluster}, func(k Kind, _ int) string {
		return fmt.Sprintf("%d %s(s)", byKind[k], k)
	}), " and ")
}

// fireMetrics writes deletion counts to Timestream. Failures are logged and do not fail the run.
func (r *Reclaimer) fireMetrics(ctx context.Context, result Result) {
	if r.metricsClient == nil || r.opts.DryRun {
		return
	}
	for _, kind := range []Kind{KindInstance, KindCluster} {
		if err := r.metricsClient.FireMetric(ctx, fmt.Sprintf("%sDeleted", kind), float64(result.Deleted[kind]), r.opts.Region); err != nil {
			r.log.Error(err, "firing metric", "kind", kind)
		}
	}
}
