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

package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-logr/logr"
	"github.com/patrickmn/go-cache"

	sdk "github.com/cloudops/opsscripts/pkg/aws"
	awserrors "github.com/cloudops/opsscripts/pkg/errors"
)

const (
	callerIdentityCacheKey = "callerIdentity"
)

// Identity is the account and partition the configured credentials act in
type Identity struct {
	AccountID string
	Partition string
	ARN       string
}

type Provider interface {
	Get(context.Context) (*Identity, error)
}

// DefaultProvider resolves the caller identity through STS. The result is cached so a warm
// lambda container only pays for the call once.
type DefaultProvider struct {
	sync.Mutex

	stsapi sdk.STSAPI
	cache  *cache.Cache
}

func NewDefaultProvider(stsapi sdk.STSAPI, cache *cache.Cache) *DefaultProvider {
	return &DefaultProvider{
		stsapi: stsapi,
		cache:  cache,
	}
}

func (p *DefaultProvider) Get(ctx context.Context) (*Identity, error) {
	p.Lock()
	defer p.Unlock()

	if identity, ok := p.cache.Get(callerIdentityCacheKey); ok {
		return identity.(*Identity), nil
	}
	out, err := p.stsapi.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("getting caller identity, %w", err)
	}
	if out.Account == nil {
		return nil, awserrors.MissingFieldError{Resource: "caller identity", Field: "Account"}
	}
	parsed, err := arn.Parse(aws.ToString(out.Arn))
	if err != nil {
		return nil, fmt.Errorf("parsing caller identity arn %q, %w", aws.ToString(out.Arn), err)
	}
	identity := &Identity{
		AccountID: aws.ToString(out.Account),
		Partition: parsed.Partition,
		ARN:       parsed.String(),
	}
	p.cache.SetDefault(callerIdentityCacheKey, identity)
	logr.FromContextOrDiscard(ctx).V(1).Info("discovered caller identity", "account", identity.AccountID, "partition", identity.Partition)
	return identity, nil
}
