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
	"time"

	"github.com/patrickmn/go-cache"
	clock "k8s.io/utils/clock/testing"

	awscache "github.com/cloudops/opsscripts/pkg/cache"
	"github.com/cloudops/opsscripts/pkg/fake"
	"github.com/cloudops/opsscripts/pkg/providers/cluster"
	"github.com/cloudops/opsscripts/pkg/providers/identity"
	"github.com/cloudops/opsscripts/pkg/providers/instance"
)

const (
	NodeGroupPollInterval    = time.Millisecond
	NodeGroupDeletionTimeout = 2 * time.Second
)

// Epoch is the time the fake clock is reset to between tests
var Epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type Environment struct {
	// Mock
	Clock *clock.FakeClock

	// API
	EC2API             *fake.EC2API
	EKSAPI             *fake.EKSAPI
	STSAPI             *fake.STSAPI
	TimestreamWriteAPI *fake.TimestreamWriteAPI

	// Cache
	CallerIdentityCache *cache.Cache

	// Providers
	IdentityProvider *identity.DefaultProvider
	InstanceProvider *instance.DefaultProvider
	ClusterProvider  *cluster.DefaultProvider
}

func NewEnvironment() *Environment {
	// Mock
	clock := clock.NewFakeClock(Epoch)

	// API
	ec2api := fake.NewEC2API()
	eksapi := fake.NewEKSAPI()
	stsapi := fake.NewSTSAPI()
	timestreamwriteapi := fake.NewTimestreamWriteAPI()

	// Cache
	callerIdentityCache := cache.New(awscache.CallerIdentityTTL, awscache.DefaultCleanupInterval)

	// Providers
	identityProvider := identity.NewDefaultProvider(stsapi, callerIdentityCache)
	instanceProvider := instance.NewDefaultProvider(ec2api)
	clusterProvider := cluster.NewDefaultProvider(fake.DefaultRegion, eksapi, identityProvider, NodeGroupPollInterval, NodeGroupDeletionTimeout)

	return &Environment{
		Clock: clock,

		EC2API:             ec2api,
		EKSAPI:             eksapi,
		STSAPI:             stsapi,
		TimestreamWriteAPI: timestreamwriteapi,

		CallerIdentityCache: callerIdentityCache,

		IdentityProvider: identityProvider,
		InstanceProvider: instanceProvider,
		ClusterProvider:  clusterProvider,
	}
}

func (env *Environment) Reset() {
	env.Clock.SetTime(Epoch)

	env.EC2API.Reset()
	env.EKSAPI.Reset()
	env.STSAPI.Reset()
	env.TimestreamWriteAPI.Reset()

	env.CallerIdentityCache.Flush()
}
