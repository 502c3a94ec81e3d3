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

package cache

import "time"

const (
	// CallerIdentityTTL is the time before the STS caller identity is refreshed. The account
	// behind a set of credentials does not change during a process lifetime, so this mostly
	// bounds memory held by long lived lambda containers.
	CallerIdentityTTL = time.Hour
	// TokenTTL is the time a console token is reused before authenticating again. Tokens
	// are issued for ten minutes, so this leaves a minute of slack.
	TokenTTL = 9 * time.Minute
	// DefaultCleanupInterval triggers cache cleanup (lazy eviction) at this interval.
	DefaultCleanupInterval = 10 * time.Minute
)
