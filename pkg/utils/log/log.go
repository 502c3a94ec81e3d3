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

package log

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// NewLogger builds a production zap logger at the given level and exposes it through logr.
// "debug" enables logr verbosity V(1).
func NewLogger(level string) (logr.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return logr.Discard(), fmt.Errorf("parsing log level %q, %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = atomicLevel
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	zapLogger, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("building logger, %w", err)
	}
	return zapr.NewLogger(zapLogger), nil
}
