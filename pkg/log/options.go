// Copyright 2021 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/netlab/diamond/pkg/metrics"
)

// Option customizes Setup.
type Option func(o *options)

type options struct {
	hooks []func(zapcore.Entry) error
}

func (o options) zapOptions() []zap.Option {
	opts := []zap.Option{zap.AddCallerSkip(1)}
	if len(o.hooks) > 0 {
		opts = append(opts, zap.Hooks(o.hooks...))
	}
	return opts
}

// WithEntriesCounter counts every emitted entry on c, labelled with
// "level" set to the lower case level name.
func WithEntriesCounter(c metrics.Counter) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, func(e zapcore.Entry) error {
			metrics.CounterInc(metrics.CounterWith(c, "level", e.Level.String()))
			return nil
		})
	}
}
