// Copyright 2024 Netlab Contributors
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

package connpoll

import (
	"context"
	"time"

	"github.com/netlab/diamond/private/periodic"
)

const (
	// DefaultRate is the default poll rate in Hz.
	DefaultRate = 10
	// minPeriod bounds the poll period for non-positive or huge rates.
	minPeriod = time.Millisecond
)

// Driver polls a Pollable at a fixed rate on its own goroutine.
type Driver struct {
	runner *periodic.Runner
}

// Period converts a rate in Hz to a poll period.
func Period(rate float64) time.Duration {
	if rate <= 0 {
		return minPeriod
	}
	p := time.Duration(float64(time.Second) / rate)
	if p < minPeriod {
		return minPeriod
	}
	return p
}

// StartDriver starts polling p at rate Hz. The optional metrics are reported
// by the underlying periodic runner.
func StartDriver(name string, p Pollable, rate float64, m *periodic.Metrics) *Driver {
	period := Period(rate)
	task := periodic.Func{
		TaskName: name,
		Task: func(context.Context) {
			p.Poll()
		},
	}
	return &Driver{runner: periodic.StartWithMetrics(task, m, period, period)}
}

// Stop stops the driver. A cycle in progress completes first, Stop blocks
// until it did.
func (d *Driver) Stop() {
	d.runner.Stop()
}

// Trigger runs a cycle now, independent of the regular period.
func (d *Driver) Trigger() {
	d.runner.TriggerRun()
}
