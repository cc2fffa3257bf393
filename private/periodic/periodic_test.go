// Copyright 2018 Anapaya Systems
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

package periodic_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/netlab/diamond/pkg/metrics"
	"github.com/netlab/diamond/pkg/private/xtest"
	"github.com/netlab/diamond/private/periodic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newMetrics() (*periodic.Metrics, func(event string) float64) {
	events := metrics.NewTestCounter()
	m := &periodic.Metrics{
		Events: func(event string) metrics.Counter {
			return events.With("event", event)
		},
		Period:    metrics.NewTestGauge(),
		Runtime:   metrics.NewTestGauge(),
		StartTime: metrics.NewTestGauge(),
	}
	return m, func(event string) float64 {
		return metrics.CounterValue(m.Events(event))
	}
}

// counting returns a poll task that counts its runs.
func counting(runs *atomic.Int64) periodic.Func {
	return periodic.Func{
		TaskName: "poller",
		Task:     func(context.Context) { runs.Add(1) },
	}
}

func TestRunsPeriodically(t *testing.T) {
	var runs atomic.Int64
	m, events := newMetrics()
	period := 10 * time.Millisecond
	r := periodic.StartWithMetrics(counting(&runs), m, period, time.Second)

	require.Eventually(t, func() bool { return runs.Load() >= 5 },
		time.Second, time.Millisecond)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		r.Stop()
	}()
	xtest.AssertReadReturnsBefore(t, stopped, time.Second)

	after := runs.Load()
	time.Sleep(3 * period)
	assert.Equal(t, after, runs.Load(), "no run after stop")
	assert.Equal(t, 1.0, events(periodic.EventStop))
	assert.Zero(t, events(periodic.EventKill))
	assert.Equal(t, period.Seconds(), metrics.GaugeValue(m.Period))
	assert.LessOrEqual(t, float64(time.Now().Add(-time.Minute).Unix()),
		metrics.GaugeValue(m.StartTime))
	assert.GreaterOrEqual(t, metrics.GaugeValue(m.Runtime), 0.0)
}

func TestStopWaitsForRun(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	var runs atomic.Int64
	var finished atomic.Bool
	task := periodic.Func{
		TaskName: "slow",
		Task: func(context.Context) {
			if runs.Add(1) > 1 {
				return
			}
			close(started)
			<-release
			finished.Store(true)
		},
	}
	r := periodic.Start(task, time.Hour, time.Hour)
	xtest.AssertReadReturnsBefore(t, started, time.Second)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		r.Stop()
	}()
	xtest.AssertReadDoesNotReturnBefore(t, stopped, 20*time.Millisecond)
	close(release)
	xtest.AssertReadReturnsBefore(t, stopped, time.Second)
	assert.True(t, finished.Load())
}

func TestKillCancelsRun(t *testing.T) {
	started := make(chan struct{})
	errs := make(chan error, 1)
	task := periodic.Func{
		TaskName: "blocking",
		Task: func(ctx context.Context) {
			close(started)
			<-ctx.Done()
			errs <- ctx.Err()
		},
	}
	m, events := newMetrics()
	r := periodic.StartWithMetrics(task, m, time.Hour, time.Hour)
	xtest.AssertReadReturnsBefore(t, started, time.Second)

	killed := make(chan struct{})
	go func() {
		defer close(killed)
		r.Kill()
	}()
	xtest.AssertReadReturnsBefore(t, killed, time.Second)
	assert.ErrorIs(t, <-errs, context.Canceled)
	assert.Equal(t, 1.0, events(periodic.EventKill))
	assert.Zero(t, events(periodic.EventStop))
}

func TestTimeoutBoundsRun(t *testing.T) {
	errs := make(chan error, 1)
	task := periodic.Func{
		TaskName: "timeout",
		Task: func(ctx context.Context) {
			<-ctx.Done()
			select {
			case errs <- ctx.Err():
			default:
			}
		},
	}
	r := periodic.Start(task, time.Hour, 10*time.Millisecond)
	defer r.Kill()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("run was not bounded by the timeout")
	}
}

func TestTriggerRun(t *testing.T) {
	var runs atomic.Int64
	m, events := newMetrics()
	r := periodic.StartWithMetrics(counting(&runs), m, time.Hour, time.Second)
	defer r.Stop()

	require.Eventually(t, func() bool { return runs.Load() == 1 },
		time.Second, time.Millisecond)
	for range 5 {
		r.TriggerRun()
	}
	require.Eventually(t, func() bool { return runs.Load() >= 5 },
		time.Second, time.Millisecond)
	assert.Equal(t, 5.0, events(periodic.EventTrigger))
	assert.Equal(t, "poller", counting(&runs).Name())
}

func TestNilRunner(t *testing.T) {
	var r *periodic.Runner
	assert.NotPanics(t, r.Stop)
	assert.NotPanics(t, r.Kill)
}
