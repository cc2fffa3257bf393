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

package connpoll_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/netlab/diamond/pkg/metrics"
	"github.com/netlab/diamond/pkg/private/xtest"
	"github.com/netlab/diamond/private/connpoll"
	"github.com/netlab/diamond/private/periodic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingPollable struct {
	polls atomic.Int32
}

func (c *countingPollable) Poll() {
	c.polls.Add(1)
}

func TestPollerPendingChanges(t *testing.T) {
	p := connpoll.NewPoller()
	a, b := &countingPollable{}, &countingPollable{}

	p.Add(a)
	p.Add(b)
	assert.Equal(t, 2, p.Len())
	p.Poll()
	assert.Equal(t, int32(1), a.polls.Load())
	assert.Equal(t, int32(1), b.polls.Load())

	p.Remove(a)
	assert.Equal(t, 1, p.Len())
	p.Poll()
	assert.Equal(t, int32(1), a.polls.Load())
	assert.Equal(t, int32(2), b.polls.Load())

	// Removing a connection that only is pending cancels the add.
	c := &countingPollable{}
	p.Add(c)
	p.Remove(c)
	p.Poll()
	assert.Equal(t, int32(0), c.polls.Load())
	assert.Equal(t, 1, p.Len())
}

func TestPollerCloseAll(t *testing.T) {
	p := connpoll.NewPoller()
	var closed atomic.Int32
	fts := []*fakeTransport{{}, {}}
	for _, ft := range fts {
		p.Add(connpoll.NewConn(ft, connpoll.Options{
			OnClosed: func(*connpoll.Conn) { closed.Add(1) },
		}))
	}
	p.Poll()
	// Still pending, closed nonetheless.
	pending := &fakeTransport{}
	fts = append(fts, pending)
	p.Add(connpoll.NewConn(pending, connpoll.Options{
		OnClosed: func(*connpoll.Conn) { closed.Add(1) },
	}))
	p.CloseAll()
	assert.Equal(t, int32(0), closed.Load(), "close callbacks fire on the next cycle")
	p.Poll()
	assert.Equal(t, int32(3), closed.Load())
	for _, ft := range fts {
		assert.Equal(t, 1, ft.closes)
	}
}

func TestDriver(t *testing.T) {
	events := metrics.NewTestCounter()
	m := &periodic.Metrics{
		Events: func(s string) metrics.Counter {
			return events.With("event", s)
		},
	}
	polled := make(chan struct{}, 1)
	p := pollFunc(func() {
		select {
		case polled <- struct{}{}:
		default:
		}
	})
	d := connpoll.StartDriver("test", p, 100, m)
	xtest.AssertReadReturnsBefore(t, polled, time.Second)
	d.Trigger()
	d.Stop()
	assert.Equal(t, float64(1), metrics.CounterValue(m.Events(periodic.EventStop)))
	assert.Equal(t, float64(1), metrics.CounterValue(m.Events(periodic.EventTrigger)))
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, connpoll.Period(10))
	assert.Equal(t, 500*time.Millisecond, connpoll.Period(2))
	assert.Equal(t, time.Millisecond, connpoll.Period(0))
	assert.Equal(t, time.Millisecond, connpoll.Period(1e9))
}

type pollFunc func()

func (f pollFunc) Poll() { f() }
