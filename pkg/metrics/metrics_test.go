// Copyright 2020 Anapaya Systems
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

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/netlab/diamond/pkg/metrics"
)

func TestNilSafeHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.CounterInc(nil)
		metrics.GaugeSet(nil, 1)
		metrics.GaugeAdd(metrics.GaugeWith(nil, "side", "up"), 1)
		metrics.CounterAdd(metrics.CounterWith(nil, "op", "add"), 2)
	})
}

func TestTestCounterLabels(t *testing.T) {
	c := metrics.NewTestCounter()
	metrics.CounterInc(c.With("op", "add", "side", "up"))
	metrics.CounterInc(c.With("side", "up").With("op", "add"))
	metrics.CounterInc(c.With("op", "remove", "side", "up"))

	assert.Equal(t, float64(2), metrics.CounterValue(c.With("side", "up", "op", "add")))
	assert.Equal(t, float64(1), metrics.CounterValue(c.With("op", "remove", "side", "up")))
	assert.Equal(t, float64(0), metrics.CounterValue(c))
	assert.Panics(t, func() { c.Add(-1) })
}

func TestTestGauge(t *testing.T) {
	g := metrics.NewTestGauge()
	metrics.GaugeSet(g.With("side", "up"), 3)
	metrics.GaugeAdd(g.With("side", "up"), -1)
	assert.Equal(t, float64(2), metrics.GaugeValue(g.With("side", "up")))
	assert.Equal(t, float64(0), metrics.GaugeValue(g.With("side", "down")))
}

func TestFactory(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	f := metrics.Factory{Registerer: reg}
	c := f.NewCounter("route_ops_total", "Route operations.", "op")
	g := f.NewGauge("flows", "Tracked flows.", "side")

	c.With("op", "add").Add(2)
	g.With("side", "up").Set(4)

	count, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}
