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

package metrics

import (
	"sort"
	"strings"
	"sync"
)

// node is the shared implementation of test gauges and counters. Every label
// combination is its own child node, rooted at the node without labels.
type node struct {
	mtx      sync.Mutex
	v        float64
	children map[string]*node
}

func (n *node) child(labelValues []string) *node {
	if len(labelValues)%2 != 0 {
		labelValues = append(labelValues, "unknown")
	}
	pairs := make([]string, 0, len(labelValues)/2)
	for i := 0; i < len(labelValues); i += 2 {
		pairs = append(pairs, labelValues[i]+"="+labelValues[i+1])
	}
	sort.Strings(pairs)
	key := strings.Join(pairs, ",")

	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c, ok := n.children[key]
	if !ok {
		c = &node{}
		n.children[key] = c
	}
	return c
}

func (n *node) add(delta float64, canBeNegative bool) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if !canBeNegative && delta < 0 {
		panic("counter increment value is < 0")
	}
	n.v += delta
}

func (n *node) set(v float64) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.v = v
}

func (n *node) value() float64 {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.v
}

// TestCounter implements a counter for use in tests.
type TestCounter struct {
	root   *node
	labels []string
	*node
}

// NewTestCounter creates a new counter for use in tests.
func NewTestCounter() *TestCounter {
	n := &node{}
	return &TestCounter{root: n, node: n}
}

// With returns the counter for the accumulated label values. Two counters
// with the same label values (in any order) share their value.
func (c *TestCounter) With(labelValues ...string) Counter {
	labels := append(append([]string(nil), c.labels...), labelValues...)
	return &TestCounter{root: c.root, labels: labels, node: c.root.child(labels)}
}

// Add increases the internal value of the counter by the specified delta.
func (c *TestCounter) Add(delta float64) {
	c.add(delta, false)
}

// CounterValue extracts the value out of a TestCounter. If the argument is not
// a *TestCounter, CounterValue will panic.
func CounterValue(c Counter) float64 {
	return c.(*TestCounter).value()
}

// TestGauge implements a gauge for use in tests.
type TestGauge struct {
	root   *node
	labels []string
	*node
}

// NewTestGauge creates a new gauge for use in tests.
func NewTestGauge() *TestGauge {
	n := &node{}
	return &TestGauge{root: n, node: n}
}

// With returns the gauge for the accumulated label values.
func (g *TestGauge) With(labelValues ...string) Gauge {
	labels := append(append([]string(nil), g.labels...), labelValues...)
	return &TestGauge{root: g.root, labels: labels, node: g.root.child(labels)}
}

// Set sets the internal value of the gauge to the specified value.
func (g *TestGauge) Set(v float64) {
	g.set(v)
}

// Add increases the internal value of the gauge by the specified delta.
func (g *TestGauge) Add(delta float64) {
	g.add(delta, true)
}

// GaugeValue extracts the value out of a TestGauge. If the argument is not a
// *TestGauge, GaugeValue will panic.
func GaugeValue(g Gauge) float64 {
	return g.(*TestGauge).value()
}
