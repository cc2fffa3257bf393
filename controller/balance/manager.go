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

// Package balance spreads connections across the two sides of the diamond.
//
// Every connection is identified by the unordered pair of its endpoint
// addresses. A new connection goes to the side with fewer connections, ties
// go up. Repeated open signals for the same pair only increase its use
// count. When a connection is closed for the last time its route is removed
// and the sides are rebalanced until they differ by at most one connection.
package balance

import (
	"slices"
	"strings"
	"sync"

	"github.com/netlab/diamond/controller/diamond"
	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/metrics"
	"github.com/netlab/diamond/pkg/private/prom"
)

// Router installs and removes routes on one side of the diamond.
type Router interface {
	AddRoute(side diamond.Side, src, dst string) bool
	RemoveRoute(side diamond.Side, src, dst string) bool
}

// FlowKey is the canonical form of an unordered address pair.
type FlowKey struct {
	A, B string
}

// NewFlowKey returns the key for the pair, independent of the order of src
// and dst.
func NewFlowKey(src, dst string) FlowKey {
	if dst < src {
		src, dst = dst, src
	}
	return FlowKey{A: src, B: dst}
}

func (k FlowKey) String() string {
	return k.A + "<->" + k.B
}

func (k FlowKey) compare(o FlowKey) int {
	if c := strings.Compare(k.A, o.A); c != 0 {
		return c
	}
	return strings.Compare(k.B, o.B)
}

// Metrics are the metrics exported by the manager. Nil fields are ignored.
type Metrics struct {
	// Flows is the number of routed connections, labelled with side.
	Flows metrics.Gauge
	// FlowEvents counts open and close signals, labelled with event and
	// result.
	FlowEvents metrics.Counter
	// Rebalanced counts connections moved to the other side, labelled with
	// from.
	Rebalanced metrics.Counter
}

// Manager tracks the use counts of the routed connections per side.
type Manager struct {
	router  Router
	logger  log.Logger
	metrics Metrics

	mtx   sync.Mutex
	flows map[diamond.Side]map[FlowKey]int
}

// NewManager creates a manager without any routed connections.
func NewManager(router Router, logger log.Logger, m Metrics) *Manager {
	if logger == nil {
		logger = log.New("component", "balance")
	}
	return &Manager{
		router:  router,
		logger:  logger,
		metrics: m,
		flows: map[diamond.Side]map[FlowKey]int{
			diamond.SideUp:   make(map[FlowKey]int),
			diamond.SideDown: make(map[FlowKey]int),
		},
	}
}

// FlowOpened handles an open signal for a connection between src and dst.
func (m *Manager) FlowOpened(src, dst string) {
	key := NewFlowKey(src, dst)
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.logger.Debug("Connection started", "src", src, "dst", dst)

	if side, ok := m.sideOfLocked(key); ok {
		m.flows[side][key]++
		m.logger.Info("Connection already routed", "flow", key, "side", side,
			"uses", m.flows[side][key])
		m.countEvent("open", "reused")
		return
	}
	side := diamond.SideUp
	if len(m.flows[diamond.SideDown]) < len(m.flows[diamond.SideUp]) {
		side = diamond.SideDown
	}
	if !m.router.AddRoute(side, src, dst) {
		m.logger.Info("Connection not routed", "flow", key)
		m.countEvent("open", "rejected")
		return
	}
	m.flows[side][key] = 1
	m.logger.Info("Connection routed", "flow", key, "side", side)
	m.countEvent("open", "routed")
	m.updateGaugesLocked()
}

// FlowClosed handles a close signal for a connection between src and dst.
// Signals for unknown connections are ignored.
func (m *Manager) FlowClosed(src, dst string) {
	key := NewFlowKey(src, dst)
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.logger.Debug("Connection ended", "src", src, "dst", dst)

	side, ok := m.sideOfLocked(key)
	if !ok {
		m.logger.Debug("Ignoring close of unknown connection", "flow", key)
		m.countEvent("close", "ignored")
		return
	}
	m.flows[side][key]--
	if uses := m.flows[side][key]; uses > 0 {
		m.logger.Info("Connection still in use", "flow", key, "side", side, "uses", uses)
		m.countEvent("close", "released")
	} else {
		delete(m.flows[side], key)
		m.logger.Info("Connection unused, removing route", "flow", key, "side", side)
		m.router.RemoveRoute(side, src, dst)
		m.countEvent("close", "removed")
	}
	m.rebalanceLocked()
	m.updateGaugesLocked()
}

// rebalanceLocked moves connections until the sides differ by at most one.
// The lexicographically smallest key is moved first.
func (m *Manager) rebalanceLocked() {
	for {
		from := diamond.SideUp
		if len(m.flows[diamond.SideDown]) > len(m.flows[diamond.SideUp]) {
			from = diamond.SideDown
		}
		to := from.Other()
		if len(m.flows[from]) <= len(m.flows[to])+1 {
			return
		}
		key := m.smallestLocked(from)
		uses := m.flows[from][key]
		delete(m.flows[from], key)
		m.flows[to][key] = uses
		m.logger.Info("Moving connection", "flow", key, "from", from, "to", to)
		m.router.RemoveRoute(from, key.A, key.B)
		// The key moves even if the install fails, the imbalance bound has
		// to hold.
		if !m.router.AddRoute(to, key.A, key.B) {
			m.logger.Error("Installing moved route failed", "flow", key, "side", to)
		}
		metrics.CounterInc(metrics.CounterWith(m.metrics.Rebalanced, prom.LabelFrom, string(from)))
	}
}

func (m *Manager) smallestLocked(side diamond.Side) FlowKey {
	var smallest FlowKey
	first := true
	for k := range m.flows[side] {
		if first || k.compare(smallest) < 0 {
			smallest, first = k, false
		}
	}
	return smallest
}

func (m *Manager) sideOfLocked(key FlowKey) (diamond.Side, bool) {
	for _, side := range []diamond.Side{diamond.SideUp, diamond.SideDown} {
		if _, ok := m.flows[side][key]; ok {
			return side, true
		}
	}
	return "", false
}

func (m *Manager) countEvent(event, result string) {
	metrics.CounterInc(metrics.CounterWith(m.metrics.FlowEvents,
		prom.LabelEvent, event, prom.LabelResult, result))
}

func (m *Manager) updateGaugesLocked() {
	for side, flows := range m.flows {
		metrics.GaugeSet(metrics.GaugeWith(m.metrics.Flows, prom.LabelSide, string(side)),
			float64(len(flows)))
	}
}

// Flow is a routed connection and its use count.
type Flow struct {
	Key  FlowKey `json:"-"`
	A    string  `json:"a"`
	B    string  `json:"b"`
	Uses int     `json:"uses"`
}

// Snapshot returns the routed connections of each side ordered by key.
func (m *Manager) Snapshot() map[diamond.Side][]Flow {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	snap := make(map[diamond.Side][]Flow, len(m.flows))
	for side, flows := range m.flows {
		list := make([]Flow, 0, len(flows))
		for k, uses := range flows {
			list = append(list, Flow{Key: k, A: k.A, B: k.B, Uses: uses})
		}
		slices.SortFunc(list, func(a, b Flow) int { return a.Key.compare(b.Key) })
		snap[side] = list
	}
	return snap
}

// Count returns the number of routed connections on side.
func (m *Manager) Count(side diamond.Side) int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.flows[side])
}

// Uses returns the use count of the connection between src and dst and the
// side it is routed on.
func (m *Manager) Uses(src, dst string) (int, diamond.Side) {
	key := NewFlowKey(src, dst)
	m.mtx.Lock()
	defer m.mtx.Unlock()
	side, ok := m.sideOfLocked(key)
	if !ok {
		return 0, ""
	}
	return m.flows[side][key], side
}
