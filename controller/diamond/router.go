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

// Package diamond owns the switches of the diamond topology and installs
// routes that pin a connection to one of the two core switches.
//
// The edge switches have datapath ids 1 and 4, the core switches 2 and 3.
// The "up" side crosses the core switch attached to port 1 of edge switch 1,
// the "down" side the one attached to its port 2.
package diamond

import (
	"sync"

	"github.com/netlab/diamond/controller/switches"
	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/metrics"
	"github.com/netlab/diamond/pkg/private/prom"
)

// Datapath ids of the diamond switches.
const (
	EdgeA uint64 = 1
	CoreA uint64 = 2
	CoreB uint64 = 3
	EdgeB uint64 = 4
)

// Side is one of the two paths through the diamond.
type Side string

const (
	SideUp   Side = "up"
	SideDown Side = "down"
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideUp {
		return SideDown
	}
	return SideUp
}

// ports returns the output ports on EdgeA and EdgeB for the side.
func (s Side) ports() (uint16, uint16) {
	if s == SideUp {
		return switches.UplinkPort, switches.SecondCorePort
	}
	return switches.SecondCorePort, switches.UplinkPort
}

// Metrics are the metrics exported by the router. Nil fields are ignored.
type Metrics struct {
	// RouteOps counts route operations, labelled with op, side and result.
	RouteOps metrics.Counter
	// SwitchesConnected is the number of connected switches, labelled with
	// role.
	SwitchesConnected metrics.Gauge
}

// Router tracks the connected switches and installs cross-diamond routes on
// the edge switches.
type Router struct {
	Logger  log.Logger
	Metrics Metrics
	// LearningOptions are applied to every edge switch.
	LearningOptions []switches.LearningOption

	mtx   sync.RWMutex
	edges map[uint64]*switches.Learning
	cores map[uint64]*switches.PassThrough
}

// NewRouter creates a router with no connected switches.
func NewRouter(logger log.Logger, m Metrics) *Router {
	if logger == nil {
		logger = log.New("component", "router")
	}
	return &Router{
		Logger:  logger,
		Metrics: m,
		edges:   make(map[uint64]*switches.Learning),
		cores:   make(map[uint64]*switches.PassThrough),
	}
}

// SwitchUp creates the state machine for a newly connected switch and
// installs its initial rules. A switch that reconnects replaces its previous
// state. It returns nil for switches that are not part of the diamond.
func (r *Router) SwitchUp(ch switches.Channel) switches.Switch {
	dpid := ch.DPID()
	logger := r.Logger.New("switch", dpid)
	var sw switches.Switch
	r.mtx.Lock()
	switch dpid {
	case EdgeA, EdgeB:
		s := switches.NewLearning(ch, logger, r.LearningOptions...)
		r.edges[dpid] = s
		sw = s
	case CoreA, CoreB:
		s := switches.NewPassThrough(ch, logger)
		r.cores[dpid] = s
		sw = s
	}
	r.updateConnectedLocked()
	r.mtx.Unlock()

	if sw == nil {
		r.Logger.Info("Ignoring unknown switch", "dpid", dpid)
		return nil
	}
	if err := sw.Start(); err != nil {
		logger.Error("Starting switch failed", "err", err)
	}
	return sw
}

// SwitchDown forgets a switch whose channel closed. It is a no-op if sw was
// already replaced by a newer connection of the same switch.
func (r *Router) SwitchDown(sw switches.Switch) {
	if sw == nil {
		return
	}
	dpid := sw.DPID()
	r.mtx.Lock()
	defer r.mtx.Unlock()
	switch s := sw.(type) {
	case *switches.Learning:
		if r.edges[dpid] != s {
			return
		}
		delete(r.edges, dpid)
	case *switches.PassThrough:
		if r.cores[dpid] != s {
			return
		}
		delete(r.cores, dpid)
	default:
		return
	}
	r.Logger.Info("Switch disconnected", "dpid", dpid, "role", sw.Role())
	r.updateConnectedLocked()
}

func (r *Router) updateConnectedLocked() {
	metrics.GaugeSet(metrics.GaugeWith(r.Metrics.SwitchesConnected,
		prom.LabelRole, string(switches.RoleLearning)), float64(len(r.edges)))
	metrics.GaugeSet(metrics.GaugeWith(r.Metrics.SwitchesConnected,
		prom.LabelRole, string(switches.RolePassThrough)), float64(len(r.cores)))
}

func (r *Router) edgePair() (*switches.Learning, *switches.Learning) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.edges[EdgeA], r.edges[EdgeB]
}

// RouteShouldBeEstablished reports whether a route between src and dst
// crosses the diamond. Both edge switches must be connected and each address
// must be learned by exactly one edge switch, and not the same one.
func (r *Router) RouteShouldBeEstablished(src, dst string) bool {
	a, b := r.edgePair()
	if a == nil || b == nil {
		r.Logger.Info("Cannot establish route, edge switches not connected",
			"src", src, "dst", dst)
		return false
	}
	srcAt, dstAt := learnedBy(src, a, b), learnedBy(dst, a, b)
	if srcAt == 0 || dstAt == 0 {
		r.Logger.Info("Cannot establish route, address not known",
			"src", src, "dst", dst)
		return false
	}
	if srcAt == dstAt {
		r.Logger.Info("Not establishing route, addresses attached to the same switch",
			"src", src, "dst", dst, "dpid", srcAt)
		return false
	}
	return true
}

// learnedBy returns the datapath id of the only edge switch that learned
// addr, or 0 if none or both did.
func learnedBy(addr string, a, b *switches.Learning) uint64 {
	inA, inB := a.HasLearned(addr), b.HasLearned(addr)
	switch {
	case inA && !inB:
		return a.DPID()
	case inB && !inA:
		return b.DPID()
	default:
		return 0
	}
}

// AddRoute installs a route between src and dst over side on both edge
// switches. It reports whether the route was installed.
func (r *Router) AddRoute(side Side, src, dst string) bool {
	if !r.RouteShouldBeEstablished(src, dst) {
		r.countOp("add", side, prom.ErrRejected)
		return false
	}
	a, b := r.edgePair()
	portA, portB := side.ports()
	if err := a.AddRoute(src, dst, portA); err != nil {
		r.Logger.Error("Adding route failed", "dpid", a.DPID(), "side", side, "err", err)
		r.countOp("add", side, prom.ErrInternal)
		return false
	}
	if err := b.AddRoute(src, dst, portB); err != nil {
		r.Logger.Error("Adding route failed", "dpid", b.DPID(), "side", side, "err", err)
		// Don't leave a half route behind on the other edge.
		if err := a.RemoveRoute(src, dst, portA); err != nil {
			r.Logger.Error("Rolling back route failed", "dpid", a.DPID(), "err", err)
		}
		r.countOp("add", side, prom.ErrInternal)
		return false
	}
	r.countOp("add", side, prom.Success)
	return true
}

// RemoveRoute removes the route between src and dst over side. It is only
// attempted while the endpoints are still valid. It reports whether the
// removal was sent to both edge switches.
func (r *Router) RemoveRoute(side Side, src, dst string) bool {
	if !r.RouteShouldBeEstablished(src, dst) {
		r.countOp("remove", side, prom.ErrRejected)
		return false
	}
	a, b := r.edgePair()
	portA, portB := side.ports()
	ok := true
	if err := a.RemoveRoute(src, dst, portA); err != nil {
		r.Logger.Error("Removing route failed", "dpid", a.DPID(), "side", side, "err", err)
		ok = false
	}
	if err := b.RemoveRoute(src, dst, portB); err != nil {
		r.Logger.Error("Removing route failed", "dpid", b.DPID(), "side", side, "err", err)
		ok = false
	}
	if !ok {
		r.countOp("remove", side, prom.ErrInternal)
		return false
	}
	r.countOp("remove", side, prom.Success)
	return true
}

func (r *Router) AddRouteUp(src, dst string) bool      { return r.AddRoute(SideUp, src, dst) }
func (r *Router) AddRouteDown(src, dst string) bool    { return r.AddRoute(SideDown, src, dst) }
func (r *Router) RemoveRouteUp(src, dst string) bool   { return r.RemoveRoute(SideUp, src, dst) }
func (r *Router) RemoveRouteDown(src, dst string) bool { return r.RemoveRoute(SideDown, src, dst) }

func (r *Router) countOp(op string, side Side, result string) {
	metrics.CounterInc(metrics.CounterWith(r.Metrics.RouteOps,
		prom.LabelOperation, op, prom.LabelSide, string(side), prom.LabelResult, result))
}

// SwitchInfo describes the state of one diamond switch.
type SwitchInfo struct {
	DPID              uint64        `json:"dpid"`
	Role              switches.Role `json:"role"`
	Connected         bool          `json:"connected"`
	DefaultsInstalled bool          `json:"defaults_installed,omitempty"`
	LearnedIPs        []string      `json:"learned_ips,omitempty"`
}

// Switches returns the state of all four diamond switches ordered by
// datapath id.
func (r *Router) Switches() []SwitchInfo {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	infos := make([]SwitchInfo, 0, 4)
	for _, dpid := range []uint64{EdgeA, CoreA, CoreB, EdgeB} {
		info := SwitchInfo{DPID: dpid, Role: switches.RolePassThrough}
		if dpid == EdgeA || dpid == EdgeB {
			info.Role = switches.RoleLearning
			if s, ok := r.edges[dpid]; ok {
				info.Connected = true
				info.DefaultsInstalled = s.DefaultsInstalled()
				for _, ip := range s.LearnedIPs() {
					info.LearnedIPs = append(info.LearnedIPs, ip.String())
				}
			}
		} else {
			_, info.Connected = r.cores[dpid]
		}
		infos = append(infos, info)
	}
	return infos
}
