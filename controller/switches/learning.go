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

package switches

import (
	"errors"
	"net"
	"net/netip"
	"slices"
	"sync"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/openflow"
	"github.com/netlab/diamond/pkg/private/serrors"
)

// Learning is an edge switch. It installs the default flood rules, learns
// host MAC and IPv4 addresses from packet-ins and installs directed routes on
// request.
//
// Packet-in and port-status events must be delivered in arrival order from a
// single goroutine. The learned state may be read concurrently.
type Learning struct {
	ch     Channel
	logger log.Logger

	// decoding state, only used by HandlePacketIn.
	parser  *gopacket.DecodingLayerParser
	eth     layers.Ethernet
	ip4     layers.IPv4
	decoded []gopacket.LayerType

	ipv4Only bool

	mtx               sync.RWMutex
	macToPort         map[string]uint16
	learnedIPs        map[netip.Addr]struct{}
	defaultsInstalled bool
}

// LearningOption configures a Learning switch.
type LearningOption func(*Learning)

// WithIPv4OnlyLearning restricts MAC learning to frames with an IPv4 header.
func WithIPv4OnlyLearning() LearningOption {
	return func(s *Learning) {
		s.ipv4Only = true
	}
}

// NewLearning creates the state machine for an edge switch. Nothing is sent
// before Start is called.
func NewLearning(ch Channel, logger log.Logger, opts ...LearningOption) *Learning {
	if logger == nil {
		logger = log.New("switch", ch.DPID())
	}
	s := &Learning{
		ch:         ch,
		logger:     logger,
		macToPort:  make(map[string]uint16),
		learnedIPs: make(map[netip.Addr]struct{}),
	}
	s.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &s.eth, &s.ip4)
	s.parser.IgnoreUnsupported = true
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DPID returns the datapath id.
func (s *Learning) DPID() uint64 {
	return s.ch.DPID()
}

// Role returns RoleLearning.
func (s *Learning) Role() Role {
	return RoleLearning
}

// Start tries to install the default rules.
func (s *Learning) Start() error {
	s.logger.Info("Learning switch connected, installing default rules")
	return s.tryInstallDefaults()
}

// HandlePortStatus retries the default rule installation if it did not
// succeed yet.
func (s *Learning) HandlePortStatus(ps *openflow.PortStatus) {
	s.logger.Info("Ports changed", "port", ps.Port.PortNo, "reason", ps.Reason)
	if err := s.tryInstallDefaults(); err != nil {
		s.logger.Error("Installing default rules failed", "err", err)
	}
}

// tryInstallDefaults installs the default rules unless they already are.
// A missing core port is not an error, the installation is retried on the
// next port status.
func (s *Learning) tryInstallDefaults() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.defaultsInstalled {
		return nil
	}
	msgs, err := s.defaultRules()
	if errors.Is(err, ErrMissingPort) {
		s.logger.Info("Unable to install default rules", "err", err)
		return nil
	}
	if err != nil {
		return err
	}
	if err := sendAll(s.ch, msgs...); err != nil {
		return err
	}
	s.defaultsInstalled = true
	s.logger.Info("Installed default rules")
	return nil
}

// defaultRules builds the default rule set. All messages are built before
// any is sent so that a missing port leaves the switch untouched.
func (s *Learning) defaultRules() ([]openflow.Message, error) {
	noFlood1, err := s.noFloodMod(UplinkPort)
	if err != nil {
		return nil, err
	}
	noFlood2, err := s.noFloodMod(SecondCorePort)
	if err != nil {
		return nil, err
	}
	return []openflow.Message{
		openflow.NewFlowDelete(openflow.MatchAll(), openflow.PortNone),
		noFlood1,
		noFlood2,
		// Core ports are no-flood, so FLOOD only reaches host ports.
		openflow.NewFlowAdd(openflow.MatchAll(), PriorityFloodForwardAlways,
			openflow.Output(openflow.PortFlood),
			openflow.Output(UplinkPort),
			openflow.Output(openflow.PortController),
		),
		floodFromCore(UplinkPort),
		floodFromCore(SecondCorePort),
	}, nil
}

func (s *Learning) noFloodMod(port uint16) (*openflow.PortMod, error) {
	p, ok := s.ch.Port(port)
	if !ok {
		return nil, serrors.Join(ErrMissingPort, nil, "port", port)
	}
	return &openflow.PortMod{
		PortNo: port,
		HWAddr: p.HWAddr,
		Config: openflow.PortConfigNoFlood,
		Mask:   openflow.PortConfigNoFlood,
	}, nil
}

func floodFromCore(port uint16) *openflow.FlowMod {
	return openflow.NewFlowAdd(openflow.MatchAll().WithInPort(port), PriorityFloodIfFromCore,
		openflow.Output(openflow.PortFlood),
		openflow.Output(openflow.PortController),
	)
}

// DefaultsInstalled reports whether the default rules are installed.
func (s *Learning) DefaultsInstalled() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.defaultsInstalled
}

// HandlePacketIn learns the source of the packet. Frames that are not
// ethernet are ignored.
func (s *Learning) HandlePacketIn(pi *openflow.PacketIn) {
	err := s.parser.DecodeLayers(pi.Data, &s.decoded)
	if !slices.Contains(s.decoded, layers.LayerTypeEthernet) {
		s.logger.Debug("Ignoring undecodable packet", "in_port", pi.InPort, "err", err)
		return
	}
	isIPv4 := slices.Contains(s.decoded, layers.LayerTypeIPv4)
	if s.ipv4Only && !isIPv4 {
		return
	}
	if err := s.learnMAC(s.eth.SrcMAC, pi.InPort); err != nil {
		s.logger.Error("Learning MAC failed", "mac", s.eth.SrcMAC, "err", err)
	}
	if !isIPv4 || pi.InPort <= SecondCorePort {
		return
	}
	ip, ok := netip.AddrFromSlice(s.ip4.SrcIP.To4())
	if !ok {
		return
	}
	s.mtx.Lock()
	_, known := s.learnedIPs[ip]
	s.learnedIPs[ip] = struct{}{}
	s.mtx.Unlock()
	if !known {
		s.logger.Info("Learned host address", "ip", ip, "port", pi.InPort)
	}
}

// learnMAC records the port of mac and installs the rules for it. A MAC that
// already is known is ignored.
func (s *Learning) learnMAC(mac net.HardwareAddr, port uint16) error {
	key := mac.String()
	s.mtx.Lock()
	if _, ok := s.macToPort[key]; ok {
		s.mtx.Unlock()
		s.logger.Debug("Duplicate MAC mapping", "mac", key, "port", port)
		return nil
	}
	// All traffic towards the core leaves through the uplink by default.
	if port == SecondCorePort {
		port = UplinkPort
	}
	s.macToPort[key] = port
	s.mtx.Unlock()

	s.logger.Info("Mapping MAC to port", "mac", key, "port", port)
	toMAC := openflow.NewFlowAdd(openflow.MatchAll().WithDLDst(mac), PrioritySendToMAC,
		openflow.Output(port))
	fromMatch := openflow.MatchAll().WithDLSrc(mac)
	var fromMAC *openflow.FlowMod
	if port == UplinkPort {
		fromMAC = openflow.NewFlowAdd(fromMatch, PrioritySendFromMAC,
			openflow.Output(openflow.PortFlood))
	} else {
		fromMAC = openflow.NewFlowAdd(fromMatch, PrioritySendFromMAC,
			openflow.Output(UplinkPort),
			openflow.Output(openflow.PortFlood))
	}
	return sendAll(s.ch, toMAC, fromMAC)
}

// HasLearned reports whether addr was seen on a host facing port of this
// switch. Unparsable addresses are never learned.
func (s *Learning) HasLearned(addr string) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	_, ok := s.learnedIPs[ip.Unmap()]
	return ok
}

// LearnedIPs returns the learned host addresses in sorted order.
func (s *Learning) LearnedIPs() []netip.Addr {
	s.mtx.RLock()
	ips := make([]netip.Addr, 0, len(s.learnedIPs))
	for ip := range s.learnedIPs {
		ips = append(ips, ip)
	}
	s.mtx.RUnlock()
	slices.SortFunc(ips, func(a, b netip.Addr) int { return a.Compare(b) })
	return ips
}

// MACPort returns the port a MAC address was mapped to.
func (s *Learning) MACPort(mac net.HardwareAddr) (uint16, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	p, ok := s.macToPort[mac.String()]
	return p, ok
}

// AddRoute installs a rule that sends IPv4 traffic from the local endpoint
// to the remote one out of port. Exactly one of src and dst must be learned
// by this switch, otherwise ErrNotLocal is returned.
func (s *Learning) AddRoute(src, dst string, port uint16) error {
	local, remote, err := s.orient(src, dst)
	if err != nil {
		return err
	}
	s.logger.Debug("Adding route", "local", local, "remote", remote, "port", port)
	return sendAll(s.ch, openflow.NewFlowAdd(routeMatch(local, remote),
		PriorityRouteConnection, openflow.Output(port)))
}

// RemoveRoute removes the rule installed by AddRoute with the same
// arguments. Removing a rule that does not exist has no effect on the switch.
func (s *Learning) RemoveRoute(src, dst string, port uint16) error {
	local, remote, err := s.orient(src, dst)
	if err != nil {
		return err
	}
	s.logger.Debug("Removing route", "local", local, "remote", remote, "port", port)
	del := openflow.NewFlowDelete(routeMatch(local, remote), port)
	del.Priority = PriorityRouteConnection
	return sendAll(s.ch, del)
}

// orient returns the endpoints ordered as local and remote.
func (s *Learning) orient(src, dst string) (netip.Addr, netip.Addr, error) {
	srcIP, err := netip.ParseAddr(src)
	if err != nil {
		return netip.Addr{}, netip.Addr{}, serrors.Wrap("parsing source", err, "src", src)
	}
	dstIP, err := netip.ParseAddr(dst)
	if err != nil {
		return netip.Addr{}, netip.Addr{}, serrors.Wrap("parsing destination", err, "dst", dst)
	}
	srcIP, dstIP = srcIP.Unmap(), dstIP.Unmap()
	if !srcIP.Is4() || !dstIP.Is4() {
		return netip.Addr{}, netip.Addr{}, serrors.New("route endpoints must be IPv4",
			"src", src, "dst", dst)
	}
	srcLocal, dstLocal := s.HasLearned(src), s.HasLearned(dst)
	switch {
	case srcLocal && !dstLocal:
		return srcIP, dstIP, nil
	case dstLocal && !srcLocal:
		return dstIP, srcIP, nil
	default:
		return netip.Addr{}, netip.Addr{}, serrors.Join(ErrNotLocal, nil,
			"dpid", s.DPID(), "src", src, "dst", dst)
	}
}

func routeMatch(local, remote netip.Addr) openflow.Match {
	return openflow.MatchAll().
		WithDLType(openflow.EtherTypeIPv4).
		WithNWSrc(netip.PrefixFrom(local, 32)).
		WithNWDst(netip.PrefixFrom(remote, 32))
}
