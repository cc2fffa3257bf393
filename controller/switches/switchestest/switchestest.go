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

// Package switchestest provides a recording switch channel and frame
// builders for tests of the switch state machines and their users.
package switchestest

import (
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/require"

	"github.com/netlab/diamond/pkg/openflow"
	"github.com/netlab/diamond/private/connpoll"
)

// Channel records all messages sent to a switch.
type Channel struct {
	ID uint64

	mtx    sync.Mutex
	ports  map[uint16]openflow.PhyPort
	sent   []openflow.Message
	closed bool
}

// NewChannel creates a channel for dpid that reports the given ports. Each
// port gets a hardware address derived from dpid and port number.
func NewChannel(dpid uint64, ports ...uint16) *Channel {
	c := &Channel{ID: dpid, ports: make(map[uint16]openflow.PhyPort)}
	for _, p := range ports {
		c.AddPort(p)
	}
	return c
}

// PortMAC returns the hardware address NewChannel assigns to a port.
func PortMAC(dpid uint64, port uint16) net.HardwareAddr {
	return net.HardwareAddr{0x0a, 0, 0, byte(dpid), byte(port >> 8), byte(port)}
}

// AddPort adds a port to the port table.
func (c *Channel) AddPort(no uint16) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.ports[no] = openflow.PhyPort{
		PortNo: no,
		HWAddr: PortMAC(c.ID, no),
		Name:   fmt.Sprintf("s%d-eth%d", c.ID, no),
	}
}

// SetClosed makes all subsequent sends fail.
func (c *Channel) SetClosed() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.closed = true
}

func (c *Channel) DPID() uint64 {
	return c.ID
}

func (c *Channel) Port(no uint16) (openflow.PhyPort, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	p, ok := c.ports[no]
	return p, ok
}

func (c *Channel) Send(m openflow.Message) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.closed {
		return connpoll.ErrClosed
	}
	c.sent = append(c.sent, m)
	return nil
}

// Sent returns the messages sent so far.
func (c *Channel) Sent() []openflow.Message {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]openflow.Message(nil), c.sent...)
}

// FlowMods returns the flow mods sent so far.
func (c *Channel) FlowMods() []*openflow.FlowMod {
	var fms []*openflow.FlowMod
	for _, m := range c.Sent() {
		if fm, ok := m.(*openflow.FlowMod); ok {
			fms = append(fms, fm)
		}
	}
	return fms
}

// Reset forgets the sent messages.
func (c *Channel) Reset() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.sent = nil
}

// HostMAC returns a deterministic MAC address for host number n.
func HostMAC(n int) net.HardwareAddr {
	return net.HardwareAddr{0, 0, 0, 0, byte(n >> 8), byte(n)}
}

// IPv4Frame serializes an ethernet frame carrying an IPv4 packet from src to
// dst.
func IPv4Frame(t testing.TB, srcMAC net.HardwareAddr, src, dst string) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 5001}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp,
		gopacket.Payload("data")))
	return buf.Bytes()
}

// ARPFrame serializes an ethernet frame carrying an ARP request.
func ARPFrame(t testing.TB, srcMAC net.HardwareAddr, src, dst string) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: net.ParseIP(src).To4(),
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    net.ParseIP(dst).To4(),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, arp))
	return buf.Bytes()
}

// PacketIn wraps a frame in a packet-in from port.
func PacketIn(port uint16, frame []byte) *openflow.PacketIn {
	return &openflow.PacketIn{
		BufferID: openflow.BufferNone,
		TotalLen: uint16(len(frame)),
		InPort:   port,
		Reason:   openflow.PacketInReasonNoMatch,
		Data:     frame,
	}
}
