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

package openflow

import (
	"bytes"
	"encoding/binary"
	"net"
)

// Hello starts the version negotiation.
type Hello struct{}

func (*Hello) Type() Type                 { return TypeHello }
func (*Hello) appendBody(b []byte) []byte { return b }

// Trailing elements of a hello are ignored.
func (*Hello) decodeBody([]byte) error { return nil }

// Error reports a failure from the switch.
type Error struct {
	ErrType uint16
	Code    uint16
	Data    []byte
}

func (*Error) Type() Type { return TypeError }

func (m *Error) appendBody(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, m.ErrType)
	b = binary.BigEndian.AppendUint16(b, m.Code)
	return append(b, m.Data...)
}

func (m *Error) decodeBody(b []byte) error {
	if err := short(b, 4); err != nil {
		return err
	}
	m.ErrType = binary.BigEndian.Uint16(b[0:2])
	m.Code = binary.BigEndian.Uint16(b[2:4])
	m.Data = append([]byte(nil), b[4:]...)
	return nil
}

// EchoRequest is a keepalive request. The reply carries the same data.
type EchoRequest struct {
	Data []byte
}

func (*EchoRequest) Type() Type                   { return TypeEchoRequest }
func (m *EchoRequest) appendBody(b []byte) []byte { return append(b, m.Data...) }

func (m *EchoRequest) decodeBody(b []byte) error {
	m.Data = append([]byte(nil), b...)
	return nil
}

// EchoReply answers an EchoRequest.
type EchoReply struct {
	Data []byte
}

func (*EchoReply) Type() Type                   { return TypeEchoReply }
func (m *EchoReply) appendBody(b []byte) []byte { return append(b, m.Data...) }

func (m *EchoReply) decodeBody(b []byte) error {
	m.Data = append([]byte(nil), b...)
	return nil
}

// FeaturesRequest asks the switch for its identity and ports.
type FeaturesRequest struct{}

func (*FeaturesRequest) Type() Type                 { return TypeFeaturesRequest }
func (*FeaturesRequest) appendBody(b []byte) []byte { return b }
func (*FeaturesRequest) decodeBody([]byte) error    { return nil }

// PhyPortLen is the encoded length of a PhyPort.
const PhyPortLen = 48

const portNameLen = 16

// Port config bits.
const (
	PortConfigPortDown   uint32 = 1 << 0
	PortConfigNoSTP      uint32 = 1 << 1
	PortConfigNoRecv     uint32 = 1 << 2
	PortConfigNoRecvSTP  uint32 = 1 << 3
	PortConfigNoFlood    uint32 = 1 << 4
	PortConfigNoFwd      uint32 = 1 << 5
	PortConfigNoPacketIn uint32 = 1 << 6
)

// PhyPort describes a physical port of a switch.
type PhyPort struct {
	PortNo     uint16
	HWAddr     net.HardwareAddr
	Name       string
	Config     uint32
	State      uint32
	Curr       uint32
	Advertised uint32
	Supported  uint32
	Peer       uint32
}

func (p PhyPort) append(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, p.PortNo)
	var hw [6]byte
	copy(hw[:], p.HWAddr)
	b = append(b, hw[:]...)
	var name [portNameLen]byte
	copy(name[:portNameLen-1], p.Name)
	b = append(b, name[:]...)
	for _, v := range []uint32{p.Config, p.State, p.Curr, p.Advertised, p.Supported, p.Peer} {
		b = binary.BigEndian.AppendUint32(b, v)
	}
	return b
}

func (p *PhyPort) decode(b []byte) error {
	if err := short(b, PhyPortLen); err != nil {
		return err
	}
	p.PortNo = binary.BigEndian.Uint16(b[0:2])
	p.HWAddr = append(net.HardwareAddr(nil), b[2:8]...)
	name := b[8 : 8+portNameLen]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	p.Name = string(name)
	p.Config = binary.BigEndian.Uint32(b[24:28])
	p.State = binary.BigEndian.Uint32(b[28:32])
	p.Curr = binary.BigEndian.Uint32(b[32:36])
	p.Advertised = binary.BigEndian.Uint32(b[36:40])
	p.Supported = binary.BigEndian.Uint32(b[40:44])
	p.Peer = binary.BigEndian.Uint32(b[44:48])
	return nil
}

const featuresReplyFixedLen = 24

// FeaturesReply carries the datapath id and the ports of a switch.
type FeaturesReply struct {
	DPID         uint64
	NBuffers     uint32
	NTables      uint8
	Capabilities uint32
	Actions      uint32
	Ports        []PhyPort
}

func (*FeaturesReply) Type() Type { return TypeFeaturesReply }

func (m *FeaturesReply) appendBody(b []byte) []byte {
	b = binary.BigEndian.AppendUint64(b, m.DPID)
	b = binary.BigEndian.AppendUint32(b, m.NBuffers)
	b = append(b, m.NTables, 0, 0, 0)
	b = binary.BigEndian.AppendUint32(b, m.Capabilities)
	b = binary.BigEndian.AppendUint32(b, m.Actions)
	for _, p := range m.Ports {
		b = p.append(b)
	}
	return b
}

func (m *FeaturesReply) decodeBody(b []byte) error {
	if err := short(b, featuresReplyFixedLen); err != nil {
		return err
	}
	m.DPID = binary.BigEndian.Uint64(b[0:8])
	m.NBuffers = binary.BigEndian.Uint32(b[8:12])
	m.NTables = b[12]
	m.Capabilities = binary.BigEndian.Uint32(b[16:20])
	m.Actions = binary.BigEndian.Uint32(b[20:24])
	m.Ports = nil
	for rest := b[featuresReplyFixedLen:]; len(rest) >= PhyPortLen; rest = rest[PhyPortLen:] {
		var p PhyPort
		if err := p.decode(rest); err != nil {
			return err
		}
		m.Ports = append(m.Ports, p)
	}
	return nil
}

// Packet-in reasons.
const (
	PacketInReasonNoMatch uint8 = 0
	PacketInReasonAction  uint8 = 1
)

const packetInFixedLen = 10

// PacketIn carries a packet sent to the controller.
type PacketIn struct {
	BufferID uint32
	TotalLen uint16
	InPort   uint16
	Reason   uint8
	Data     []byte
}

func (*PacketIn) Type() Type { return TypePacketIn }

func (m *PacketIn) appendBody(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, m.BufferID)
	b = binary.BigEndian.AppendUint16(b, m.TotalLen)
	b = binary.BigEndian.AppendUint16(b, m.InPort)
	b = append(b, m.Reason, 0)
	return append(b, m.Data...)
}

func (m *PacketIn) decodeBody(b []byte) error {
	if err := short(b, packetInFixedLen); err != nil {
		return err
	}
	m.BufferID = binary.BigEndian.Uint32(b[0:4])
	m.TotalLen = binary.BigEndian.Uint16(b[4:6])
	m.InPort = binary.BigEndian.Uint16(b[6:8])
	m.Reason = b[8]
	m.Data = append([]byte(nil), b[packetInFixedLen:]...)
	return nil
}

// Port status reasons.
const (
	PortReasonAdd    uint8 = 0
	PortReasonDelete uint8 = 1
	PortReasonModify uint8 = 2
)

// PortStatus notifies about an added, removed or modified port.
type PortStatus struct {
	Reason uint8
	Port   PhyPort
}

func (*PortStatus) Type() Type { return TypePortStatus }

func (m *PortStatus) appendBody(b []byte) []byte {
	b = append(b, m.Reason, 0, 0, 0, 0, 0, 0, 0)
	return m.Port.append(b)
}

func (m *PortStatus) decodeBody(b []byte) error {
	if err := short(b, 8+PhyPortLen); err != nil {
		return err
	}
	m.Reason = b[0]
	return m.Port.decode(b[8:])
}

// Flow mod commands.
const (
	FlowModAdd          uint16 = 0
	FlowModModify       uint16 = 1
	FlowModModifyStrict uint16 = 2
	FlowModDelete       uint16 = 3
	FlowModDeleteStrict uint16 = 4
)

const flowModFixedLen = MatchLen + 24

// FlowMod adds, modifies or deletes flow entries.
type FlowMod struct {
	Match       Match
	Cookie      uint64
	Command     uint16
	IdleTimeout uint16
	HardTimeout uint16
	Priority    uint16
	BufferID    uint32
	// OutPort restricts delete commands to entries that output to it.
	OutPort uint16
	Flags   uint16
	Actions []Action
}

// NewFlowAdd returns an add command for the given match, priority and
// actions. The entry never expires.
func NewFlowAdd(match Match, priority uint16, actions ...Action) *FlowMod {
	return &FlowMod{
		Match:    match,
		Command:  FlowModAdd,
		Priority: priority,
		BufferID: BufferNone,
		OutPort:  PortNone,
		Actions:  actions,
	}
}

// NewFlowDelete returns a non-strict delete command for entries covered by
// match that output to outPort. PortNone deletes regardless of output.
func NewFlowDelete(match Match, outPort uint16) *FlowMod {
	return &FlowMod{
		Match:    match,
		Command:  FlowModDelete,
		Priority: DefaultPriority,
		BufferID: BufferNone,
		OutPort:  outPort,
	}
}

func (*FlowMod) Type() Type { return TypeFlowMod }

func (m *FlowMod) appendBody(b []byte) []byte {
	b = m.Match.append(b)
	b = binary.BigEndian.AppendUint64(b, m.Cookie)
	b = binary.BigEndian.AppendUint16(b, m.Command)
	b = binary.BigEndian.AppendUint16(b, m.IdleTimeout)
	b = binary.BigEndian.AppendUint16(b, m.HardTimeout)
	b = binary.BigEndian.AppendUint16(b, m.Priority)
	b = binary.BigEndian.AppendUint32(b, m.BufferID)
	b = binary.BigEndian.AppendUint16(b, m.OutPort)
	b = binary.BigEndian.AppendUint16(b, m.Flags)
	for _, a := range m.Actions {
		b = a.append(b)
	}
	return b
}

func (m *FlowMod) decodeBody(b []byte) error {
	if err := short(b, flowModFixedLen); err != nil {
		return err
	}
	if err := m.Match.decode(b); err != nil {
		return err
	}
	f := b[MatchLen:]
	m.Cookie = binary.BigEndian.Uint64(f[0:8])
	m.Command = binary.BigEndian.Uint16(f[8:10])
	m.IdleTimeout = binary.BigEndian.Uint16(f[10:12])
	m.HardTimeout = binary.BigEndian.Uint16(f[12:14])
	m.Priority = binary.BigEndian.Uint16(f[14:16])
	m.BufferID = binary.BigEndian.Uint32(f[16:20])
	m.OutPort = binary.BigEndian.Uint16(f[20:22])
	m.Flags = binary.BigEndian.Uint16(f[22:24])
	actions, err := decodeActions(b[flowModFixedLen:])
	if err != nil {
		return err
	}
	m.Actions = actions
	return nil
}

const portModLen = 24

// PortMod changes the configuration of a port. Only bits set in Mask are
// changed.
type PortMod struct {
	PortNo    uint16
	HWAddr    net.HardwareAddr
	Config    uint32
	Mask      uint32
	Advertise uint32
}

func (*PortMod) Type() Type { return TypePortMod }

func (m *PortMod) appendBody(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, m.PortNo)
	var hw [6]byte
	copy(hw[:], m.HWAddr)
	b = append(b, hw[:]...)
	b = binary.BigEndian.AppendUint32(b, m.Config)
	b = binary.BigEndian.AppendUint32(b, m.Mask)
	b = binary.BigEndian.AppendUint32(b, m.Advertise)
	return append(b, 0, 0, 0, 0)
}

func (m *PortMod) decodeBody(b []byte) error {
	if err := short(b, portModLen); err != nil {
		return err
	}
	m.PortNo = binary.BigEndian.Uint16(b[0:2])
	m.HWAddr = append(net.HardwareAddr(nil), b[2:8]...)
	m.Config = binary.BigEndian.Uint32(b[8:12])
	m.Mask = binary.BigEndian.Uint32(b[12:16])
	m.Advertise = binary.BigEndian.Uint32(b[16:20])
	return nil
}

// BarrierRequest asks the switch to finish all previous messages.
type BarrierRequest struct{}

func (*BarrierRequest) Type() Type                 { return TypeBarrierRequest }
func (*BarrierRequest) appendBody(b []byte) []byte { return b }
func (*BarrierRequest) decodeBody([]byte) error    { return nil }

// BarrierReply confirms a BarrierRequest.
type BarrierReply struct{}

func (*BarrierReply) Type() Type                 { return TypeBarrierReply }
func (*BarrierReply) appendBody(b []byte) []byte { return b }
func (*BarrierReply) decodeBody([]byte) error    { return nil }

// Unknown is a message the controller does not interpret.
type Unknown struct {
	MsgType Type
	Body    []byte
}

func (m *Unknown) Type() Type                 { return m.MsgType }
func (m *Unknown) appendBody(b []byte) []byte { return append(b, m.Body...) }

func (m *Unknown) decodeBody(b []byte) error {
	m.Body = append([]byte(nil), b...)
	return nil
}
