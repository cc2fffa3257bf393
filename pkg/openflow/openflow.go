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

// Package openflow implements the subset of the OpenFlow 1.0 wire protocol
// that the controller speaks: the handshake, keepalives, packet-in and
// port-status notifications, and flow and port modifications.
//
// All multi-byte fields are big endian. A message is encoded with Marshal and
// decoded with Parse. The Framer splits a TCP byte stream into messages.
package openflow

import (
	"encoding/binary"

	"github.com/netlab/diamond/pkg/private/serrors"
)

// Version is the only protocol version supported.
const Version uint8 = 0x01

// HeaderLen is the length of the common message header.
const HeaderLen = 8

// MaxMessageLen is the largest message length representable in the header.
const MaxMessageLen = 0xffff

// ErrShortMessage indicates that a buffer is shorter than the message it
// should contain.
var ErrShortMessage = serrors.New("message too short")

// Type is the message type.
type Type uint8

const (
	TypeHello           Type = 0
	TypeError           Type = 1
	TypeEchoRequest     Type = 2
	TypeEchoReply       Type = 3
	TypeVendor          Type = 4
	TypeFeaturesRequest Type = 5
	TypeFeaturesReply   Type = 6
	TypeGetConfigReq    Type = 7
	TypeGetConfigReply  Type = 8
	TypeSetConfig       Type = 9
	TypePacketIn        Type = 10
	TypeFlowRemoved     Type = 11
	TypePortStatus      Type = 12
	TypePacketOut       Type = 13
	TypeFlowMod         Type = 14
	TypePortMod         Type = 15
	TypeBarrierRequest  Type = 18
	TypeBarrierReply    Type = 19
)

var typeNames = map[Type]string{
	TypeHello:           "hello",
	TypeError:           "error",
	TypeEchoRequest:     "echo_request",
	TypeEchoReply:       "echo_reply",
	TypeVendor:          "vendor",
	TypeFeaturesRequest: "features_request",
	TypeFeaturesReply:   "features_reply",
	TypeGetConfigReq:    "get_config_request",
	TypeGetConfigReply:  "get_config_reply",
	TypeSetConfig:       "set_config",
	TypePacketIn:        "packet_in",
	TypeFlowRemoved:     "flow_removed",
	TypePortStatus:      "port_status",
	TypePacketOut:       "packet_out",
	TypeFlowMod:         "flow_mod",
	TypePortMod:         "port_mod",
	TypeBarrierRequest:  "barrier_request",
	TypeBarrierReply:    "barrier_reply",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "unknown"
}

// Port numbers with special meaning.
const (
	PortMax        uint16 = 0xff00
	PortInPort     uint16 = 0xfff8
	PortTable      uint16 = 0xfff9
	PortNormal     uint16 = 0xfffa
	PortFlood      uint16 = 0xfffb
	PortAll        uint16 = 0xfffc
	PortController uint16 = 0xfffd
	PortLocal      uint16 = 0xfffe
	PortNone       uint16 = 0xffff
)

// BufferNone means a message does not refer to a buffered packet.
const BufferNone uint32 = 0xffffffff

// DefaultPriority is the priority the switch assumes if none is given.
const DefaultPriority uint16 = 0x8000

// Header is the common header of all messages.
type Header struct {
	Version uint8
	Type    Type
	Length  uint16
	XID     uint32
}

// DecodeHeader decodes the header at the start of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, serrors.Join(ErrShortMessage, nil, "len", len(b), "want", HeaderLen)
	}
	return Header{
		Version: b[0],
		Type:    Type(b[1]),
		Length:  binary.BigEndian.Uint16(b[2:4]),
		XID:     binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

func (h Header) append(b []byte) []byte {
	b = append(b, h.Version, uint8(h.Type))
	b = binary.BigEndian.AppendUint16(b, h.Length)
	return binary.BigEndian.AppendUint32(b, h.XID)
}

// Message is an OpenFlow message body.
type Message interface {
	// Type returns the message type carried in the header.
	Type() Type
	appendBody(b []byte) []byte
	decodeBody(b []byte) error
}

// Marshal encodes m with the given transaction id.
func Marshal(xid uint32, m Message) ([]byte, error) {
	b := make([]byte, HeaderLen, 64)
	b = m.appendBody(b)
	if len(b) > MaxMessageLen {
		return nil, serrors.New("message too long", "type", m.Type(), "len", len(b))
	}
	h := Header{Version: Version, Type: m.Type(), Length: uint16(len(b)), XID: xid}
	h.append(b[:0])
	return b, nil
}

// Parse decodes one complete message. Messages of types without a dedicated
// representation are returned as *Unknown.
func Parse(b []byte) (Header, Message, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Header{}, nil, err
	}
	if h.Version != Version {
		return h, nil, serrors.New("unsupported version", "version", h.Version)
	}
	if int(h.Length) < HeaderLen || len(b) < int(h.Length) {
		return h, nil, serrors.Join(ErrShortMessage, nil,
			"type", h.Type, "header_len", h.Length, "len", len(b))
	}
	m := newMessage(h.Type)
	if err := m.decodeBody(b[HeaderLen:h.Length]); err != nil {
		return h, nil, serrors.Wrap("decoding message", err, "type", h.Type)
	}
	return h, m, nil
}

func newMessage(t Type) Message {
	switch t {
	case TypeHello:
		return &Hello{}
	case TypeError:
		return &Error{}
	case TypeEchoRequest:
		return &EchoRequest{}
	case TypeEchoReply:
		return &EchoReply{}
	case TypeFeaturesRequest:
		return &FeaturesRequest{}
	case TypeFeaturesReply:
		return &FeaturesReply{}
	case TypePacketIn:
		return &PacketIn{}
	case TypePortStatus:
		return &PortStatus{}
	case TypeFlowMod:
		return &FlowMod{}
	case TypePortMod:
		return &PortMod{}
	case TypeBarrierRequest:
		return &BarrierRequest{}
	case TypeBarrierReply:
		return &BarrierReply{}
	default:
		return &Unknown{MsgType: t}
	}
}

func short(b []byte, want int) error {
	if len(b) < want {
		return serrors.Join(ErrShortMessage, nil, "len", len(b), "want", want)
	}
	return nil
}
