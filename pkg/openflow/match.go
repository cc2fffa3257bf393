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
	"encoding/binary"
	"net"
	"net/netip"
)

// MatchLen is the encoded length of a Match.
const MatchLen = 40

// Wildcard bits of a Match.
const (
	WildcardInPort    uint32 = 1 << 0
	WildcardDLVLAN    uint32 = 1 << 1
	WildcardDLSrc     uint32 = 1 << 2
	WildcardDLDst     uint32 = 1 << 3
	WildcardDLType    uint32 = 1 << 4
	WildcardNWProto   uint32 = 1 << 5
	WildcardTPSrc     uint32 = 1 << 6
	WildcardTPDst     uint32 = 1 << 7
	WildcardNWSrcAll  uint32 = 32 << wildcardNWSrcShift
	WildcardNWDstAll  uint32 = 32 << wildcardNWDstShift
	WildcardDLVLANPCP uint32 = 1 << 20
	WildcardNWTOS     uint32 = 1 << 21
	WildcardAll       uint32 = (1 << 22) - 1

	wildcardNWSrcShift = 8
	wildcardNWDstShift = 14
	wildcardNWMask     = 0x3f
)

// EtherTypeIPv4 is the ethernet type of IPv4 packets.
const EtherTypeIPv4 uint16 = 0x0800

// Match describes the header fields a flow entry matches on. Fields whose
// wildcard bit is set are ignored by the switch.
type Match struct {
	Wildcards uint32
	InPort    uint16
	DLSrc     [6]byte
	DLDst     [6]byte
	DLVLAN    uint16
	DLVLANPCP uint8
	DLType    uint16
	NWTOS     uint8
	NWProto   uint8
	NWSrc     [4]byte
	NWDst     [4]byte
	TPSrc     uint16
	TPDst     uint16
}

// MatchAll returns a match with all fields wildcarded.
func MatchAll() Match {
	return Match{Wildcards: WildcardAll}
}

// WithInPort returns a copy of m that matches on the ingress port.
func (m Match) WithInPort(port uint16) Match {
	m.InPort = port
	m.Wildcards &^= WildcardInPort
	return m
}

// WithDLSrc returns a copy of m that matches on the ethernet source.
func (m Match) WithDLSrc(mac net.HardwareAddr) Match {
	copy(m.DLSrc[:], mac)
	m.Wildcards &^= WildcardDLSrc
	return m
}

// WithDLDst returns a copy of m that matches on the ethernet destination.
func (m Match) WithDLDst(mac net.HardwareAddr) Match {
	copy(m.DLDst[:], mac)
	m.Wildcards &^= WildcardDLDst
	return m
}

// WithDLType returns a copy of m that matches on the ethernet type.
func (m Match) WithDLType(t uint16) Match {
	m.DLType = t
	m.Wildcards &^= WildcardDLType
	return m
}

// WithNWSrc returns a copy of m that matches on the IPv4 source prefix.
func (m Match) WithNWSrc(p netip.Prefix) Match {
	m.NWSrc = p.Addr().As4()
	m.Wildcards = setNWWildcard(m.Wildcards, wildcardNWSrcShift, p.Bits())
	return m
}

// WithNWDst returns a copy of m that matches on the IPv4 destination prefix.
func (m Match) WithNWDst(p netip.Prefix) Match {
	m.NWDst = p.Addr().As4()
	m.Wildcards = setNWWildcard(m.Wildcards, wildcardNWDstShift, p.Bits())
	return m
}

// setNWWildcard stores the number of wildcarded low bits of a prefix.
func setNWWildcard(w uint32, shift uint, bits int) uint32 {
	wild := uint32(32 - min(max(bits, 0), 32))
	return w&^(wildcardNWMask<<shift) | wild<<shift
}

// NWSrcPrefix returns the matched IPv4 source prefix. A fully wildcarded
// source yields 0.0.0.0/0.
func (m Match) NWSrcPrefix() netip.Prefix {
	return nwPrefix(m.NWSrc, m.Wildcards>>wildcardNWSrcShift&wildcardNWMask)
}

// NWDstPrefix returns the matched IPv4 destination prefix.
func (m Match) NWDstPrefix() netip.Prefix {
	return nwPrefix(m.NWDst, m.Wildcards>>wildcardNWDstShift&wildcardNWMask)
}

func nwPrefix(a [4]byte, wild uint32) netip.Prefix {
	bits := 32 - int(min(wild, 32))
	return netip.PrefixFrom(netip.AddrFrom4(a), bits).Masked()
}

func (m Match) append(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, m.Wildcards)
	b = binary.BigEndian.AppendUint16(b, m.InPort)
	b = append(b, m.DLSrc[:]...)
	b = append(b, m.DLDst[:]...)
	b = binary.BigEndian.AppendUint16(b, m.DLVLAN)
	b = append(b, m.DLVLANPCP, 0)
	b = binary.BigEndian.AppendUint16(b, m.DLType)
	b = append(b, m.NWTOS, m.NWProto, 0, 0)
	b = append(b, m.NWSrc[:]...)
	b = append(b, m.NWDst[:]...)
	b = binary.BigEndian.AppendUint16(b, m.TPSrc)
	return binary.BigEndian.AppendUint16(b, m.TPDst)
}

func (m *Match) decode(b []byte) error {
	if err := short(b, MatchLen); err != nil {
		return err
	}
	m.Wildcards = binary.BigEndian.Uint32(b[0:4])
	m.InPort = binary.BigEndian.Uint16(b[4:6])
	copy(m.DLSrc[:], b[6:12])
	copy(m.DLDst[:], b[12:18])
	m.DLVLAN = binary.BigEndian.Uint16(b[18:20])
	m.DLVLANPCP = b[20]
	m.DLType = binary.BigEndian.Uint16(b[22:24])
	m.NWTOS = b[24]
	m.NWProto = b[25]
	copy(m.NWSrc[:], b[28:32])
	copy(m.NWDst[:], b[32:36])
	m.TPSrc = binary.BigEndian.Uint16(b[36:38])
	m.TPDst = binary.BigEndian.Uint16(b[38:40])
	return nil
}
