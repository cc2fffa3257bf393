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

package openflow_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlab/diamond/pkg/openflow"
	"github.com/netlab/diamond/pkg/private/xtest"
)

func TestMarshalHello(t *testing.T) {
	b, err := openflow.Marshal(7, &openflow.Hello{})
	require.NoError(t, err)
	assert.Equal(t, xtest.MustParseHexString("01 00 0008 00000007"), b)
}

func TestMarshalFlowModDeleteAll(t *testing.T) {
	fm := openflow.NewFlowDelete(openflow.MatchAll(), openflow.PortNone)
	b, err := openflow.Marshal(1, fm)
	require.NoError(t, err)
	want := xtest.MustParseHexString(`
		01 0e 0048 00000001
		003fffff 0000 000000000000 000000000000 0000 00 00 0000 00 00 0000
		00000000 00000000 0000 0000
		0000000000000000 0003 0000 0000 8000 ffffffff ffff 0000`)
	assert.Equal(t, want, b)
}

func TestMarshalFlowModOutput(t *testing.T) {
	m := openflow.MatchAll().WithInPort(2)
	fm := openflow.NewFlowAdd(m, 2,
		openflow.Output(openflow.PortFlood),
		openflow.Output(openflow.PortController),
	)
	b, err := openflow.Marshal(3, fm)
	require.NoError(t, err)
	require.Len(t, b, 72+16)
	assert.Equal(t, xtest.MustParseHexString("0000 0008 fffb 0000 0000 0008 fffd ffff"), b[72:])

	_, msg, err := openflow.Parse(b)
	require.NoError(t, err)
	got := msg.(*openflow.FlowMod)
	assert.Equal(t, fm.Match, got.Match)
	assert.Equal(t, uint16(2), got.Priority)
	assert.Equal(t, []openflow.Action{
		openflow.ActionOutput{Port: openflow.PortFlood},
		openflow.ActionOutput{Port: openflow.PortController, MaxLen: 0xffff},
	}, got.Actions)
}

func TestMatchWildcards(t *testing.T) {
	src := netip.MustParsePrefix("10.0.0.1/32")
	dst := netip.MustParsePrefix("10.0.0.9/32")
	m := openflow.MatchAll().
		WithDLType(openflow.EtherTypeIPv4).
		WithNWSrc(src).
		WithNWDst(dst)

	// Only the dl_type bit and both nw prefix fields are cleared.
	assert.Equal(t, uint32(0x3000ef), m.Wildcards)
	assert.Equal(t, src, m.NWSrcPrefix())
	assert.Equal(t, dst, m.NWDstPrefix())

	m = m.WithNWSrc(netip.MustParsePrefix("10.1.0.0/16"))
	assert.Equal(t, netip.MustParsePrefix("10.1.0.0/16"), m.NWSrcPrefix())
	assert.Equal(t, netip.MustParsePrefix("0.0.0.0/0"), openflow.MatchAll().NWSrcPrefix())
}

func TestParseFeaturesReply(t *testing.T) {
	in := &openflow.FeaturesReply{
		DPID:     4,
		NBuffers: 256,
		NTables:  1,
		Ports: []openflow.PhyPort{
			{PortNo: 1, HWAddr: xtest.MustParseMAC(t, "00:00:00:00:04:01"), Name: "s4-eth1"},
			{PortNo: 2, HWAddr: xtest.MustParseMAC(t, "00:00:00:00:04:02"), Name: "s4-eth2"},
		},
	}
	b, err := openflow.Marshal(9, in)
	require.NoError(t, err)
	assert.Len(t, b, 8+24+2*48)

	h, msg, err := openflow.Parse(b)
	require.NoError(t, err)
	assert.Equal(t, openflow.TypeFeaturesReply, h.Type)
	assert.Equal(t, uint32(9), h.XID)
	assert.Equal(t, in, msg)
}

func TestParsePortStatus(t *testing.T) {
	b := xtest.MustParseHexString(`
		01 0c 0040 00000000
		00 00000000000000
		0003 0a0000000003 73332d65746833000000000000000000
		00000000 00000000 00000000 00000000 00000000 00000000`)
	_, msg, err := openflow.Parse(b)
	require.NoError(t, err)
	ps := msg.(*openflow.PortStatus)
	assert.Equal(t, openflow.PortReasonAdd, ps.Reason)
	assert.Equal(t, uint16(3), ps.Port.PortNo)
	assert.Equal(t, "0a:00:00:00:00:03", ps.Port.HWAddr.String())
	assert.Equal(t, "s3-eth3", ps.Port.Name)
}

func TestParseErrors(t *testing.T) {
	testCases := map[string]struct {
		input []byte
		want  error
	}{
		"short header": {
			input: xtest.MustParseHexString("01 00 00"),
			want:  openflow.ErrShortMessage,
		},
		"truncated body": {
			input: xtest.MustParseHexString("01 0a 0020 00000000 00000000"),
			want:  openflow.ErrShortMessage,
		},
		"short packet in": {
			input: xtest.MustParseHexString("01 0a 000c 00000000 00000000"),
			want:  openflow.ErrShortMessage,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, _, err := openflow.Parse(tc.input)
			xtest.AssertErrorsIs(t, err, tc.want)
		})
	}
	_, _, err := openflow.Parse(xtest.MustParseHexString("04 00 0008 00000000"))
	assert.Error(t, err)
}

func TestParseUnknown(t *testing.T) {
	_, msg, err := openflow.Parse(xtest.MustParseHexString("01 04 000a 00000000 beef"))
	require.NoError(t, err)
	assert.Equal(t, &openflow.Unknown{MsgType: openflow.TypeVendor, Body: []byte{0xbe, 0xef}},
		msg)
}

func TestFramer(t *testing.T) {
	hello, err := openflow.Marshal(1, &openflow.Hello{})
	require.NoError(t, err)
	echo, err := openflow.Marshal(2, &openflow.EchoRequest{Data: []byte("ping")})
	require.NoError(t, err)
	stream := append(append([]byte(nil), hello...), echo...)

	var f openflow.Framer
	msgs, err := f.Feed(stream[:5])
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = f.Feed(stream[5:12])
	require.NoError(t, err)
	assert.Equal(t, [][]byte{hello}, msgs)
	assert.Equal(t, 4, f.Buffered())

	msgs, err = f.Feed(stream[12:])
	require.NoError(t, err)
	assert.Equal(t, [][]byte{echo}, msgs)
	assert.Equal(t, 0, f.Buffered())

	_, err = f.Feed(xtest.MustParseHexString("01 00 0004 00000000"))
	assert.Error(t, err)
}
