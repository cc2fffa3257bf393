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

package switches_test

import (
	"net/netip"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlab/diamond/controller/switches"
	"github.com/netlab/diamond/controller/switches/mock_switches"
	"github.com/netlab/diamond/controller/switches/switchestest"
	"github.com/netlab/diamond/pkg/log/testlog"
	"github.com/netlab/diamond/pkg/openflow"
	"github.com/netlab/diamond/pkg/private/xtest"
	"github.com/netlab/diamond/private/connpoll"
)

func TestPassThroughStart(t *testing.T) {
	ch := switchestest.NewChannel(2, 1, 2)
	s := switches.NewPassThrough(ch, testlog.NewLogger(t))
	require.NoError(t, s.Start())

	want := []openflow.Message{
		openflow.NewFlowAdd(openflow.MatchAll().WithInPort(1), openflow.DefaultPriority,
			openflow.Output(2)),
		openflow.NewFlowAdd(openflow.MatchAll().WithInPort(2), openflow.DefaultPriority,
			openflow.Output(1)),
	}
	assert.Equal(t, want, ch.Sent())
	assert.Equal(t, switches.RolePassThrough, s.Role())

	ch.Reset()
	s.HandlePacketIn(switchestest.PacketIn(1,
		switchestest.IPv4Frame(t, switchestest.HostMAC(1), "10.0.0.1", "10.0.0.2")))
	assert.Empty(t, ch.Sent(), "pass-through switches never learn")
}

func defaultRules(dpid uint64) []openflow.Message {
	return []openflow.Message{
		openflow.NewFlowDelete(openflow.MatchAll(), openflow.PortNone),
		&openflow.PortMod{
			PortNo: 1,
			HWAddr: switchestest.PortMAC(dpid, 1),
			Config: openflow.PortConfigNoFlood,
			Mask:   openflow.PortConfigNoFlood,
		},
		&openflow.PortMod{
			PortNo: 2,
			HWAddr: switchestest.PortMAC(dpid, 2),
			Config: openflow.PortConfigNoFlood,
			Mask:   openflow.PortConfigNoFlood,
		},
		openflow.NewFlowAdd(openflow.MatchAll(), 1,
			openflow.Output(openflow.PortFlood),
			openflow.Output(1),
			openflow.Output(openflow.PortController)),
		openflow.NewFlowAdd(openflow.MatchAll().WithInPort(1), 2,
			openflow.Output(openflow.PortFlood),
			openflow.Output(openflow.PortController)),
		openflow.NewFlowAdd(openflow.MatchAll().WithInPort(2), 2,
			openflow.Output(openflow.PortFlood),
			openflow.Output(openflow.PortController)),
	}
}

func TestLearningDefaultRules(t *testing.T) {
	t.Run("all ports present", func(t *testing.T) {
		ch := switchestest.NewChannel(1, 1, 2, 3)
		s := switches.NewLearning(ch, testlog.NewLogger(t))
		require.NoError(t, s.Start())
		if diff := cmp.Diff(defaultRules(1), ch.Sent()); diff != "" {
			t.Fatalf("default rules mismatch (-want +got):\n%s", diff)
		}
		assert.True(t, s.DefaultsInstalled())

		// Installed at most once per channel lifetime.
		ch.Reset()
		s.HandlePortStatus(&openflow.PortStatus{Port: openflow.PhyPort{PortNo: 4}})
		assert.Empty(t, ch.Sent())
	})

	t.Run("missing port retried on port status", func(t *testing.T) {
		ch := switchestest.NewChannel(4, 1)
		s := switches.NewLearning(ch, testlog.NewLogger(t))
		require.NoError(t, s.Start())
		assert.Empty(t, ch.Sent(), "nothing is sent if a port is missing")
		assert.False(t, s.DefaultsInstalled())

		ch.AddPort(2)
		s.HandlePortStatus(&openflow.PortStatus{
			Reason: openflow.PortReasonAdd,
			Port:   openflow.PhyPort{PortNo: 2},
		})
		assert.Equal(t, defaultRules(4), ch.Sent())
		assert.True(t, s.DefaultsInstalled())
	})

	t.Run("closed channel", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ch := mock_switches.NewMockChannel(ctrl)
		ch.EXPECT().DPID().Return(uint64(1)).AnyTimes()
		ch.EXPECT().Port(gomock.Any()).Return(openflow.PhyPort{}, true).Times(2)
		ch.EXPECT().Send(gomock.Any()).Return(connpoll.ErrClosed)

		s := switches.NewLearning(ch, testlog.NewLogger(t))
		xtest.AssertErrorsIs(t, s.Start(), connpoll.ErrClosed)
		assert.False(t, s.DefaultsInstalled())
	})
}

func TestLearningPacketIn(t *testing.T) {
	hostMAC := switchestest.HostMAC(1)
	remoteMAC := switchestest.HostMAC(9)

	testCases := map[string]struct {
		port      uint16
		frame     func(t *testing.T) []byte
		mac       []byte
		wantPort  uint16
		wantRules []openflow.Message
		wantIP    bool
	}{
		"local host": {
			port: 3,
			frame: func(t *testing.T) []byte {
				return switchestest.IPv4Frame(t, hostMAC, "10.0.0.1", "10.0.0.9")
			},
			mac:      hostMAC,
			wantPort: 3,
			wantRules: []openflow.Message{
				openflow.NewFlowAdd(openflow.MatchAll().WithDLDst(hostMAC), 255,
					openflow.Output(3)),
				openflow.NewFlowAdd(openflow.MatchAll().WithDLSrc(hostMAC), 3,
					openflow.Output(1), openflow.Output(openflow.PortFlood)),
			},
			wantIP: true,
		},
		"remote host via uplink": {
			port: 1,
			frame: func(t *testing.T) []byte {
				return switchestest.IPv4Frame(t, remoteMAC, "10.0.0.9", "10.0.0.1")
			},
			mac:      remoteMAC,
			wantPort: 1,
			wantRules: []openflow.Message{
				openflow.NewFlowAdd(openflow.MatchAll().WithDLDst(remoteMAC), 255,
					openflow.Output(1)),
				openflow.NewFlowAdd(openflow.MatchAll().WithDLSrc(remoteMAC), 3,
					openflow.Output(openflow.PortFlood)),
			},
		},
		"remote host via second core port is mapped to uplink": {
			port: 2,
			frame: func(t *testing.T) []byte {
				return switchestest.IPv4Frame(t, remoteMAC, "10.0.0.9", "10.0.0.1")
			},
			mac:      remoteMAC,
			wantPort: 1,
			wantRules: []openflow.Message{
				openflow.NewFlowAdd(openflow.MatchAll().WithDLDst(remoteMAC), 255,
					openflow.Output(1)),
				openflow.NewFlowAdd(openflow.MatchAll().WithDLSrc(remoteMAC), 3,
					openflow.Output(openflow.PortFlood)),
			},
		},
		"arp learns mac only": {
			port: 4,
			frame: func(t *testing.T) []byte {
				return switchestest.ARPFrame(t, hostMAC, "10.0.0.1", "10.0.0.9")
			},
			mac:      hostMAC,
			wantPort: 4,
			wantRules: []openflow.Message{
				openflow.NewFlowAdd(openflow.MatchAll().WithDLDst(hostMAC), 255,
					openflow.Output(4)),
				openflow.NewFlowAdd(openflow.MatchAll().WithDLSrc(hostMAC), 3,
					openflow.Output(1), openflow.Output(openflow.PortFlood)),
			},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ch := switchestest.NewChannel(1, 1, 2, 3, 4)
			s := switches.NewLearning(ch, testlog.NewLogger(t))
			s.HandlePacketIn(switchestest.PacketIn(tc.port, tc.frame(t)))

			assert.Equal(t, tc.wantRules, ch.Sent())
			port, ok := s.MACPort(tc.mac)
			assert.True(t, ok)
			assert.Equal(t, tc.wantPort, port)
			assert.Equal(t, tc.wantIP, s.HasLearned("10.0.0.1"))
			assert.False(t, s.HasLearned("10.0.0.9"), "remote addresses are never learned")
		})
	}
}

func TestLearningDuplicateMAC(t *testing.T) {
	ch := switchestest.NewChannel(1, 1, 2, 3, 4)
	s := switches.NewLearning(ch, testlog.NewLogger(t))
	mac := switchestest.HostMAC(1)

	s.HandlePacketIn(switchestest.PacketIn(3,
		switchestest.IPv4Frame(t, mac, "10.0.0.1", "10.0.0.9")))
	first := ch.Sent()
	require.Len(t, first, 2)

	// The same MAC on another port is not an update.
	s.HandlePacketIn(switchestest.PacketIn(4,
		switchestest.IPv4Frame(t, mac, "10.0.0.1", "10.0.0.9")))
	assert.Equal(t, first, ch.Sent())
	port, _ := s.MACPort(mac)
	assert.Equal(t, uint16(3), port)
}

func TestLearningIgnoresGarbage(t *testing.T) {
	ch := switchestest.NewChannel(1, 1, 2, 3)
	s := switches.NewLearning(ch, testlog.NewLogger(t))
	s.HandlePacketIn(switchestest.PacketIn(3, []byte{0x01, 0x02}))
	assert.Empty(t, ch.Sent())
	assert.Empty(t, s.LearnedIPs())
}

func TestLearningRoutes(t *testing.T) {
	ch := switchestest.NewChannel(1, 1, 2, 3, 4)
	s := switches.NewLearning(ch, testlog.NewLogger(t))
	s.HandlePacketIn(switchestest.PacketIn(3,
		switchestest.IPv4Frame(t, switchestest.HostMAC(1), "10.0.0.1", "10.0.0.9")))
	s.HandlePacketIn(switchestest.PacketIn(4,
		switchestest.IPv4Frame(t, switchestest.HostMAC(2), "10.0.0.2", "10.0.0.9")))
	assert.Equal(t, []netip.Addr{
		netip.MustParseAddr("10.0.0.1"),
		netip.MustParseAddr("10.0.0.2"),
	}, s.LearnedIPs())
	ch.Reset()

	match := openflow.MatchAll().
		WithDLType(0x0800).
		WithNWSrc(netip.MustParsePrefix("10.0.0.1/32")).
		WithNWDst(netip.MustParsePrefix("10.0.0.9/32"))

	t.Run("add orients towards the local endpoint", func(t *testing.T) {
		ch.Reset()
		require.NoError(t, s.AddRoute("10.0.0.9", "10.0.0.1", 2))
		require.NoError(t, s.AddRoute("10.0.0.1", "10.0.0.9", 2))
		want := openflow.NewFlowAdd(match, switches.PriorityRouteConnection, openflow.Output(2))
		assert.Equal(t, []*openflow.FlowMod{want, want}, ch.FlowMods())
	})

	t.Run("remove", func(t *testing.T) {
		ch.Reset()
		require.NoError(t, s.RemoveRoute("10.0.0.1", "10.0.0.9", 1))
		fms := ch.FlowMods()
		require.Len(t, fms, 1)
		assert.Equal(t, openflow.FlowModDelete, fms[0].Command)
		assert.Equal(t, uint16(1), fms[0].OutPort)
		assert.Equal(t, match, fms[0].Match)
		assert.Empty(t, fms[0].Actions)
	})

	errCases := map[string]struct {
		src, dst string
		want     error
	}{
		"both local":   {src: "10.0.0.1", dst: "10.0.0.2", want: switches.ErrNotLocal},
		"none local":   {src: "10.0.0.8", dst: "10.0.0.9", want: switches.ErrNotLocal},
		"invalid addr": {src: "foo", dst: "10.0.0.9"},
		"ipv6 remote":  {src: "10.0.0.1", dst: "fd00::1"},
	}
	for name, tc := range errCases {
		t.Run(name, func(t *testing.T) {
			ch.Reset()
			err := s.AddRoute(tc.src, tc.dst, 1)
			assert.Error(t, err)
			if tc.want != nil {
				xtest.AssertErrorsIs(t, err, tc.want)
			}
			assert.Error(t, s.RemoveRoute(tc.src, tc.dst, 1))
			assert.Empty(t, ch.Sent())
		})
	}
}

func TestLearningIPv4Only(t *testing.T) {
	ch := switchestest.NewChannel(1, 1, 2, 3)
	s := switches.NewLearning(ch, testlog.NewLogger(t), switches.WithIPv4OnlyLearning())
	mac := switchestest.HostMAC(1)

	s.HandlePacketIn(switchestest.PacketIn(3,
		switchestest.ARPFrame(t, mac, "10.0.0.1", "10.0.0.9")))
	assert.Empty(t, ch.Sent())
	_, ok := s.MACPort(mac)
	assert.False(t, ok)

	s.HandlePacketIn(switchestest.PacketIn(3,
		switchestest.IPv4Frame(t, mac, "10.0.0.1", "10.0.0.9")))
	assert.Len(t, ch.FlowMods(), 2)
	assert.True(t, s.HasLearned("10.0.0.1"))
}
