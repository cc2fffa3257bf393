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

package ofchannel_test

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/netlab/diamond/controller/ofchannel"
	"github.com/netlab/diamond/controller/switches"
	"github.com/netlab/diamond/pkg/log/testlog"
	"github.com/netlab/diamond/pkg/openflow"
	"github.com/netlab/diamond/pkg/private/xtest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const timeout = 5 * time.Second

type fakeSwitch struct {
	dpid        uint64
	packetIns   chan *openflow.PacketIn
	portChanges chan *openflow.PortStatus
}

func (s *fakeSwitch) DPID() uint64        { return s.dpid }
func (s *fakeSwitch) Role() switches.Role { return switches.RoleLearning }
func (s *fakeSwitch) Start() error        { return nil }

func (s *fakeSwitch) HandlePacketIn(pi *openflow.PacketIn) {
	s.packetIns <- pi
}

func (s *fakeSwitch) HandlePortStatus(ps *openflow.PortStatus) {
	s.portChanges <- ps
}

type handler struct {
	ups   chan switches.Channel
	downs chan switches.Switch
	sw    *fakeSwitch
}

func newHandler() *handler {
	return &handler{
		ups:   make(chan switches.Channel, 1),
		downs: make(chan switches.Switch, 1),
		sw: &fakeSwitch{
			packetIns:   make(chan *openflow.PacketIn, 1),
			portChanges: make(chan *openflow.PortStatus, 1),
		},
	}
}

func (h *handler) SwitchUp(ch switches.Channel) switches.Switch {
	h.sw.dpid = ch.DPID()
	h.ups <- ch
	return h.sw
}

func (h *handler) SwitchDown(sw switches.Switch) {
	h.downs <- sw
}

// peer is the switch side of a control channel.
type peer struct {
	t    *testing.T
	conn net.Conn
}

func (p peer) write(xid uint32, m openflow.Message) {
	b, err := openflow.Marshal(xid, m)
	require.NoError(p.t, err)
	_, err = p.conn.Write(b)
	require.NoError(p.t, err)
}

func (p peer) read() (openflow.Header, openflow.Message) {
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(timeout)))
	hdr := make([]byte, openflow.HeaderLen)
	_, err := io.ReadFull(p.conn, hdr)
	require.NoError(p.t, err)
	b := make([]byte, binary.BigEndian.Uint16(hdr[2:4]))
	copy(b, hdr)
	_, err = io.ReadFull(p.conn, b[openflow.HeaderLen:])
	require.NoError(p.t, err)
	h, m, err := openflow.Parse(b)
	require.NoError(p.t, err)
	return h, m
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out")
	}
	panic("unreachable")
}

func TestServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h := newHandler()
	srv := ofchannel.NewServer(h, ofchannel.Options{
		PollRate: 200,
		Logger:   testlog.NewLogger(t),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, srv.Serve(ctx, ln))
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	p := peer{t: t, conn: conn}

	// Handshake.
	_, m := p.read()
	require.IsType(t, &openflow.Hello{}, m)
	p.write(1, &openflow.Hello{})
	_, m = p.read()
	require.IsType(t, &openflow.FeaturesRequest{}, m)
	p.write(2, &openflow.FeaturesReply{
		DPID: 4,
		Ports: []openflow.PhyPort{
			{PortNo: 1, Name: "s4-eth1"},
			{PortNo: 2, Name: "s4-eth2"},
		},
	})
	ch := receive(t, h.ups)
	assert.Equal(t, uint64(4), ch.DPID())
	_, ok := ch.Port(2)
	assert.True(t, ok)
	assert.Equal(t, 1, srv.Channels())

	t.Run("echo", func(t *testing.T) {
		p.write(77, &openflow.EchoRequest{Data: []byte("ping")})
		hdr, m := p.read()
		assert.Equal(t, uint32(77), hdr.XID)
		assert.Equal(t, &openflow.EchoReply{Data: []byte("ping")}, m)
	})

	t.Run("packet in", func(t *testing.T) {
		p.write(3, &openflow.PacketIn{BufferID: openflow.BufferNone, InPort: 3,
			Data: []byte{1, 2, 3}})
		pi := receive(t, h.sw.packetIns)
		assert.Equal(t, uint16(3), pi.InPort)
		assert.Equal(t, []byte{1, 2, 3}, pi.Data)
	})

	t.Run("port status", func(t *testing.T) {
		p.write(4, &openflow.PortStatus{
			Reason: openflow.PortReasonAdd,
			Port:   openflow.PhyPort{PortNo: 3, Name: "s4-eth3"},
		})
		receive(t, h.sw.portChanges)
		port, ok := ch.Port(3)
		assert.True(t, ok)
		assert.Equal(t, "s4-eth3", port.Name)

		p.write(5, &openflow.PortStatus{
			Reason: openflow.PortReasonDelete,
			Port:   openflow.PhyPort{PortNo: 1},
		})
		receive(t, h.sw.portChanges)
		_, ok = ch.Port(1)
		assert.False(t, ok)
	})

	t.Run("send", func(t *testing.T) {
		fm := openflow.NewFlowAdd(openflow.MatchAll().WithInPort(1), 1, openflow.Output(2))
		require.NoError(t, ch.Send(fm))
		_, m := p.read()
		assert.Equal(t, fm, m)
	})

	// Remote close.
	conn.Close()
	assert.Equal(t, h.sw, receive(t, h.downs))
	assert.Error(t, ch.Send(&openflow.BarrierRequest{}))

	cancel()
	xtest.AssertReadReturnsBefore(t, done, timeout)
}

func TestServerShutdownClosesChannels(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h := newHandler()
	srv := ofchannel.NewServer(h, ofchannel.Options{PollRate: 200, Logger: testlog.NewLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, srv.Serve(ctx, ln))
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	p := peer{t: t, conn: conn}
	p.read()
	p.write(1, &openflow.Hello{})
	p.read()
	p.write(2, &openflow.FeaturesReply{DPID: 2})
	receive(t, h.ups)

	cancel()
	xtest.AssertReadReturnsBefore(t, done, timeout)
	assert.Equal(t, h.sw, receive(t, h.downs))

	// The switch observes the closed channel.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}
