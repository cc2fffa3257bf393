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

package ofchannel

import (
	"sync"
	"sync/atomic"

	"github.com/netlab/diamond/controller/switches"
	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/openflow"
	"github.com/netlab/diamond/private/connpoll"
)

// Handler is notified when switches come up and go down.
type Handler interface {
	// SwitchUp is called once the switch reported its features. The
	// returned Switch receives the notifications of the channel, nil means
	// they are dropped.
	SwitchUp(ch switches.Channel) switches.Switch
	// SwitchDown is called with the Switch returned by SwitchUp after the
	// channel closed.
	SwitchDown(sw switches.Switch)
}

var _ switches.Channel = (*channel)(nil)

// channel is the control channel to one switch. All callbacks run on the
// poller goroutine, so notifications of one switch are handled in order.
type channel struct {
	conn    *connpoll.Conn
	handler Handler
	logger  log.Logger
	xid     atomic.Uint32

	// only accessed from the poller callbacks.
	framer openflow.Framer
	sw     switches.Switch

	mtx      sync.RWMutex
	dpid     uint64
	features bool
	ports    map[uint16]openflow.PhyPort
}

func newChannel(h Handler, logger log.Logger) *channel {
	return &channel{
		handler: h,
		logger:  logger,
		ports:   make(map[uint16]openflow.PhyPort),
	}
}

func (c *channel) DPID() uint64 {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.dpid
}

func (c *channel) Port(no uint16) (openflow.PhyPort, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	p, ok := c.ports[no]
	return p, ok
}

func (c *channel) Send(m openflow.Message) error {
	return c.sendXID(c.xid.Add(1), m)
}

func (c *channel) sendXID(xid uint32, m openflow.Message) error {
	b, err := openflow.Marshal(xid, m)
	if err != nil {
		return err
	}
	return c.conn.Send(b)
}

func (c *channel) onData(_ *connpoll.Conn, data []byte) {
	raw, err := c.framer.Feed(data)
	for _, b := range raw {
		c.handle(b)
	}
	if err != nil {
		c.logger.Error("Invalid message stream, closing channel", "err", err)
		c.conn.Close()
	}
}

func (c *channel) onClosed(*connpoll.Conn) {
	c.logger.Info("Control channel closed", "dpid", c.DPID())
	if c.sw != nil {
		c.handler.SwitchDown(c.sw)
		c.sw = nil
	}
}

func (c *channel) handle(b []byte) {
	h, m, err := openflow.Parse(b)
	if err != nil {
		c.logger.Error("Dropping undecodable message", "type", h.Type, "err", err)
		return
	}
	switch m := m.(type) {
	case *openflow.Hello:
		c.logger.Debug("Received hello, requesting features")
		c.send(&openflow.FeaturesRequest{})
	case *openflow.EchoRequest:
		if err := c.sendXID(h.XID, &openflow.EchoReply{Data: m.Data}); err != nil {
			c.logger.Debug("Sending echo reply failed", "err", err)
		}
	case *openflow.FeaturesReply:
		c.handleFeatures(m)
	case *openflow.PacketIn:
		if c.sw != nil {
			c.sw.HandlePacketIn(m)
		}
	case *openflow.PortStatus:
		c.updatePort(m)
		if c.sw != nil {
			c.sw.HandlePortStatus(m)
		}
	case *openflow.Error:
		c.logger.Error("Switch reported error", "dpid", c.DPID(), "xid", h.XID,
			"type", m.ErrType, "code", m.Code)
	default:
		c.logger.Debug("Ignoring message", "type", h.Type, "xid", h.XID)
	}
}

func (c *channel) handleFeatures(m *openflow.FeaturesReply) {
	c.mtx.Lock()
	if c.features {
		c.mtx.Unlock()
		c.logger.Debug("Ignoring repeated features reply", "dpid", m.DPID)
		return
	}
	c.features = true
	c.dpid = m.DPID
	for _, p := range m.Ports {
		c.ports[p.PortNo] = p
	}
	c.mtx.Unlock()

	c.logger = c.logger.New("dpid", m.DPID)
	c.logger.Info("Switch connected", "ports", len(m.Ports))
	c.sw = c.handler.SwitchUp(c)
}

func (c *channel) updatePort(m *openflow.PortStatus) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	switch m.Reason {
	case openflow.PortReasonDelete:
		delete(c.ports, m.Port.PortNo)
	default:
		c.ports[m.Port.PortNo] = m.Port
	}
}

func (c *channel) send(m openflow.Message) {
	if err := c.Send(m); err != nil {
		c.logger.Debug("Sending failed", "type", m.Type(), "err", err)
	}
}
