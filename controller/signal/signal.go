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

// Package signal receives the connection signals that hosts send when they
// open or close a connection.
//
// A signal is a single UDP datagram carrying a JSON object:
//
//	{"state": "open", "src": "10.0.0.1", "dest": "10.0.0.9"}
//
// Signals are neither acknowledged nor retried.
package signal

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/metrics"
	"github.com/netlab/diamond/pkg/private/prom"
	"github.com/netlab/diamond/pkg/private/serrors"
	"github.com/netlab/diamond/private/connpoll"
	"github.com/netlab/diamond/private/periodic"
)

// DefaultRate is the default rate in Hz at which pending signals are
// drained.
const DefaultRate = 2

const publishPollInterval = 10 * time.Millisecond

// Signal states.
const (
	StateOpen  = "open"
	StateClose = "close"
)

// ErrMalformed indicates a datagram that is not a valid signal.
var ErrMalformed = serrors.New("malformed signal")

// Message is a decoded signal.
type Message struct {
	State string `json:"state"`
	Src   string `json:"src"`
	Dest  string `json:"dest"`
}

// Encode returns the wire format of the message.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a datagram. All three keys must be present, the addresses
// are passed through unchecked.
func Decode(b []byte) (Message, error) {
	var raw struct {
		State *string `json:"state"`
		Src   *string `json:"src"`
		Dest  *string `json:"dest"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Message{}, serrors.Join(ErrMalformed, err)
	}
	if raw.State == nil || raw.Src == nil || raw.Dest == nil {
		return Message{}, serrors.Join(ErrMalformed, nil, "reason", "missing key")
	}
	m := Message{State: *raw.State, Src: *raw.Src, Dest: *raw.Dest}
	if m.State != StateOpen && m.State != StateClose {
		return Message{}, serrors.Join(ErrMalformed, nil, "state", m.State)
	}
	return m, nil
}

// Handler consumes decoded signals.
type Handler interface {
	FlowOpened(src, dst string)
	FlowClosed(src, dst string)
}

// Metrics are the metrics exported by the listener.
type Metrics struct {
	// Signals counts received datagrams, labelled with state and result.
	Signals metrics.Counter
	// Periodic is passed to the driver of the listener.
	Periodic *periodic.Metrics
}

// Listener drains signals from a UDP socket and hands them to a Handler.
type Listener struct {
	conn    *connpoll.Conn
	addr    net.Addr
	handler Handler
	logger  log.Logger
	metrics Metrics
}

// NewListener creates a listener reading from t. All pending datagrams are
// drained in every poll.
func NewListener(t connpoll.Transport, h Handler, logger log.Logger, m Metrics) *Listener {
	if logger == nil {
		logger = log.New("component", "signal")
	}
	l := &Listener{handler: h, logger: logger, metrics: m}
	l.conn = connpoll.NewConn(t, connpoll.Options{
		OnData: func(_ *connpoll.Conn, b []byte) { l.handle(b) },
		OnClosed: func(*connpoll.Conn) {
			l.logger.Info("Signal socket closed")
		},
		Logger: logger,
	})
	return l
}

// Listen binds a UDP socket on addr and creates a listener for it.
func Listen(addr string, h Handler, logger log.Logger, m Metrics) (*Listener, error) {
	t, err := connpoll.ListenUDP(addr)
	if err != nil {
		return nil, err
	}
	l := NewListener(t, h, logger, m)
	l.addr = t.LocalAddr()
	return l, nil
}

// Addr returns the bound address if the listener was created by Listen.
func (l *Listener) Addr() net.Addr {
	return l.addr
}

// Poll drains the pending signals.
func (l *Listener) Poll() {
	l.conn.Poll()
}

// Close closes the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

// Run polls at rate Hz until ctx is done, then closes the socket.
func (l *Listener) Run(ctx context.Context, rate float64) error {
	d := connpoll.StartDriver("signal_listener", l, rate, l.metrics.Periodic)
	l.logger.Info("Listening for signals", "rate", rate)
	<-ctx.Done()
	d.Stop()
	return l.Close()
}

func (l *Listener) handle(b []byte) {
	msg, err := Decode(b)
	if err != nil {
		l.logger.Info("Dropping unexpected signal", "msg", string(b), "err", err)
		l.count("unknown", prom.ErrMalformed)
		return
	}
	l.logger.Debug("Received signal", "state", msg.State, "src", msg.Src, "dest", msg.Dest)
	switch msg.State {
	case StateOpen:
		l.handler.FlowOpened(msg.Src, msg.Dest)
	case StateClose:
		l.handler.FlowClosed(msg.Src, msg.Dest)
	}
	l.count(msg.State, prom.Success)
}

func (l *Listener) count(state, result string) {
	metrics.CounterInc(metrics.CounterWith(l.metrics.Signals,
		prom.LabelState, state, prom.LabelResult, result))
}

// Publish sends msgs as datagrams to addr. It returns once all datagrams are
// handed to the socket or ctx is done.
func Publish(ctx context.Context, addr string, msgs ...Message) error {
	conn, err := connpoll.NewUDPPublisher(addr, connpoll.Options{})
	if err != nil {
		return err
	}
	defer conn.Close()
	for _, msg := range msgs {
		raw, err := msg.Encode()
		if err != nil {
			return serrors.Wrap("encoding signal", err, "state", msg.State)
		}
		if err := conn.Send(raw); err != nil {
			return err
		}
	}
	ticker := time.NewTicker(publishPollInterval)
	defer ticker.Stop()
	for {
		conn.Poll()
		if conn.Closed() {
			return serrors.New("signal socket closed", "addr", addr,
				"pending", conn.Queued())
		}
		if conn.Queued() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return serrors.Wrap("publishing signals", ctx.Err(), "pending", conn.Queued())
		case <-ticker.C:
		}
	}
}
