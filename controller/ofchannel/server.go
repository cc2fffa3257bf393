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

// Package ofchannel accepts OpenFlow 1.0 control channels from switches.
//
// Every accepted connection is greeted with a Hello. After the switch
// answered with its own Hello the features are requested, and the features
// reply hands the channel to the Handler. Echo requests are answered. All
// channels share one poller that is driven at a fixed rate.
package ofchannel

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/openflow"
	"github.com/netlab/diamond/pkg/private/serrors"
	"github.com/netlab/diamond/private/connpoll"
	"github.com/netlab/diamond/private/periodic"
)

// Options configures a Server. Zero values select the defaults.
type Options struct {
	// PollRate is the rate in Hz at which the channels are polled.
	PollRate float64
	// MaxReads and MaxWrites limit the I/O per channel and poll.
	MaxReads  int
	MaxWrites int
	Logger    log.Logger
	// Periodic is passed to the poll driver.
	Periodic *periodic.Metrics
}

// Server accepts switch control channels.
type Server struct {
	handler Handler
	opts    Options
	logger  log.Logger
	poller  *connpoll.Poller
}

// NewServer creates a server that reports switches to h.
func NewServer(h Handler, opts Options) *Server {
	if opts.PollRate <= 0 {
		opts.PollRate = connpoll.DefaultRate
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New("component", "ofchannel")
	}
	return &Server{
		handler: h,
		opts:    opts,
		logger:  logger,
		poller:  connpoll.NewPoller(),
	}
}

// ListenAndServe listens on the TCP address addr and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return serrors.Wrap("listening", err, "addr", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts channels on ln until ctx is done. On return the listener and
// all channels are closed and their switches reported down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	d := connpoll.StartDriver("openflow_poller", s.poller, s.opts.PollRate, s.opts.Periodic)
	s.logger.Info("Accepting switch connections", "addr", ln.Addr(),
		"poll_rate", s.opts.PollRate)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer log.HandlePanic()
		defer wg.Done()
		select {
		case <-ctx.Done():
		case <-stop:
		}
		ln.Close()
	}()

	var err error
	for {
		conn, aerr := ln.Accept()
		if aerr != nil {
			if ctx.Err() == nil && !errors.Is(aerr, net.ErrClosed) {
				err = serrors.Wrap("accepting", aerr)
			}
			break
		}
		if err := s.add(conn); err != nil {
			s.logger.Error("Setting up control channel failed",
				"remote", conn.RemoteAddr(), "err", err)
			conn.Close()
		}
	}
	close(stop)
	wg.Wait()

	d.Stop()
	s.poller.CloseAll()
	// Deliver the close notifications.
	s.poller.Poll()
	return err
}

func (s *Server) add(conn net.Conn) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return serrors.New("unsupported connection type")
	}
	t, err := connpoll.NewTCPTransport(tcp)
	if err != nil {
		return err
	}
	ch := newChannel(s.handler, s.logger.New("remote", conn.RemoteAddr().String()))
	ch.conn = connpoll.NewConn(t, connpoll.Options{
		OnData: ch.onData,
		OnClosed: func(c *connpoll.Conn) {
			ch.onClosed(c)
			s.poller.Remove(c)
		},
		MaxReads:  s.opts.MaxReads,
		MaxWrites: s.opts.MaxWrites,
		Logger:    ch.logger,
	})
	if err := ch.Send(&openflow.Hello{}); err != nil {
		return err
	}
	s.poller.Add(ch.conn)
	s.logger.Debug("Accepted control channel", "remote", conn.RemoteAddr())
	return nil
}

// Channels returns the number of open control channels.
func (s *Server) Channels() int {
	return s.poller.Len()
}
