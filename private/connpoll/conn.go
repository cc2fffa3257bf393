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

// Package connpoll multiplexes non-blocking byte streams on a single polling
// goroutine.
//
// A Conn wraps one Transport and decouples I/O scheduling from readiness:
// Send only queues, and all reads and writes happen in Poll. Conns are
// registered with a Poller, which is driven at a fixed rate by a Driver.
//
// Callbacks run on the polling goroutine. The on-data callback is invoked once
// per successful read in read order, after all I/O of the quantum is done. The
// on-closed callback fires exactly once per Conn, in the first quantum that
// observes the closure.
package connpoll

import (
	"sync"

	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/private/serrors"
)

// ErrClosed is returned by Send if the connection is closed.
var ErrClosed = serrors.New("connection is closed")

// ReadStatus is the outcome of a single non-blocking read attempt.
type ReadStatus int

const (
	// ReadOK means data was read.
	ReadOK ReadStatus = iota
	// ReadEmpty means no data was available right now.
	ReadEmpty
	// ReadClosed means the transport is closed or failed.
	ReadClosed
)

func (s ReadStatus) String() string {
	switch s {
	case ReadOK:
		return "ok"
	case ReadEmpty:
		return "empty"
	case ReadClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// WriteStatus is the outcome of a single non-blocking write attempt.
type WriteStatus int

const (
	// WriteSent means the full buffer was accepted.
	WriteSent WriteStatus = iota
	// WritePending means only a prefix (possibly empty) was accepted. The
	// remainder must be written by a later attempt.
	WritePending
	// WriteClosed means the transport is closed or failed.
	WriteClosed
)

func (s WriteStatus) String() string {
	switch s {
	case WriteSent:
		return "sent"
	case WritePending:
		return "pending"
	case WriteClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is a non-blocking byte stream. None of its methods may block.
type Transport interface {
	// Read returns the next chunk of available data.
	Read() ([]byte, ReadStatus)
	// Write attempts to write b and returns how many bytes were accepted.
	Write(b []byte) (int, WriteStatus)
	// Close releases the underlying resources.
	Close() error
}

// DataHandler is called for every chunk read from a connection.
type DataHandler func(c *Conn, data []byte)

// ClosedHandler is called once a connection is detected closed.
type ClosedHandler func(c *Conn)

// Options configures a Conn. Zero values mean no limit and no callback.
type Options struct {
	// OnData is invoked for each chunk read.
	OnData DataHandler
	// OnClosed is invoked exactly once after the connection closed.
	OnClosed ClosedHandler
	// MaxReads limits the read attempts per quantum.
	MaxReads int
	// MaxWrites limits the successful writes per quantum.
	MaxWrites int
	// Logger is used for debug logs. Defaults to the root logger.
	Logger log.Logger
}

// Conn is a polled connection. Send and Close are safe for concurrent use.
// Poll must only be called from one goroutine at a time, usually the Poller.
type Conn struct {
	transport Transport
	onData    DataHandler
	onClosed  ClosedHandler
	maxReads  int
	maxWrites int
	logger    log.Logger

	mtx    sync.Mutex
	queue  [][]byte
	closed bool

	// only accessed from Poll.
	inflight []byte
	offset   int
	notified bool

	shutdown sync.Once
}

// NewConn wraps t. The transport is owned by the returned Conn.
func NewConn(t Transport, opts Options) *Conn {
	logger := opts.Logger
	if logger == nil {
		logger = log.Root()
	}
	return &Conn{
		transport: t,
		onData:    opts.OnData,
		onClosed:  opts.OnClosed,
		maxReads:  opts.MaxReads,
		maxWrites: opts.MaxWrites,
		logger:    logger,
	}
}

// Send queues b for transmission during a later Poll. It fails with ErrClosed
// if the connection is closed. The caller must not modify b afterwards.
func (c *Conn) Send(b []byte) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.queue = append(c.queue, b)
	return nil
}

// Close closes the connection. The first call shuts down the transport, later
// calls are no-ops. The on-closed callback fires in the next Poll.
func (c *Conn) Close() error {
	c.mtx.Lock()
	c.closed = true
	c.mtx.Unlock()
	return c.closeTransport()
}

// Closed reports whether the connection is closed.
func (c *Conn) Closed() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.closed
}

// Queued returns the number of messages waiting to be written, including a
// partially written one.
func (c *Conn) Queued() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	n := len(c.queue)
	if c.inflight != nil {
		n++
	}
	return n
}

// Poll runs one scheduling quantum: reads, then writes, then callbacks.
func (c *Conn) Poll() {
	if c.notified {
		return
	}
	justClosed := c.Closed()

	var reads [][]byte
	if !justClosed {
		reads, justClosed = c.read()
	}
	if !justClosed {
		justClosed = c.write()
	}

	for _, data := range reads {
		if c.onData != nil {
			c.onData(c, data)
		}
	}

	if justClosed {
		c.mtx.Lock()
		c.closed = true
		c.queue = nil
		c.inflight = nil
		c.mtx.Unlock()
		c.notified = true
		if err := c.closeTransport(); err != nil {
			c.logger.Debug("Closing transport failed", "err", err)
		}
		if c.onClosed != nil {
			c.onClosed(c)
		}
	}
}

func (c *Conn) read() ([][]byte, bool) {
	var reads [][]byte
	for c.maxReads <= 0 || len(reads) < c.maxReads {
		data, status := c.transport.Read()
		switch status {
		case ReadClosed:
			c.logger.Debug("Transport closed on read")
			return reads, true
		case ReadOK:
			if len(data) == 0 {
				return reads, false
			}
			reads = append(reads, data)
		default:
			return reads, false
		}
	}
	return reads, false
}

func (c *Conn) write() bool {
	for writes := 0; c.maxWrites <= 0 || writes < c.maxWrites; {
		if c.inflight == nil {
			c.mtx.Lock()
			if len(c.queue) == 0 {
				c.mtx.Unlock()
				return false
			}
			c.inflight, c.queue = c.queue[0], c.queue[1:]
			c.offset = 0
			c.mtx.Unlock()
		}
		n, status := c.transport.Write(c.inflight[c.offset:])
		switch status {
		case WriteSent:
			c.mtx.Lock()
			c.inflight = nil
			c.mtx.Unlock()
			c.offset = 0
			writes++
		case WritePending:
			c.offset += n
			return false
		default:
			c.logger.Debug("Transport closed on write")
			return true
		}
	}
	return false
}

func (c *Conn) closeTransport() error {
	var err error
	c.shutdown.Do(func() {
		err = c.transport.Close()
	})
	return err
}
