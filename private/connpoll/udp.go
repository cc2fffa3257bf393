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

//go:build unix

package connpoll

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/netlab/diamond/pkg/private/serrors"
)

const maxDatagramSize = 64 * 1024

var _ Transport = (*UDPTransport)(nil)

// UDPTransport is a non-blocking transport over a UDP socket. Every read
// returns exactly one datagram and every write sends exactly one.
type UDPTransport struct {
	conn *net.UDPConn
	raw  syscall.RawConn
	buf  []byte
}

// ListenUDP binds a UDP socket on addr for receiving datagrams. Writes on the
// returned transport report closed since the socket has no peer.
func ListenUDP(addr string) (*UDPTransport, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, serrors.Wrap("resolving listen address", err, "addr", addr)
	}
	c, err := net.ListenUDP("udp", a)
	if err != nil {
		return nil, serrors.Wrap("listening", err, "addr", addr)
	}
	return newUDPTransport(c)
}

// DialUDP creates a UDP socket connected to addr for sending datagrams.
func DialUDP(addr string) (*UDPTransport, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, serrors.Wrap("resolving remote address", err, "addr", addr)
	}
	c, err := net.DialUDP("udp", nil, a)
	if err != nil {
		return nil, serrors.Wrap("dialing", err, "addr", addr)
	}
	return newUDPTransport(c)
}

func newUDPTransport(c *net.UDPConn) (*UDPTransport, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		c.Close()
		return nil, serrors.Wrap("accessing raw connection", err)
	}
	return &UDPTransport{conn: c, raw: raw, buf: make([]byte, maxDatagramSize)}, nil
}

// Read returns the next pending datagram.
func (t *UDPTransport) Read() ([]byte, ReadStatus) {
	n, err := rawRead(t.raw, t.buf)
	switch {
	case err != nil && wouldBlock(err):
		return nil, ReadEmpty
	case errors.Is(err, unix.ECONNREFUSED):
		// An ICMP error for an earlier datagram, the socket is still usable.
		return nil, ReadEmpty
	case err != nil:
		return nil, ReadClosed
	case n <= 0:
		return nil, ReadEmpty
	}
	data := make([]byte, n)
	copy(data, t.buf[:n])
	return data, ReadOK
}

// Write sends b as one datagram. A datagram refused by the peer counts as
// sent since delivery is never acknowledged.
func (t *UDPTransport) Write(b []byte) (int, WriteStatus) {
	n, err := rawWrite(t.raw, b)
	switch {
	case err != nil && wouldBlock(err):
		return 0, WritePending
	case errors.Is(err, unix.ECONNREFUSED):
		return len(b), WriteSent
	case err != nil:
		return 0, WriteClosed
	}
	return n, WriteSent
}

// Close closes the socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

// LocalAddr returns the bound address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// NewUDPPublisher returns a connection that sends each queued message as a
// datagram to addr. It never reads.
func NewUDPPublisher(addr string, opts Options) (*Conn, error) {
	t, err := DialUDP(addr)
	if err != nil {
		return nil, err
	}
	opts.OnData = nil
	return NewConn(publisher{t}, opts), nil
}

type publisher struct {
	*UDPTransport
}

func (publisher) Read() ([]byte, ReadStatus) {
	return nil, ReadEmpty
}
