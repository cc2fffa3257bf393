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
	"context"
	"net"
	"syscall"

	"github.com/netlab/diamond/pkg/private/serrors"
)

const tcpReadSize = 64 * 1024

var _ Transport = (*TCPTransport)(nil)

// TCPTransport is a non-blocking transport over a TCP connection.
type TCPTransport struct {
	conn *net.TCPConn
	raw  syscall.RawConn
	buf  []byte
}

// NewTCPTransport wraps an established TCP connection.
func NewTCPTransport(conn *net.TCPConn) (*TCPTransport, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, serrors.Wrap("accessing raw connection", err)
	}
	return &TCPTransport{
		conn: conn,
		raw:  raw,
		buf:  make([]byte, tcpReadSize),
	}, nil
}

// DialTCP connects to addr and returns the transport for the connection.
func DialTCP(ctx context.Context, addr string) (*TCPTransport, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, serrors.Wrap("dialing", err, "addr", addr)
	}
	t, err := NewTCPTransport(c.(*net.TCPConn))
	if err != nil {
		c.Close()
		return nil, err
	}
	return t, nil
}

// Read reads the currently available bytes. EOF and all errors other than
// EAGAIN are reported as closed.
func (t *TCPTransport) Read() ([]byte, ReadStatus) {
	n, err := rawRead(t.raw, t.buf)
	switch {
	case err != nil && wouldBlock(err):
		return nil, ReadEmpty
	case err != nil, n <= 0:
		return nil, ReadClosed
	}
	data := make([]byte, n)
	copy(data, t.buf[:n])
	return data, ReadOK
}

// Write writes as much of b as the socket accepts.
func (t *TCPTransport) Write(b []byte) (int, WriteStatus) {
	n, err := rawWrite(t.raw, b)
	switch {
	case err != nil && wouldBlock(err):
		return 0, WritePending
	case err != nil:
		return 0, WriteClosed
	case n < len(b):
		return max(n, 0), WritePending
	}
	return n, WriteSent
}

// Close closes the TCP connection.
func (t *TCPTransport) Close() error {
	return t.conn.Close()
}

// RemoteAddr returns the address of the peer.
func (t *TCPTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}
