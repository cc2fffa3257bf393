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

package main

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/netlab/diamond/controller/signal"
)

func listen(t *testing.T) *net.UDPConn {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receive(t *testing.T, conn *net.UDPConn) signal.Message {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	msg, err := signal.Decode(buf[:n])
	require.NoError(t, err)
	return msg
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRoot()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOpenClose(t *testing.T) {
	conn := listen(t)
	to := conn.LocalAddr().String()

	out, err := run(t, "open", "--src", "10.0.0.1", "--dest", "10.0.0.3", "--to", to)
	require.NoError(t, err)
	assert.Contains(t, out, "Sent open signal 10.0.0.1 <-> 10.0.0.3")
	assert.Equal(t, signal.Message{State: "open", Src: "10.0.0.1", Dest: "10.0.0.3"},
		receive(t, conn))

	_, err = run(t, "close", "--src", "10.0.0.3", "--dest", "10.0.0.1", "--to", to)
	require.NoError(t, err)
	assert.Equal(t, signal.Message{State: "close", Src: "10.0.0.3", Dest: "10.0.0.1"},
		receive(t, conn))
}

func TestOutputFormats(t *testing.T) {
	conn := listen(t)
	to := conn.LocalAddr().String()

	out, err := run(t, "open", "--src", "10.0.0.1", "--dest", "10.0.0.3", "--to", to,
		"--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"to": "`+to+`", "state": "open",
		"src": "10.0.0.1", "dest": "10.0.0.3"}`, out)
	receive(t, conn)

	out, err = run(t, "open", "--src", "10.0.0.1", "--dest", "10.0.0.3", "--to", to,
		"--format", "yaml")
	require.NoError(t, err)
	var res result
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, result{To: to, State: "open", Src: "10.0.0.1", Dest: "10.0.0.3"}, res)
	receive(t, conn)
}

func TestErrors(t *testing.T) {
	testCases := map[string][]string{
		"missing src":    {"open", "--dest", "10.0.0.3"},
		"invalid dest":   {"open", "--src", "10.0.0.1", "--dest", "host-3"},
		"unknown format": {"close", "--src", "10.0.0.1", "--dest", "10.0.0.3", "--format", "xml"},
		"extra argument": {"close", "--src", "10.0.0.1", "--dest", "10.0.0.3", "now"},
	}
	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, args...)
			assert.Error(t, err)
		})
	}
}
