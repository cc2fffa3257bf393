// Copyright 2018 ETH Zurich
// Copyright 2020 ETH Zurich, Anapaya Systems
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

// Package xtest holds small assertion and fixture helpers shared by the unit
// tests of the controller.
package xtest

import (
	"encoding/hex"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorsIs asserts errors.Is(err, target).
func AssertErrorsIs(t testing.TB, err, target error) {
	t.Helper()
	assert.True(t, errors.Is(err, target), "expected %q to match %q", err, target)
}

// MustWriteToFile writes b to dir/name and returns the path.
func MustWriteToFile(t testing.TB, dir, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

// MustParseHexString decodes a hex dump. Whitespace is ignored so that wire
// captures can be laid out one field per line.
func MustParseHexString(s string) []byte {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		panic(err)
	}
	return b
}

// MustParseMAC parses a hardware address.
func MustParseMAC(t testing.TB, s string) net.HardwareAddr {
	t.Helper()
	mac, err := net.ParseMAC(s)
	require.NoError(t, err)
	return mac
}

// AssertReadReturnsBefore fails the test unless ch yields within timeout.
func AssertReadReturnsBefore(t testing.TB, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()
	if !readWithin(ch, timeout) {
		t.Fatalf("no read from channel within %v", timeout)
	}
}

// AssertReadDoesNotReturnBefore fails the test if ch yields within timeout.
func AssertReadDoesNotReturnBefore(t testing.TB, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()
	if readWithin(ch, timeout) {
		t.Fatalf("channel read returned before %v", timeout)
	}
}

func readWithin(ch <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
