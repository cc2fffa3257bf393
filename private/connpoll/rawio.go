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
	"syscall"

	"golang.org/x/sys/unix"
)

// rawRead performs a single read on the socket without waiting for
// readiness. The runtime poller is bypassed so that an empty socket reports
// EAGAIN instead of parking the goroutine.
func rawRead(rc syscall.RawConn, buf []byte) (int, error) {
	var n int
	var opErr error
	err := rc.Read(func(fd uintptr) bool {
		n, opErr = unix.Read(int(fd), buf)
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, opErr
}

// rawWrite performs a single write on the socket without waiting for
// readiness.
func rawWrite(rc syscall.RawConn, b []byte) (int, error) {
	var n int
	var opErr error
	err := rc.Write(func(fd uintptr) bool {
		n, opErr = unix.Write(int(fd), b)
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, opErr
}

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) ||
		errors.Is(err, unix.EINTR)
}
