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

package openflow

import (
	"encoding/binary"

	"github.com/netlab/diamond/pkg/private/serrors"
)

// Framer reassembles messages from a byte stream that may split or coalesce
// them arbitrarily.
type Framer struct {
	buf []byte
}

// Feed appends data to the stream and returns all messages completed by it.
// Each returned slice is one full message including its header. An error
// means the stream is corrupt and cannot be resynchronized.
func (f *Framer) Feed(data []byte) ([][]byte, error) {
	f.buf = append(f.buf, data...)
	var msgs [][]byte
	for len(f.buf) >= HeaderLen {
		l := int(binary.BigEndian.Uint16(f.buf[2:4]))
		if l < HeaderLen {
			return msgs, serrors.New("invalid message length", "len", l)
		}
		if len(f.buf) < l {
			break
		}
		msg := make([]byte, l)
		copy(msg, f.buf[:l])
		msgs = append(msgs, msg)
		f.buf = f.buf[l:]
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return msgs, nil
}

// Buffered returns the number of bytes of incomplete messages.
func (f *Framer) Buffered() int {
	return len(f.buf)
}
