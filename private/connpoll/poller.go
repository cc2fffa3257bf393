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

package connpoll

import (
	"sync"
)

// Pollable is anything that can run one polling quantum.
type Pollable interface {
	Poll()
}

// Poller polls a set of connections. Add and Remove may be called from any
// goroutine; they are buffered and applied at the start of the next cycle so
// that the working set never changes during a cycle.
type Poller struct {
	mtx     sync.Mutex
	working map[Pollable]struct{}
	adds    map[Pollable]struct{}
	removes map[Pollable]struct{}
}

// NewPoller creates an empty poller.
func NewPoller() *Poller {
	return &Poller{
		working: make(map[Pollable]struct{}),
		adds:    make(map[Pollable]struct{}),
		removes: make(map[Pollable]struct{}),
	}
}

// Add registers c for polling starting with the next cycle.
func (p *Poller) Add(c Pollable) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.adds[c] = struct{}{}
	delete(p.removes, c)
}

// Remove unregisters c starting with the next cycle.
func (p *Poller) Remove(c Pollable) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	delete(p.adds, c)
	if _, ok := p.working[c]; ok {
		p.removes[c] = struct{}{}
	}
}

// Len returns the number of registered connections, including pending
// changes.
func (p *Poller) Len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.working) + len(p.adds) - len(p.removes)
}

// CloseAll requests closing of every registered connection, including
// pending additions. It does not wait for the close callbacks, which fire in
// the next cycle.
func (p *Poller) CloseAll() {
	p.mtx.Lock()
	conns := make([]*Conn, 0, len(p.working)+len(p.adds))
	for _, set := range []map[Pollable]struct{}{p.working, p.adds} {
		for c := range set {
			if conn, ok := c.(*Conn); ok {
				conns = append(conns, conn)
			}
		}
	}
	p.mtx.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

// Poll runs one cycle over the working set. The order in which connections
// are polled is unspecified.
func (p *Poller) Poll() {
	p.mtx.Lock()
	for c := range p.removes {
		delete(p.working, c)
	}
	for c := range p.adds {
		p.working[c] = struct{}{}
	}
	clear(p.removes)
	clear(p.adds)
	working := make([]Pollable, 0, len(p.working))
	for c := range p.working {
		working = append(working, c)
	}
	p.mtx.Unlock()

	for _, c := range working {
		c.Poll()
	}
}
