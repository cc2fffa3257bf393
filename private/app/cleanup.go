// Copyright 2020 Anapaya Systems
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

// Package app contains helpers shared by the controller binaries.
package app

import (
	"errors"
	"sync"
)

// Cleanup collects functions that release resources on shutdown. The zero
// value is ready to use.
type Cleanup struct {
	mtx   sync.Mutex
	funcs []func() error
	done  bool
}

// Add registers f. Functions run in reverse order of registration.
func (c *Cleanup) Add(f func() error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.funcs = append(c.funcs, f)
}

// Do runs all registered functions once and joins their errors. Subsequent
// calls are no-ops.
func (c *Cleanup) Do() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.done {
		return nil
	}
	c.done = true
	var errs []error
	for i := len(c.funcs) - 1; i >= 0; i-- {
		if err := c.funcs[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
