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

package balance

import "github.com/netlab/diamond/controller/diamond"

// SetUses places a connection on side with the given use count without
// touching the router.
func (m *Manager) SetUses(side diamond.Side, src, dst string, uses int) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.flows[side][NewFlowKey(src, dst)] = uses
}
