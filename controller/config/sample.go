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

package config

const idSample = "diamond-1"

const featuresSample = `
# The enabled feature flags. Supported: learn_ipv4_only. (default [])
features = []
`

const openFlowSample = `
# The TCP address the switches connect to. (default "%s")
listen_addr = "0.0.0.0:6633"

# The rate in Hz at which the control channels are polled. (default %d)
poll_rate = 10.0

# The read attempts per channel and poll. 0 means no limit. (default 0)
max_reads = 0

# The writes per channel and poll. 0 means no limit. (default 0)
max_writes = 0
`

const signalSample = `
# The UDP address open and close signals are received on. (default "%s")
listen_addr = "0.0.0.0:6634"

# The rate in Hz at which pending signals are handled. (default %d)
poll_rate = 2.0
`
