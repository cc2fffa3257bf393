// Copyright 2023 SCION Association
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

// Package processmetrics exports process metrics beyond what the default
// prometheus process collector offers: the CPU time the scheduler granted or
// denied to the controller, and its thread and file descriptor counts. The
// number of file descriptors tracks the switch and signal sockets.
//
// The available CPU time can be inferred in queries, e.g.:
//
//	diamond_go_maxprocs_threads - rate(diamond_process_runnable_seconds_total[1m])
//
// The collector is restricted to Linux. Init fails on other platforms.
package processmetrics
