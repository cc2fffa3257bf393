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

package switches

import (
	"github.com/netlab/diamond/pkg/log"
	"github.com/netlab/diamond/pkg/openflow"
)

// PassThrough is a core switch. It forwards everything between port 1 and
// port 2 and keeps no state.
type PassThrough struct {
	ch     Channel
	logger log.Logger
}

// NewPassThrough creates the state machine for a core switch.
func NewPassThrough(ch Channel, logger log.Logger) *PassThrough {
	if logger == nil {
		logger = log.New("switch", ch.DPID())
	}
	return &PassThrough{ch: ch, logger: logger}
}

// Start installs the two forwarding rules.
func (s *PassThrough) Start() error {
	s.logger.Info("Pass-through switch connected, installing forwarding rules")
	return sendAll(s.ch,
		forward(UplinkPort, SecondCorePort),
		forward(SecondCorePort, UplinkPort),
	)
}

// DPID returns the datapath id.
func (s *PassThrough) DPID() uint64 {
	return s.ch.DPID()
}

// Role returns RolePassThrough.
func (s *PassThrough) Role() Role {
	return RolePassThrough
}

// HandlePacketIn ignores the packet.
func (s *PassThrough) HandlePacketIn(*openflow.PacketIn) {}

// HandlePortStatus ignores the change.
func (s *PassThrough) HandlePortStatus(*openflow.PortStatus) {}

func forward(in, out uint16) *openflow.FlowMod {
	return openflow.NewFlowAdd(
		openflow.MatchAll().WithInPort(in),
		openflow.DefaultPriority,
		openflow.Output(out),
	)
}
