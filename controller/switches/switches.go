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

// Package switches contains the per-switch flow rule state machines of the
// diamond topology.
//
// Core switches (PassThrough) only connect their two ports. Edge switches
// (Learning) bootstrap flood rules, learn where hosts are attached and accept
// directed routes from the router.
//
// Ports 1 and 2 of every switch face the core. All other ports face hosts.
package switches

import (
	"github.com/netlab/diamond/pkg/openflow"
	"github.com/netlab/diamond/pkg/private/serrors"
)

const (
	// UplinkPort is the core facing port used for default forwarding.
	UplinkPort uint16 = 1
	// SecondCorePort is the other core facing port.
	SecondCorePort uint16 = 2
)

// Flow table priorities. Each rule must dominate the rules listed before it.
const (
	// PriorityFloodForwardAlways floods everything, sends it up and to the
	// controller.
	PriorityFloodForwardAlways uint16 = 1
	// PriorityFloodIfFromCore floods traffic coming from the core without
	// sending it back up.
	PriorityFloodIfFromCore uint16 = 2
	// PrioritySendFromMAC handles traffic from a learned host.
	PrioritySendFromMAC uint16 = 3
	// PrioritySendToMAC forwards traffic to a learned host.
	PrioritySendToMAC uint16 = 255
	// PriorityRouteConnection pins a routed connection to one core switch.
	PriorityRouteConnection uint16 = 256
)

var (
	// ErrMissingPort indicates that the switch did not report a port that a
	// rule refers to.
	ErrMissingPort = serrors.New("missing port")
	// ErrNotLocal indicates a route request where not exactly one endpoint
	// is attached to the switch.
	ErrNotLocal = serrors.New("route endpoint not local")
)

// Channel is the control channel of a single switch.
type Channel interface {
	// DPID returns the datapath id of the switch.
	DPID() uint64
	// Port returns the description of a port as reported by the switch.
	Port(no uint16) (openflow.PhyPort, bool)
	// Send queues a message to the switch. It fails if the channel is
	// closed.
	Send(m openflow.Message) error
}

// Switch is the controller side of one connected switch. Notifications of a
// single switch are delivered in arrival order.
type Switch interface {
	DPID() uint64
	Role() Role
	// Start installs the initial rules after the channel came up.
	Start() error
	HandlePacketIn(pi *openflow.PacketIn)
	HandlePortStatus(ps *openflow.PortStatus)
}

// Role is the role of a switch in the diamond.
type Role string

const (
	RolePassThrough Role = "pass_through"
	RoleLearning    Role = "learning"
)

var (
	_ Switch = (*PassThrough)(nil)
	_ Switch = (*Learning)(nil)
)

// IsCorePort reports whether port faces the core.
func IsCorePort(port uint16) bool {
	return port == UplinkPort || port == SecondCorePort
}

// sendAll sends msgs in order and stops at the first failure.
func sendAll(ch Channel, msgs ...openflow.Message) error {
	for _, m := range msgs {
		if err := ch.Send(m); err != nil {
			return serrors.Wrap("sending", err, "type", m.Type())
		}
	}
	return nil
}
