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

// ActionType is the type of a flow action.
type ActionType uint16

const (
	ActionTypeOutput ActionType = 0
)

const actionOutputLen = 8

// Action is a flow action.
type Action interface {
	ActionType() ActionType
	append(b []byte) []byte
}

// ActionOutput forwards the packet to a port.
type ActionOutput struct {
	Port uint16
	// MaxLen is the number of bytes sent to the controller if Port is
	// PortController.
	MaxLen uint16
}

// Output returns an output action to port. Packets sent to the controller
// are sent in full.
func Output(port uint16) ActionOutput {
	a := ActionOutput{Port: port}
	if port == PortController {
		a.MaxLen = 0xffff
	}
	return a
}

func (ActionOutput) ActionType() ActionType {
	return ActionTypeOutput
}

func (a ActionOutput) append(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(ActionTypeOutput))
	b = binary.BigEndian.AppendUint16(b, actionOutputLen)
	b = binary.BigEndian.AppendUint16(b, a.Port)
	return binary.BigEndian.AppendUint16(b, a.MaxLen)
}

// ActionUnknown is an action the controller does not interpret.
type ActionUnknown struct {
	Type ActionType
	Body []byte
}

func (a ActionUnknown) ActionType() ActionType {
	return a.Type
}

func (a ActionUnknown) append(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, uint16(a.Type))
	b = binary.BigEndian.AppendUint16(b, uint16(4+len(a.Body)))
	return append(b, a.Body...)
}

func decodeActions(b []byte) ([]Action, error) {
	var actions []Action
	for len(b) > 0 {
		if err := short(b, 4); err != nil {
			return nil, err
		}
		t := ActionType(binary.BigEndian.Uint16(b[0:2]))
		l := int(binary.BigEndian.Uint16(b[2:4]))
		if l < 4 || l%8 != 0 {
			return nil, serrors.New("invalid action length", "type", t, "len", l)
		}
		if err := short(b, l); err != nil {
			return nil, err
		}
		switch {
		case t == ActionTypeOutput && l == actionOutputLen:
			actions = append(actions, ActionOutput{
				Port:   binary.BigEndian.Uint16(b[4:6]),
				MaxLen: binary.BigEndian.Uint16(b[6:8]),
			})
		default:
			actions = append(actions, ActionUnknown{
				Type: t,
				Body: append([]byte(nil), b[4:l]...),
			})
		}
		b = b[l:]
	}
	return actions, nil
}
