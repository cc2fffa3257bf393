// Copyright 2017 ETH Zurich
// Copyright 2018 ETH Zurich, Anapaya Systems
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
// Package prom contains the label names and values shared by the controller
// metrics, and registration helpers.
package prom

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Common label names.
const (
	// LabelResult is the label for result classifications.
	LabelResult = "result"
	// LabelOperation is the label for the name of an executed operation.
	LabelOperation = "op"
	// LabelSide is the label for the side of the diamond.
	LabelSide = "side"
	// LabelRole is the label for the role of a switch.
	LabelRole = "role"
	// LabelState is the label for the state carried by a signal.
	LabelState = "state"
	// LabelEvent is the label for the kind of an event.
	LabelEvent = "event"
	// LabelFrom is the label for the origin of a move.
	LabelFrom = "from"
)

// Common result values.
const (
	// Success is no error.
	Success = "ok"
	// ErrRejected is a request that was refused without trying.
	ErrRejected = "rejected"
	// ErrInternal is an error while carrying out the request.
	ErrInternal = "error"
	// ErrMalformed is input that could not be parsed.
	ErrMalformed = "malformed"
)

// SafeRegister registers c with reg and returns the registered collector. If
// an equal collector was already registered, the existing one is returned. In
// case of any other error this method panics (as MustRegister).
func SafeRegister(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
