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

package prom_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/netlab/diamond/pkg/private/prom"
)

func TestSafeRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	newVec := func() *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_total",
			Help: "Test counter.",
		}, []string{prom.LabelResult})
	}
	first := newVec()
	assert.Same(t, first, prom.SafeRegister(reg, first))
	assert.Same(t, first, prom.SafeRegister(reg, newVec()))

	conflicting := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_total",
		Help: "Different help.",
	}, []string{prom.LabelResult})
	assert.Panics(t, func() { prom.SafeRegister(reg, conflicting) })
}
