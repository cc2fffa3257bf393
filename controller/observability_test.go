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

package controller_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netlab/diamond/controller"
	"github.com/netlab/diamond/pkg/metrics"
	"github.com/netlab/diamond/private/periodic"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := controller.NewMetrics(metrics.Factory{Registerer: reg})

	metrics.CounterInc(metrics.CounterWith(m.Balance.FlowEvents,
		"event", "open", "result", "routed"))
	metrics.GaugeSet(metrics.GaugeWith(m.Router.SwitchesConnected, "role", "learning"), 2)
	metrics.CounterInc(m.OpenFlow.Events(periodic.EventStop))

	expected := `
# HELP diamond_flow_events_total Total number of handled open and close events.
# TYPE diamond_flow_events_total counter
diamond_flow_events_total{event="open",result="routed"} 1
# HELP diamond_periodic_events_total Total number of stop, kill and trigger events of the periodic tasks.
# TYPE diamond_periodic_events_total counter
diamond_periodic_events_total{event="stop",task="openflow_poller"} 1
# HELP diamond_switches_connected Number of connected switches.
# TYPE diamond_switches_connected gauge
diamond_switches_connected{role="learning"} 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"diamond_flow_events_total", "diamond_periodic_events_total",
		"diamond_switches_connected")
	require.NoError(t, err)
	assert.NotNil(t, m.Signal.Periodic)
}
