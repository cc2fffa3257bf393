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

// Package controller ties the diamond controller components together.
package controller

import (
	"github.com/netlab/diamond/controller/balance"
	"github.com/netlab/diamond/controller/diamond"
	"github.com/netlab/diamond/controller/signal"
	"github.com/netlab/diamond/pkg/metrics"
	"github.com/netlab/diamond/private/periodic"
)

// Periodic task names.
const (
	TaskOpenFlowPoller = "openflow_poller"
	TaskSignalListener = "signal_listener"
)

// Metrics defines the metrics exposed by the controller.
type Metrics struct {
	Router   diamond.Metrics
	Balance  balance.Metrics
	Signal   signal.Metrics
	OpenFlow *periodic.Metrics
}

// NewMetrics creates and registers all controller metrics with the factory.
func NewMetrics(f metrics.Factory) *Metrics {
	events := f.NewCounter("periodic_events_total",
		"Total number of stop, kill and trigger events of the periodic tasks.",
		"task", "event")
	period := f.NewGauge("periodic_period_seconds",
		"The period of the periodic tasks.", "task")
	runtime := f.NewGauge("periodic_runtime_seconds",
		"The duration of the last run of the periodic tasks.", "task")
	start := f.NewGauge("periodic_start_timestamp_seconds",
		"The start time of the last run of the periodic tasks.", "task")
	periodicFor := func(task string) *periodic.Metrics {
		return &periodic.Metrics{
			Events: func(event string) metrics.Counter {
				return metrics.CounterWith(events, "task", task, "event", event)
			},
			Period:    metrics.GaugeWith(period, "task", task),
			Runtime:   metrics.GaugeWith(runtime, "task", task),
			StartTime: metrics.GaugeWith(start, "task", task),
		}
	}

	return &Metrics{
		Router: diamond.Metrics{
			RouteOps: f.NewCounter("route_ops_total",
				"Total number of route installs and removals on the edge switches.",
				"op", "side", "result"),
			SwitchesConnected: f.NewGauge("switches_connected",
				"Number of connected switches.", "role"),
		},
		Balance: balance.Metrics{
			Flows: f.NewGauge("flows",
				"Number of routed connections per side.", "side"),
			FlowEvents: f.NewCounter("flow_events_total",
				"Total number of handled open and close events.", "event", "result"),
			Rebalanced: f.NewCounter("rebalanced_flows_total",
				"Total number of connections moved to the other side.", "from"),
		},
		Signal: signal.Metrics{
			Signals: f.NewCounter("signals_total",
				"Total number of received signals.", "state", "result"),
			Periodic: periodicFor(TaskSignalListener),
		},
		OpenFlow: periodicFor(TaskOpenFlowPoller),
	}
}
