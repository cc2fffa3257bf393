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

//go:build linux

package processmetrics

import (
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"

	"github.com/netlab/diamond/pkg/private/serrors"
)

var (
	runningTime = prometheus.NewDesc(
		"diamond_process_running_seconds_total",
		"CPU time the process used (running state) since it started (all threads summed).",
		nil, nil,
	)
	runnableTime = prometheus.NewDesc(
		"diamond_process_runnable_seconds_total",
		"CPU time the process was denied (runnable state) since it started (all threads summed).",
		nil, nil,
	)
	openFDs = prometheus.NewDesc(
		"diamond_process_open_fds",
		"Number of open file descriptors, including the switch and signal sockets.",
		nil, nil,
	)
	threads = prometheus.NewDesc(
		"diamond_process_threads",
		"Number of OS threads of the process.",
		nil, nil,
	)
	goCores = prometheus.NewDesc(
		"diamond_go_maxprocs_threads",
		"The current runtime.GOMAXPROCS setting.",
		nil, nil,
	)
)

// collector reads the scheduling statistics of all threads from /proc on
// every scrape.
type collector struct {
	proc procfs.Proc

	mtx sync.Mutex
	// tasks is refreshed when the thread count changes. Go never terminates
	// its threads, so an unchanged count means an unchanged list.
	tasks     procfs.Procs
	taskCount int
}

type sample struct {
	running  float64
	runnable float64
	fds      int
	threads  int
}

func (c *collector) sample() (sample, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	stat, err := c.proc.Stat()
	if err != nil {
		return sample{}, serrors.Wrap("reading process stat", err)
	}
	if stat.NumThreads != c.taskCount || c.tasks == nil {
		tasks, err := procfs.AllThreads(c.proc.PID)
		if err != nil {
			return sample{}, serrors.Wrap("listing threads", err)
		}
		c.tasks, c.taskCount = tasks, stat.NumThreads
	}
	s := sample{threads: stat.NumThreads}
	for _, t := range c.tasks {
		ss, err := t.Schedstat()
		if err != nil {
			// The thread disappeared, the others are still valid.
			continue
		}
		s.running += float64(ss.RunningNanoseconds) / 1e9
		s.runnable += float64(ss.WaitingNanoseconds) / 1e9
	}
	if s.fds, err = c.proc.FileDescriptorsLen(); err != nil {
		return sample{}, serrors.Wrap("counting file descriptors", err)
	}
	return s, nil
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	s, err := c.sample()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(runningTime, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(runningTime, prometheus.CounterValue, s.running)
	ch <- prometheus.MustNewConstMetric(runnableTime, prometheus.CounterValue, s.runnable)
	ch <- prometheus.MustNewConstMetric(openFDs, prometheus.GaugeValue, float64(s.fds))
	ch <- prometheus.MustNewConstMetric(threads, prometheus.GaugeValue, float64(s.threads))
	ch <- prometheus.MustNewConstMetric(goCores, prometheus.GaugeValue,
		float64(runtime.GOMAXPROCS(-1)))
}

// Init registers the process collector with reg. It fails if /proc is not
// readable or the collector is already registered. The service keeps working
// without it.
func Init(reg prometheus.Registerer) error {
	proc, err := procfs.Self()
	if err != nil {
		return serrors.Wrap("opening /proc/self", err)
	}
	c := &collector{proc: proc}
	if _, err := c.sample(); err != nil {
		return serrors.Wrap("first sample failed", err)
	}
	if err := reg.Register(c); err != nil {
		return serrors.Wrap("registering process collector", err)
	}
	return nil
}
