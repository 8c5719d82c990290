// Copyright 2026 The hbase-go Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package metacache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the cache's Prometheus counters. The cache owns and
// increments them; callers wire them up by registering the MetaCache,
// which is a prometheus.Collector, with their registry of choice.
// Nothing is registered with the default registry.
type Metrics struct {
	// Hits and Misses count GetCachedLocation outcomes. A floor entry
	// whose region does not contain the row counts as a miss.
	Hits   prometheus.Counter
	Misses prometheus.Counter
	// Evictions counts location records removed from the cache by any
	// clearing operation, including server sweeps.
	Evictions prometheus.Counter
	// ServerSweeps counts full-cache sweeps performed on behalf of a
	// server; ServerSweepSkips counts ClearServer calls answered by the
	// reverse index without sweeping.
	ServerSweeps     prometheus.Counter
	ServerSweepSkips prometheus.Counter
}

func newMetrics() *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hbase",
			Subsystem: "metacache",
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		Hits:             counter("hits_total", "Region location lookups served from the cache."),
		Misses:           counter("misses_total", "Region location lookups not served from the cache."),
		Evictions:        counter("evicted_locations_total", "Location records removed from the cache."),
		ServerSweeps:     counter("server_sweeps_total", "Full-cache invalidation sweeps performed for a server."),
		ServerSweepSkips: counter("server_sweep_skips_total", "Server invalidations answered by the reverse index without a sweep."),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Hits.Describe(ch)
	m.Misses.Describe(ch)
	m.Evictions.Describe(ch)
	m.ServerSweeps.Describe(ch)
	m.ServerSweepSkips.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Hits.Collect(ch)
	m.Misses.Collect(ch)
	m.Evictions.Collect(ch)
	m.ServerSweeps.Collect(ch)
	m.ServerSweepSkips.Collect(ch)
}
