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

// Package metacache caches the mapping from (table, row) to the servers
// hosting the region containing that row, so that clients can route
// requests without a round trip to the metadata service on every call.
//
// The cache is a best-effort accelerator, not a source of truth. It is
// filled from location reports (server redirects and metadata reads),
// and invalidated by the Clear family of operations when servers report
// staleness or die. A miss always means "ask the metadata service",
// never an error.
//
// All operations are safe for concurrent use. The hot paths take only
// short per-table lock sections and resolve write races optimistically:
// a lost conditional replace means another goroutine's fresher update
// survived, which is the intended outcome. The one serialized path is
// ClearServer, whose full-cache sweep is coalesced so that many
// goroutines noticing the same dead server trigger a single sweep.
package metacache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/nilname/hbase/pkg/region"
)

// MetaCache is the client-side region location cache.
type MetaCache struct {
	// tables maps a table to its location index. Entries are created
	// lazily; concurrent creators converge on a single shared instance
	// via LoadOrStore.
	tables sync.Map // region.TableName -> *tableCache

	// servers is a conservative superset of the servers referenced by
	// any cached location: absence guarantees no cached location points
	// at the server, presence guarantees nothing. It exists only to
	// make ClearServer cheap for unknown servers.
	servers sync.Map // region.ServerName -> struct{}

	// sweeps coalesces concurrent ClearServer sweeps per server.
	sweeps singleflight.Group

	// prefetchDisabled holds the tables whose region prefetching has
	// been turned off. Absence means enabled.
	prefetchDisabled sync.Map // region.TableName -> struct{}

	metrics *Metrics
	logger  logrus.FieldLogger
}

// Option configures a MetaCache.
type Option func(*MetaCache)

// WithLogger sets the logger used for debug-level cache events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(mc *MetaCache) {
		mc.logger = l
	}
}

// New returns an empty MetaCache.
func New(opts ...Option) *MetaCache {
	mc := &MetaCache{
		metrics: newMetrics(),
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(mc)
	}
	return mc
}

// Metrics returns the cache's counters.
func (mc *MetaCache) Metrics() *Metrics {
	return mc.metrics
}

// Describe implements prometheus.Collector.
func (mc *MetaCache) Describe(ch chan<- *prometheus.Desc) {
	mc.metrics.Describe(ch)
}

// Collect implements prometheus.Collector.
func (mc *MetaCache) Collect(ch chan<- prometheus.Metric) {
	mc.metrics.Collect(ch)
}

// tableCacheFor returns the table's location index, creating and
// registering an empty one on first access. When two goroutines race
// to create it, both end up with the same instance and the loser's is
// discarded.
func (mc *MetaCache) tableCacheFor(table region.TableName) *tableCache {
	if tc, ok := mc.tables.Load(table); ok {
		return tc.(*tableCache)
	}
	tc, _ := mc.tables.LoadOrStore(table, newTableCache())
	return tc.(*tableCache)
}

// GetCachedLocation returns the cached replica group for the region
// containing row, or nil on a cache miss. A floor entry whose region
// ends at or before row is a miss as well: the row belongs to a
// neighboring region that has not been cached, and returning the floor
// entry would route the request to the wrong server.
func (mc *MetaCache) GetCachedLocation(table region.TableName, row region.Key) *region.Locations {
	g := mc.tableCacheFor(table).floor(row)
	if g == nil {
		mc.metrics.Misses.Inc()
		return nil
	}
	primary := g.Primary()
	if primary == nil {
		mc.metrics.Misses.Inc()
		return nil
	}
	endKey := primary.Info.EndKey
	if len(endKey) != 0 && !row.Less(endKey) {
		mc.metrics.Misses.Inc()
		return nil
	}
	mc.metrics.Hits.Inc()
	return g
}

// IsRegionCached reports whether the region containing row is cached.
func (mc *MetaCache) IsRegionCached(table region.TableName, row region.Key) bool {
	return mc.GetCachedLocation(table, row) != nil
}

// NumCachedLocations returns the number of location records cached for
// the table. Diagnostic use only.
func (mc *MetaCache) NumCachedLocations(table region.TableName) int {
	tc, ok := mc.tables.Load(table)
	if !ok {
		return 0
	}
	return tc.(*tableCache).numLocations()
}

// CacheLocation records a single replica's location as reported by
// source. When the reporting server is the one currently on record for
// the replica, the report is a redirect away from itself and is applied
// unconditionally; otherwise it is applied only if strictly newer than
// the record. See region.Locations.WithUpdatedLocation for the
// equal-generation policy.
func (mc *MetaCache) CacheLocation(table region.TableName, source region.ServerName, loc region.Location) {
	tc := mc.tableCacheFor(table)
	startKey := loc.Info.StartKey

	g := region.NewLocations(loc)
	existing, inserted := tc.loadOrStore(startKey, g)
	if inserted {
		mc.noteServers(g)
		return
	}

	old := existing.ForReplica(loc.Info.ReplicaID)
	force := old != nil && old.Server == source

	updated, changed := existing.WithUpdatedLocation(loc, force)
	if !changed {
		return
	}
	// A failed replace means a concurrent update won; drop ours.
	tc.replace(startKey, existing, updated)
	mc.noteServers(updated)
}

// CacheLocations records a whole replica group, typically the result of
// a metadata scan. An existing group is merged with the incoming one
// slot by slot rather than overwritten: the metadata record may be
// stale for a replica that has since redirected us individually. The
// incoming group's servers are registered in the reverse index even
// when the merge changes nothing, since the caller holds a fresh full
// view.
func (mc *MetaCache) CacheLocations(table region.TableName, group *region.Locations) {
	if group == nil || group.IsEmpty() {
		return
	}
	tc := mc.tableCacheFor(table)
	startKey := group.Primary().Info.StartKey

	existing, inserted := tc.loadOrStore(startKey, group)
	if !inserted {
		if merged, changed := existing.Merge(group); changed {
			tc.replace(startKey, existing, merged)
		}
	}
	mc.noteServers(group)
}

// noteServers adds every server referenced by the group to the reverse
// index. Growth is monotonic; only the ClearServer sweep removes
// entries.
func (mc *MetaCache) noteServers(group *region.Locations) {
	for _, l := range group.All() {
		mc.servers.Store(l.Server, struct{}{})
	}
}

// Clear drops every cached location for every table.
func (mc *MetaCache) Clear() {
	mc.tables.Range(func(k, _ interface{}) bool {
		mc.tables.Delete(k)
		return true
	})
	mc.servers.Range(func(k, _ interface{}) bool {
		mc.servers.Delete(k)
		return true
	})
}

// ClearTable drops every cached location for one table.
func (mc *MetaCache) ClearTable(table region.TableName) {
	mc.tables.Delete(table)
}

// ClearServer drops every cached location served by server, across all
// tables. Absence from the reverse index makes this a cheap no-op.
//
// When many goroutines detect the same failed server at once, only one
// performs the full-cache sweep; the rest block on it and return once
// the post-condition (no cached location references the server) holds.
// With a large cache a duplicated sweep is far more expensive than the
// bounded stall.
func (mc *MetaCache) ClearServer(server region.ServerName) {
	if _, ok := mc.servers.Load(server); !ok {
		mc.metrics.ServerSweepSkips.Inc()
		return
	}
	mc.sweeps.Do(server.String(), func() (interface{}, error) {
		// Re-check: another goroutine may have completed the sweep
		// between our fast-path check and joining the flight.
		if _, ok := mc.servers.Load(server); !ok {
			mc.metrics.ServerSweepSkips.Inc()
			return nil, nil
		}
		removed := 0
		mc.tables.Range(func(_, v interface{}) bool {
			removed += v.(*tableCache).removeServer(server)
			return true
		})
		mc.servers.Delete(server)
		mc.metrics.ServerSweeps.Inc()
		mc.metrics.Evictions.Add(float64(removed))
		if removed > 0 {
			mc.logger.WithFields(logrus.Fields{
				"server":  server.String(),
				"removed": removed,
			}).Debug("removed all cached region locations for server")
		}
		return nil, nil
	})
}

// ClearRow drops the cached replica group for the region containing
// row, whatever it holds. Used when the caller was told not to trust
// the cache for this row.
func (mc *MetaCache) ClearRow(table region.TableName, row region.Key) {
	g := mc.GetCachedLocation(table, row)
	if g == nil {
		return
	}
	startKey := g.Primary().Info.StartKey
	if mc.tableCacheFor(table).removeIf(startKey, g) {
		mc.metrics.Evictions.Add(float64(g.NumNonNil()))
		mc.logger.WithFields(logrus.Fields{
			"table": string(table),
			"group": g.String(),
		}).Debug("removed cached region locations for row")
	}
}

// ClearRowForServer drops, from the replica group for the region
// containing row, every location served by server.
func (mc *MetaCache) ClearRowForServer(table region.TableName, row region.Key, server region.ServerName) {
	g := mc.GetCachedLocation(table, row)
	if g == nil {
		return
	}
	updated, changed := g.WithoutServer(server)
	if !changed {
		return
	}
	mc.applyRemoval(table, g.Primary().Info.StartKey, g, updated)
}

// ClearRegion drops the location cached for the specific replica named
// by info. Used when one replica of a region is known stale, for
// example after a split, without disturbing its sibling replicas.
func (mc *MetaCache) ClearRegion(info region.Info) {
	tc := mc.tableCacheFor(info.Table)
	g := tc.get(info.StartKey)
	if g == nil {
		return
	}
	old := g.ForReplica(info.ReplicaID)
	if old == nil {
		return
	}
	updated, changed := g.Without(*old)
	if !changed {
		return
	}
	mc.applyRemoval(info.Table, info.StartKey, g, updated)
}

// ClearLocation drops the cached record equal to loc, matching by
// value rather than by replica id.
func (mc *MetaCache) ClearLocation(loc region.Location) {
	tc := mc.tableCacheFor(loc.Info.Table)
	g := tc.get(loc.Info.StartKey)
	if g == nil {
		return
	}
	updated, changed := g.Without(loc)
	if !changed {
		return
	}
	mc.applyRemoval(loc.Info.Table, loc.Info.StartKey, g, updated)
}

// applyRemoval installs a shrunken replica group: the entry is deleted
// outright when the group became empty, and conditionally replaced
// otherwise. Either way a concurrent fresher update wins the race and
// our removal is dropped.
func (mc *MetaCache) applyRemoval(table region.TableName, startKey region.Key, observed, updated *region.Locations) {
	tc := mc.tableCacheFor(table)
	var applied bool
	if updated.IsEmpty() {
		applied = tc.removeIf(startKey, observed)
	} else {
		applied = tc.replace(startKey, observed, updated)
	}
	if applied {
		mc.metrics.Evictions.Add(float64(observed.NumNonNil() - updated.NumNonNil()))
	}
}

// SetPrefetchEnabled toggles region prefetching for the table. The
// cache only stores the flag; the prefetch subsystem consults it before
// eagerly warming a table's locations.
func (mc *MetaCache) SetPrefetchEnabled(table region.TableName, enabled bool) {
	if enabled {
		mc.prefetchDisabled.Delete(table)
	} else {
		mc.prefetchDisabled.Store(table, struct{}{})
	}
}

// PrefetchEnabled reports whether region prefetching is enabled for the
// table. Enabled by default.
func (mc *MetaCache) PrefetchEnabled(table region.TableName) bool {
	_, disabled := mc.prefetchDisabled.Load(table)
	return !disabled
}
