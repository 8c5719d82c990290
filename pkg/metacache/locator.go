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
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/nilname/hbase/pkg/region"
)

// RegionDiscoverer performs the authoritative region location lookup
// against the metadata service. Implementations do network I/O and own
// their retry policy; the Locator only orchestrates caching and
// coalescing around them.
type RegionDiscoverer interface {
	// DiscoverRegion returns the replica group for the region containing
	// row in table.
	DiscoverRegion(ctx context.Context, table region.TableName, row region.Key) (*region.Locations, error)
}

// Locator answers "which servers host this row" by consulting the
// cache first and falling back to a RegionDiscoverer on a miss.
// Concurrent misses for the same (table, row) are coalesced onto a
// single in-flight discovery, so a cold cache under fan-out load issues
// one metadata lookup instead of one per goroutine. Discovery results
// are inserted into the cache before being returned.
type Locator struct {
	cache      *MetaCache
	discoverer RegionDiscoverer
	inflight   singleflight.Group
}

// NewLocator returns a Locator reading through cache to discoverer.
func NewLocator(cache *MetaCache, discoverer RegionDiscoverer) *Locator {
	return &Locator{cache: cache, discoverer: discoverer}
}

// Locate returns the replica group for the region containing row.
func (l *Locator) Locate(ctx context.Context, table region.TableName, row region.Key) (*region.Locations, error) {
	if g := l.cache.GetCachedLocation(table, row); g != nil {
		return g, nil
	}

	key := fmt.Sprintf("%s/%x", table, row)
	ch := l.inflight.DoChan(key, func() (interface{}, error) {
		// The discovery serves every goroutine waiting on this flight,
		// so it must not die with the leader's context.
		g, err := l.discoverer.DiscoverRegion(context.WithoutCancel(ctx), table, row)
		if err != nil {
			return nil, err
		}
		if g == nil || g.IsEmpty() {
			return nil, errors.Newf("no region location discovered for table %s row %s", table, row)
		}
		l.cache.CacheLocations(table, g)
		return g, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		g := res.Val.(*region.Locations)
		if !g.Primary().Info.ContainsRow(row) {
			return nil, errors.Newf(
				"discovered region %s does not contain row %s", g.Primary().Info, row)
		}
		return g, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "aborted during region location lookup")
	}
}
