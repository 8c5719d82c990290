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
	"sync"

	"github.com/google/btree"

	"github.com/nilname/hbase/pkg/region"
)

const btreeDegree = 32

// tableEntry is a single slot of a table's location index: the start key
// of a region mapped to the replica group cached for it. locs is only
// read or written while holding the owning tableCache's mutex; the
// group it points to is immutable and may be used freely after the
// lock is dropped.
type tableEntry struct {
	startKey region.Key
	locs     *region.Locations
}

// Less implements btree.Item, ordering entries by region start key.
func (e *tableEntry) Less(than btree.Item) bool {
	return e.startKey.Less(than.(*tableEntry).startKey)
}

// tableCache is the location index of one table: an ordered map from
// region start key to the cached replica group for that region.
//
// All operations take only a short per-table lock; none holds the lock
// while computing a replacement group. Writers therefore race, and the
// conditional replace and removeIf operations resolve those races by
// comparing the stored group pointer against the one the writer
// observed: a mismatch means another writer installed a fresher group
// first, and the loser's update is simply dropped.
type tableCache struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func newTableCache() *tableCache {
	return &tableCache{tree: btree.New(btreeDegree)}
}

// floor returns the group cached under the largest start key less than
// or equal to row, or nil if no such entry exists. Containment of row
// in the region's key range is the caller's concern; floor alone cannot
// see gaps between non-adjacent cached regions.
func (tc *tableCache) floor(row region.Key) *region.Locations {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	var found *region.Locations
	tc.tree.DescendLessOrEqual(&tableEntry{startKey: row}, func(i btree.Item) bool {
		found = i.(*tableEntry).locs
		return false
	})
	return found
}

// get returns the group cached under exactly startKey, or nil.
func (tc *tableCache) get(startKey region.Key) *region.Locations {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if i := tc.tree.Get(&tableEntry{startKey: startKey}); i != nil {
		return i.(*tableEntry).locs
	}
	return nil
}

// loadOrStore inserts locs under startKey if no entry exists. It
// returns the group now in the cache and whether the insert happened;
// on a lost race the concurrently-installed group is returned instead.
func (tc *tableCache) loadOrStore(startKey region.Key, locs *region.Locations) (*region.Locations, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if i := tc.tree.Get(&tableEntry{startKey: startKey}); i != nil {
		return i.(*tableEntry).locs, false
	}
	tc.tree.ReplaceOrInsert(&tableEntry{startKey: startKey, locs: locs})
	return locs, true
}

// replace swaps the group stored under startKey for updated, but only
// if the stored group is still the one the caller observed.
func (tc *tableCache) replace(startKey region.Key, observed, updated *region.Locations) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	i := tc.tree.Get(&tableEntry{startKey: startKey})
	if i == nil || i.(*tableEntry).locs != observed {
		return false
	}
	i.(*tableEntry).locs = updated
	return true
}

// removeIf deletes the entry under startKey, but only if the stored
// group is still the one the caller observed. This is the
// compare-and-remove that keeps a concurrently-installed newer group
// from being destroyed.
func (tc *tableCache) removeIf(startKey region.Key, observed *region.Locations) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	i := tc.tree.Get(&tableEntry{startKey: startKey})
	if i == nil || i.(*tableEntry).locs != observed {
		return false
	}
	tc.tree.Delete(i)
	return true
}

// removeServer drops every location served by server from every entry,
// deleting entries that become empty. Returns the number of location
// records removed. Runs under the table's write lock; only the
// server-sweep path calls this, and that path is already serialized
// per server.
func (tc *tableCache) removeServer(server region.ServerName) int {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	var toDelete []*tableEntry
	removed := 0
	tc.tree.Ascend(func(i btree.Item) bool {
		e := i.(*tableEntry)
		updated, changed := e.locs.WithoutServer(server)
		if !changed {
			return true
		}
		removed += e.locs.NumNonNil() - updated.NumNonNil()
		if updated.IsEmpty() {
			toDelete = append(toDelete, e)
		} else {
			e.locs = updated
		}
		return true
	})
	for _, e := range toDelete {
		tc.tree.Delete(e)
	}
	return removed
}

// numLocations sums the recorded locations over all entries.
func (tc *tableCache) numLocations() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	n := 0
	tc.tree.Ascend(func(i btree.Item) bool {
		n += i.(*tableEntry).locs.NumNonNil()
		return true
	})
	return n
}
