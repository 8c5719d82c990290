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

package region

import (
	"strings"
)

// Locations is the set of known locations for the replicas of a single
// region, one slot per ReplicaID. Slots may be nil when a replica's
// location has not been observed or has been cleared.
//
// Locations is immutable. Every modifying operation returns a new group
// together with a changed flag; when the flag is false the returned
// group is the receiver and nothing was modified. Consumers that cache
// groups replace them wholesale, which is what lets many goroutines
// share a group without synchronization.
//
// All non-nil slots describe the same key range of the same table. The
// metadata service enforces this; the group does not verify it.
type Locations struct {
	locs []*Location
}

// NewLocations builds a group from the given location records, placing
// each at its replica's slot. Later records for the same replica
// overwrite earlier ones.
func NewLocations(locs ...Location) *Locations {
	maxID := ReplicaID(-1)
	for _, l := range locs {
		if l.Info.ReplicaID > maxID {
			maxID = l.Info.ReplicaID
		}
	}
	g := &Locations{locs: make([]*Location, maxID+1)}
	for _, l := range locs {
		l := l
		g.locs[l.Info.ReplicaID] = &l
	}
	return g
}

// ForReplica returns the location recorded for the given replica, or nil
// if none is recorded.
func (g *Locations) ForReplica(id ReplicaID) *Location {
	if int(id) < 0 || int(id) >= len(g.locs) {
		return nil
	}
	return g.locs[id]
}

// Primary returns the first non-nil location in replica order. This is
// normally the primary replica's location, but falls back to a read
// replica's when the primary slot is empty. Returns nil for an empty
// group.
func (g *Locations) Primary() *Location {
	for _, l := range g.locs {
		if l != nil {
			return l
		}
	}
	return nil
}

// IsEmpty reports whether no location is recorded in any slot.
func (g *Locations) IsEmpty() bool {
	return g.Primary() == nil
}

// NumNonNil returns the number of recorded locations.
func (g *Locations) NumNonNil() int {
	n := 0
	for _, l := range g.locs {
		if l != nil {
			n++
		}
	}
	return n
}

// All returns the recorded locations in replica order.
func (g *Locations) All() []Location {
	out := make([]Location, 0, len(g.locs))
	for _, l := range g.locs {
		if l != nil {
			out = append(out, *l)
		}
	}
	return out
}

// WithUpdatedLocation applies a single-replica location report. If the
// replica's slot is empty the report is recorded. If force is set the
// report overwrites whatever is recorded; callers set force when the
// report came from the server currently on record, since a server
// redirecting a client away from itself is authoritative about no
// longer hosting the replica. Otherwise the report is recorded only if
// its generation is strictly newer than the recorded one.
//
// An unforced report with a generation equal to the recorded one is
// dropped: the common cause is a region closed and reopened with the
// same generation, and honoring such reports makes clients flap between
// servers. This is a documented approximation; generations alone cannot
// distinguish every interleaving of closes and opens.
func (g *Locations) WithUpdatedLocation(loc Location, force bool) (*Locations, bool) {
	id := loc.Info.ReplicaID
	old := g.ForReplica(id)
	if old != nil && !force && loc.Info.Generation <= old.Info.Generation {
		return g, false
	}

	n := len(g.locs)
	if int(id) >= n {
		n = int(id) + 1
	}
	locs := make([]*Location, n)
	copy(locs, g.locs)
	locs[id] = &loc
	return &Locations{locs: locs}, true
}

// Merge overlays another group for the same region onto g, slot by
// slot. For each replica the entry with the higher generation wins;
// when the generations are exactly equal the incoming entry wins, on
// the grounds that a whole-group report comes from a fresh read of the
// metadata table and is the more recent observation.
func (g *Locations) Merge(other *Locations) (*Locations, bool) {
	n := len(g.locs)
	if len(other.locs) > n {
		n = len(other.locs)
	}
	locs := make([]*Location, n)
	changed := false
	for i := 0; i < n; i++ {
		var mine, theirs *Location
		if i < len(g.locs) {
			mine = g.locs[i]
		}
		if i < len(other.locs) {
			theirs = other.locs[i]
		}
		switch {
		case theirs == nil:
			locs[i] = mine
		case mine == nil || mine.Info.Generation <= theirs.Info.Generation:
			locs[i] = theirs
		default:
			locs[i] = mine
		}
		if locs[i] != mine {
			changed = true
		}
	}
	if !changed {
		return g, false
	}
	return &Locations{locs: locs}, true
}

// WithoutServer drops every location served by the given server.
func (g *Locations) WithoutServer(server ServerName) (*Locations, bool) {
	return g.filter(func(l *Location) bool {
		return l.Server != server
	})
}

// Without drops the location equal (by value) to loc.
func (g *Locations) Without(loc Location) (*Locations, bool) {
	return g.filter(func(l *Location) bool {
		return !l.Equal(loc)
	})
}

// filter returns a group retaining only the slots for which keep
// returns true. Identity-preserving when nothing is dropped.
func (g *Locations) filter(keep func(*Location) bool) (*Locations, bool) {
	changed := false
	for _, l := range g.locs {
		if l != nil && !keep(l) {
			changed = true
			break
		}
	}
	if !changed {
		return g, false
	}
	locs := make([]*Location, len(g.locs))
	for i, l := range g.locs {
		if l != nil && keep(l) {
			locs[i] = l
		}
	}
	return &Locations{locs: locs}, true
}

func (g *Locations) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	first := true
	for _, l := range g.locs {
		if l == nil {
			continue
		}
		if !first {
			sb.WriteString(" ")
		}
		first = false
		sb.WriteString(l.String())
	}
	sb.WriteString("]")
	return sb.String()
}
