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
	"testing"

	"github.com/stretchr/testify/require"
)

func srv(host string) ServerName {
	return ServerName{Host: host, Port: 16020, StartCode: 1}
}

// testLoc builds a location for the [a,b) range of table "t".
func testLoc(id ReplicaID, gen int64, server ServerName) Location {
	return Location{
		Info: Info{
			Table:      "t",
			StartKey:   Key("a"),
			EndKey:     Key("b"),
			ReplicaID:  id,
			Generation: gen,
		},
		Server: server,
	}
}

func TestNewLocationsSlots(t *testing.T) {
	g := NewLocations(testLoc(0, 1, srv("p")), testLoc(2, 1, srv("r")))
	require.Equal(t, 2, g.NumNonNil())
	require.NotNil(t, g.ForReplica(0))
	require.Nil(t, g.ForReplica(1))
	require.NotNil(t, g.ForReplica(2))
	require.Nil(t, g.ForReplica(5))
	require.Equal(t, srv("p"), g.Primary().Server)

	empty := NewLocations()
	require.True(t, empty.IsEmpty())
	require.Nil(t, empty.Primary())
}

func TestPrimaryFallsBackToReplica(t *testing.T) {
	g := NewLocations(testLoc(1, 1, srv("r")))
	require.Nil(t, g.ForReplica(0))
	require.Equal(t, srv("r"), g.Primary().Server)
}

func TestWithUpdatedLocation(t *testing.T) {
	g := NewLocations(testLoc(0, 5, srv("a")))

	// Strictly newer generation replaces.
	g2, changed := g.WithUpdatedLocation(testLoc(0, 6, srv("b")), false)
	require.True(t, changed)
	require.Equal(t, srv("b"), g2.ForReplica(0).Server)
	require.Equal(t, int64(6), g2.ForReplica(0).Info.Generation)
	// The original group is untouched.
	require.Equal(t, srv("a"), g.ForReplica(0).Server)

	// Equal generation without force is the close-and-reopen case and
	// deliberately a no-op. The heuristic is approximate: generations
	// alone cannot order every combination of opens and closes.
	g3, changed := g2.WithUpdatedLocation(testLoc(0, 6, srv("c")), false)
	require.False(t, changed)
	require.Same(t, g2, g3)

	// Older generation without force is a no-op.
	g4, changed := g2.WithUpdatedLocation(testLoc(0, 3, srv("c")), false)
	require.False(t, changed)
	require.Same(t, g2, g4)

	// Force replaces regardless of generation.
	g5, changed := g2.WithUpdatedLocation(testLoc(0, 3, srv("c")), true)
	require.True(t, changed)
	require.Equal(t, srv("c"), g5.ForReplica(0).Server)
	require.Equal(t, int64(3), g5.ForReplica(0).Info.Generation)

	// A report for an unseen replica always inserts, growing the group.
	g6, changed := g2.WithUpdatedLocation(testLoc(2, 1, srv("r")), false)
	require.True(t, changed)
	require.Equal(t, 2, g6.NumNonNil())
	require.Equal(t, srv("r"), g6.ForReplica(2).Server)
}

func TestMerge(t *testing.T) {
	mine := NewLocations(testLoc(0, 5, srv("a")), testLoc(1, 7, srv("b")))
	theirs := NewLocations(testLoc(0, 6, srv("c")), testLoc(1, 2, srv("d")), testLoc(2, 1, srv("e")))

	merged, changed := mine.Merge(theirs)
	require.True(t, changed)
	// Higher generation wins per slot.
	require.Equal(t, srv("c"), merged.ForReplica(0).Server)
	require.Equal(t, srv("b"), merged.ForReplica(1).Server)
	// Slots only the incoming group has are adopted.
	require.Equal(t, srv("e"), merged.ForReplica(2).Server)
}

func TestMergeTiePrefersIncoming(t *testing.T) {
	mine := NewLocations(testLoc(0, 5, srv("a")))
	theirs := NewLocations(testLoc(0, 5, srv("b")))

	merged, changed := mine.Merge(theirs)
	require.True(t, changed)
	require.Equal(t, srv("b"), merged.ForReplica(0).Server)
}

func TestMergeNoChange(t *testing.T) {
	mine := NewLocations(testLoc(0, 5, srv("a")))
	theirs := NewLocations(testLoc(0, 3, srv("b")))

	merged, changed := mine.Merge(theirs)
	require.False(t, changed)
	require.Same(t, mine, merged)
}

func TestWithoutServer(t *testing.T) {
	g := NewLocations(testLoc(0, 1, srv("a")), testLoc(1, 1, srv("b")), testLoc(2, 1, srv("a")))

	g2, changed := g.WithoutServer(srv("a"))
	require.True(t, changed)
	require.Equal(t, 1, g2.NumNonNil())
	require.Nil(t, g2.ForReplica(0))
	require.Equal(t, srv("b"), g2.ForReplica(1).Server)
	require.Nil(t, g2.ForReplica(2))

	// No-op when the server is not referenced.
	g3, changed := g2.WithoutServer(srv("zz"))
	require.False(t, changed)
	require.Same(t, g2, g3)
}

func TestWithout(t *testing.T) {
	l0 := testLoc(0, 1, srv("a"))
	l1 := testLoc(1, 1, srv("b"))
	g := NewLocations(l0, l1)

	g2, changed := g.Without(l0)
	require.True(t, changed)
	require.Equal(t, 1, g2.NumNonNil())
	require.Nil(t, g2.ForReplica(0))

	// Matching is by value, so a different generation does not match.
	stale := l1
	stale.Info.Generation = 99
	g3, changed := g2.Without(stale)
	require.False(t, changed)
	require.Same(t, g2, g3)

	g4, changed := g2.Without(l1)
	require.True(t, changed)
	require.True(t, g4.IsEmpty())
}

func TestAllPreservesReplicaOrder(t *testing.T) {
	g := NewLocations(testLoc(2, 1, srv("c")), testLoc(0, 1, srv("a")))
	all := g.All()
	require.Len(t, all, 2)
	require.Equal(t, ReplicaID(0), all[0].Info.ReplicaID)
	require.Equal(t, ReplicaID(2), all[1].Info.ReplicaID)
}
