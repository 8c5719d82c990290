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

// Package region holds the value types describing where the data of a
// partitioned, replicated key-value store lives: tables are split into
// contiguous key ranges (regions), each region is replicated across one
// or more servers, and a Location pins one replica of one region to the
// server currently hosting it.
//
// All types in this package are treated as immutable values by their
// consumers. Locations groups are never mutated in place; every
// modifying operation returns a new group.
package region

import (
	"bytes"
	"fmt"
)

// Key is a row key or region boundary key. Keys order by bytes.Compare.
// The empty Key is the minimum possible start key; as an end key it is
// the open-ended sentinel marking the last region of a table.
type Key []byte

// Compare returns -1, 0, or 1 according to the byte-wise ordering of k
// and o.
func (k Key) Compare(o Key) int {
	return bytes.Compare(k, o)
}

// Equal reports whether k and o are byte-wise identical.
func (k Key) Equal(o Key) bool {
	return bytes.Equal(k, o)
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool {
	return bytes.Compare(k, o) < 0
}

func (k Key) String() string {
	if len(k) == 0 {
		return "/Min"
	}
	return fmt.Sprintf("%q", []byte(k))
}

// TableName identifies a table.
type TableName string

// ReplicaID identifies one replica of a region. The primary replica is
// always ReplicaID 0; higher ids are read replicas.
type ReplicaID int

// Primary is the ReplicaID of the primary replica.
const Primary ReplicaID = 0

// ServerName identifies a server process. StartCode distinguishes
// successive processes listening on the same address, so a restarted
// server is a different ServerName. ServerName is comparable and can be
// used as a map key.
type ServerName struct {
	Host      string
	Port      int
	StartCode int64
}

func (s ServerName) String() string {
	return fmt.Sprintf("%s,%d,%d", s.Host, s.Port, s.StartCode)
}

// Info describes one replica of a region: the table it belongs to, the
// key range [StartKey, EndKey) it covers, which replica it is, and the
// Generation of the assignment.
//
// Generation increases monotonically each time the server reassigns or
// re-opens the region. It is the staleness marker used to decide whether
// an incoming location report supersedes a cached one; it never goes
// backwards for a given (table, start key, replica).
type Info struct {
	Table      TableName
	StartKey   Key
	EndKey     Key
	ReplicaID  ReplicaID
	Generation int64
}

// ContainsRow reports whether row falls within the region's key range.
// An empty EndKey means the region is the last one in the table and
// extends to the end of the keyspace.
func (i Info) ContainsRow(row Key) bool {
	return i.StartKey.Compare(row) <= 0 &&
		(len(i.EndKey) == 0 || row.Less(i.EndKey))
}

// SameRangeAs reports whether i and o describe the same key range of the
// same table, irrespective of replica and generation. The replicas of
// one region all satisfy this relation with each other.
func (i Info) SameRangeAs(o Info) bool {
	return i.Table == o.Table &&
		i.StartKey.Equal(o.StartKey) &&
		i.EndKey.Equal(o.EndKey)
}

// Equal reports full value equality, including replica and generation.
func (i Info) Equal(o Info) bool {
	return i.SameRangeAs(o) && i.ReplicaID == o.ReplicaID && i.Generation == o.Generation
}

func (i Info) String() string {
	return fmt.Sprintf("%s:[%s,%s) replica=%d gen=%d",
		i.Table, i.StartKey, endKeyString(i.EndKey), i.ReplicaID, i.Generation)
}

func endKeyString(k Key) string {
	if len(k) == 0 {
		return "/Max"
	}
	return k.String()
}

// Location records that one replica of a region is currently served by a
// particular server.
type Location struct {
	Info   Info
	Server ServerName
}

// Equal reports value equality of the two location records.
func (l Location) Equal(o Location) bool {
	return l.Server == o.Server && l.Info.Equal(o.Info)
}

func (l Location) String() string {
	return fmt.Sprintf("%s@%s", l.Info, l.Server)
}
