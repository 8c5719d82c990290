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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nilname/hbase/pkg/region"
)

// fakeDiscoverer serves a fixed set of regions and counts lookups. An
// optional gate blocks every discovery until released, for tests that
// need an in-flight lookup.
type fakeDiscoverer struct {
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	regions []region.Location
}

func (d *fakeDiscoverer) DiscoverRegion(
	ctx context.Context, table region.TableName, row region.Key,
) (*region.Locations, error) {
	d.mu.Lock()
	d.calls++
	gate := d.gate
	d.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for _, l := range d.regions {
		if l.Info.Table == table && l.Info.ContainsRow(row) {
			return region.NewLocations(l), nil
		}
	}
	return region.NewLocations(), nil
}

func (d *fakeDiscoverer) lookupCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestLocatorReadsThrough(t *testing.T) {
	a := srv("a")
	disc := &fakeDiscoverer{regions: []region.Location{loc("a", "b", 0, 1, a)}}
	l := NewLocator(New(), disc)
	ctx := context.Background()

	g, err := l.Locate(ctx, testTable, region.Key("az"))
	require.NoError(t, err)
	require.Equal(t, a, g.Primary().Server)
	require.Equal(t, 1, disc.lookupCount())

	// The second lookup is a cache hit.
	g, err = l.Locate(ctx, testTable, region.Key("az"))
	require.NoError(t, err)
	require.Equal(t, a, g.Primary().Server)
	require.Equal(t, 1, disc.lookupCount())
}

func TestLocatorCoalescesConcurrentMisses(t *testing.T) {
	a := srv("a")
	gate := make(chan struct{})
	disc := &fakeDiscoverer{
		gate:    gate,
		regions: []region.Location{loc("a", "b", 0, 1, a)},
	}
	l := NewLocator(New(), disc)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			got, err := l.Locate(ctx, testTable, region.Key("az"))
			if err != nil {
				return err
			}
			if got.Primary().Server != a {
				return fmt.Errorf("unexpected server %s", got.Primary().Server)
			}
			return nil
		})
	}
	// Give every goroutine time to miss the cache and join the flight,
	// then release the single blocked discovery.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	require.NoError(t, g.Wait())
	require.Equal(t, 1, disc.lookupCount())
}

func TestLocatorCallerCancelation(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	disc := &fakeDiscoverer{
		gate:    gate,
		regions: []region.Location{loc("a", "b", 0, 1, srv("a"))},
	}
	l := NewLocator(New(), disc)

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() {
		_, err := l.Locate(ctx, testTable, region.Key("az"))
		errC <- err
	}()
	cancel()

	err := <-errC
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocatorNoRegionFound(t *testing.T) {
	disc := &fakeDiscoverer{}
	l := NewLocator(New(), disc)

	_, err := l.Locate(context.Background(), testTable, region.Key("az"))
	require.Error(t, err)
}

func TestLocatorResultMustContainRow(t *testing.T) {
	// A discoverer answering with the wrong region is a bug worth
	// surfacing rather than caching silently forever.
	disc := &fakeDiscoverer{regions: []region.Location{loc("x", "y", 0, 1, srv("a"))}}
	bad := &wrongRowDiscoverer{inner: disc}
	l := NewLocator(New(), bad)

	_, err := l.Locate(context.Background(), testTable, region.Key("az"))
	require.Error(t, err)
}

// wrongRowDiscoverer answers every lookup with whatever region its
// inner discoverer has, ignoring the requested row.
type wrongRowDiscoverer struct {
	inner *fakeDiscoverer
}

func (d *wrongRowDiscoverer) DiscoverRegion(
	ctx context.Context, table region.TableName, row region.Key,
) (*region.Locations, error) {
	return d.inner.DiscoverRegion(ctx, table, region.Key("x"))
}
