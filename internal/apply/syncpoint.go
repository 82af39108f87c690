/*
Copyright 2026 The Chainboot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apply

import (
	"context"
	"sync"

	"github.com/chainboot/engine/internal/plan"
)

// syncpointSet holds one closed-once channel per package, giving
// "signal at most once, readable any number of times" semantics that match
// a Windows manual-reset event (spec.md §5 "named manual-reset events (one
// per package) for cache->execute hand-off").
type syncpointSet struct {
	mu sync.Mutex
	ch map[string]chan struct{}
}

func newSyncpointSet(cacheActions []plan.CacheAction) *syncpointSet {
	s := &syncpointSet{ch: map[string]chan struct{}{}}
	for _, a := range cacheActions {
		if a.Kind == plan.CacheSignalSyncpoint {
			s.ensure(a.PackageID)
		}
	}
	return s
}

func (s *syncpointSet) ensure(packageID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.ch[packageID]
	if !ok {
		c = make(chan struct{})
		s.ch[packageID] = c
	}
	return c
}

// signal closes packageID's channel, unblocking every (current and future)
// waiter. Safe to call at most once per package; a second call on the same
// package would panic on a raw channel, so callers must ensure
// CacheSignalSyncpoint is only emitted once per package (spec.md §3
// invariant territory -- the planner, not apply, enforces this).
func (s *syncpointSet) signal(packageID string) {
	close(s.ensure(packageID))
}

// signalAll closes every known syncpoint that has not already been
// signaled, so an execute worker waiting on a package the cache plan never
// scheduled (layout/cache-only actions) does not block forever.
func (s *syncpointSet) signalAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.ch {
		select {
		case <-c:
			// already signaled
		default:
			close(c)
		}
	}
}

func (s *syncpointSet) wait(ctx context.Context, packageID string) error {
	c := s.ensure(packageID)
	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
