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

package plan

import (
	"github.com/chainboot/engine/internal/manifest"
)

// cacheBuilder accumulates a cache-action sequence for one direction
// (install order or its uninstall reverse), implementing spec.md §4.3.
type cacheBuilder struct {
	bundle *manifest.Bundle
	layoutDir string // non-empty => emit Layout* actions instead of Cache*

	actions []CacheAction

	// acquiredContainers maps container id -> index of its AcquireContainer
	// action, so later payloads in the same container reuse it.
	acquiredContainers map[string]int
	// extractActions maps container id -> index of its ExtractContainer
	// action.
	extractActions map[string]int
	// acquiredPayloads maps payload id -> index of its AcquirePayload
	// action, for payloads shared across packages.
	acquiredPayloads map[string]int
	// movedPayloads tracks which payload ids have already been referenced
	// by a move=true Cache/LayoutPayload action (spec.md §3 invariant).
	movedPayloads map[string]bool
}

// BuildCachePlan emits the cache-action sequence for the given packages in
// the order supplied by the caller (manifest order for forward actions,
// reversed for uninstall, per spec.md §4.3). layoutDir, if non-empty,
// switches Cache* actions to Layout* actions (spec.md §4.1 LayoutPayload).
func BuildCachePlan(bundle *manifest.Bundle, packages []*manifest.Package, layoutDir string) []CacheAction {
	b := &cacheBuilder{
		bundle:             bundle,
		layoutDir:          layoutDir,
		acquiredContainers: map[string]int{},
		extractActions:     map[string]int{},
		acquiredPayloads:   map[string]int{},
		movedPayloads:      map[string]bool{},
	}
	for _, pkg := range packages {
		b.buildPackage(pkg)
	}
	return b.actions
}

func (b *cacheBuilder) emit(a CacheAction) int {
	b.actions = append(b.actions, a)
	return len(b.actions) - 1
}

func (b *cacheBuilder) buildPackage(pkg *manifest.Package) {
	startIdx := b.emit(CacheAction{Kind: CachePackageStart, PackageID: pkg.ID, PayloadCount: len(pkg.Payloads)})

	for _, payloadID := range pkg.Payloads {
		payload := b.bundle.Payloads[payloadID]
		if payload == nil {
			continue
		}
		tryAgain := b.acquireSource(payload)
		b.emitCacheOrLayout(payload, pkg.ID, tryAgain)
	}

	stopIdx := b.emit(CacheAction{Kind: CachePackageStop, PackageID: pkg.ID})
	b.actions[startIdx].CompleteIndex = stopIdx
	b.emit(CacheAction{Kind: CacheSignalSyncpoint, PackageID: pkg.ID})
}

// acquireSource ensures the payload's container (if any) is acquired and
// extracted, or the payload itself is acquired directly, returning the
// index later Cache/LayoutPayload actions should set as ITryAgainAction.
func (b *cacheBuilder) acquireSource(payload *manifest.Payload) int {
	if payload.Packaging == manifest.PackagingEmbedded {
		acquireIdx, ok := b.acquiredContainers[payload.ContainerID]
		if !ok {
			// Emitted once per container regardless of whether it is
			// attached (a cheap offset resolution) or detached (a real
			// acquisition): spec.md §8 property E1 expects an
			// AcquireContainer action even for the bundle's own attached
			// container.
			acquireIdx = b.emit(CacheAction{
				Kind:             CacheAcquireContainer,
				ContainerID:      payload.ContainerID,
				SkipUntilRetried: true,
			})
			b.acquiredContainers[payload.ContainerID] = acquireIdx
		}

		extractIdx, ok := b.extractActions[payload.ContainerID]
		if !ok {
			extractIdx = b.emit(CacheAction{
				Kind:            CacheExtractContainer,
				ContainerID:     payload.ContainerID,
				ITryAgainAction: acquireIdx,
			})
			b.extractActions[payload.ContainerID] = extractIdx
		}
		b.actions[extractIdx].ExtractPayloads = append(b.actions[extractIdx].ExtractPayloads, payload.ID)
		return extractIdx
	}

	if idx, ok := b.acquiredPayloads[payload.ID]; ok {
		return idx
	}
	idx := b.emit(CacheAction{Kind: CacheAcquirePayload, PayloadID: payload.ID})
	b.acquiredPayloads[payload.ID] = idx
	return idx
}

func (b *cacheBuilder) emitCacheOrLayout(payload *manifest.Payload, packageID string, tryAgain int) {
	move := !b.movedPayloads[payload.ID]

	kind := CacheCachePayload
	if b.layoutDir != "" {
		kind = CacheLayoutPayload
	}

	if move {
		b.movedPayloads[payload.ID] = true
	} else {
		// Spec.md §3 invariant: a move=true action for a given payload
		// appears at most once across the whole plan; later references
		// degrade to copy.
		move = false
	}

	b.emit(CacheAction{
		Kind:            kind,
		PayloadID:       payload.ID,
		PackageID:       packageID,
		Move:            move,
		ITryAgainAction: tryAgain,
	})
}
