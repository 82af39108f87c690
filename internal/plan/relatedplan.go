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
	"github.com/chainboot/engine/internal/detect"
	"github.com/chainboot/engine/internal/graph"
	"github.com/chainboot/engine/internal/variable"
)

// ancestorChain builds a linear graph.Graph over an ancestor-bundle-id chain
// (oldest ancestor first) using graph.StringNode, so membership can be
// tested with NodeExists (internal/graph, adapted from the teacher's
// internal/dag).
func ancestorChain(ancestors []string) graph.Graph {
	g := graph.New()
	var prev string
	for _, id := range ancestors {
		_ = g.AddNode(graph.NewStringNode(id))
		if prev != "" {
			_, _ = g.AddEdge(prev, graph.NewStringNode(id))
		}
		prev = id
	}
	return g
}

// RelatedBundleAction is the disposition assigned to one related bundle
// discovered during detection (spec.md §4.4 "Related-bundle planning").
type RelatedBundleAction struct {
	BundleID string
	Action   Action
}

// BuildRelatedBundlePlan classifies every related bundle detect discovered
// into the action chainboot should run against it, per spec.md §4.4's
// cross-classification table: an upgrade-related bundle is uninstalled when
// our own version is newer; an addon or patch bundle follows our own action
// (install on install/modify, repair on repair, uninstall on uninstall); a
// dependent bundle is repaired when we are uninstalled; a detect-related
// bundle never gets an action of its own.
//
// ancestors is the caller's ancestor-bundle-id chain (the -ancestors switch,
// spec.md §6): any related bundle whose id already appears there is skipped,
// breaking the cycle that would otherwise result from two bundles each
// naming the other as related (spec.md §9 "ancestor-chain cycles").
func BuildRelatedBundlePlan(ownAction Action, ownVersion variable.Version, related []detect.RelatedBundle, ancestors []string) []RelatedBundleAction {
	chain := ancestorChain(ancestors)

	var out []RelatedBundleAction
	for _, rb := range related {
		if chain.NodeExists(rb.BundleID) {
			continue
		}
		if a, ok := relatedAction(ownAction, rb, ownVersion); ok {
			out = append(out, RelatedBundleAction{BundleID: rb.BundleID, Action: a})
		}
	}
	return out
}

func relatedAction(ownAction Action, rb detect.RelatedBundle, ownVersion variable.Version) (Action, bool) {
	switch rb.Kind {
	case detect.RelatedUpgrade:
		if ownVersion.Compare(rb.Version) > 0 {
			return ActionUninstall, true
		}
		return 0, false

	case detect.RelatedAddon, detect.RelatedPatch:
		switch ownAction {
		case ActionInstall, ActionModify:
			return ActionInstall, true
		case ActionRepair:
			return ActionRepair, true
		case ActionUninstall:
			return ActionUninstall, true
		}
		return 0, false

	case detect.RelatedDependent:
		if ownAction == ActionUninstall {
			return ActionRepair, true
		}
		return 0, false

	default: // detect.RelatedNone, detect.RelatedDetect
		return 0, false
	}
}
