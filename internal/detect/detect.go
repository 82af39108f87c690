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

// Package detect reconciles on-machine state with the manifest: per-package
// presence/version detection and related-bundle cross-classification
// (spec.md §4.2; grounded on original_source/src/burn/engine/detect.cpp).
package detect

import (
	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/chainboot/engine/internal/condition"
	"github.com/chainboot/engine/internal/manifest"
	"github.com/chainboot/engine/internal/registration"
	"github.com/chainboot/engine/internal/search"
	"github.com/chainboot/engine/internal/variable"
)

// State is a package's detected installation state.
type State int

// Detected states (spec.md §3).
const (
	StateUnknown State = iota
	StateObsolete
	StateAbsent
	StateCached
	StatePresent
	StateSuperseded
)

// Relation classifies how a detected MSI relates to the manifest's version.
type Relation int

// Relation classifiers.
const (
	RelationNone Relation = iota
	RelationMinorUpdate
	RelationDowngrade
	RelationMajorUpgrade
)

// PackageResult is one package's detected state.
type PackageResult struct {
	PackageID    string
	State        State
	Relation     Relation
	FeatureState map[string]string // MSI feature name -> "local"|"source"|"advertised"|"absent"
}

// RelatedKind classifies a discovered related bundle against our own code
// lists (spec.md §4.2 cross-classification table).
type RelatedKind int

// Related-bundle kinds.
const (
	RelatedNone RelatedKind = iota
	RelatedUpgrade
	RelatedDetect
	RelatedAddon
	RelatedPatch
	RelatedDependent
)

// RelatedBundle is a bundle discovered on the machine, cross-classified
// against our own code lists.
type RelatedBundle struct {
	BundleID string
	Kind     RelatedKind
	Version  variable.Version
}

// ProductDatabase is re-exported from search so detect can depend on the
// same probe backend without importing search's internals twice.
type ProductDatabase = search.ProductDatabase

// RelatedBundleSource enumerates other bundles' registration records, both
// per-machine and per-user, for cross-classification.
type RelatedBundleSource interface {
	List() ([]registration.Record, error)
}

// Engine detects package and related-bundle state.
type Engine struct {
	db      ProductDatabase
	related RelatedBundleSource
}

// NewEngine constructs a detect Engine. db may be nil (MSI detection then
// always reports StateAbsent with RelationNone, which is correct on
// platforms with no MSI stack). related may be nil to skip related-bundle
// discovery (e.g. chainboot layout, which never registers bundles).
func NewEngine(db ProductDatabase, related RelatedBundleSource) *Engine {
	return &Engine{db: db, related: related}
}

// DetectPackage detects one package's state against the variable store.
func (e *Engine) DetectPackage(pkg *manifest.Package, store *variable.Store) (PackageResult, error) {
	res := PackageResult{PackageID: pkg.ID, State: StateUnknown}

	switch pkg.Kind {
	case manifest.PackageEXE:
		return e.detectEXE(pkg, store)
	case manifest.PackageMSI:
		return e.detectMSI(pkg, store)
	case manifest.PackageMSP:
		// Patch applicability detection requires per-target MSI
		// inspection the engine does not perform standalone; without a
		// product database the patch is reported absent, matching the
		// no-MSI-stack behavior of detectMSI.
		if e.db == nil {
			res.State = StateAbsent
			return res, nil
		}
		return e.detectMSI(pkg, store)
	case manifest.PackageMSU:
		// OS update registry queries are Windows-only; off Windows we
		// cannot know, so report unknown rather than fabricating absent.
		res.State = StateUnknown
		return res, nil
	}
	return res, errors.Errorf("detect: unknown package kind %v", pkg.Kind)
}

func (e *Engine) detectEXE(pkg *manifest.Package, store *variable.Store) (PackageResult, error) {
	res := PackageResult{PackageID: pkg.ID}
	if pkg.EXE == nil || pkg.EXE.DetectCondition == "" {
		res.State = StateAbsent
		return res, nil
	}
	present, err := condition.Evaluate(pkg.EXE.DetectCondition, store)
	if err != nil {
		return res, errors.Wrapf(err, "evaluate detect condition for package %q", pkg.ID)
	}
	if present {
		res.State = StatePresent
	} else {
		res.State = StateAbsent
	}
	return res, nil
}

func (e *Engine) detectMSI(pkg *manifest.Package, store *variable.Store) (PackageResult, error) {
	res := PackageResult{PackageID: pkg.ID, FeatureState: map[string]string{}}
	if pkg.MSI == nil {
		return res, errors.Errorf("detect: package %q is kind MSI with no MSI detail", pkg.ID)
	}

	if e.db == nil {
		res.State = StateAbsent
		return res, nil
	}

	installed, ok, err := e.db.ProductVersion(pkg.MSI.ProductCode)
	if errors.Is(err, search.ErrUnsupportedPlatform) {
		res.State = StateAbsent
		return res, nil
	}
	if err != nil {
		return res, errors.Wrapf(err, "query product %q", pkg.MSI.ProductCode)
	}
	if !ok {
		res.State = StateAbsent
		return res, nil
	}

	switch c := installed.Compare(pkg.MSI.Version); {
	case c == 0:
		res.State = StatePresent
		res.Relation = RelationNone
	case c < 0:
		res.State = StatePresent
		res.Relation = RelationMinorUpdate
	default:
		res.State = StateSuperseded
		res.Relation = RelationDowngrade
	}

	for _, f := range pkg.MSI.Features {
		state, err := e.db.FeatureState(pkg.MSI.ProductCode, f.Name)
		if errors.Is(err, search.ErrUnsupportedPlatform) {
			continue
		}
		if err != nil {
			return res, errors.Wrapf(err, "query feature %q of product %q", f.Name, pkg.MSI.ProductCode)
		}
		res.FeatureState[f.Name] = state
	}

	return res, nil
}

// ClassifyRelated cross-classifies a related bundle's codes against our own
// (spec.md §4.2 table). A bundle can legitimately match more than one row;
// the first matching classification in upgrade > addon > patch > detect >
// dependent priority order wins, mirroring the teacher's general rule of
// most-specific-match-first when multiple classifications could apply.
func ClassifyRelated(ourCodes manifest.RelatedBundleCodes, theirCodes manifest.RelatedBundleCodes) RelatedKind {
	intersects := func(a, b []string) bool {
		set := make(map[string]struct{}, len(a))
		for _, c := range a {
			set[c] = struct{}{}
		}
		for _, c := range b {
			if _, ok := set[c]; ok {
				return true
			}
		}
		return false
	}

	theirUpgradeVsOurUpgrade := intersects(theirCodes.Upgrade, ourCodes.Upgrade)
	theirUpgradeVsOurDetect := intersects(theirCodes.Upgrade, ourCodes.Detect)
	theirUpgradeVsOurAddon := intersects(theirCodes.Upgrade, ourCodes.Addon)
	theirUpgradeVsOurPatch := intersects(theirCodes.Upgrade, ourCodes.Patch)
	theirAddonVsOurUpgrade := intersects(theirCodes.Addon, ourCodes.Upgrade)
	theirAddonVsOurDetect := intersects(theirCodes.Addon, ourCodes.Detect)
	theirPatchVsOurUpgrade := intersects(theirCodes.Patch, ourCodes.Upgrade)
	theirPatchVsOurDetect := intersects(theirCodes.Patch, ourCodes.Detect)
	theirDetectVsOurUpgrade := intersects(theirCodes.Detect, ourCodes.Upgrade)
	theirDetectVsOurDetect := intersects(theirCodes.Detect, ourCodes.Detect)
	theirDetectVsOurAddon := intersects(theirCodes.Detect, ourCodes.Addon)
	theirDetectVsOurPatch := intersects(theirCodes.Detect, ourCodes.Patch)

	switch {
	case theirUpgradeVsOurUpgrade:
		return RelatedUpgrade
	case theirAddonVsOurUpgrade, theirAddonVsOurDetect:
		return RelatedAddon
	case theirPatchVsOurUpgrade, theirPatchVsOurDetect:
		return RelatedPatch
	case theirUpgradeVsOurDetect, theirDetectVsOurUpgrade, theirDetectVsOurDetect:
		return RelatedDetect
	case theirUpgradeVsOurAddon, theirUpgradeVsOurPatch, theirDetectVsOurAddon, theirDetectVsOurPatch:
		return RelatedDependent
	default:
		return RelatedNone
	}
}

// DetectRelated enumerates registered bundles via the related-bundle source
// and cross-classifies each, skipping ourselves.
func (e *Engine) DetectRelated(ownID string, ownCodes manifest.RelatedBundleCodes, theirCodesOf func(registration.Record) manifest.RelatedBundleCodes) ([]RelatedBundle, error) {
	if e.related == nil {
		return nil, nil
	}
	recs, err := e.related.List()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate related bundles")
	}

	var out []RelatedBundle
	for _, rec := range recs {
		if rec.BundleID == ownID {
			continue
		}
		theirCodes := theirCodesOf(rec)
		kind := ClassifyRelated(ownCodes, theirCodes)
		if kind == RelatedNone {
			continue
		}
		v, _ := variable.ParseVersion(rec.Version)
		out = append(out, RelatedBundle{BundleID: rec.BundleID, Kind: kind, Version: v})
	}
	return out, nil
}
