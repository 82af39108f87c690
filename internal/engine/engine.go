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

// Package engine wires the detect, plan, cache, and apply packages into a
// single bundle-scoped orchestrator (spec.md §2 "SYSTEM OVERVIEW"; grounded
// on original_source/src/burn/engine/engine.cpp's CoreRun). It deliberately
// holds its state in an *Engine value rather than package-level globals, so
// multiple bundles can be driven concurrently in a test process (spec.md §5
// "a small set of process-globals holds default cache roots ... " is
// modeled here as Engine fields instead).
package engine

import (
	"context"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/chainboot/engine/internal/apply"
	"github.com/chainboot/engine/internal/ba"
	"github.com/chainboot/engine/internal/cache"
	"github.com/chainboot/engine/internal/detect"
	"github.com/chainboot/engine/internal/manifest"
	"github.com/chainboot/engine/internal/plan"
	"github.com/chainboot/engine/internal/registration"
	"github.com/chainboot/engine/internal/variable"
)

// PackageRequest is the caller's requested disposition for one package,
// keyed by package ID (spec.md §3 "per-package requested states").
type PackageRequest map[string]plan.RequestState

// Engine orchestrates one bundle's detect/plan/apply cycle. The related-
// bundle source detect needs is wired into det directly
// (detect.NewEngine(db, related)), not duplicated here.
type Engine struct {
	Bundle       *manifest.Bundle
	Store        *variable.Store
	Registration registration.Store
	Detect       *detect.Engine
	Cache        *cache.Engine
	Host         ba.Host
	Log          logging.Logger
}

// New constructs an Engine. host and log may be nil.
func New(bundle *manifest.Bundle, store *variable.Store, reg registration.Store, det *detect.Engine, c *cache.Engine, host ba.Host, log logging.Logger) *Engine {
	if host == nil {
		host = ba.NopHost{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Engine{
		Bundle:       bundle,
		Store:        store,
		Registration: reg,
		Detect:       det,
		Cache:        c,
		Host:         host,
		Log:          log,
	}
}

// DetectResult is the outcome of detecting every package plus the bundle's
// own resume state.
type DetectResult struct {
	Packages map[string]detect.PackageResult
	Related  []detect.RelatedBundle
	Resume   registration.ResumeMode
	// Dependents is our own registration record's dependent-key -> display-
	// name map: other bundles registered as depending on this one (spec.md
	// §4.6 "Dependent-key subrecords"). Empty when never registered.
	Dependents map[string]string
}

// DetectAll runs package detection for every package in the bundle and
// classifies related bundles (spec.md §4.2).
func (e *Engine) DetectAll() (DetectResult, error) {
	result := DetectResult{Packages: map[string]detect.PackageResult{}}

	for _, pkg := range e.Bundle.Packages {
		r, err := e.Detect.DetectPackage(pkg, e.Store)
		if err != nil {
			return result, errors.Wrapf(err, "detect package %q", pkg.ID)
		}
		result.Packages[pkg.ID] = r
	}

	related, err := e.Detect.DetectRelated(e.Bundle.ID, e.Bundle.Codes, func(rec registration.Record) manifest.RelatedBundleCodes {
		return manifest.RelatedBundleCodes{
			Upgrade: rec.UpgradeCodes,
			Addon:   rec.AddonCodes,
			Detect:  rec.DetectCodes,
			Patch:   rec.PatchCodes,
		}
	})
	if err != nil {
		return result, errors.Wrap(err, "detect related bundles")
	}
	result.Related = related

	rec, found, err := e.Registration.Load(e.Bundle.ID)
	if err != nil {
		return result, errors.Wrap(err, "load registration record")
	}
	if found {
		result.Resume = registration.Resume(rec, rec.RebootPending)
		result.Dependents = rec.Dependents
	} else {
		result.Resume = registration.ResumeNone
	}
	return result, nil
}

// Plan builds the cache, execute, and rollback plans for action against the
// given detect results and per-package requests (spec.md §4.3, §4.4), plus
// the related-bundle action plan (spec.md §4.4 "Related-bundle planning").
// ancestors is the caller's ancestor-bundle-id chain (spec.md §6
// "-ancestors"), used to break reciprocal related-bundle cycles.
// ignoredDependencies is the caller's -ignoredependencies switch: dependent
// keys named there no longer gate an uninstall (spec.md GLOSSARY "uninstall
// is gated by non-zero counts", scenario E3).
func (e *Engine) Plan(action plan.Action, detected DetectResult, requests PackageRequest, layoutDir string, ancestors, ignoredDependencies []string) (*plan.Plan, error) {
	forward := action != plan.ActionUninstall
	orderedPackages := orderPackages(e.Bundle.Packages, forward)

	inputs := make([]plan.PackagePlanInput, 0, len(orderedPackages))
	for _, pkg := range orderedPackages {
		result := detected.Packages[pkg.ID]
		req, ok := requests[pkg.ID]
		if !ok {
			req = defaultRequestFor(action)
		}
		inputs = append(inputs, plan.PackagePlanInput{
			Package:     pkg,
			Detected:    result.State,
			Requested:   req,
			MSIRelation: result.Relation,
		})
	}

	cacheActions := plan.BuildCachePlan(e.Bundle, orderedPackages, layoutDir)
	executeActions, rollbackActions := plan.BuildExecutePlan(action, inputs, forward, e.Bundle.RollbackBounds)

	p := &plan.Plan{
		Action:               action,
		PerMachine:           e.Bundle.PerMachine,
		CacheActions:         cacheActions,
		ExecuteActions:       executeActions,
		RollbackActions:      rollbackActions,
		RelatedBundleActions: plan.BuildRelatedBundlePlan(action, e.Bundle.Version, detected.Related, ancestors),
	}

	if action == plan.ActionUninstall {
		if blocking := plan.BlockingDependents(detected.Dependents, ignoredDependencies); len(blocking) > 0 {
			p.DisallowRemoval = true
			p.BlockedByDependents = blocking
			p.ExecuteActions = nil
			p.RollbackActions = nil
			e.Log.Info("skipped due to dependents", "bundle", e.Bundle.ID, "dependents", blocking)
		}
	}

	for _, a := range cacheActions {
		p.CacheSizeTotal += a.Size
	}
	return p, nil
}

// orderPackages returns the bundle's packages in manifest order for forward
// actions, or reversed for uninstall (spec.md §4.3 "reversed for
// uninstall").
func orderPackages(packages []*manifest.Package, forward bool) []*manifest.Package {
	if forward {
		out := make([]*manifest.Package, len(packages))
		copy(out, packages)
		return out
	}
	out := make([]*manifest.Package, len(packages))
	for i, p := range packages {
		out[len(packages)-1-i] = p
	}
	return out
}

// defaultRequestFor maps a top-level action onto the default per-package
// request state a caller who named no explicit per-package override gets
// (spec.md §3: install/repair/uninstall each have an obvious per-package
// default).
func defaultRequestFor(action plan.Action) plan.RequestState {
	switch action {
	case plan.ActionUninstall:
		return plan.RequestAbsent
	case plan.ActionRepair:
		return plan.RequestRepair
	case plan.ActionCache, plan.ActionLayout:
		return plan.RequestCache
	default:
		return plan.RequestPresent
	}
}

// Apply drives p to completion with the given cache/execute runners (spec.md
// §4.5).
func (e *Engine) Apply(ctx context.Context, p *plan.Plan, cacheRunner apply.CacheRunner, executeRunner apply.ExecuteRunner) apply.Result {
	driver := apply.NewDriver(cacheRunner, executeRunner, applyProgressSink{e.Host}, e.Log)
	return driver.Run(ctx, p)
}

// applyProgressSink adapts a ba.Host to apply's narrower ProgressSink
// interface, so the BA callback surface stays the single point UI-relevant
// messages flow through (spec.md §7).
type applyProgressSink struct{ host ba.Host }

func (s applyProgressSink) OnMessage(kind, text string) {
	s.host.OnEvent(context.Background(), ba.Event{Kind: ba.EventProgress, Message: text, Code: 0, Mask: ba.MaskOK})
}
