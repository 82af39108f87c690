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

package engine

import (
	"context"
	"testing"

	"github.com/chainboot/engine/internal/cache"
	"github.com/chainboot/engine/internal/cache/verify"
	"github.com/chainboot/engine/internal/detect"
	"github.com/chainboot/engine/internal/manifest"
	"github.com/chainboot/engine/internal/plan"
	"github.com/chainboot/engine/internal/registration"
	"github.com/chainboot/engine/internal/variable"
	"github.com/spf13/afero"
)

func freshInstallBundle() *manifest.Bundle {
	return &manifest.Bundle{
		ID:         "{bundle}",
		Containers: map[string]*manifest.Container{"attached": {ID: "attached", Attached: true}},
		Payloads: map[string]*manifest.Payload{
			"pay1": {ID: "pay1", Packaging: manifest.PackagingEmbedded, ContainerID: "attached"},
		},
		Packages: []*manifest.Package{
			{
				ID:                      "pkgA",
				Kind:                    manifest.PackageMSI,
				Payloads:                []string{"pay1"},
				RollbackBoundaryForward: "bnd0",
				DependencyProviders:     []manifest.DependencyProvider{{Key: "example.provider"}},
				MSI:                     &manifest.MSIPackage{ProductCode: "{code}"},
			},
		},
	}
}

type noopDB struct{}

func (noopDB) ProductVersion(string) (variable.Version, bool, error) { return variable.Version{}, false, nil }
func (noopDB) FeatureState(string, string) (string, error)           { return "", nil }

type emptyRelatedSource struct{}

func (emptyRelatedSource) List() ([]registration.Record, error) { return nil, nil }

func newTestEngine(t *testing.T, bundle *manifest.Bundle) *Engine {
	t.Helper()
	store, err := variable.New()
	if err != nil {
		t.Fatalf("variable.New(): unexpected error: %v", err)
	}
	regStore := newFakeRegStore()

	det := detect.NewEngine(noopDB{}, emptyRelatedSource{})
	fs := afero.NewMemMapFs()
	env := cache.Initialize(fs, "/permachine", "/peruser", "/work")
	cacheEngine := cache.NewEngine(env, &verify.Verifier{})

	return New(bundle, store, regStore, det, cacheEngine, nil, nil)
}

type fakeRegStore struct {
	records map[string]registration.Record
}

func newFakeRegStore() *fakeRegStore { return &fakeRegStore{records: map[string]registration.Record{}} }

func (s *fakeRegStore) Load(bundleID string) (registration.Record, bool, error) {
	r, ok := s.records[bundleID]
	return r, ok, nil
}
func (s *fakeRegStore) Save(rec registration.Record) error {
	s.records[rec.BundleID] = rec
	return nil
}
func (s *fakeRegStore) Remove(bundleID string) error {
	delete(s.records, bundleID)
	return nil
}
func (s *fakeRegStore) SetRebootPending(bundleID string, pending bool) error {
	rec := s.records[bundleID]
	rec.RebootPending = pending
	s.records[bundleID] = rec
	return nil
}

// TestFreshInstallEndToEnd matches spec.md §8 scenario E1: a fresh install
// of a single embedded-MSI package with no prior registration.
func TestFreshInstallEndToEnd(t *testing.T) {
	bundle := freshInstallBundle()
	e := newTestEngine(t, bundle)

	detected, err := e.DetectAll()
	if err != nil {
		t.Fatalf("DetectAll(): unexpected error: %v", err)
	}
	if detected.Resume != registration.ResumeNone {
		t.Errorf("Resume = %v, want ResumeNone for a never-registered bundle", detected.Resume)
	}
	if got := detected.Packages["pkgA"].State; got != detect.StateAbsent {
		t.Errorf("detected pkgA state = %v, want StateAbsent (the product database reports it not installed)", got)
	}

	p, err := e.Plan(plan.ActionInstall, detected, PackageRequest{"pkgA": plan.RequestPresent}, "", nil, nil)
	if err != nil {
		t.Fatalf("Plan(...): unexpected error: %v", err)
	}

	wantCacheKinds := []plan.CacheActionKind{
		plan.CachePackageStart,
		plan.CacheAcquireContainer,
		plan.CacheExtractContainer,
		plan.CacheCachePayload,
		plan.CachePackageStop,
		plan.CacheSignalSyncpoint,
	}
	if len(p.CacheActions) != len(wantCacheKinds) {
		t.Fatalf("cache actions = %+v, want %d actions matching %v", p.CacheActions, len(wantCacheKinds), wantCacheKinds)
	}
	for i, k := range wantCacheKinds {
		if p.CacheActions[i].Kind != k {
			t.Errorf("cache action[%d].Kind = %v, want %v", i, p.CacheActions[i].Kind, k)
		}
	}

	wantExecKinds := []plan.ExecuteActionKind{
		plan.ExecRegistration,
		plan.ExecRollbackBoundary,
		plan.ExecWaitSyncpoint,
		plan.ExecPackageDependency,
		plan.ExecMsiPackage,
		plan.ExecCheckpoint,
		plan.ExecCheckpoint,
	}
	if len(p.ExecuteActions) != len(wantExecKinds) {
		t.Fatalf("execute actions = %+v, want %d actions matching %v", p.ExecuteActions, len(wantExecKinds), wantExecKinds)
	}
	for i, k := range wantExecKinds {
		if p.ExecuteActions[i].Kind != k {
			t.Errorf("execute action[%d].Kind = %v, want %v", i, p.ExecuteActions[i].Kind, k)
		}
	}

	var sawUninstallRollback bool
	for _, a := range p.RollbackActions {
		if a.Kind == plan.ExecMsiPackage && a.State == plan.ExecuteUninstall {
			sawUninstallRollback = true
		}
	}
	if !sawUninstallRollback {
		t.Errorf("rollback actions = %+v, want an MsiPackage(uninstall) mirror", p.RollbackActions)
	}
}

type fakeCacheRunner struct{ ran []plan.CacheActionKind }

func (f *fakeCacheRunner) RunCacheAction(_ context.Context, a plan.CacheAction) error {
	f.ran = append(f.ran, a.Kind)
	return nil
}

type fakeExecuteRunner struct{ ran []plan.ExecuteActionKind }

func (f *fakeExecuteRunner) RunExecuteAction(_ context.Context, a plan.ExecuteAction) error {
	f.ran = append(f.ran, a.Kind)
	return nil
}

func TestApplyDrivesPlanToCompletion(t *testing.T) {
	bundle := freshInstallBundle()
	e := newTestEngine(t, bundle)

	detected, err := e.DetectAll()
	if err != nil {
		t.Fatalf("DetectAll(): unexpected error: %v", err)
	}
	p, err := e.Plan(plan.ActionInstall, detected, PackageRequest{"pkgA": plan.RequestPresent}, "", nil, nil)
	if err != nil {
		t.Fatalf("Plan(...): unexpected error: %v", err)
	}

	cacheRunner := &fakeCacheRunner{}
	execRunner := &fakeExecuteRunner{}
	res := e.Apply(context.Background(), p, cacheRunner, execRunner)
	if res.Err != nil {
		t.Fatalf("Apply(...): unexpected error: %v", res.Err)
	}
	if res.RolledBack {
		t.Errorf("RolledBack = true, want false on a successful apply")
	}
	if len(cacheRunner.ran) == 0 {
		t.Errorf("no cache actions were run")
	}
	if len(execRunner.ran) == 0 {
		t.Errorf("no execute actions were run")
	}
}

// TestUninstallGatedByDependentsSkipsExecutes matches spec.md §8 scenario E3:
// a bundle with a registered dependent refuses to uninstall until the caller
// overrides the hold with -ignoredependencies.
func TestUninstallGatedByDependentsSkipsExecutes(t *testing.T) {
	bundle := freshInstallBundle()
	e := newTestEngine(t, bundle)

	if err := e.Registration.Save(registration.Record{
		BundleID:   bundle.ID,
		Dependents: map[string]string{"{dependent-bundle}": "Dependent Product"},
	}); err != nil {
		t.Fatalf("Save(...): unexpected error: %v", err)
	}

	detected, err := e.DetectAll()
	if err != nil {
		t.Fatalf("DetectAll(): unexpected error: %v", err)
	}
	if len(detected.Dependents) != 1 {
		t.Fatalf("detected.Dependents = %+v, want one dependent", detected.Dependents)
	}

	p, err := e.Plan(plan.ActionUninstall, detected, PackageRequest{"pkgA": plan.RequestAbsent}, "", nil, nil)
	if err != nil {
		t.Fatalf("Plan(...): unexpected error: %v", err)
	}
	if !p.DisallowRemoval {
		t.Errorf("DisallowRemoval = false, want true with a registered dependent")
	}
	if len(p.BlockedByDependents) != 1 || p.BlockedByDependents[0] != "{dependent-bundle}" {
		t.Errorf("BlockedByDependents = %v, want [{dependent-bundle}]", p.BlockedByDependents)
	}
	if len(p.ExecuteActions) != 0 || len(p.RollbackActions) != 0 {
		t.Errorf("ExecuteActions/RollbackActions not empty, want both skipped when removal is disallowed")
	}

	// Naming the dependent's key via -ignoredependencies lifts the hold.
	p, err = e.Plan(plan.ActionUninstall, detected, PackageRequest{"pkgA": plan.RequestAbsent}, "", nil, []string{"{dependent-bundle}"})
	if err != nil {
		t.Fatalf("Plan(...): unexpected error: %v", err)
	}
	if p.DisallowRemoval {
		t.Errorf("DisallowRemoval = true, want false once the dependent is named in -ignoredependencies")
	}
	if len(p.ExecuteActions) == 0 {
		t.Errorf("ExecuteActions empty, want an uninstall plan once the hold is lifted")
	}
}
