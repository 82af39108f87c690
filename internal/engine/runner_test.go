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

	"github.com/spf13/afero"

	"github.com/chainboot/engine/internal/cache"
	"github.com/chainboot/engine/internal/cache/verify"
	"github.com/chainboot/engine/internal/manifest"
	"github.com/chainboot/engine/internal/plan"
	"github.com/chainboot/engine/internal/registration"
)

func testCacheRunner(t *testing.T) (*CacheRunner, *manifest.Bundle, *cache.Environment) {
	t.Helper()
	fs := afero.NewMemMapFs()
	env := cache.Initialize(fs, "/machine", "/user", "/work")
	cacheEngine := cache.NewEngine(env, &verify.Verifier{})
	bundle := &manifest.Bundle{
		ID: "{bundle}",
		Payloads: map[string]*manifest.Payload{
			"pay1": {ID: "pay1", FilePath: "example.msi"},
		},
		Packages: []*manifest.Package{{ID: "pkgA", CacheID: "pkgA-cache"}},
	}
	return NewCacheRunner(bundle, cacheEngine, "/layout", true, nil), bundle, env
}

func TestCacheRunnerCachePayloadMovesIntoFinalCache(t *testing.T) {
	runner, bundle, env := testCacheRunner(t)
	payload := bundle.Payloads["pay1"]
	workingPath := env.ResolvePayload(payload)
	if err := afero.WriteFile(env.Fs, workingPath, []byte("contents"), 0o600); err != nil {
		t.Fatalf("WriteFile(...): unexpected error: %v", err)
	}

	err := runner.RunCacheAction(context.Background(), plan.CacheAction{
		Kind: plan.CacheCachePayload, PackageID: "pkgA", PayloadID: "pay1", Move: true,
	})
	if err != nil {
		t.Fatalf("RunCacheAction(CacheCachePayload): unexpected error: %v", err)
	}

	finalPath := env.CompletedPackageFolder(true, "pkgA-cache") + "/example.msi"
	if ok, _ := afero.Exists(env.Fs, finalPath); !ok {
		t.Errorf("final cached file %q does not exist", finalPath)
	}
}

func TestCacheRunnerLayoutPayloadWritesToLayoutDir(t *testing.T) {
	runner, bundle, env := testCacheRunner(t)
	payload := bundle.Payloads["pay1"]
	workingPath := env.ResolvePayload(payload)
	if err := afero.WriteFile(env.Fs, workingPath, []byte("contents"), 0o600); err != nil {
		t.Fatalf("WriteFile(...): unexpected error: %v", err)
	}

	err := runner.RunCacheAction(context.Background(), plan.CacheAction{
		Kind: plan.CacheLayoutPayload, PackageID: "pkgA", PayloadID: "pay1",
	})
	if err != nil {
		t.Fatalf("RunCacheAction(CacheLayoutPayload): unexpected error: %v", err)
	}
	if ok, _ := afero.Exists(env.Fs, "/layout/example.msi"); !ok {
		t.Errorf("payload was not laid out to /layout/example.msi")
	}
}

func TestCacheRunnerUnknownPayloadErrors(t *testing.T) {
	runner, _, _ := testCacheRunner(t)
	err := runner.RunCacheAction(context.Background(), plan.CacheAction{
		Kind: plan.CacheCachePayload, PayloadID: "missing",
	})
	if err == nil {
		t.Errorf("RunCacheAction(...) with an unknown payload id: want an error, got nil")
	}
}

func TestCacheRunnerBookkeepingActionsAreNoOps(t *testing.T) {
	runner, _, _ := testCacheRunner(t)
	for _, kind := range []plan.CacheActionKind{
		plan.CacheAcquireContainer, plan.CacheExtractContainer, plan.CachePackageStart,
		plan.CachePackageStop, plan.CacheSignalSyncpoint, plan.CacheCheckpoint, plan.CacheRollbackPackage,
	} {
		if err := runner.RunCacheAction(context.Background(), plan.CacheAction{Kind: kind}); err != nil {
			t.Errorf("RunCacheAction(%v): unexpected error: %v", kind, err)
		}
	}
}

type fakeRegistrationStore struct {
	saved   *registration.Record
	removed string
}

func (s *fakeRegistrationStore) Load(string) (registration.Record, bool, error) { return registration.Record{}, false, nil }
func (s *fakeRegistrationStore) Save(rec registration.Record) error             { s.saved = &rec; return nil }
func (s *fakeRegistrationStore) Remove(bundleID string) error                   { s.removed = bundleID; return nil }
func (s *fakeRegistrationStore) SetRebootPending(string, bool) error            { return nil }

func TestExecuteRunnerRegistrationKeepSaves(t *testing.T) {
	bundle := &manifest.Bundle{ID: "{bundle}", DisplayName: "Example"}
	reg := &fakeRegistrationStore{}
	runner := NewExecuteRunner(bundle, reg, nil, nil)

	err := runner.RunExecuteAction(context.Background(), plan.ExecuteAction{Kind: plan.ExecRegistration, Keep: true})
	if err != nil {
		t.Fatalf("RunExecuteAction(Registration, keep=true): unexpected error: %v", err)
	}
	if reg.saved == nil || reg.saved.BundleID != "{bundle}" {
		t.Errorf("Save(...) not called with the bundle's record, got %+v", reg.saved)
	}
}

func TestExecuteRunnerRegistrationUnkeepRemoves(t *testing.T) {
	bundle := &manifest.Bundle{ID: "{bundle}"}
	reg := &fakeRegistrationStore{}
	runner := NewExecuteRunner(bundle, reg, nil, nil)

	err := runner.RunExecuteAction(context.Background(), plan.ExecuteAction{Kind: plan.ExecRegistration, Keep: false})
	if err != nil {
		t.Fatalf("RunExecuteAction(Registration, keep=false): unexpected error: %v", err)
	}
	if reg.removed != "{bundle}" {
		t.Errorf("Remove(...) not called with %q, got %q", "{bundle}", reg.removed)
	}
}

func TestExecuteRunnerUnknownPackageErrors(t *testing.T) {
	bundle := &manifest.Bundle{ID: "{bundle}"}
	runner := NewExecuteRunner(bundle, nil, fakeDriver{}, nil)

	err := runner.RunExecuteAction(context.Background(), plan.ExecuteAction{Kind: plan.ExecMsiPackage, PackageID: "missing"})
	if err == nil {
		t.Errorf("RunExecuteAction(...) for an unknown package: want an error, got nil")
	}
}

type fakeDriver struct{}

func (fakeDriver) ExecutePackage(context.Context, *manifest.Package, plan.ExecuteState, map[string]string) error {
	return nil
}

func TestExecuteRunnerDrivesPackageDriver(t *testing.T) {
	bundle := &manifest.Bundle{ID: "{bundle}", Packages: []*manifest.Package{{ID: "pkgA"}}}
	runner := NewExecuteRunner(bundle, nil, fakeDriver{}, nil)

	err := runner.RunExecuteAction(context.Background(), plan.ExecuteAction{Kind: plan.ExecMsiPackage, PackageID: "pkgA", State: plan.ExecuteInstall})
	if err != nil {
		t.Fatalf("RunExecuteAction(...): unexpected error: %v", err)
	}
}
