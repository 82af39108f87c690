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

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/chainboot/engine/internal/cache"
	"github.com/chainboot/engine/internal/manifest"
	"github.com/chainboot/engine/internal/plan"
	"github.com/chainboot/engine/internal/registration"
)

// CacheRunner drives a cache.Engine through one bundle's cache plan.
// AcquireContainer/ExtractContainer/PackageStart/Stop/Checkpoint carry no
// filesystem effect of their own in this engine (containers are resolved
// lazily from the bundle's payload metadata); CachePayload and
// LayoutPayload are where real I/O happens.
type CacheRunner struct {
	Bundle     *manifest.Bundle
	Cache      *cache.Engine
	WorkingDir string
	PerMachine bool
	Log        logging.Logger
}

// NewCacheRunner constructs a CacheRunner. log may be nil.
func NewCacheRunner(bundle *manifest.Bundle, c *cache.Engine, workingDir string, perMachine bool, log logging.Logger) *CacheRunner {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CacheRunner{Bundle: bundle, Cache: c, WorkingDir: workingDir, PerMachine: perMachine, Log: log}
}

// RunCacheAction implements apply.CacheRunner.
func (r *CacheRunner) RunCacheAction(_ context.Context, a plan.CacheAction) error {
	switch a.Kind {
	case plan.CacheAcquireContainer, plan.CacheExtractContainer, plan.CachePackageStart, plan.CachePackageStop,
		plan.CacheSignalSyncpoint, plan.CacheCheckpoint, plan.CacheRollbackPackage:
		r.Log.Debug("cache action", "kind", a.Kind, "package", a.PackageID, "container", a.ContainerID)
		return nil

	case plan.CacheAcquirePayload:
		payload := r.Bundle.Payloads[a.PayloadID]
		if payload == nil {
			return errors.Errorf("cache: unknown payload %q", a.PayloadID)
		}
		return r.Cache.AcquirePayload(payload, r.Cache.ResolvePayload(payload), nil, nil)

	case plan.CacheCachePayload:
		payload := r.Bundle.Payloads[a.PayloadID]
		if payload == nil {
			return errors.Errorf("cache: unknown payload %q", a.PayloadID)
		}
		pkg := r.Bundle.PackageByID(a.PackageID)
		cacheID := a.PackageID
		if pkg != nil && pkg.CacheID != "" {
			cacheID = pkg.CacheID
		}
		return r.Cache.CompletePayload(payload, r.PerMachine, cacheID, r.Cache.ResolvePayload(payload), a.Move)

	case plan.CacheLayoutPayload:
		payload := r.Bundle.Payloads[a.PayloadID]
		if payload == nil {
			return errors.Errorf("cache: unknown payload %q", a.PayloadID)
		}
		return r.Cache.LayoutPayload(payload, r.WorkingDir, r.Cache.ResolvePayload(payload), a.Move)

	case plan.CacheLayoutContainer, plan.CacheLayoutBundle:
		r.Log.Debug("layout action", "kind", a.Kind, "container", a.ContainerID)
		return nil
	}
	return errors.Errorf("cache: unhandled action kind %v", a.Kind)
}

// ExecuteRunner stands in for the polymorphic per-package-technology
// execute drivers (EXE/MSI/MSP/MSU), which spec.md §1 names as an external
// collaborator out of this engine's scope: "the per-package execution
// back-ends for each installer technology are invoked as a polymorphic
// 'execute this action' interface". PackageDriver, if set, runs the package
// execution actions; ExecRegistration actions are persisted through
// Registration, and every other action is only logged. When PackageDriver
// is nil the package actions are only logged too, so the plan/apply
// machinery can be exercised without a concrete installer technology wired
// in.
type ExecuteRunner struct {
	Bundle        *manifest.Bundle
	Registration  registration.Store
	PackageDriver PackageDriver
	Log           logging.Logger
}

// PackageDriver executes one package's install/uninstall/repair/upgrade
// action. properties carries any MSI command-line properties the plan
// attached to this action (spec.md §4.4, scenario E2's minor-upgrade
// REINSTALLMODE/REBOOT pair); nil for package kinds that don't use them.
// Implementations live outside this module (spec.md §1).
type PackageDriver interface {
	ExecutePackage(ctx context.Context, pkg *manifest.Package, state plan.ExecuteState, properties map[string]string) error
}

// NewExecuteRunner constructs an ExecuteRunner. reg, driver, and log may be
// nil; with reg nil, ExecRegistration actions are logged but not persisted.
func NewExecuteRunner(bundle *manifest.Bundle, reg registration.Store, driver PackageDriver, log logging.Logger) *ExecuteRunner {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ExecuteRunner{Bundle: bundle, Registration: reg, PackageDriver: driver, Log: log}
}

// RunExecuteAction implements apply.ExecuteRunner.
func (r *ExecuteRunner) RunExecuteAction(ctx context.Context, a plan.ExecuteAction) error {
	switch a.Kind {
	case plan.ExecExePackage, plan.ExecMsiPackage, plan.ExecMspTarget, plan.ExecMsuPackage:
		r.Log.Info("execute package", "package", a.PackageID, "state", a.State, "properties", a.MsiProperties)
		if r.PackageDriver == nil {
			return nil
		}
		pkg := r.Bundle.PackageByID(a.PackageID)
		if pkg == nil {
			return errors.Errorf("execute: unknown package %q", a.PackageID)
		}
		return errors.Wrapf(r.PackageDriver.ExecutePackage(ctx, pkg, a.State, a.MsiProperties), "execute package %q", a.PackageID)

	case plan.ExecRegistration:
		r.Log.Info("registration action", "keep", a.Keep)
		if r.Registration == nil {
			return nil
		}
		if !a.Keep {
			return errors.Wrap(r.Registration.Remove(r.Bundle.ID), "remove registration")
		}
		return errors.Wrap(r.Registration.Save(r.registrationRecord()), "save registration")

	default:
		r.Log.Debug("execute action", "kind", a.Kind, "package", a.PackageID)
		return nil
	}
}

// registrationRecord builds the record an ExecRegistration(keep=true) action
// persists from the bundle's own manifest metadata (spec.md §4.6).
func (r *ExecuteRunner) registrationRecord() registration.Record {
	return registration.Record{
		BundleID:     r.Bundle.ID,
		DisplayName:  r.Bundle.DisplayName,
		Version:      r.Bundle.Version.String(),
		ProviderKey:  r.Bundle.ProviderKey,
		UpgradeCodes: r.Bundle.Codes.Upgrade,
		AddonCodes:   r.Bundle.Codes.Addon,
		DetectCodes:  r.Bundle.Codes.Detect,
		PatchCodes:   r.Bundle.Codes.Patch,
		Resume:       "none",
		Installed:    true,
	}
}
