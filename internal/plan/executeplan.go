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
	"github.com/chainboot/engine/internal/manifest"
)

// PackagePlanInput is one package's planning inputs, gathered from detect
// and the caller's requested per-package states.
type PackagePlanInput struct {
	Package  *manifest.Package
	Detected detect.State
	Requested RequestState
	// MSIRelation refines ExecuteRepair to ExecuteMinorUpgrade when the
	// manifest carries a higher MSI version over a detected-present package
	// (spec.md §4.4 "Per-type overrides", §8 scenario E2).
	MSIRelation detect.Relation
}

// executeBuilder accumulates the execute and rollback action sequences for
// one plan direction (spec.md §4.4).
type executeBuilder struct {
	execute      []ExecuteAction
	rollback     []ExecuteAction
	checkpointID int
	openBoundary string
	boundaries   map[string]*manifest.RollbackBoundary
}

// BuildExecutePlan emits the execute and rollback action sequences for
// packages in manifest order, implementing the ordering rules of spec.md
// §4.4 (boundaries, syncpoints, dependency actions, checkpoints,
// registration housekeeping). forward selects which of
// RollbackBoundaryForward/Backward a package opens. boundaries resolves a
// boundary ID to its manifest definition so its Vital flag (spec.md §4.5,
// §7) can be carried onto the emitted ExecRollbackBoundary action; it may
// be nil, in which case every boundary defaults to vital.
func BuildExecutePlan(action Action, packages []PackagePlanInput, forward bool, boundaries map[string]*manifest.RollbackBoundary) ([]ExecuteAction, []ExecuteAction) {
	b := &executeBuilder{boundaries: boundaries}
	uninstalling := action == ActionUninstall

	firstNonPermanentSeen := false
	var lastNonPermanentUninstallIdx = -1

	for i, in := range packages {
		state := ResolveExecuteState(in.Detected, in.Requested)
		if state == ExecuteRepair && in.Package.Kind == manifest.PackageMSI && in.MSIRelation == detect.RelationMinorUpdate {
			state = ExecuteMinorUpgrade
		}
		rollbackState := ResolveRollbackState(state, in.Package.Permanent)

		if state == ExecuteNone {
			continue
		}

		if !firstNonPermanentSeen && !in.Package.Permanent {
			firstNonPermanentSeen = true
			b.emitRegistration(true, false)
		}

		boundaryID := in.Package.RollbackBoundaryForward
		if !forward {
			boundaryID = in.Package.RollbackBoundaryBackward
		}
		if boundaryID != "" && boundaryID != b.openBoundary {
			b.closeBoundary()
			b.openBoundaryAction(boundaryID)
		}

		b.emitExec(ExecuteAction{Kind: ExecWaitSyncpoint, PackageID: in.Package.ID})

		depAction := dependencyActionFor(state)
		if depAction != DependencyActionNone {
			for _, dp := range in.Package.DependencyProviders {
				b.emitBoth(ExecuteAction{
					Kind:             ExecPackageDependency,
					PackageID:        in.Package.ID,
					DependencyKey:    dp.Key,
					DependencyAction: depAction,
					State:            state,
				}, invertDependency(depAction), rollbackState)
			}
		}

		b.emitPackageAction(in.Package, state, rollbackState)

		b.checkpointID++
		id := b.checkpointID
		b.emitExec(ExecuteAction{Kind: ExecCheckpoint, CheckpointID: id})
		b.emitRollback(ExecuteAction{Kind: ExecCheckpoint, CheckpointID: id})

		if uninstalling && !in.Package.Permanent {
			lastNonPermanentUninstallIdx = i
		}
	}

	b.closeBoundary()

	if uninstalling && lastNonPermanentUninstallIdx >= 0 {
		b.emitRegistration(false, true)
	}

	return foldSlipstreamPatches(b.execute, packages), b.rollback
}

// foldSlipstreamPatches implements spec.md §4.4's slipstream-patch
// finalization: an MSP package that names a SlipstreamMSIPackageID is
// dropped as a standalone ExecMspTarget action and its patch code is
// recorded on that MSI's own action instead, provided the MSI is being
// installed or upgraded here. Slipstreaming does not apply when the MSI is
// being uninstalled or repaired (original_source/src/burn/engine/plan.cpp
// only layers slipstream MSPs onto an install/upgrade of their target), so
// those standalone actions are left untouched.
func foldSlipstreamPatches(actions []ExecuteAction, packages []PackagePlanInput) []ExecuteAction {
	byID := make(map[string]*manifest.Package, len(packages))
	for _, in := range packages {
		byID[in.Package.ID] = in.Package
	}

	msiState := make(map[string]ExecuteState, len(actions))
	for _, a := range actions {
		if a.Kind == ExecMsiPackage {
			msiState[a.PackageID] = a.State
		}
	}

	patchesByMSI := map[string][]string{}
	fold := make(map[int]bool, len(actions))
	for i, a := range actions {
		if a.Kind != ExecMspTarget {
			continue
		}
		pkg := byID[a.PackageID]
		if pkg == nil || pkg.MSP == nil || pkg.MSP.SlipstreamMSIPackageID == "" {
			continue
		}
		state, ok := msiState[pkg.MSP.SlipstreamMSIPackageID]
		if !ok {
			continue
		}
		switch state {
		case ExecuteInstall, ExecuteMinorUpgrade, ExecuteMajorUpgrade:
		default:
			continue
		}
		target := pkg.MSP.SlipstreamMSIPackageID
		patchesByMSI[target] = append(patchesByMSI[target], pkg.MSP.PatchCode)
		fold[i] = true
	}

	if len(patchesByMSI) == 0 {
		return actions
	}

	out := make([]ExecuteAction, 0, len(actions))
	for i, a := range actions {
		if fold[i] {
			continue
		}
		if a.Kind == ExecMsiPackage {
			if patches, ok := patchesByMSI[a.PackageID]; ok {
				a.SlipstreamPatches = append(append([]string{}, a.SlipstreamPatches...), patches...)
			}
		}
		out = append(out, a)
	}
	return out
}

func (b *executeBuilder) emitExec(a ExecuteAction)     { b.execute = append(b.execute, a) }
func (b *executeBuilder) emitRollback(a ExecuteAction) { b.rollback = append(b.rollback, a) }

func (b *executeBuilder) emitBoth(exec ExecuteAction, rollbackDepAction DependencyAction, rollbackState ExecuteState) {
	b.emitExec(exec)
	rb := exec
	rb.DependencyAction = rollbackDepAction
	rb.State = rollbackState
	b.emitRollback(rb)
}

func (b *executeBuilder) emitRegistration(execKeep, rollbackKeepOverride bool) {
	b.emitExec(ExecuteAction{Kind: ExecRegistration, Keep: execKeep})
	b.emitRollback(ExecuteAction{Kind: ExecRegistration, Keep: !execKeep})
}

func (b *executeBuilder) openBoundaryAction(id string) {
	b.openBoundary = id
	vital := true
	if boundary, ok := b.boundaries[id]; ok {
		vital = boundary.Vital
	}
	b.emitExec(ExecuteAction{Kind: ExecRollbackBoundary, BoundaryID: id, Vital: vital})
	b.emitRollback(ExecuteAction{Kind: ExecRollbackBoundary, BoundaryID: id, Vital: vital})
}

func (b *executeBuilder) closeBoundary() {
	if b.openBoundary == "" {
		return
	}
	b.checkpointID++
	id := b.checkpointID
	b.emitExec(ExecuteAction{Kind: ExecCheckpoint, CheckpointID: id})
	b.emitRollback(ExecuteAction{Kind: ExecCheckpoint, CheckpointID: id})
	b.openBoundary = ""
}

func (b *executeBuilder) emitPackageAction(pkg *manifest.Package, state, rollbackState ExecuteState) {
	var kind ExecuteActionKind
	switch pkg.Kind {
	case manifest.PackageEXE:
		kind = ExecExePackage
	case manifest.PackageMSI:
		kind = ExecMsiPackage
	case manifest.PackageMSP:
		kind = ExecMspTarget
	case manifest.PackageMSU:
		kind = ExecMsuPackage
	}
	b.emitExec(ExecuteAction{Kind: kind, PackageID: pkg.ID, State: state, MsiProperties: minorUpgradeProperties(kind, state)})
	b.emitRollback(ExecuteAction{Kind: kind, PackageID: pkg.ID, State: rollbackState, MsiProperties: minorUpgradeProperties(kind, rollbackState)})
}

// minorUpgradeProperties returns the fixed MSI property set a minor-upgrade
// action carries (spec.md §4.4, scenario E2): REINSTALLMODE=vomus reinstalls
// all files, checks the version/language, and updates the product, while
// REBOOT=ReallySuppress keeps the chain from stalling on a restart prompt
// for one package's upgrade.
func minorUpgradeProperties(kind ExecuteActionKind, state ExecuteState) map[string]string {
	if kind != ExecMsiPackage || state != ExecuteMinorUpgrade {
		return nil
	}
	return map[string]string{"REINSTALLMODE": "vomus", "REBOOT": "ReallySuppress"}
}

func dependencyActionFor(state ExecuteState) DependencyAction {
	switch state {
	case ExecuteInstall, ExecuteMinorUpgrade, ExecuteMajorUpgrade, ExecuteRepair:
		return DependencyActionRegister
	case ExecuteUninstall:
		return DependencyActionUnregister
	}
	return DependencyActionNone
}

func invertDependency(a DependencyAction) DependencyAction {
	switch a {
	case DependencyActionRegister:
		return DependencyActionUnregister
	case DependencyActionUnregister:
		return DependencyActionRegister
	}
	return DependencyActionNone
}
