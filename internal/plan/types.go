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

// Package plan translates a requested action and per-package requested
// states into a cache plan, an execute plan, and a mirror rollback plan
// (spec.md §3, §4.3, §4.4; grounded on
// original_source/src/burn/engine/plan.cpp).
package plan

// Action is the top-level operation requested of the engine.
type Action int

// Actions (spec.md §3).
const (
	ActionLayout Action = iota
	ActionCache
	ActionInstall
	ActionModify
	ActionRepair
	ActionUninstall
	ActionUpdateReplace
	ActionUpdateReplaceEmbedded
)

// RequestState is a package's requested disposition (spec.md §3).
type RequestState int

// Request states.
const (
	RequestNone RequestState = iota
	RequestAbsent
	RequestForceAbsent
	RequestPresent
	RequestRepair
	RequestCache
)

// ExecuteState is the resolved per-package action (spec.md §3,§4.4).
type ExecuteState int

// Execute/rollback action states.
const (
	ExecuteNone ExecuteState = iota
	ExecuteInstall
	ExecuteUninstall
	ExecuteModify
	ExecuteRepair
	ExecuteMinorUpgrade
	ExecuteMajorUpgrade
)

// CacheActionKind discriminates a cache-plan action (spec.md §3).
type CacheActionKind int

// Cache action kinds.
const (
	CacheAcquireContainer CacheActionKind = iota
	CacheExtractContainer
	CacheAcquirePayload
	CacheCachePayload
	CacheLayoutPayload
	CacheLayoutContainer
	CacheLayoutBundle
	CachePackageStart
	CachePackageStop
	CacheSignalSyncpoint
	CacheCheckpoint
	CacheRollbackPackage
)

// CacheAction is one step of the cache plan.
type CacheAction struct {
	Kind CacheActionKind

	ContainerID string
	PayloadID   string
	PackageID   string

	// Move is true the first time a given payload is cached/laid out by
	// move rather than copy (spec.md §3 invariant: a move=true action for a
	// payload appears at most once in the whole plan).
	Move bool

	// ExtractPayloads accumulates payload ids for a CacheExtractContainer
	// action (spec.md §4.3 step 2).
	ExtractPayloads []string

	// CompleteIndex backfills to the matching PackageStop's index once
	// known (spec.md §3 invariant: exactly one PackageStop per PackageStart).
	CompleteIndex int
	PayloadCount  int
	Size          int64

	CheckpointID int

	// ITryAgainAction is the back-index of the acquire this action retries
	// from on verification/acquisition failure (spec.md §3,§4.3).
	ITryAgainAction int
	SkipUntilRetried bool

	Deleted bool
}

// ExecuteActionKind discriminates an execute-plan action (spec.md §3).
type ExecuteActionKind int

// Execute action kinds.
const (
	ExecCheckpoint ExecuteActionKind = iota
	ExecRollbackBoundary
	ExecWaitSyncpoint
	ExecUncachePackage
	ExecPackageDependency
	ExecPackageProvider
	ExecExePackage
	ExecMsiPackage
	ExecMspTarget
	ExecMsuPackage
	ExecRegistration
	ExecCompatiblePackage
)

// DependencyAction is the register/unregister disposition of a
// PackageDependency/PackageProvider action.
type DependencyAction int

// Dependency actions.
const (
	DependencyActionNone DependencyAction = iota
	DependencyActionRegister
	DependencyActionUnregister
)

// ExecuteAction is one step of the execute (or, symmetrically, rollback) plan.
type ExecuteAction struct {
	Kind ExecuteActionKind

	PackageID    string
	BoundaryID   string
	CheckpointID int

	// Vital is set on an ExecRollbackBoundary action from the manifest's
	// RollbackBoundary.Vital (spec.md §4.5, §7): a failure rolling back to
	// a non-vital boundary lets apply continue past it; a vital one ends
	// the apply. Defaults true when the plan never resolved a matching
	// manifest boundary.
	Vital bool

	State ExecuteState

	DependencyKey    string
	DependencyAction DependencyAction

	// Keep is the Registration action's keep flag (spec.md §4.4
	// "Registration housekeeping").
	Keep bool

	// SlipstreamPatches holds the patch codes of MSP packages folded into
	// this MSI action rather than scheduled as their own standalone
	// ExecMspTarget actions (spec.md §4.4 "Slipstream-patch finalization").
	// Only ever set on an ExecMsiPackage action.
	SlipstreamPatches []string

	// MsiProperties carries the MSI command-line properties appended to an
	// ExecMsiPackage action (spec.md §4.4 "Per-type overrides", scenario E2):
	// a minor-upgrade always appends REINSTALLMODE=vomus REBOOT=ReallySuppress
	// so the new files replace the old ones in place without prompting for a
	// restart mid-chain.
	MsiProperties map[string]string

	Deleted bool
}

// RegistrationOp is a bit in Plan.RegistrationOps (spec.md §3).
type RegistrationOp int

// Registration op bits.
const (
	RegOpCacheBundle RegistrationOp = 1 << iota
	RegOpWriteRegistration
	RegOpUpdateSize
)

// Plan is the full output of planning: cache, rollback-cache, execute, and
// rollback action sequences plus bookkeeping (spec.md §3).
type Plan struct {
	Action Action

	PerMachine bool

	RegistrationOps  int
	DependencyRegAction DependencyAction

	CacheActions         []CacheAction
	RollbackCacheActions []CacheAction
	ExecuteActions       []ExecuteAction
	RollbackActions      []ExecuteAction
	CleanActions         []CacheAction

	// RelatedBundleActions is the disposition planned for each related
	// bundle detect discovered (spec.md §4.4 "Related-bundle planning").
	RelatedBundleActions []RelatedBundleAction

	// DisallowRemoval is set when an uninstall is gated by a non-zero
	// dependent count (spec.md GLOSSARY "uninstall is gated by non-zero
	// counts", scenario E3): ExecuteActions/RollbackActions are emptied and
	// BlockedByDependents names the dependent bundle ids (or provider keys)
	// that were not overridden via -ignoredependencies.
	DisallowRemoval     bool
	BlockedByDependents []string

	EstimatedSize          int64
	CacheSizeTotal         int64
	OverallProgressTicksTotal int64
}
