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

// Package manifest is the bundle's immutable in-memory object graph:
// containers, payloads, packages, rollback boundaries, dependency
// providers, and related-bundle codes (spec.md §3). Values in this package
// are never mutated after Parse returns; Detect and Plan attach their
// derived state to separate structures (internal/detect, internal/plan)
// rather than writing back into these types, which keeps the manifest safe
// to share (read-only) across the cache and execute workers during apply
// (spec.md §5: "variable store is single-writer ... manifest" analog).
package manifest

import "github.com/chainboot/engine/internal/variable"

// PackagingKind discriminates how a Payload's bytes are obtained.
type PackagingKind int

// Packaging kinds.
const (
	PackagingExternal PackagingKind = iota
	PackagingEmbedded
	PackagingDownload
)

// ContainerKind discriminates container storage kinds. Archive is the only
// kind spec.md defines; the type exists so a future container kind is not a
// breaking change to callers that switch on it.
type ContainerKind int

// ContainerKind values.
const (
	ContainerKindArchive ContainerKind = iota
)

// Container is an archive holding one or more payloads (spec.md §3).
type Container struct {
	ID            string
	Kind          ContainerKind
	Attached      bool
	AttachedIndex int64 // byte offset into the bundle executable, when Attached
	FilePath      string
	SourcePath    string
	Hash          Digest
	Size          int64
	DownloadURL   string
}

// Payload is a single file referenced by a package: an installer database,
// patch file, signed executable, or auxiliary data (spec.md §3).
type Payload struct {
	ID                    string
	FilePath              string
	SourcePath            string
	Packaging             PackagingKind
	ContainerID           string // set iff Packaging == PackagingEmbedded
	Hash                  Digest
	Size                  int64
	DownloadURL           string
	CatalogID             string
	CertificateRootKeyID  string
	CertificateThumbprint string
	LayoutOnly            bool
}

// Key returns the deterministic cache-working-path key for this payload,
// used by the cache engine's ResolvePayload (spec.md §4.1).
func (p *Payload) Key() string { return p.ID }

// PackageKind discriminates the installer technology of a Package.
type PackageKind int

// Package kinds (spec.md §3: "discriminated union over {EXE, MSI, MSP, MSU}").
const (
	PackageEXE PackageKind = iota
	PackageMSI
	PackageMSP
	PackageMSU
)

// CachePolicy controls whether a package's payloads are retained in the
// completed cache after a successful apply.
type CachePolicy int

// Cache policies.
const (
	CachePolicyNo CachePolicy = iota
	CachePolicyYes
	CachePolicyAlways
)

// ExitCodeAction is the disposition Burn-style exit code maps assign to a
// child process's return code.
type ExitCodeAction int

// Exit code actions.
const (
	ExitCodeActionNone ExitCodeAction = iota
	ExitCodeActionSuccess
	ExitCodeActionScheduleReboot
	ExitCodeActionError
)

// MSIFeatureRequestState mirrors an MSI feature's requested install level.
type MSIFeatureRequestState int

// Feature request states.
const (
	FeatureStateAbsent MSIFeatureRequestState = iota
	FeatureStateLocal
	FeatureStateSource
	FeatureStateAdvertised
)

// RelatedProductRule describes how to treat a related product discovered
// via an upgrade code (spec.md §4.2).
type RelatedProductRule struct {
	UpgradeCode  string
	MinVersion   *variable.Version
	MaxVersion   *variable.Version
	MinInclusive bool
	MaxInclusive bool
	OnlyDetect   bool // true => classify matches as "detect", false => "major-upgrade"
	LanguageIDs  []int
}

// Package is the discriminated union over EXE/MSI/MSP/MSU packages
// (spec.md §3). Type-specific fields are grouped in the EXE/MSI/MSP/MSU
// sub-structs, set only when Kind matches.
type Package struct {
	ID                       string
	Kind                     PackageKind
	PerMachine               bool
	Permanent                bool
	Vital                    bool
	CacheID                  string
	CachePolicy              CachePolicy
	InstallSize              int64
	Payloads                 []string // Payload IDs, primary payload first
	DependencyProviders      []DependencyProvider
	RollbackBoundaryForward  string // Rollback boundary ID, or ""
	RollbackBoundaryBackward string
	InstallCondition         string

	EXE *EXEPackage
	MSI *MSIPackage
	MSP *MSPPackage
	MSU *MSUPackage
}

// EXEPackage carries EXE-specific detect/execute configuration.
type EXEPackage struct {
	DetectCondition  string
	InstallArguments string
	RepairArguments  string
	UninstallArgs    string
	SupportsUninstall bool
	ExitCodes        map[int]ExitCodeAction
}

// MSIFeature is one feature entry in an MSI package.
type MSIFeature struct {
	Name    string
	Size    int64
	Request MSIFeatureRequestState
}

// MSIPackage carries MSI-specific detect/execute configuration.
type MSIPackage struct {
	ProductCode     string
	UpgradeCodes    []string
	Version         variable.Version
	Language        int
	Features        []MSIFeature
	RelatedProducts []RelatedProductRule
	ExitCodes       map[int]ExitCodeAction
}

// MSPTarget describes one product an MSP patch may apply to.
type MSPTarget struct {
	ProductCode string
	Applicable  bool
}

// MSPPackage carries MSP-specific detect/execute configuration.
type MSPPackage struct {
	PatchCode string
	Targets   []MSPTarget
	ExitCodes map[int]ExitCodeAction

	// SlipstreamMSIPackageID, if non-empty, names the MSI package in this
	// bundle this patch slipstreams into: the patch is folded into that
	// package's install/upgrade action rather than applied as a standalone
	// step (spec.md §4.4 "Slipstream-patch finalization").
	SlipstreamMSIPackageID string
}

// MSUPackage carries MSU-specific detect/execute configuration.
type MSUPackage struct {
	KBArticleID string
	ExitCodes   map[int]ExitCodeAction
}

// RollbackBoundary is a named point scoping automatic reverse-order
// rollback (spec.md §3).
type RollbackBoundary struct {
	ID    string
	Vital bool
}

// DependencyProvider is a reference-counted handle a package contributes
// to a shared feature (spec.md §3).
type DependencyProvider struct {
	Key         string
	Version     variable.Version
	DisplayName string
	Imported    bool
}

// RelatedBundleCodes groups the code lists a bundle publishes for
// cross-bundle classification (spec.md §4.2).
type RelatedBundleCodes struct {
	Upgrade []string
	Addon   []string
	Detect  []string
	Patch   []string
}

// Bundle is the top-level installable unit: the parsed manifest plus its
// own identity (spec.md GLOSSARY: "Bundle").
type Bundle struct {
	ID              string
	Version         variable.Version
	ProviderKey     string
	DisplayName     string
	Codes           RelatedBundleCodes
	ParallelCache   bool
	PerMachine      bool
	Containers      map[string]*Container
	Payloads        map[string]*Payload
	Packages        []*Package // manifest order
	RollbackBounds  map[string]*RollbackBoundary
	VariableDefaults map[string]variable.Variant
}

// PackageByID returns the package with the given id, or nil.
func (b *Bundle) PackageByID(id string) *Package {
	for _, p := range b.Packages {
		if p.ID == id {
			return p
		}
	}
	return nil
}
