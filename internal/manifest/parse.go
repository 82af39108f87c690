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

package manifest

import (
	"encoding/xml"
	"io"
	"strconv"

	"golang.org/x/text/encoding/unicode"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/chainboot/engine/internal/variable"
)

// Parse reads a bundle manifest. The wire format is UTF-16 XML (spec.md
// §6); everything else about its shape is implied by the attribute names
// enumerated in spec.md §3. encoding/xml is used directly here -- the one
// ambient concern left on the standard library in this module, because
// attribute-addressed XML unmarshaling is exactly encoding/xml's job and no
// library in the example pack reads UTF-16 XML manifests (see DESIGN.md).
func Parse(r io.Reader) (*Bundle, error) {
	// UTF-16 XML declares its own encoding, but Go's xml.Decoder only
	// auto-transcodes when a CharsetReader is provided; Burn-style manifests
	// are written as UTF-16LE with a BOM, so we decode unconditionally.
	decoded := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	utf8Reader := decoded.Reader(r)

	var doc xmlBundle
	dec := xml.NewDecoder(utf8Reader)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "cannot parse bundle manifest")
	}
	return doc.toBundle()
}

type xmlBundle struct {
	XMLName          xml.Name          `xml:"Bundle"`
	ID               string            `xml:"Id,attr"`
	Version          string            `xml:"Version,attr"`
	ProviderKey      string            `xml:"ProviderKey,attr"`
	DisplayName      string            `xml:"DisplayName,attr"`
	PerMachine       bool              `xml:"PerMachine,attr"`
	ParallelCache    bool              `xml:"ParallelCache,attr"`
	UpgradeCode      []string          `xml:"UpgradeCode"`
	AddonCode        []string          `xml:"AddonCode"`
	DetectCode       []string          `xml:"DetectCode"`
	PatchCode        []string          `xml:"PatchCode"`
	Variables        []xmlVariable     `xml:"Variable"`
	Containers       []xmlContainer    `xml:"Container"`
	Payloads         []xmlPayload      `xml:"Payload"`
	RollbackBoundary []xmlBoundary     `xml:"RollbackBoundary"`
	Packages         []xmlPackage      `xml:"Package"`
}

type xmlVariable struct {
	Name      string `xml:"Name,attr"`
	Type      string `xml:"Type,attr"` // "numeric" | "string" | "version"
	Value     string `xml:"Value,attr"`
	Persisted bool   `xml:"Persisted,attr"`
	Hidden    bool   `xml:"Hidden,attr"`
}

type xmlContainer struct {
	ID            string `xml:"Id,attr"`
	Attached      bool   `xml:"Attached,attr"`
	AttachedIndex int64  `xml:"AttachedIndex,attr"`
	FilePath      string `xml:"FilePath,attr"`
	SourcePath    string `xml:"SourcePath,attr"`
	Hash          string `xml:"Hash,attr"`
	Size          int64  `xml:"Size,attr"`
	DownloadURL   string `xml:"DownloadUrl,attr"`
}

type xmlPayload struct {
	ID                    string `xml:"Id,attr"`
	FilePath              string `xml:"FilePath,attr"`
	SourcePath            string `xml:"SourcePath,attr"`
	Packaging             string `xml:"Packaging,attr"` // external|embedded|download
	Container             string `xml:"Container,attr"`
	Hash                  string `xml:"Hash,attr"`
	Size                  int64  `xml:"Size,attr"`
	DownloadURL           string `xml:"DownloadUrl,attr"`
	CatalogID             string `xml:"Catalog,attr"`
	CertificateRootKeyID  string `xml:"CertificateRootKeyId,attr"`
	CertificateThumbprint string `xml:"CertificateThumbprint,attr"`
	LayoutOnly            bool   `xml:"LayoutOnly,attr"`
}

type xmlBoundary struct {
	ID    string `xml:"Id,attr"`
	Vital bool   `xml:"Vital,attr"`
}

type xmlExitCode struct {
	Code   int    `xml:"Code,attr"`
	Action string `xml:"Action,attr"` // none|success|scheduleReboot|error
}

type xmlDependencyProvider struct {
	Key         string `xml:"Key,attr"`
	Version     string `xml:"Version,attr"`
	DisplayName string `xml:"DisplayName,attr"`
	Imported    bool   `xml:"Imported,attr"`
}

type xmlPackage struct {
	ID                       string                  `xml:"Id,attr"`
	Kind                     string                  `xml:"Kind,attr"` // exe|msi|msp|msu
	PerMachine               bool                    `xml:"PerMachine,attr"`
	Permanent                bool                    `xml:"Permanent,attr"`
	Vital                    bool                    `xml:"Vital,attr"`
	CacheID                  string                  `xml:"CacheId,attr"`
	CachePolicy              string                  `xml:"CachePolicy,attr"` // no|yes|always
	InstallSize              int64                   `xml:"InstallSize,attr"`
	Payload                  []string                `xml:"PayloadRef"`
	RollbackBoundaryForward  string                  `xml:"RollbackBoundaryForward,attr"`
	RollbackBoundaryBackward string                  `xml:"RollbackBoundaryBackward,attr"`
	InstallCondition         string                  `xml:"InstallCondition,attr"`
	Provides                 []xmlDependencyProvider `xml:"Provides"`
	ExitCode                 []xmlExitCode           `xml:"ExitCode"`

	// EXE
	DetectCondition   string `xml:"DetectCondition,attr"`
	InstallArguments  string `xml:"InstallArguments,attr"`
	RepairArguments   string `xml:"RepairArguments,attr"`
	UninstallArgs     string `xml:"UninstallArguments,attr"`
	SupportsUninstall bool   `xml:"SupportsUninstall,attr"`

	// MSI
	ProductCode string   `xml:"ProductCode,attr"`
	UpgradeCode []string `xml:"UpgradeCode"`
	Version     string   `xml:"Version,attr"`
	Language    int      `xml:"Language,attr"`

	// MSP
	PatchCode              string `xml:"PatchCode,attr"`
	SlipstreamMSIPackageID string `xml:"SlipstreamMsiPackageId,attr"`

	// MSU
	KBArticleID string `xml:"KBArticleId,attr"`
}

func (x *xmlBundle) toBundle() (*Bundle, error) {
	v, err := variable.ParseVersion(x.Version)
	if err != nil {
		return nil, errors.Wrap(err, "bundle Version")
	}

	b := &Bundle{
		ID:          x.ID,
		Version:     v,
		ProviderKey: x.ProviderKey,
		DisplayName: x.DisplayName,
		PerMachine:  x.PerMachine,
		ParallelCache: x.ParallelCache,
		Codes: RelatedBundleCodes{
			Upgrade: x.UpgradeCode,
			Addon:   x.AddonCode,
			Detect:  x.DetectCode,
			Patch:   x.PatchCode,
		},
		Containers:       map[string]*Container{},
		Payloads:         map[string]*Payload{},
		RollbackBounds:   map[string]*RollbackBoundary{},
		VariableDefaults: map[string]variable.Variant{},
	}

	for _, xv := range x.Variables {
		vv, err := xmlVariableToVariant(xv)
		if err != nil {
			return nil, errors.Wrapf(err, "variable %q", xv.Name)
		}
		b.VariableDefaults[xv.Name] = vv
	}

	for _, xc := range x.Containers {
		c, err := xc.toContainer()
		if err != nil {
			return nil, errors.Wrapf(err, "container %q", xc.ID)
		}
		b.Containers[c.ID] = c
	}

	for _, xp := range x.Payloads {
		p, err := xp.toPayload()
		if err != nil {
			return nil, errors.Wrapf(err, "payload %q", xp.ID)
		}
		b.Payloads[p.ID] = p
	}

	for _, xb := range x.RollbackBoundary {
		b.RollbackBounds[xb.ID] = &RollbackBoundary{ID: xb.ID, Vital: xb.Vital}
	}

	for _, xpkg := range x.Packages {
		pkg, err := xpkg.toPackage()
		if err != nil {
			return nil, errors.Wrapf(err, "package %q", xpkg.ID)
		}
		b.Packages = append(b.Packages, pkg)
	}

	return b, nil
}

func xmlVariableToVariant(xv xmlVariable) (variable.Variant, error) {
	switch xv.Type {
	case "numeric":
		n, err := strconv.ParseInt(xv.Value, 10, 64)
		if err != nil {
			return variable.Variant{}, err
		}
		return variable.NumericVariant(n), nil
	case "version":
		v, err := variable.ParseVersion(xv.Value)
		if err != nil {
			return variable.Variant{}, err
		}
		return variable.VersionVariant(v), nil
	default:
		return variable.StringVariant(xv.Value), nil
	}
}

func (xc xmlContainer) toContainer() (*Container, error) {
	h, err := ParseDigest(xc.Hash)
	if err != nil {
		return nil, err
	}
	return &Container{
		ID:            xc.ID,
		Kind:          ContainerKindArchive,
		Attached:      xc.Attached,
		AttachedIndex: xc.AttachedIndex,
		FilePath:      xc.FilePath,
		SourcePath:    xc.SourcePath,
		Hash:          h,
		Size:          xc.Size,
		DownloadURL:   xc.DownloadURL,
	}, nil
}

func (xp xmlPayload) toPayload() (*Payload, error) {
	h, err := ParseDigest(xp.Hash)
	if err != nil {
		return nil, err
	}
	var kind PackagingKind
	switch xp.Packaging {
	case "embedded":
		kind = PackagingEmbedded
	case "download":
		kind = PackagingDownload
	default:
		kind = PackagingExternal
	}
	return &Payload{
		ID:                    xp.ID,
		FilePath:              xp.FilePath,
		SourcePath:            xp.SourcePath,
		Packaging:             kind,
		ContainerID:           xp.Container,
		Hash:                  h,
		Size:                  xp.Size,
		DownloadURL:           xp.DownloadURL,
		CatalogID:             xp.CatalogID,
		CertificateRootKeyID:  xp.CertificateRootKeyID,
		CertificateThumbprint: xp.CertificateThumbprint,
		LayoutOnly:            xp.LayoutOnly,
	}, nil
}

func parseCachePolicy(s string) CachePolicy {
	switch s {
	case "yes":
		return CachePolicyYes
	case "always":
		return CachePolicyAlways
	default:
		return CachePolicyNo
	}
}

func parseExitCodes(codes []xmlExitCode) map[int]ExitCodeAction {
	m := map[int]ExitCodeAction{}
	for _, c := range codes {
		var a ExitCodeAction
		switch c.Action {
		case "success":
			a = ExitCodeActionSuccess
		case "scheduleReboot":
			a = ExitCodeActionScheduleReboot
		case "error":
			a = ExitCodeActionError
		default:
			a = ExitCodeActionNone
		}
		m[c.Code] = a
	}
	return m
}

func toDependencyProviders(xs []xmlDependencyProvider) ([]DependencyProvider, error) {
	out := make([]DependencyProvider, 0, len(xs))
	for _, x := range xs {
		v, err := variable.ParseVersion(x.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "provider %q version", x.Key)
		}
		out = append(out, DependencyProvider{
			Key:         x.Key,
			Version:     v,
			DisplayName: x.DisplayName,
			Imported:    x.Imported,
		})
	}
	return out, nil
}

func (xpkg xmlPackage) toPackage() (*Package, error) {
	providers, err := toDependencyProviders(xpkg.Provides)
	if err != nil {
		return nil, err
	}

	p := &Package{
		ID:                       xpkg.ID,
		PerMachine:               xpkg.PerMachine,
		Permanent:                xpkg.Permanent,
		Vital:                    xpkg.Vital,
		CacheID:                  xpkg.CacheID,
		CachePolicy:              parseCachePolicy(xpkg.CachePolicy),
		InstallSize:              xpkg.InstallSize,
		Payloads:                 xpkg.Payload,
		DependencyProviders:      providers,
		RollbackBoundaryForward:  xpkg.RollbackBoundaryForward,
		RollbackBoundaryBackward: xpkg.RollbackBoundaryBackward,
		InstallCondition:         xpkg.InstallCondition,
	}

	exitCodes := parseExitCodes(xpkg.ExitCode)

	switch xpkg.Kind {
	case "msi":
		p.Kind = PackageMSI
		v, err := variable.ParseVersion(xpkg.Version)
		if err != nil {
			return nil, errors.Wrap(err, "MSI package Version")
		}
		p.MSI = &MSIPackage{
			ProductCode:  xpkg.ProductCode,
			UpgradeCodes: xpkg.UpgradeCode,
			Version:      v,
			Language:     xpkg.Language,
			ExitCodes:    exitCodes,
		}
	case "msp":
		p.Kind = PackageMSP
		p.MSP = &MSPPackage{
			PatchCode:              xpkg.PatchCode,
			ExitCodes:              exitCodes,
			SlipstreamMSIPackageID: xpkg.SlipstreamMSIPackageID,
		}
	case "msu":
		p.Kind = PackageMSU
		p.MSU = &MSUPackage{KBArticleID: xpkg.KBArticleID, ExitCodes: exitCodes}
	default:
		p.Kind = PackageEXE
		p.EXE = &EXEPackage{
			DetectCondition:   xpkg.DetectCondition,
			InstallArguments:  xpkg.InstallArguments,
			RepairArguments:   xpkg.RepairArguments,
			UninstallArgs:     xpkg.UninstallArgs,
			SupportsUninstall: xpkg.SupportsUninstall,
			ExitCodes:         exitCodes,
		}
	}

	return p, nil
}
