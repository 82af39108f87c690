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

// Package search runs directory/file/registry/MSI probes to populate the
// variable store before planning (spec.md §2, §4.2; grounded on
// original_source/src/burn/engine/search.cpp).
package search

import (
	"os"
	"path/filepath"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/chainboot/engine/internal/variable"
)

// Kind discriminates a probe's lookup mechanism.
type Kind int

// Probe kinds.
const (
	KindDirectory Kind = iota
	KindFile
	KindRegistry
	KindMSIProductCode
	KindMSIFeature
	KindMSIComponent
)

// Probe is one search to run, writing its result into Variable.
type Probe struct {
	Kind     Kind
	Variable string

	Path string // KindDirectory, KindFile

	RegistryRoot string // "HKLM" or "HKCU"
	RegistryKey  string
	RegistryName string // "" means the key's default value

	ProductCode string // KindMSIProductCode, KindMSIFeature, KindMSIComponent
	FeatureName string // KindMSIFeature
}

// ProductDatabase abstracts MSI product/feature state lookups so search can
// run (and be tested) without a real Windows Installer database. See
// internal/search/msi for the platform implementations.
type ProductDatabase interface {
	// ProductVersion returns the installed version of productCode, or
	// ok=false if it is not installed.
	ProductVersion(productCode string) (v variable.Version, ok bool, err error)
	// FeatureState is deliberately unimplemented on every platform: the
	// source's own MSI feature search is a stub (spec.md §9 Open
	// Questions), so we return ErrUnsupportedPlatform rather than fabricate
	// a result.
	FeatureState(productCode, feature string) (string, error)
}

// ErrUnsupportedPlatform is returned by probes this build cannot perform,
// e.g. registry/MSI probes on a non-Windows build, or any MSI feature
// probe regardless of platform (spec.md §9).
var ErrUnsupportedPlatform = errors.New("search: unsupported on this platform")

// Engine runs probes and writes their results into a variable store.
type Engine struct {
	log logging.Logger
	reg RegistryReader
	db  ProductDatabase
}

// RegistryReader abstracts a single registry value read.
type RegistryReader interface {
	ReadString(root, key, name string) (string, bool, error)
}

// NewEngine constructs a search Engine. reg/db may be nil, in which case
// registry/MSI probes fail with ErrUnsupportedPlatform -- this is the
// default on non-Windows builds (see platform-specific constructors in
// internal/search/msi and internal/search/registry).
func NewEngine(log logging.Logger, reg RegistryReader, db ProductDatabase) *Engine {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Engine{log: log, reg: reg, db: db}
}

// Run executes every probe in order, writing results (or leaving the
// variable unset on a miss) into store. A probe error other than "not
// found" aborts the run -- detect and plan downstream treat search results
// as untrusted input and tolerate unset variables, but not silent partial
// failure.
func (e *Engine) Run(probes []Probe, store *variable.Store) error {
	for _, p := range probes {
		if err := e.runOne(p, store); err != nil {
			return errors.Wrapf(err, "search probe for variable %q", p.Variable)
		}
	}
	return nil
}

func (e *Engine) runOne(p Probe, store *variable.Store) error {
	switch p.Kind {
	case KindDirectory:
		return e.runPathProbe(p, store, true)
	case KindFile:
		return e.runPathProbe(p, store, false)
	case KindRegistry:
		return e.runRegistryProbe(p, store)
	case KindMSIProductCode:
		return e.runMSIProductProbe(p, store)
	case KindMSIFeature:
		return ErrUnsupportedPlatform
	case KindMSIComponent:
		e.log.Debug("msi component search is not supported", "variable", p.Variable)
		return nil
	}
	return errors.Errorf("unknown probe kind %d", p.Kind)
}

func (e *Engine) runPathProbe(p Probe, store *variable.Store, dir bool) error {
	info, err := os.Stat(p.Path)
	switch {
	case os.IsNotExist(err):
		return nil // leave the variable unset
	case err != nil:
		return errors.Wrapf(err, "stat %q", p.Path)
	}
	if info.IsDir() != dir {
		return nil
	}
	abs, err := filepath.Abs(p.Path)
	if err != nil {
		abs = p.Path
	}
	return store.Set(p.Variable, variable.StringVariant(abs), false, false)
}

func (e *Engine) runRegistryProbe(p Probe, store *variable.Store) error {
	if e.reg == nil {
		return ErrUnsupportedPlatform
	}
	val, ok, err := e.reg.ReadString(p.RegistryRoot, p.RegistryKey, p.RegistryName)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return store.Set(p.Variable, variable.StringVariant(val), false, false)
}

func (e *Engine) runMSIProductProbe(p Probe, store *variable.Store) error {
	if e.db == nil {
		return ErrUnsupportedPlatform
	}
	v, ok, err := e.db.ProductVersion(p.ProductCode)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return store.Set(p.Variable, variable.VersionVariant(v), false, false)
}
