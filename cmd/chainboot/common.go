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

package main

import (
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/chainboot/engine/internal/ba"
	"github.com/chainboot/engine/internal/cache"
	"github.com/chainboot/engine/internal/cache/verify"
	"github.com/chainboot/engine/internal/cache/verify/catalog"
	"github.com/chainboot/engine/internal/detect"
	"github.com/chainboot/engine/internal/engine"
	"github.com/chainboot/engine/internal/manifest"
	"github.com/chainboot/engine/internal/registration/file"
	"github.com/chainboot/engine/internal/variable"
)

// commonFlags is embedded into every user-facing action command, covering
// the switches spec.md §6 lists outside the action override itself.
type commonFlags struct {
	Manifest string `arg:"" help:"Path to the bundle manifest XML file." type:"existingfile"`

	CacheRoot string `default:"${default_cache_root}" type:"path" help:"Root folder holding the per-machine and per-user package caches, the working folder and the registration file."`

	IgnoreDependencies string `name:"ignoredependencies" help:"Semicolon-separated dependency keys to suppress dependency-provider checks for."`
	Ancestors          string `help:"Semicolon-separated ancestor bundle ids, joined with this bundle's id when launching related bundles."`

	Quiet   bool `help:"Run unattended with no UI at all."`
	Passive bool `help:"Run unattended, showing progress but no prompts."`

	GraphOut string `name:"graph" optional:"" type:"path" help:"Write a Graphviz dot rendering of the resolved plan to this path, for diagnostics."`
}

// ignoredDependencies splits the -ignoredependencies switch's value.
func (f *commonFlags) ignoredDependencies() []string { return splitSemicolons(f.IgnoreDependencies) }

// ancestorIDs splits the -ancestors switch's value.
func (f *commonFlags) ancestorIDs() []string { return splitSemicolons(f.Ancestors) }

func splitSemicolons(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envVariableOverrides scans the process environment for CHAINBOOT_-prefixed
// variables and turns them into string Variants, keyed by the bundle
// variable name that follows the prefix. These take precedence over the
// manifest's own declared defaults (spec.md §6 "CLI/environment overrides").
func envVariableOverrides() map[string]variable.Variant {
	const prefix = "CHAINBOOT_"
	overrides := map[string]variable.Variant{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		overrides[strings.TrimPrefix(name, prefix)] = variable.StringVariant(value)
	}
	return overrides
}

// buildEngine parses the manifest and wires every collaborator package
// into an *engine.Engine, using the real filesystem, the file-backed
// registration store under CacheRoot on every platform, and (on Windows)
// the real MSI product database.
func (f *commonFlags) buildEngine(log logging.Logger) (*engine.Engine, *manifest.Bundle, error) {
	manifestFile, err := os.Open(f.Manifest)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open manifest %q", f.Manifest)
	}
	defer manifestFile.Close()

	bundle, err := manifest.Parse(manifestFile)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parse manifest %q", f.Manifest)
	}

	if overrides := envVariableOverrides(); len(overrides) > 0 {
		if err := mergo.Merge(&bundle.VariableDefaults, overrides, mergo.WithOverride); err != nil {
			return nil, nil, errors.Wrap(err, "merge environment variable overrides")
		}
	}

	store, err := variable.New()
	if err != nil {
		return nil, nil, errors.Wrap(err, "create variable store")
	}
	for name, v := range bundle.VariableDefaults {
		if err := store.Set(name, v, false, false); err != nil {
			return nil, nil, errors.Wrapf(err, "set default variable %q", name)
		}
	}

	fs := afero.NewOsFs()
	// Each launch gets its own working folder: spec.md §5 requires per-bundle
	// serialization of shared cache resources, and two overlapping launches of
	// the same bundle sharing one static folder would race on it.
	workingFolder := filepath.Join(f.CacheRoot, "working", uuid.NewString())
	env := cache.Initialize(fs, filepath.Join(f.CacheRoot, "permachine"), filepath.Join(f.CacheRoot, "peruser"), workingFolder)
	cacheEngine := cache.NewEngine(env, &verify.Verifier{Catalog: catalog.New(), Fs: fs})

	regStore := file.New(fs, filepath.Join(f.CacheRoot, "registration.yaml"))

	detectEngine := detect.NewEngine(defaultProductDatabase(), regStore)

	host := ba.Host(ba.NopHost{})
	e := engine.New(bundle, store, regStore, detectEngine, cacheEngine, host, log)
	return e, bundle, nil
}
