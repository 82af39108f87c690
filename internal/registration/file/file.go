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

// Package file implements registration.Store as a YAML document on disk,
// using the same spf13/afero filesystem abstraction the cache engine uses
// so tests never touch the real filesystem. This is the store cmd/chainboot
// uses on every platform, "chainboot layout" included (SPEC_FULL.md §4.6).
package file

import (
	"os"
	"path/filepath"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/chainboot/engine/internal/registration"
)

// document is the on-disk shape of the store: one record per bundle id,
// the same document serving every bundle sharing a cache root.
type document struct {
	Bundles map[string]record `json:"bundles"`
}

type record struct {
	DisplayName          string            `json:"displayName"`
	Version              string            `json:"version"`
	Publisher            string            `json:"publisher,omitempty"`
	ProviderKey          string            `json:"providerKey"`
	CachePath            string            `json:"cachePath"`
	UpgradeCodes         []string          `json:"upgradeCodes,omitempty"`
	AddonCodes           []string          `json:"addonCodes,omitempty"`
	DetectCodes          []string          `json:"detectCodes,omitempty"`
	PatchCodes           []string          `json:"patchCodes,omitempty"`
	Tag                  string            `json:"tag,omitempty"`
	EngineVersion        string            `json:"engineVersion,omitempty"`
	EstimatedSize        int64             `json:"estimatedSize,omitempty"`
	Resume               string            `json:"resume,omitempty"`
	ResumeCommandLine    string            `json:"resumeCommandLine,omitempty"`
	QuietUninstallString string            `json:"quietUninstallString,omitempty"`
	UninstallString      string            `json:"uninstallString,omitempty"`
	ModifyPath           string            `json:"modifyPath,omitempty"`
	Installed            bool              `json:"installed"`
	RebootPending        bool              `json:"rebootPending,omitempty"`
	Dependents           map[string]string `json:"dependents,omitempty"`
}

// Store is a YAML-document-backed registration.Store.
type Store struct {
	fs   afero.Fs
	path string
}

// New returns a Store persisting its document at path on fs.
func New(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

func (s *Store) load() (document, error) {
	doc := document{Bundles: map[string]record{}}
	b, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, errors.Wrapf(err, "read registration document %q", s.path)
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return doc, errors.Wrapf(err, "parse registration document %q", s.path)
	}
	if doc.Bundles == nil {
		doc.Bundles = map[string]record{}
	}
	return doc, nil
}

func (s *Store) save(doc document) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "marshal registration document")
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "create registration directory for %q", s.path)
	}
	if err := afero.WriteFile(s.fs, s.path, b, 0o600); err != nil {
		return errors.Wrapf(err, "write registration document %q", s.path)
	}
	return nil
}

// Load implements registration.Store.
func (s *Store) Load(bundleID string) (registration.Record, bool, error) {
	doc, err := s.load()
	if err != nil {
		return registration.Record{}, false, err
	}
	rec, ok := doc.Bundles[bundleID]
	if !ok {
		return registration.Record{}, false, nil
	}
	return toPublic(bundleID, rec), true, nil
}

// Save implements registration.Store.
func (s *Store) Save(rec registration.Record) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Bundles[rec.BundleID] = fromPublic(rec)
	return s.save(doc)
}

// List implements detect.RelatedBundleSource, returning every registered
// bundle's record so the caller can cross-classify them against the
// current bundle's codes (spec.md §4.2).
func (s *Store) List() ([]registration.Record, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]registration.Record, 0, len(doc.Bundles))
	for id, r := range doc.Bundles {
		out = append(out, toPublic(id, r))
	}
	return out, nil
}

// Remove implements registration.Store.
func (s *Store) Remove(bundleID string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	delete(doc.Bundles, bundleID)
	return s.save(doc)
}

// SetRebootPending implements registration.Store.
func (s *Store) SetRebootPending(bundleID string, pending bool) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	rec, ok := doc.Bundles[bundleID]
	if !ok {
		return errors.Wrapf(registration.ErrNotRegistered, "bundle %q", bundleID)
	}
	rec.RebootPending = pending
	doc.Bundles[bundleID] = rec
	return s.save(doc)
}

func toPublic(bundleID string, r record) registration.Record {
	return registration.Record{
		BundleID:              bundleID,
		DisplayName:           r.DisplayName,
		Version:               r.Version,
		Publisher:             r.Publisher,
		ProviderKey:           r.ProviderKey,
		CachePath:             r.CachePath,
		UpgradeCodes:          r.UpgradeCodes,
		AddonCodes:            r.AddonCodes,
		DetectCodes:           r.DetectCodes,
		PatchCodes:            r.PatchCodes,
		Tag:                   r.Tag,
		EngineVersion:         r.EngineVersion,
		EstimatedSize:         r.EstimatedSize,
		Resume:                r.Resume,
		ResumeCommandLine:     r.ResumeCommandLine,
		QuietUninstallString:  r.QuietUninstallString,
		UninstallString:       r.UninstallString,
		ModifyPath:            r.ModifyPath,
		Installed:             r.Installed,
		RebootPending:         r.RebootPending,
		Dependents:            r.Dependents,
	}
}

func fromPublic(rec registration.Record) record {
	return record{
		DisplayName:           rec.DisplayName,
		Version:               rec.Version,
		Publisher:             rec.Publisher,
		ProviderKey:           rec.ProviderKey,
		CachePath:             rec.CachePath,
		UpgradeCodes:          rec.UpgradeCodes,
		AddonCodes:            rec.AddonCodes,
		DetectCodes:           rec.DetectCodes,
		PatchCodes:            rec.PatchCodes,
		Tag:                   rec.Tag,
		EngineVersion:         rec.EngineVersion,
		EstimatedSize:         rec.EstimatedSize,
		Resume:                rec.Resume,
		ResumeCommandLine:     rec.ResumeCommandLine,
		QuietUninstallString:  rec.QuietUninstallString,
		UninstallString:       rec.UninstallString,
		ModifyPath:            rec.ModifyPath,
		Installed:             rec.Installed,
		RebootPending:         rec.RebootPending,
		Dependents:            rec.Dependents,
	}
}
