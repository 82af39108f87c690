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

// Package registration persists a bundle's registration record: the
// add/remove-programs-visible fields, dependent-bundle subrecords, resume
// state, and the volatile reboot-pending marker (spec.md §4.6; grounded on
// original_source/src/burn/engine/registration.cpp).
package registration

import (
	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// ResumeMode reports what an interrupted or rebooted bundle should do on
// its next launch (spec.md §4.6).
type ResumeMode int

// Resume modes.
const (
	ResumeNone ResumeMode = iota
	ResumeInterrupted
	ResumeSuspend
	ResumeARP
	ResumeRebootPending
	ResumeInvalid
)

// Record is the bundle's persisted registration record.
type Record struct {
	BundleID              string
	DisplayName           string
	Version               string
	Publisher             string
	ProviderKey           string
	CachePath             string
	UpgradeCodes          []string
	AddonCodes            []string
	DetectCodes           []string
	PatchCodes            []string
	Tag                   string
	EngineVersion         string
	EstimatedSize         int64
	Resume                string // "none", "active", "suspend", "arp"
	ResumeCommandLine     string
	QuietUninstallString  string
	UninstallString       string
	ModifyPath            string
	Installed             bool
	RebootPending         bool
	Dependents            map[string]string // dependent bundle id -> dependent display name
}

// Store persists and retrieves registration records. Implementations:
// internal/registration/regkey (Windows registry) and
// internal/registration/file (YAML document; the store cmd/chainboot uses
// on every platform).
type Store interface {
	// Load reads the record for bundleID, or ok=false if never registered.
	Load(bundleID string) (Record, bool, error)
	// Save writes rec, creating or replacing the existing record.
	Save(rec Record) error
	// Remove deletes the record and its reboot-pending marker.
	Remove(bundleID string) error
	// SetRebootPending arms or disarms the volatile pending-restart marker.
	SetRebootPending(bundleID string, pending bool) error
}

// Resume computes the resume mode to report on startup, per spec.md §4.6:
// presence of the reboot marker takes priority over the persisted resume
// value.
func Resume(rec Record, rebootPending bool) ResumeMode {
	if rebootPending {
		return ResumeRebootPending
	}
	switch rec.Resume {
	case "active":
		return ResumeInterrupted
	case "suspend":
		return ResumeSuspend
	case "arp":
		return ResumeARP
	case "", "none":
		return ResumeNone
	default:
		return ResumeInvalid
	}
}

// ErrNotRegistered is returned by Store implementations that distinguish
// "never registered" from other load failures through a sentinel rather
// than only the boolean return, for callers that want errors.Is.
var ErrNotRegistered = errors.New("registration: bundle is not registered")
