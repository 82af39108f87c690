//go:build windows

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

// Package regkey implements registration.Store against the real Windows
// registry Uninstall key, grounded on
// original_source/src/burn/engine/registration.cpp's RegistrationSessionBegin
// and the value list in spec.md §6 ("Persisted layout").
package regkey

import (
	"fmt"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"golang.org/x/sys/windows/registry"

	"github.com/chainboot/engine/internal/registration"
)

const uninstallKeyFormat = `Software\Microsoft\Windows\CurrentVersion\Uninstall\%s`

// Store is a Windows registry-backed registration.Store.
type Store struct {
	// Hive is registry.LOCAL_MACHINE for a per-machine bundle or
	// registry.CURRENT_USER otherwise (spec.md §4.6).
	Hive registry.Key
}

// New returns a registry-backed Store rooted at hive.
func New(hive registry.Key) *Store { return &Store{Hive: hive} }

func (s *Store) keyPath(bundleID string) string {
	return fmt.Sprintf(uninstallKeyFormat, bundleID)
}

// Load implements registration.Store.
func (s *Store) Load(bundleID string) (registration.Record, bool, error) {
	k, err := registry.OpenKey(s.Hive, s.keyPath(bundleID), registry.QUERY_VALUE)
	if err != nil {
		return registration.Record{}, false, nil //nolint:nilerr // not registered is not an error
	}
	defer k.Close()

	rec := registration.Record{BundleID: bundleID}
	rec.DisplayName, _, _ = k.GetStringValue("DisplayName")
	rec.Version, _, _ = k.GetStringValue("DisplayVersion")
	rec.Publisher, _, _ = k.GetStringValue("Publisher")
	rec.ProviderKey, _, _ = k.GetStringValue("BundleProviderKey")
	rec.CachePath, _, _ = k.GetStringValue("BundleCachePath")
	rec.Tag, _, _ = k.GetStringValue("BundleTag")
	rec.EngineVersion, _, _ = k.GetStringValue("EngineVersion")
	rec.Resume, _, _ = k.GetStringValue("Resume")
	rec.ResumeCommandLine, _, _ = k.GetStringValue("BundleResumeCommandLine")
	rec.QuietUninstallString, _, _ = k.GetStringValue("QuietUninstallString")
	rec.UninstallString, _, _ = k.GetStringValue("UninstallString")
	rec.ModifyPath, _, _ = k.GetStringValue("ModifyPath")
	rec.UpgradeCodes = readMultiSZ(k, "BundleUpgradeCode")
	rec.AddonCodes = readMultiSZ(k, "BundleAddonCode")
	rec.DetectCodes = readMultiSZ(k, "BundleDetectCode")
	rec.PatchCodes = readMultiSZ(k, "BundlePatchCode")
	if size, _, err := k.GetIntegerValue("EstimatedSize"); err == nil {
		rec.EstimatedSize = int64(size)
	}
	if installed, _, err := k.GetIntegerValue("Installed"); err == nil {
		rec.Installed = installed != 0
	}

	_, rebootErr := registry.OpenKey(s.Hive, s.keyPath(bundleID)+".RebootRequired", registry.QUERY_VALUE)
	rec.RebootPending = rebootErr == nil

	rec.Dependents = map[string]string{}
	depKey, err := registry.OpenKey(s.Hive, s.keyPath(bundleID)+`\Dependents`, registry.ENUMERATE_SUB_KEYS)
	if err == nil {
		defer depKey.Close()
		names, _ := depKey.ReadSubKeyNames(-1)
		for _, name := range names {
			sub, err := registry.OpenKey(depKey, name, registry.QUERY_VALUE)
			if err != nil {
				continue
			}
			display, _, _ := sub.GetStringValue("DisplayName")
			rec.Dependents[name] = display
			sub.Close()
		}
	}

	return rec, true, nil
}

// Save implements registration.Store.
func (s *Store) Save(rec registration.Record) error {
	k, _, err := registry.CreateKey(s.Hive, s.keyPath(rec.BundleID), registry.SET_VALUE)
	if err != nil {
		return errors.Wrapf(err, "create registration key for bundle %q", rec.BundleID)
	}
	defer k.Close()

	setString(k, "DisplayName", rec.DisplayName)
	setString(k, "DisplayVersion", rec.Version)
	setString(k, "Publisher", rec.Publisher)
	setString(k, "BundleProviderKey", rec.ProviderKey)
	setString(k, "BundleCachePath", rec.CachePath)
	setString(k, "BundleTag", rec.Tag)
	setString(k, "EngineVersion", rec.EngineVersion)
	setString(k, "Resume", rec.Resume)
	setString(k, "BundleResumeCommandLine", rec.ResumeCommandLine)
	setString(k, "QuietUninstallString", rec.QuietUninstallString)
	setString(k, "UninstallString", rec.UninstallString)
	setString(k, "ModifyPath", rec.ModifyPath)
	_ = k.SetStringsValue("BundleUpgradeCode", rec.UpgradeCodes)
	_ = k.SetStringsValue("BundleAddonCode", rec.AddonCodes)
	_ = k.SetStringsValue("BundleDetectCode", rec.DetectCodes)
	_ = k.SetStringsValue("BundlePatchCode", rec.PatchCodes)
	_ = k.SetQWordValue("EstimatedSize", uint64(rec.EstimatedSize))
	if rec.Installed {
		_ = k.SetDWordValue("Installed", 1)
	} else {
		_ = k.SetDWordValue("Installed", 0)
	}

	for id, display := range rec.Dependents {
		sub, _, err := registry.CreateKey(s.Hive, s.keyPath(rec.BundleID)+`\Dependents\`+id, registry.SET_VALUE)
		if err != nil {
			continue
		}
		setString(sub, "DisplayName", display)
		sub.Close()
	}

	return nil
}

// Remove implements registration.Store.
func (s *Store) Remove(bundleID string) error {
	if err := registry.DeleteKey(s.Hive, s.keyPath(bundleID)+".RebootRequired"); err != nil && !strings.Contains(err.Error(), "cannot find") {
		return errors.Wrapf(err, "remove reboot marker for bundle %q", bundleID)
	}
	if err := deleteKeyRecursive(s.Hive, s.keyPath(bundleID)); err != nil {
		return errors.Wrapf(err, "remove registration key for bundle %q", bundleID)
	}
	return nil
}

// SetRebootPending implements registration.Store.
func (s *Store) SetRebootPending(bundleID string, pending bool) error {
	path := s.keyPath(bundleID) + ".RebootRequired"
	if !pending {
		err := registry.DeleteKey(s.Hive, path)
		if err != nil && !strings.Contains(err.Error(), "cannot find") {
			return errors.Wrapf(err, "clear reboot marker for bundle %q", bundleID)
		}
		return nil
	}
	k, _, err := registry.CreateKey(s.Hive, path, registry.SET_VALUE)
	if err != nil {
		return errors.Wrapf(err, "arm reboot marker for bundle %q", bundleID)
	}
	defer k.Close()
	return nil
}

func setString(k registry.Key, name, val string) {
	if val == "" {
		return
	}
	_ = k.SetStringValue(name, val)
}

func readMultiSZ(k registry.Key, name string) []string {
	vals, _, err := k.GetStringsValue(name)
	if err != nil {
		return nil
	}
	return vals
}

func deleteKeyRecursive(hive registry.Key, path string) error {
	k, err := registry.OpenKey(hive, path, registry.ENUMERATE_SUB_KEYS)
	if err == nil {
		names, _ := k.ReadSubKeyNames(-1)
		k.Close()
		for _, name := range names {
			if err := deleteKeyRecursive(hive, path+`\`+name); err != nil {
				return err
			}
		}
	}
	return registry.DeleteKey(hive, path)
}
