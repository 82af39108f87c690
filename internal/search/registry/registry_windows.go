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

// Package registry implements search.RegistryReader against the real
// Windows registry, grounded on
// original_source/src/burn/engine/registration.cpp's registry probing and
// adapted to golang.org/x/sys/windows/registry (used the same way by the
// pack's giantswarm-muster repo for its own platform probes).
package registry

import (
	stderrors "errors"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"golang.org/x/sys/windows/registry"
)

// Reader reads string values from HKLM/HKCU.
type Reader struct{}

// New returns a Windows-backed registry Reader.
func New() *Reader { return &Reader{} }

// ReadString implements search.RegistryReader.
func (r *Reader) ReadString(root, key, name string) (string, bool, error) {
	var hive registry.Key
	switch root {
	case "HKLM":
		hive = registry.LOCAL_MACHINE
	case "HKCU":
		hive = registry.CURRENT_USER
	default:
		return "", false, errors.Errorf("registry: unknown root %q", root)
	}

	k, err := registry.OpenKey(hive, key, registry.QUERY_VALUE|registry.WOW64_64KEY)
	if stderrors.Is(err, registry.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "open registry key %s\\%s", root, key)
	}
	defer k.Close()

	val, _, err := k.GetStringValue(name)
	if stderrors.Is(err, registry.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "read registry value %s\\%s!%s", root, key, name)
	}
	return val, true, nil
}
