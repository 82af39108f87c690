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

// Package msi implements search.ProductDatabase against the installed MSI
// product registrations under HKLM\...\Installer\UserData, grounded on
// original_source/src/burn/engine/msiengine.cpp's MsiEngineDetectPackage
// product-version lookup (MsiGetProductInfo equivalent).
package msi

import (
	"fmt"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"golang.org/x/sys/windows/registry"

	"github.com/chainboot/engine/internal/search"
	"github.com/chainboot/engine/internal/variable"
)

const installPropertiesPath = `Installer\UserData\S-1-5-18\Products\%s\InstallProperties`

// Database reads MSI product state from the registry, approximating
// MsiGetProductInfo without linking msi.dll.
type Database struct{}

// New returns a Windows-backed product Database.
func New() *Database { return &Database{} }

// ProductVersion implements search.ProductDatabase.
func (d *Database) ProductVersion(productCode string) (variable.Version, bool, error) {
	squashed, err := squash(productCode)
	if err != nil {
		return variable.Version{}, false, err
	}

	k, err := registry.OpenKey(registry.LOCAL_MACHINE, fmt.Sprintf(installPropertiesPath, squashed), registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return variable.Version{}, false, nil //nolint:nilerr // not installed is not an error
	}
	defer k.Close()

	raw, _, err := k.GetIntegerValue("Version")
	if err != nil {
		return variable.Version{}, false, nil //nolint:nilerr // missing value means not installed
	}

	// MSI packs the version into a DWORD as major<<24 | minor<<16 | build.
	v := variable.Version{
		Major: uint16((raw >> 24) & 0xFF),
		Minor: uint16((raw >> 16) & 0xFF),
		Build: uint16(raw & 0xFFFF),
	}
	return v, true, nil
}

// FeatureState implements search.ProductDatabase. The source's own MSI
// feature search is a stub (spec.md §9), so this always reports
// unsupported rather than inventing a feature-state value.
func (d *Database) FeatureState(productCode, feature string) (string, error) {
	return "", search.ErrUnsupportedPlatform
}

// squash converts a GUID in registry-canonical form
// "{AABBCCDD-EEFF-...}" into the compressed form MSI uses as a registry key
// segment, per original_source/src/burn/engine/msiengine.cpp's reliance on
// MsiGetProductInfo for a curated product code, but re-derived here since we
// read the registry directly instead of linking msi.dll.
func squash(productCode string) (string, error) {
	g := []byte(productCode)
	if len(g) != 38 || g[0] != '{' || g[37] != '}' {
		return "", errors.Errorf("msi: product code %q is not a canonical GUID", productCode)
	}
	g = g[1:37]
	reverse := func(b []byte) []byte {
		out := make([]byte, len(b))
		for i := range b {
			out[i] = b[len(b)-1-i]
		}
		return out
	}
	swapPairs := func(b []byte) []byte {
		out := make([]byte, len(b))
		for i := 0; i+1 < len(b); i += 2 {
			out[i], out[i+1] = b[i+1], b[i]
		}
		return out
	}
	var out []byte
	// The 8-4-4 leading groups are written with their characters in reverse
	// order; in the trailing 4-12 groups the two characters of each pair swap.
	fields := splitGUID(g)
	out = append(out, reverse([]byte(fields[0]))...)
	out = append(out, reverse([]byte(fields[1]))...)
	out = append(out, reverse([]byte(fields[2]))...)
	out = append(out, swapPairs([]byte(fields[3]))...)
	out = append(out, swapPairs([]byte(fields[4]))...)
	return string(out), nil
}

func splitGUID(g []byte) [5]string {
	var f [5]string
	f[0] = string(g[0:8])
	f[1] = string(g[9:13])
	f[2] = string(g[14:18])
	f[3] = string(g[19:23])
	f[4] = string(g[24:36])
	return f
}

func reversePairs(b []byte) []byte {
	out := make([]byte, len(b))
	n := len(b) / 2
	for i := 0; i < n; i++ {
		out[i*2], out[i*2+1] = b[len(b)-2-i*2], b[len(b)-1-i*2]
	}
	return out
}
