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

package main

import (
	"os"
	"path/filepath"

	"github.com/chainboot/engine/internal/search"
	"github.com/chainboot/engine/internal/search/msi"
)

// defaultProductDatabase returns the real MSI product database on Windows.
func defaultProductDatabase() search.ProductDatabase { return msi.New() }

// defaultCacheRoot matches Burn's per-user package cache convention,
// %LocalAppData%\Package Cache, falling back to a relative path if the
// environment variable is unset.
func defaultCacheRoot() string {
	if base := os.Getenv("LOCALAPPDATA"); base != "" {
		return filepath.Join(base, "Package Cache")
	}
	return "Package Cache"
}
