//go:build !windows

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
)

// defaultProductDatabase returns nil off Windows: detect.Engine already
// treats a nil database as "no MSI stack available" and reports every MSI
// package absent, which is the correct degradation here too. Wiring
// msi.New() unconditionally would work as well now that detectMSI handles
// search.ErrUnsupportedPlatform, but staying with nil avoids constructing a
// stub database that can never answer a real query on this platform.
func defaultProductDatabase() search.ProductDatabase { return nil }

// defaultCacheRoot mirrors Burn's per-user package cache convention using
// this platform's user cache directory.
func defaultCacheRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "chainboot", "Package Cache")
	}
	return ".chainboot-cache"
}
