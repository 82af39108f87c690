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

// Package registry implements search.RegistryReader. On non-Windows builds
// there is no registry to probe, so every read reports "not supported"
// rather than fabricating a result.
package registry

import "github.com/chainboot/engine/internal/search"

// Reader is the non-Windows stand-in; every call fails with
// search.ErrUnsupportedPlatform.
type Reader struct{}

// New returns the non-Windows stub Reader.
func New() *Reader { return &Reader{} }

// ReadString implements search.RegistryReader.
func (r *Reader) ReadString(root, key, name string) (string, bool, error) {
	return "", false, search.ErrUnsupportedPlatform
}
