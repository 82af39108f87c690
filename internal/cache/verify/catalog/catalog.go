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

// Package catalog implements verify.CatalogVerifier. Catalog-based
// signature verification (Windows SetupAPI catalog hashing) has no
// cross-platform analog; every build reports it unsupported rather than
// fabricating a pass (spec.md §9-style treatment, mirroring the
// msi-feature and MSI-product-database Open Question decisions).
package catalog

import "github.com/chainboot/engine/internal/search"

// Verifier is the catalog verifier. Real catalog hashing against
// Windows SetupAPI is out of scope (SPEC_FULL.md DESIGN.md records why);
// it always reports ErrUnsupportedPlatform rather than silently trusting an
// unchecked file. VerifyPayload returns that error for a payload that reaches
// the catalog step; it does not fall back to the payload's hash.
type Verifier struct{}

// New returns a Verifier.
func New() *Verifier { return &Verifier{} }

// Verify implements verify.CatalogVerifier.
func (v *Verifier) Verify(catalogID, path string) (bool, error) {
	return false, search.ErrUnsupportedPlatform
}
