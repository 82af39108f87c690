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

// Package verify implements payload/container content verification in the
// preference order spec.md §4.1 describes: Authenticode signature chain,
// then catalog signature, then plain hash (grounded on
// original_source/src/burn/engine/cache.cpp's CacheVerifyPayloadSignature).
package verify

import (
	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/spf13/afero"

	"github.com/chainboot/engine/internal/manifest"
)

// Result records which verification method was applied and whether it
// passed.
type Result struct {
	Method string // "authenticode", "catalog", "hash"
	OK     bool
}

// CatalogVerifier validates a file's catalog hash against a catalog
// signature. Implementations are platform-gated (internal/cache/verify/catalog).
type CatalogVerifier interface {
	Verify(catalogID, path string) (bool, error)
}

// AuthenticodeVerifier validates a file's embedded Authenticode signature
// chain against a required certificate SHA-1 public-key identifier and
// optional thumbprint. Implementations are platform-gated
// (internal/cache/verify/authenticode).
type AuthenticodeVerifier interface {
	Verify(path, rootKeyID, thumbprint string) (bool, error)
}

// Verifier runs payload verification per spec.md §4.1's preference order.
type Verifier struct {
	Authenticode AuthenticodeVerifier
	Catalog      CatalogVerifier

	// Fs is the filesystem hash verification reads staged payloads from --
	// the same afero.Fs the cache engine stages them onto, so verification
	// sees an in-memory payload in tests instead of failing to find it on
	// the real disk. Defaults to afero.NewOsFs() when nil.
	Fs afero.Fs
}

func (v *Verifier) fs() afero.Fs {
	if v.Fs != nil {
		return v.Fs
	}
	return afero.NewOsFs()
}

// VerifyPayload verifies path against payload's declared verification
// metadata, preferring (a) Authenticode, (b) catalog, (c) hash, in that
// order, per spec.md §4.1.
func (v *Verifier) VerifyPayload(payload *manifest.Payload, path string) (Result, error) {
	if payload.CertificateRootKeyID != "" {
		if v.Authenticode == nil {
			return Result{Method: "authenticode"}, errors.New("verify: no Authenticode verifier configured")
		}
		ok, err := v.Authenticode.Verify(path, payload.CertificateRootKeyID, payload.CertificateThumbprint)
		if err != nil {
			return Result{Method: "authenticode"}, errors.Wrapf(err, "verify Authenticode signature for %q", path)
		}
		return Result{Method: "authenticode", OK: ok}, nil
	}

	if payload.CatalogID != "" {
		if v.Catalog == nil {
			return Result{Method: "catalog"}, errors.New("verify: no catalog verifier configured")
		}
		ok, err := v.Catalog.Verify(payload.CatalogID, path)
		if err != nil {
			return Result{Method: "catalog"}, errors.Wrapf(err, "verify catalog signature for %q", path)
		}
		return Result{Method: "catalog", OK: ok}, nil
	}

	if !payload.Hash.IsZero() {
		ok, err := v.verifyHash(path, payload.Hash)
		if err != nil {
			return Result{Method: "hash"}, err
		}
		return Result{Method: "hash", OK: ok}, nil
	}

	// No verification metadata at all: nothing to check against.
	return Result{Method: "none", OK: true}, nil
}

func (v *Verifier) verifyHash(path string, want manifest.Digest) (bool, error) {
	f, err := v.fs().Open(path)
	if err != nil {
		return false, errors.Wrapf(err, "open %q for hashing", path)
	}
	defer f.Close()

	got, err := manifest.HashFile(f)
	if err != nil {
		return false, err
	}
	return got.String() == want.String(), nil
}
