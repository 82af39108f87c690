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

// Package authenticode implements verify.AuthenticodeVerifier using the
// certificate chain extracted from a PKCS#7 signed-data blob, matching
// payloads against a required SHA-1 public-key identifier and optional
// thumbprint (spec.md §4.1). It uses sigstore's cryptoutils for the
// SHA-1-of-public-key computation rather than hand-rolling DER encoding.
package authenticode

import (
	"crypto/sha1" //nolint:gosec // spec-mandated identifier algorithm, not a security choice.
	"crypto/x509"
	"encoding/hex"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
)

// ChainSource extracts the certificate chain embedded in a signed file.
// Parsing the Windows Authenticode PE/MSI signature container itself is a
// platform-specific concern (SPEC_FULL.md DESIGN.md); callers supply a
// ChainSource appropriate to the platform, or omit Authenticode
// verification entirely (it is the first-preference method, not the only
// one, per spec.md §4.1).
type ChainSource interface {
	CertificateChain(path string) ([]*x509.Certificate, error)
}

// Verifier matches a signed file's certificate chain against a required
// SHA-1 public-key identifier and optional SHA-1 thumbprint.
type Verifier struct {
	Chain ChainSource
}

// Verify implements verify.AuthenticodeVerifier.
func (v *Verifier) Verify(path, rootKeyID, thumbprint string) (bool, error) {
	if v.Chain == nil {
		return false, errors.New("authenticode: no certificate chain source configured")
	}
	chain, err := v.Chain.CertificateChain(path)
	if err != nil {
		return false, errors.Wrapf(err, "extract certificate chain from %q", path)
	}

	for _, cert := range chain {
		keyID, err := publicKeySHA1Hex(cert)
		if err != nil {
			return false, err
		}
		if keyID != rootKeyID {
			continue
		}
		if thumbprint == "" {
			return true, nil
		}
		if certificateThumbprintHex(cert) == thumbprint {
			return true, nil
		}
	}
	return false, nil
}

func publicKeySHA1Hex(cert *x509.Certificate) (string, error) {
	der, err := cryptoutils.MarshalPublicKeyToDER(cert.PublicKey)
	if err != nil {
		return "", errors.Wrap(err, "marshal certificate public key")
	}
	h := sha1.New() //nolint:gosec // see package doc.
	h.Write(der)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func certificateThumbprintHex(cert *x509.Certificate) string {
	h := sha1.New() //nolint:gosec // matches the Authenticode SHA-1 thumbprint convention spec.md §4.1 names.
	h.Write(cert.Raw)
	return hex.EncodeToString(h.Sum(nil))
}
