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

package manifest

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is the hash algorithm the bundle format specifies (spec.md §4.1), not a security choice we're free to change.
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	ociv1 "github.com/google/go-containerregistry/pkg/v1"
)

// Digest is a content hash, represented with the teacher's content-addressed
// store's "alg:hex" Hash type (google/go-containerregistry/pkg/v1.Hash)
// rather than a bespoke string -- it already formats and compares the way
// the cache engine needs, and the teacher's own package cache
// (internal/oci/store) uses exactly this type for the same purpose. Its own
// parser (ociv1.NewHash) accepts only sha256, so SHA-1 values are built
// field by field here.
type Digest struct {
	ociv1.Hash
}

// ParseDigest parses a hex-only SHA-1 string (as spec.md §3 Payload/Container
// Hash fields are given) into a Digest using the "sha1:" algorithm prefix.
func ParseDigest(hexDigest string) (Digest, error) {
	if hexDigest == "" {
		return Digest{}, nil
	}
	lower := strings.ToLower(hexDigest)
	if _, err := hex.DecodeString(lower); err != nil || len(lower) != 2*sha1.Size {
		return Digest{}, errors.Errorf("invalid hash %q", hexDigest)
	}
	return Digest{Hash: ociv1.Hash{Algorithm: "sha1", Hex: lower}}, nil
}

// IsZero reports whether the digest carries no hash (the payload has no
// declared hash and must rely on catalog or Authenticode verification).
func (d Digest) IsZero() bool { return d.Hash.Algorithm == "" }

// HashFile computes the SHA-1 digest of r's full contents.
func HashFile(r io.Reader) (Digest, error) {
	h := sha1.New() //nolint:gosec // see the package-level note above.
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, errors.Wrap(err, "cannot hash payload")
	}
	return Digest{Hash: ociv1.Hash{Algorithm: "sha1", Hex: fmt.Sprintf("%x", h.Sum(nil))}}, nil
}
