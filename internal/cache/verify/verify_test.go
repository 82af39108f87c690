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

package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/chainboot/engine/internal/manifest"
)

type fakeAuthenticode struct {
	ok  bool
	err error
}

func (f fakeAuthenticode) Verify(path, rootKeyID, thumbprint string) (bool, error) {
	return f.ok, f.err
}

type fakeCatalog struct {
	ok  bool
	err error
}

func (f fakeCatalog) Verify(catalogID, path string) (bool, error) {
	return f.ok, f.err
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: unexpected error: %v", err)
	}
	return path
}

func TestVerifyPayloadPrefersAuthenticodeOverHash(t *testing.T) {
	path := writeTempFile(t, "payload")
	digest, err := manifest.ParseDigest("0000000000000000000000000000000000000000") // intentionally wrong
	if err != nil {
		t.Fatalf("ParseDigest: unexpected error: %v", err)
	}
	payload := &manifest.Payload{CertificateRootKeyID: "root", Hash: digest}

	v := &Verifier{Authenticode: fakeAuthenticode{ok: true}}
	got, err := v.VerifyPayload(payload, path)
	if err != nil {
		t.Fatalf("VerifyPayload(...): unexpected error: %v", err)
	}
	if got.Method != "authenticode" || !got.OK {
		t.Errorf("VerifyPayload(...) = %+v, want method=authenticode ok=true", got)
	}
}

func TestVerifyPayloadFallsBackToCatalog(t *testing.T) {
	path := writeTempFile(t, "payload")
	payload := &manifest.Payload{CatalogID: "cat1"}

	v := &Verifier{Catalog: fakeCatalog{ok: true}}
	got, err := v.VerifyPayload(payload, path)
	if err != nil {
		t.Fatalf("VerifyPayload(...): unexpected error: %v", err)
	}
	if got.Method != "catalog" || !got.OK {
		t.Errorf("VerifyPayload(...) = %+v, want method=catalog ok=true", got)
	}
}

func TestVerifyPayloadFallsBackToHash(t *testing.T) {
	path := writeTempFile(t, "payload")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	digest, err := manifest.HashFile(f)
	f.Close()
	if err != nil {
		t.Fatalf("HashFile: unexpected error: %v", err)
	}
	payload := &manifest.Payload{Hash: digest}

	v := &Verifier{}
	got, err := v.VerifyPayload(payload, path)
	if err != nil {
		t.Fatalf("VerifyPayload(...): unexpected error: %v", err)
	}
	if got.Method != "hash" || !got.OK {
		t.Errorf("VerifyPayload(...) = %+v, want method=hash ok=true", got)
	}
}

func TestVerifyPayloadHashMismatch(t *testing.T) {
	path := writeTempFile(t, "payload")
	badDigest, _ := manifest.ParseDigest("0000000000000000000000000000000000000000")
	payload := &manifest.Payload{Hash: badDigest}

	v := &Verifier{}
	got, err := v.VerifyPayload(payload, path)
	if err != nil {
		t.Fatalf("VerifyPayload(...): unexpected error: %v", err)
	}
	if got.OK {
		t.Errorf("VerifyPayload(...).OK = true, want false for a mismatched hash")
	}
}

func TestVerifyPayloadHashReadsThroughConfiguredFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/staged/payload.bin"
	if err := afero.WriteFile(fs, path, []byte("payload"), 0o600); err != nil {
		t.Fatalf("WriteFile: unexpected error: %v", err)
	}
	f, err := fs.Open(path)
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	digest, err := manifest.HashFile(f)
	f.Close()
	if err != nil {
		t.Fatalf("HashFile: unexpected error: %v", err)
	}
	payload := &manifest.Payload{Hash: digest}

	v := &Verifier{Fs: fs}
	got, err := v.VerifyPayload(payload, path)
	if err != nil {
		t.Fatalf("VerifyPayload(...): unexpected error: %v", err)
	}
	if got.Method != "hash" || !got.OK {
		t.Errorf("VerifyPayload(...) = %+v, want method=hash ok=true", got)
	}

	// A path that only exists on the real filesystem must not be found
	// through the configured afero.Fs: this is the case StagePayload hits
	// when a payload is staged purely in-memory.
	realPath := writeTempFile(t, "payload")
	if _, err := (&Verifier{Fs: fs}).VerifyPayload(payload, realPath); err == nil {
		t.Errorf("VerifyPayload(...) with a path absent from the configured Fs: expected an error")
	}
}

func TestVerifyPayloadNoMetadataPasses(t *testing.T) {
	path := writeTempFile(t, "payload")
	v := &Verifier{}
	got, err := v.VerifyPayload(&manifest.Payload{}, path)
	if err != nil {
		t.Fatalf("VerifyPayload(...): unexpected error: %v", err)
	}
	if got.Method != "none" || !got.OK {
		t.Errorf("VerifyPayload(...) = %+v, want method=none ok=true", got)
	}
}
