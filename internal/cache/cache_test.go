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

package cache

import (
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/chainboot/engine/internal/cache/verify"
	"github.com/chainboot/engine/internal/manifest"
)

func testEngine() (*Engine, *Environment) {
	fs := afero.NewMemMapFs()
	env := Initialize(fs, "/machine-cache", "/user-cache", "/work")
	e := NewEngine(env, &verify.Verifier{Fs: fs})
	e.RetryDelay = 0 // tests never want to wait out the real 2s backoff
	return e, env
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile(%q): unexpected error: %v", path, err)
	}
}

func TestResolvePayloadIsDeterministic(t *testing.T) {
	_, env := testEngine()
	p := &manifest.Payload{ID: "pay1"}
	got1 := env.ResolvePayload(p)
	got2 := env.ResolvePayload(p)
	if got1 != got2 {
		t.Errorf("ResolvePayload(...) not deterministic: %q vs %q", got1, got2)
	}
}

func TestCompletePayloadFirstTimeMovesAndVerifies(t *testing.T) {
	e, env := testEngine()
	payload := &manifest.Payload{ID: "pay1", FilePath: "example.msi"}

	workingPath := env.ResolvePayload(payload)
	writeFile(t, env.Fs, workingPath, "contents")

	if err := e.CompletePayload(payload, true, "pkgA-cache", workingPath, true); err != nil {
		t.Fatalf("CompletePayload(...): unexpected error: %v", err)
	}

	finalPath := env.CompletedPackageFolder(true, "pkgA-cache") + "/example.msi"
	if ok, _ := afero.Exists(env.Fs, finalPath); !ok {
		t.Errorf("final cached file %q does not exist", finalPath)
	}
	if ok, _ := afero.Exists(env.Fs, workingPath); ok {
		t.Errorf("working path %q still exists after a move", workingPath)
	}
}

func TestCompletePayloadSecondTimeIsCacheHit(t *testing.T) {
	e, env := testEngine()
	payload := &manifest.Payload{ID: "pay1", FilePath: "example.msi"}

	workingPath := env.ResolvePayload(payload)
	writeFile(t, env.Fs, workingPath, "contents")
	if err := e.CompletePayload(payload, true, "pkgA-cache", workingPath, true); err != nil {
		t.Fatalf("CompletePayload(...) first call: unexpected error: %v", err)
	}

	// A second payload instance pointing at a (now nonexistent) working
	// path should still succeed because the final file already exists and
	// has no verification metadata to contradict it.
	if err := e.CompletePayload(payload, true, "pkgA-cache", workingPath, true); err != nil {
		t.Fatalf("CompletePayload(...) second call (cache hit): unexpected error: %v", err)
	}
}

func TestLayoutPayloadWritesToLayoutDir(t *testing.T) {
	e, env := testEngine()
	payload := &manifest.Payload{ID: "pay1", FilePath: "example.msi"}

	workingPath := env.ResolvePayload(payload)
	writeFile(t, env.Fs, workingPath, "contents")

	if err := e.LayoutPayload(payload, "/layout", workingPath, true); err != nil {
		t.Fatalf("LayoutPayload(...): unexpected error: %v", err)
	}
	if ok, _ := afero.Exists(env.Fs, "/layout/example.msi"); !ok {
		t.Errorf("layout file was not created")
	}
}

func TestStagePayloadHashVerificationFailureDeletesFile(t *testing.T) {
	e, env := testEngine()
	badDigest, _ := manifest.ParseDigest("0000000000000000000000000000000000000000")
	payload := &manifest.Payload{ID: "pay1", FilePath: "example.msi", Hash: badDigest}

	workingPath := env.ResolvePayload(payload)
	writeFile(t, env.Fs, workingPath, "contents")

	_, err := e.StagePayload(payload, workingPath, true, true)
	if err == nil {
		t.Fatalf("StagePayload(...): expected a verification error")
	}

	unverifiedPath := env.PerMachineRoot + "/" + unverifiedDirName + "/pay1"
	if ok, _ := afero.Exists(env.Fs, unverifiedPath); ok {
		t.Errorf("corrupt unverified file %q was not deleted", unverifiedPath)
	}
}

func TestRetryRetriesTransientFailures(t *testing.T) {
	e, _ := testEngine()
	e.RetryDelay = 0

	attempts := 0
	err := e.retry(func() error {
		attempts++
		if attempts < 2 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retry(...): unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryGivesUpAfterConfiguredAttempts(t *testing.T) {
	e, _ := testEngine()
	e.RetryAttempts = 2
	e.RetryDelay = time.Millisecond

	attempts := 0
	err := e.retry(func() error {
		attempts++
		return errTransient
	})
	if err == nil {
		t.Fatalf("retry(...): expected an error after exhausting attempts")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

var errTransient = &transientError{}

type transientError struct{}

func (e *transientError) Error() string { return "transient failure" }
