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

// Package cache implements the content-addressed package cache: path
// resolution, acquisition, verification, and atomic placement of payloads
// and containers into their completed cache location (spec.md §4.1;
// grounded on original_source/src/burn/engine/cache.cpp).
package cache

import (
	"io"
	"path/filepath"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/spf13/afero"

	"github.com/chainboot/engine/internal/cache/acl"
	"github.com/chainboot/engine/internal/cache/verify"
	"github.com/chainboot/engine/internal/manifest"
)

// Environment holds the process-wide cache roots and working folder,
// constructed once by Initialize and torn down by Uninitialize -- a struct
// rather than package-level globals so multiple engines (and tests) can
// run in the same process without cross-talk (SPEC_FULL.md §5).
type Environment struct {
	Fs afero.Fs

	PerMachineRoot string
	PerUserRoot    string
	// RedirectedPerMachineRoot, if set, is where new per-machine writes go
	// when administrative policy has redirected the default root; the old
	// PerMachineRoot is still consulted for lookups (spec.md §4.1
	// "Fallback").
	RedirectedPerMachineRoot string

	WorkingFolder string
}

const unverifiedDirName = ".unverified"

// Initialize constructs an Environment. In production fs is
// afero.NewOsFs() and the roots/working folder are real paths under
// %ProgramData%/%LOCALAPPDATA%/%TEMP%; tests pass afero.NewMemMapFs() and
// arbitrary in-memory paths.
func Initialize(fs afero.Fs, perMachineRoot, perUserRoot, workingFolder string) *Environment {
	return &Environment{Fs: fs, PerMachineRoot: perMachineRoot, PerUserRoot: perUserRoot, WorkingFolder: workingFolder}
}

// Uninitialize schedules the working folder for recursive removal
// (spec.md §4.1 "Working folder ... scheduled for recursive deletion at
// end of apply"). Removal is best-effort: failures are swallowed, matching
// spec.md §7's "best-effort cache cleanup" error kind.
func (e *Environment) Uninitialize() {
	_ = e.Fs.RemoveAll(e.WorkingFolder)
}

func (e *Environment) root(perMachine bool) string {
	if !perMachine {
		return e.PerUserRoot
	}
	if e.RedirectedPerMachineRoot != "" {
		return e.RedirectedPerMachineRoot
	}
	return e.PerMachineRoot
}

// rootsToSearch returns the roots to consult for perMachine, trying the
// redirected root first and falling back to the legacy default so
// previously-cached bundles there stay findable (spec.md §4.1 "Fallback").
func (e *Environment) rootsToSearch(perMachine bool) []string {
	if !perMachine {
		return []string{e.PerUserRoot}
	}
	if e.RedirectedPerMachineRoot != "" && e.RedirectedPerMachineRoot != e.PerMachineRoot {
		return []string{e.RedirectedPerMachineRoot, e.PerMachineRoot}
	}
	return []string{e.PerMachineRoot}
}

// ResolvePayload computes the deterministic unverified working path for a
// payload (spec.md §4.1).
func (e *Environment) ResolvePayload(payload *manifest.Payload) string {
	return filepath.Join(e.WorkingFolder, payload.Key())
}

// CompletedPackageFolder returns <root>/<cacheID> (spec.md §4.1).
func (e *Environment) CompletedPackageFolder(perMachine bool, cacheID string) string {
	return filepath.Join(e.root(perMachine), cacheID)
}

// CompletedBundleFolder returns <root>/<bundleID> (spec.md §4.1).
func (e *Environment) CompletedBundleFolder(perMachine bool, bundleID string) string {
	return filepath.Join(e.root(perMachine), bundleID)
}

// FindCompletedPackageFolder returns the first existing completed package
// folder across the roots consulted for perMachine (the redirected root
// then the legacy default), or ok=false if neither has it.
func (e *Environment) FindCompletedPackageFolder(perMachine bool, cacheID string) (path string, ok bool) {
	for _, root := range e.rootsToSearch(perMachine) {
		p := filepath.Join(root, cacheID)
		if info, err := e.Fs.Stat(p); err == nil && info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Engine runs cache operations against an Environment.
type Engine struct {
	Env      *Environment
	Verifier *verify.Verifier
	// RetryAttempts and RetryDelay implement spec.md §4.1's "All file
	// move/copy/delete primitives retry up to 3 times with a 2-second
	// backoff on transient failures."
	RetryAttempts int
	RetryDelay    time.Duration
}

// NewEngine returns an Engine with the spec-mandated retry defaults.
func NewEngine(env *Environment, verifier *verify.Verifier) *Engine {
	return &Engine{Env: env, Verifier: verifier, RetryAttempts: 3, RetryDelay: 2 * time.Second}
}

// Transport acquires a payload from a remote source when no local source
// resolves (spec.md §4.1 "AcquirePayload ... otherwise the download
// transport is invoked").
type Transport interface {
	Download(url, destPath string) error
}

// AcquirePayload materializes payload at workingPath, preferring a local
// source (spec.md §4.1 "Local-source search order") and falling back to
// the download transport.
func (e *Engine) AcquirePayload(payload *manifest.Payload, workingPath string, searchDirs []string, transport Transport) error {
	if src, ok := e.resolveLocalSource(payload, searchDirs); ok {
		return e.retry(func() error { return e.copyFile(src, workingPath) })
	}
	if payload.DownloadURL == "" {
		return errors.Errorf("cache: payload %q has no local source and no download URL", payload.ID)
	}
	if transport == nil {
		return errors.Errorf("cache: payload %q requires a download transport", payload.ID)
	}
	return e.retry(func() error { return transport.Download(payload.DownloadURL, workingPath) })
}

// resolveLocalSource implements spec.md §4.1's local-source search order:
// absolute source paths are probed directly; relative paths are tried
// against each of searchDirs in order (exe directory, last-used-source
// directory, caller-supplied layout directory).
func (e *Engine) resolveLocalSource(payload *manifest.Payload, searchDirs []string) (string, bool) {
	if payload.SourcePath == "" {
		return "", false
	}
	if filepath.IsAbs(payload.SourcePath) {
		if _, err := e.Env.Fs.Stat(payload.SourcePath); err == nil {
			return payload.SourcePath, true
		}
		return "", false
	}
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, payload.SourcePath)
		if _, err := e.Env.Fs.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// StagePayload copies or moves workingPath into the unverified area and
// verifies it there (spec.md §4.1).
func (e *Engine) StagePayload(payload *manifest.Payload, workingPath string, move, perMachine bool) (string, error) {
	unverifiedPath := filepath.Join(e.root(perMachine), unverifiedDirName, payload.Key())
	if err := e.Env.Fs.MkdirAll(filepath.Dir(unverifiedPath), 0o755); err != nil {
		return "", errors.Wrapf(err, "create unverified directory for %q", payload.ID)
	}

	if err := e.placeFile(workingPath, unverifiedPath, move); err != nil {
		return "", err
	}

	if err := e.resetACL(unverifiedPath, perMachine); err != nil {
		return "", err
	}

	result, err := e.Verifier.VerifyPayload(payload, unverifiedPath)
	if err != nil {
		return "", err
	}
	if !result.OK {
		_ = e.Env.Fs.Remove(unverifiedPath) // spec.md §4.1: verification failure deletes the corrupt file
		return "", errors.Errorf("cache: payload %q failed %s verification", payload.ID, result.Method)
	}
	return unverifiedPath, nil
}

func (e *Engine) root(perMachine bool) string { return e.Env.root(perMachine) }

func (e *Engine) resetACL(path string, perMachine bool) error {
	// Only the OS filesystem has on-disk ACLs to reset; any other afero.Fs
	// gets the mode reset through the Fs itself.
	if _, ok := e.Env.Fs.(*afero.OsFs); !ok {
		return errors.Wrapf(e.Env.Fs.Chmod(path, 0o644), "reset mode for %q", path)
	}
	return acl.ResetInherited(path, perMachine)
}

// CompletePayload moves a verified payload from its working/unverified
// location into the completed per-package cache folder, returning a cache
// hit if the final file already exists and verifies (spec.md §4.1).
func (e *Engine) CompletePayload(payload *manifest.Payload, perMachine bool, cacheID, workingPath string, move bool) error {
	finalDir := e.CompletedFolderForPayload(perMachine, cacheID)
	finalPath := filepath.Join(finalDir, filepath.Base(payload.FilePath))

	if info, err := e.Env.Fs.Stat(finalPath); err == nil && !info.IsDir() {
		result, verr := e.Verifier.VerifyPayload(payload, finalPath)
		if verr == nil && result.OK {
			return nil // cache hit
		}
	}

	unverifiedPath, err := e.StagePayload(payload, workingPath, move, perMachine)
	if err != nil {
		return err
	}

	if err := e.Env.Fs.MkdirAll(finalDir, 0o755); err != nil {
		return errors.Wrapf(err, "create completed package folder %q", finalDir)
	}
	if err := e.placeFile(unverifiedPath, finalPath, true); err != nil {
		return err
	}

	result, err := e.Verifier.VerifyPayload(payload, finalPath)
	if err != nil {
		return err
	}
	if !result.OK {
		_ = e.Env.Fs.Remove(finalPath)
		return errors.Errorf("cache: payload %q failed re-verification at final location", payload.ID)
	}
	return nil
}

// CompletedFolderForPayload is the completed per-package cache folder a
// payload is placed under.
func (e *Engine) CompletedFolderForPayload(perMachine bool, cacheID string) string {
	return e.Env.CompletedPackageFolder(perMachine, cacheID)
}

// LayoutPayload places payload into layoutDir instead of the completed
// cache (spec.md §4.1 "LayoutPayload ... like complete, but to a
// caller-specified directory").
func (e *Engine) LayoutPayload(payload *manifest.Payload, layoutDir, workingPath string, move bool) error {
	finalPath := filepath.Join(layoutDir, filepath.Base(payload.FilePath))
	if err := e.Env.Fs.MkdirAll(layoutDir, 0o755); err != nil {
		return errors.Wrapf(err, "create layout directory %q", layoutDir)
	}
	if err := e.placeFile(workingPath, finalPath, move); err != nil {
		return err
	}
	result, err := e.Verifier.VerifyPayload(payload, finalPath)
	if err != nil {
		return err
	}
	if !result.OK {
		_ = e.Env.Fs.Remove(finalPath)
		return errors.Errorf("cache: payload %q failed verification during layout", payload.ID)
	}
	return nil
}

// RemovePackage best-effort recursively deletes the completed package
// folder, with retry (spec.md §4.1).
func (e *Engine) RemovePackage(perMachine bool, cacheID string) error {
	return e.retry(func() error { return e.Env.Fs.RemoveAll(e.Env.CompletedPackageFolder(perMachine, cacheID)) })
}

// RemoveWorkingFolder best-effort recursively deletes the bundle's working
// folder (spec.md §4.1).
func (e *Engine) RemoveWorkingFolder() error {
	return e.retry(func() error { return e.Env.Fs.RemoveAll(e.Env.WorkingFolder) })
}

func (e *Engine) placeFile(src, dst string, move bool) error {
	if move {
		return e.retry(func() error { return e.moveFile(src, dst) })
	}
	return e.retry(func() error { return e.copyFile(src, dst) })
}

func (e *Engine) moveFile(src, dst string) error {
	if err := e.Env.Fs.Rename(src, dst); err == nil {
		return nil
	}
	// Rename across filesystems (e.g. MemMapFs quirks, or a real
	// cross-volume move) falls back to copy+remove.
	if err := e.copyFile(src, dst); err != nil {
		return err
	}
	return e.Env.Fs.Remove(src)
}

func (e *Engine) copyFile(src, dst string) error {
	in, err := e.Env.Fs.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %q", src)
	}
	defer in.Close()

	out, err := e.Env.Fs.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "create %q", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "copy %q to %q", src, dst)
	}
	return nil
}

// retry implements spec.md §4.1's "retry up to 3 times with a 2-second
// backoff on transient failures".
func (e *Engine) retry(op func() error) error {
	var lastErr error
	attempts := e.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err := op(); err != nil {
			lastErr = err
			if i < attempts-1 && e.RetryDelay > 0 {
				time.Sleep(e.RetryDelay)
			}
			continue
		}
		return nil
	}
	return lastErr
}
