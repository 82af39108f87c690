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

// Package acl resets a staged file's access control. Off Windows there is
// no DACL/owner model to reset; the closest POSIX analog of "drop
// partially-trusted control, reset to a safe inherited state" is resetting
// the file's mode bits to a fixed, non-group/world-writable value.
package acl

import (
	"os"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

const safeMode = 0o644

// ResetInherited resets path's mode bits to safeMode. perMachine is unused
// on this platform: there is no owner-reassignment analog without a
// privileged chown, which the engine does not require to function.
func ResetInherited(path string, perMachine bool) error {
	if err := os.Chmod(path, safeMode); err != nil {
		return errors.Wrapf(err, "reset mode for %q", path)
	}
	return nil
}
