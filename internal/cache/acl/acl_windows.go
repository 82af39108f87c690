//go:build windows

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

// Package acl resets a staged file's access control to the policy spec.md
// §4.1 describes: inherited DACL, ownership reassigned to Administrators
// (per-machine only), attributes cleared to Normal. Grounded on
// original_source/src/burn/engine/cache.cpp's CacheSetFileAcl.
package acl

import (
	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"golang.org/x/sys/windows"
)

// ResetInherited clears the explicit DACL on path so it inherits from its
// parent, and (when perMachine) reassigns ownership to the local
// Administrators group, and clears file attributes to Normal.
func ResetInherited(path string, perMachine bool) error {
	// UNPROTECTED_DACL_SECURITY_INFORMATION re-enables inheritance from the
	// parent by clearing the "protected" bit; passing a nil DACL pointer
	// here leaves the existing (now inheritable) ACEs in place.
	if err := windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.UNPROTECTED_DACL_SECURITY_INFORMATION,
		nil, nil, nil, nil,
	); err != nil {
		return errors.Wrapf(err, "reset inherited ACL for %q", path)
	}

	if perMachine {
		if err := reassignToAdministrators(path); err != nil {
			return err
		}
	}

	if err := windows.SetFileAttributes(windows.StringToUTF16Ptr(path), windows.FILE_ATTRIBUTE_NORMAL); err != nil {
		return errors.Wrapf(err, "clear attributes for %q", path)
	}
	return nil
}

func reassignToAdministrators(path string) error {
	sid, err := windows.CreateWellKnownSid(windows.WinBuiltinAdministratorsSid)
	if err != nil {
		return errors.Wrap(err, "resolve Administrators SID")
	}
	if err := windows.SetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.OWNER_SECURITY_INFORMATION,
		sid, nil, nil, nil,
	); err != nil {
		return errors.Wrapf(err, "reassign owner for %q", path)
	}
	return nil
}
