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

package xerrors

import (
	"errors"
	"testing"
)

func TestWrapAndClassify(t *testing.T) {
	cases := map[string]struct {
		reason string
		wrap   func(error) error
		is     func(error) bool
	}{
		"UserExit":     {"a canceled BA callback must classify as user-exit", UserExit, IsUserExit},
		"Verification": {"a hash mismatch must classify as verification", Verification, IsVerification},
		"Acquisition":  {"a download failure must classify as acquisition", Acquisition, IsAcquisition},
		"Execution":    {"a non-zero child exit must classify as execution", Execution, IsExecution},
		"Commit":       {"a registration write failure must classify as commit", Commit, IsCommit},
		"Protocol":     {"a pipe de-sync must classify as protocol", Protocol, IsProtocol},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cause := errors.New("underlying cause")
			wrapped := tc.wrap(cause)
			if !tc.is(wrapped) {
				t.Errorf("%s: classifier returned false for %v", tc.reason, wrapped)
			}
		})
	}
}

func TestClassifiersDoNotCrossMatch(t *testing.T) {
	wrapped := Verification(errors.New("sha-1 mismatch"))
	if IsExecution(wrapped) {
		t.Errorf("IsExecution(%v) = true, want false for a verification error", wrapped)
	}
	if IsUserExit(wrapped) {
		t.Errorf("IsUserExit(%v) = true, want false for a verification error", wrapped)
	}
}

func TestClassifiersRejectNil(t *testing.T) {
	if IsUserExit(nil) || IsVerification(nil) || IsAcquisition(nil) || IsExecution(nil) || IsCommit(nil) || IsProtocol(nil) {
		t.Errorf("a nil error must not classify as any error kind")
	}
}
