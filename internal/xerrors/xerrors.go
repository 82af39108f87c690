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

// Package xerrors defines the error-kind sentinels of spec.md §7, wrapped
// with github.com/crossplane/crossplane-runtime/pkg/errors and classified
// by matching the sentinel's message as the prefix of the error's message
// rather than by a parallel error-code enum, following
// the teacher's own error-handling idiom throughout internal/controller.
package xerrors

import "github.com/crossplane/crossplane-runtime/pkg/errors"

// Sentinel error kinds (spec.md §7).
var (
	// ErrUserExit marks a BA or progress callback cancellation.
	ErrUserExit = errors.New("user canceled the operation")
	// ErrVerification marks a hash/catalog/Authenticode mismatch.
	ErrVerification = errors.New("payload verification failed")
	// ErrAcquisition marks a download/copy I/O failure.
	ErrAcquisition = errors.New("payload acquisition failed")
	// ErrExecution marks a child-process exit not mapped to success or restart.
	ErrExecution = errors.New("package execution failed")
	// ErrRestartRequired is not a failure: recorded as pending, apply continues.
	ErrRestartRequired = errors.New("a restart is required to complete the operation")
	// ErrRestartInitiated is not a failure: the OS restart has already begun.
	ErrRestartInitiated = errors.New("a restart has been initiated")
	// ErrCommit marks a registration or filesystem failure during commit.
	ErrCommit = errors.New("commit step failed")
	// ErrProtocol marks an invariant violation (pipe de-sync, unexpected
	// message): fatal without rollback, since it indicates state divergence.
	ErrProtocol = errors.New("protocol invariant violated")
)

// UserExit wraps err as a user-exit error.
func UserExit(err error) error { return errors.Wrap(err, ErrUserExit.Error()) }

// Verification wraps err as a verification error.
func Verification(err error) error { return errors.Wrap(err, ErrVerification.Error()) }

// Acquisition wraps err as an acquisition error.
func Acquisition(err error) error { return errors.Wrap(err, ErrAcquisition.Error()) }

// Execution wraps err as an execution error.
func Execution(err error) error { return errors.Wrap(err, ErrExecution.Error()) }

// Commit wraps err as a commit-phase error.
func Commit(err error) error { return errors.Wrap(err, ErrCommit.Error()) }

// Protocol wraps err as a protocol/invariant error.
func Protocol(err error) error { return errors.Wrap(err, ErrProtocol.Error()) }

// IsUserExit reports whether err is a user-exit error. Only err's own
// message is checked: a user-exit error wrapped again with more context is
// not matched.
func IsUserExit(err error) bool { return matches(err, ErrUserExit) }

// IsVerification reports whether err is a verification error.
func IsVerification(err error) bool { return matches(err, ErrVerification) }

// IsAcquisition reports whether err is an acquisition error.
func IsAcquisition(err error) bool { return matches(err, ErrAcquisition) }

// IsExecution reports whether err is an execution error.
func IsExecution(err error) bool { return matches(err, ErrExecution) }

// IsCommit reports whether err is a commit-phase error.
func IsCommit(err error) bool { return matches(err, ErrCommit) }

// IsProtocol reports whether err is a protocol/invariant error.
func IsProtocol(err error) bool { return matches(err, ErrProtocol) }

// matches reports whether err's message is prefixed by sentinel's message,
// since crossplane-runtime/pkg/errors.Wrap produces "<message>: <cause>"
// rather than an errors.Is-walkable chain the way stdlib %w wrapping does.
func matches(err error, sentinel error) bool {
	if err == nil {
		return false
	}
	msg, sentinelMsg := err.Error(), sentinel.Error()
	return len(msg) >= len(sentinelMsg) && msg[:len(sentinelMsg)] == sentinelMsg
}
