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

package plan

import "github.com/chainboot/engine/internal/detect"

// ResolveExecuteState implements the cross-product table in spec.md §4.4:
// detected state x requested state -> execute action state.
func ResolveExecuteState(detected detect.State, requested RequestState) ExecuteState {
	switch requested {
	case RequestPresent:
		switch detected {
		case detect.StateAbsent, detect.StateCached, detect.StateObsolete:
			return ExecuteInstall
		case detect.StatePresent:
			return ExecuteRepair // "none/repair": callers needing strict no-op pass requested=none instead
		case detect.StateSuperseded:
			return ExecuteNone
		}
	case RequestAbsent, RequestForceAbsent:
		if detected == detect.StateAbsent {
			return ExecuteNone
		}
		return ExecuteUninstall
	case RequestRepair:
		switch detected {
		case detect.StateAbsent, detect.StateCached, detect.StateObsolete:
			return ExecuteInstall
		case detect.StatePresent:
			return ExecuteRepair
		case detect.StateSuperseded:
			return ExecuteNone
		}
	case RequestCache, RequestNone:
		return ExecuteNone
	}
	return ExecuteNone
}

// ResolveRollbackState returns the symmetric opposite of an execute state,
// per spec.md §4.4 ("Rollback state is the symmetric opposite, modulo
// permanence and the no-cache -> no-rollback rule"). permanent packages and
// action ExecuteNone never get a rollback action.
func ResolveRollbackState(execute ExecuteState, permanent bool) ExecuteState {
	if permanent || execute == ExecuteNone {
		return ExecuteNone
	}
	switch execute {
	case ExecuteInstall, ExecuteMinorUpgrade, ExecuteMajorUpgrade:
		return ExecuteUninstall
	case ExecuteUninstall:
		return ExecuteInstall
	case ExecuteRepair, ExecuteModify:
		return ExecuteNone
	}
	return ExecuteNone
}
