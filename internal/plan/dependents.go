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

import "sort"

// BlockingDependents returns the dependent identifiers in dependents (a
// registration record's provider-key -> display-name map) that ignored does
// not name, implementing spec.md GLOSSARY's "uninstall is gated by non-zero
// counts" and the -ignoredependencies override (scenario E3): an uninstall
// may proceed over a dependent only when the caller explicitly named that
// dependent's key.
func BlockingDependents(dependents map[string]string, ignored []string) []string {
	if len(dependents) == 0 {
		return nil
	}
	skip := make(map[string]bool, len(ignored))
	for _, id := range ignored {
		skip[id] = true
	}

	var blocking []string
	for id := range dependents {
		if !skip[id] {
			blocking = append(blocking, id)
		}
	}
	sort.Strings(blocking)
	return blocking
}
