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

package main

import (
	"testing"

	"github.com/chainboot/engine/internal/plan"
)

func TestParseEmbeddedAction(t *testing.T) {
	cases := map[string]struct {
		reason string
		in     string
		want   plan.Action
	}{
		"Install": {reason: "the documented default", in: "install", want: plan.ActionInstall},
		"Modify":  {reason: "maps straight through", in: "modify", want: plan.ActionModify},
		"Repair":  {reason: "maps straight through", in: "repair", want: plan.ActionRepair},
		"Uninstall": {
			reason: "maps straight through",
			in:     "uninstall",
			want:   plan.ActionUninstall,
		},
		"UnknownFallsBackToInstall": {
			reason: "kong's enum tag already rejects anything else, but the fallback keeps this total",
			in:     "bogus",
			want:   plan.ActionInstall,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := parseEmbeddedAction(tc.in)
			if got != tc.want {
				t.Errorf("%s: parseEmbeddedAction(%q) = %v, want %v", tc.reason, tc.in, got, tc.want)
			}
		})
	}
}
