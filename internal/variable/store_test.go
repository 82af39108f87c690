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

package variable

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetGetRoundTrip(t *testing.T) {
	cases := map[string]struct {
		reason string
		value  Variant
		hidden bool
	}{
		"Numeric": {
			reason: "A numeric variable should round-trip exactly.",
			value:  NumericVariant(42),
		},
		"String": {
			reason: "A plain string variable should round-trip exactly.",
			value:  StringVariant("C:\\Program Files\\Example"),
		},
		"HiddenString": {
			reason: "A hidden string variable should round-trip exactly despite being sealed at rest.",
			value:  StringVariant("super-secret-token"),
			hidden: true,
		},
		"Version": {
			reason: "A version variable should round-trip exactly.",
			value:  VersionVariant(Version{Major: 1, Minor: 2, Build: 3, Revision: 4}),
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := New()
			if err != nil {
				t.Fatalf("New(): unexpected error: %v", err)
			}
			if err := s.Set("v", tc.value, false, tc.hidden); err != nil {
				t.Fatalf("%s\nSet(...): unexpected error: %v", tc.reason, err)
			}
			got, ok, err := s.Get("v")
			if err != nil {
				t.Fatalf("%s\nGet(...): unexpected error: %v", tc.reason, err)
			}
			if !ok {
				t.Fatalf("%s\nGet(...): variable not found", tc.reason)
			}
			if diff := cmp.Diff(tc.value, got, cmp.AllowUnexported(Variant{})); diff != "" {
				t.Errorf("%s\nGet(...): -want, +got:\n%s", tc.reason, diff)
			}
			if tc.hidden != s.Hidden("v") {
				t.Errorf("%s\nHidden(...) = %v, want %v", tc.reason, s.Hidden("v"), tc.hidden)
			}
		})
	}
}

func TestGetUnsetVariable(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New(): unexpected error: %v", err)
	}
	_, ok, err := s.Get("never-set")
	if err != nil {
		t.Fatalf("Get(...): unexpected error: %v", err)
	}
	if ok {
		t.Errorf("Get(...) ok = true, want false for an unset variable")
	}
}

func TestPersistedNames(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New(): unexpected error: %v", err)
	}
	_ = s.Set("kept", NumericVariant(1), true, false)
	_ = s.Set("ephemeral", NumericVariant(2), false, false)

	got := s.Persisted()
	if len(got) != 1 || got[0] != "kept" {
		t.Errorf("Persisted() = %v, want [kept]", got)
	}
}

func TestVersionCompare(t *testing.T) {
	cases := map[string]struct {
		reason string
		a, b   string
		want   int
	}{
		"Equal":        {reason: "Identical versions compare equal.", a: "1.2.3.4", b: "1.2.3.4", want: 0},
		"MajorWins":    {reason: "A higher major wins regardless of trailing parts.", a: "2.0.0.0", b: "1.9.9.9", want: 1},
		"RevisionWins": {reason: "Only the revision differs.", a: "1.2.3.5", b: "1.2.3.4", want: 1},
		"ShortForm":    {reason: "Missing trailing parts default to zero.", a: "1.2", b: "1.2.0.0", want: 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			a, err := ParseVersion(tc.a)
			if err != nil {
				t.Fatalf("ParseVersion(%q): unexpected error: %v", tc.a, err)
			}
			b, err := ParseVersion(tc.b)
			if err != nil {
				t.Fatalf("ParseVersion(%q): unexpected error: %v", tc.b, err)
			}
			if got := a.Compare(b); got != tc.want {
				t.Errorf("%s\n%s.Compare(%s) = %d, want %d", tc.reason, tc.a, tc.b, got, tc.want)
			}
		})
	}
}
