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

package file

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/chainboot/engine/internal/registration"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/cache/registration.yaml")

	rec := registration.Record{
		BundleID:     "{bundle}",
		DisplayName:  "Example",
		Version:      "1.0.0.0",
		ProviderKey:  "example.bundle",
		UpgradeCodes: []string{"{upgrade}"},
		Resume:       "active",
		Installed:    true,
	}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save(...): unexpected error: %v", err)
	}

	got, ok, err := s.Load("{bundle}")
	if err != nil || !ok {
		t.Fatalf("Load(...) = %+v, %v, %v", got, ok, err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("Load(...): -want +got:\n%s", diff)
	}
}

func TestLoadMissingBundleReturnsNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/cache/registration.yaml")

	_, ok, err := s.Load("{missing}")
	if err != nil {
		t.Fatalf("Load(...): unexpected error: %v", err)
	}
	if ok {
		t.Errorf("Load(...) ok = true, want false for an unregistered bundle")
	}
}

func TestRemoveDeletesRecord(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/cache/registration.yaml")

	if err := s.Save(registration.Record{BundleID: "{bundle}", DisplayName: "Example"}); err != nil {
		t.Fatalf("Save(...): unexpected error: %v", err)
	}
	if err := s.Remove("{bundle}"); err != nil {
		t.Fatalf("Remove(...): unexpected error: %v", err)
	}
	if _, ok, _ := s.Load("{bundle}"); ok {
		t.Errorf("Load(...) ok = true after Remove, want false")
	}
}

func TestListReturnsAllRegisteredBundles(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/cache/registration.yaml")

	if err := s.Save(registration.Record{BundleID: "{a}", DisplayName: "A"}); err != nil {
		t.Fatalf("Save(...): unexpected error: %v", err)
	}
	if err := s.Save(registration.Record{BundleID: "{b}", DisplayName: "B"}); err != nil {
		t.Fatalf("Save(...): unexpected error: %v", err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List(): unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() = %+v, want 2 records", got)
	}
}

func TestSetRebootPendingOnUnregisteredBundleFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/cache/registration.yaml")

	if err := s.SetRebootPending("{missing}", true); err == nil {
		t.Fatalf("SetRebootPending(...): expected an error for an unregistered bundle")
	}
}

func TestSetRebootPendingPersists(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/cache/registration.yaml")

	if err := s.Save(registration.Record{BundleID: "{bundle}"}); err != nil {
		t.Fatalf("Save(...): unexpected error: %v", err)
	}
	if err := s.SetRebootPending("{bundle}", true); err != nil {
		t.Fatalf("SetRebootPending(...): unexpected error: %v", err)
	}

	got, _, _ := s.Load("{bundle}")
	if !got.RebootPending {
		t.Errorf("RebootPending = false, want true")
	}
}
