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

// Package variable implements the bundle's typed variable/variant store
// (spec.md §3, §9: "Variant & Variable store"). Variables are global,
// name-addressed, and may hold an int64, a string, or a Version; a variable
// may additionally be marked hidden, in which case its string form is kept
// only in encrypted form in memory, mirroring
// original_source/src/burn/engine/variant.cpp's BURN_VARIANT_TYPE union and
// hidden-variable handling.
package variable

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
	"sync"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// Kind discriminates the type held by a Variant.
type Kind int

// Variant kinds. None represents an unset variable (distinct from the zero
// value of any concrete kind).
const (
	KindNone Kind = iota
	KindNumeric
	KindString
	KindVersion
)

// Variant is a typed value: exactly one of its fields is meaningful,
// selected by Kind.
type Variant struct {
	Kind    Kind
	Numeric int64
	Str     string
	Ver     Version
}

// NumericVariant constructs a numeric Variant.
func NumericVariant(n int64) Variant { return Variant{Kind: KindNumeric, Numeric: n} }

// StringVariant constructs a string Variant.
func StringVariant(s string) Variant { return Variant{Kind: KindString, Str: s} }

// VersionVariant constructs a version Variant.
func VersionVariant(v Version) Variant { return Variant{Kind: KindVersion, Ver: v} }

// entry is the store's internal record for one named variable.
type entry struct {
	value     Variant
	hidden    bool
	persisted bool
	// sealed holds an AES-GCM-sealed copy of value.Str when hidden is true.
	// The plaintext is never retained once sealed.
	sealed []byte
	nonce  []byte
}

// Store is the process-wide, name-addressed variable store. A single Store
// is shared by the condition evaluator, the search engine (which populates
// variables from probes), and detect (which evaluates EXE detect conditions
// against it). Package install conditions are parsed from the manifest but
// not evaluated. Access is synchronized: the search engine may run
// probes concurrently with cache/execute apply-time reads.
type Store struct {
	mu   sync.RWMutex
	vars map[string]*entry
	key  [32]byte // AES-256 key generated once per Store, process-local only
}

// New returns an empty Store with a fresh in-memory encryption key for
// hidden variables.
func New() (*Store, error) {
	s := &Store{vars: map[string]*entry{}}
	if _, err := io.ReadFull(rand.Reader, s.key[:]); err != nil {
		return nil, errors.Wrap(err, "cannot generate variable store key")
	}
	return s, nil
}

// Set stores a value under name. persisted mirrors the manifest's
// Persisted attribute (whether the value survives across bundle runs in
// registration); hidden mirrors Hidden (value held encrypted in memory and
// never logged).
func (s *Store) Set(name string, v Variant, persisted, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{value: v, hidden: hidden, persisted: persisted}
	if hidden && v.Kind == KindString {
		sealed, nonce, err := s.seal(v.Str)
		if err != nil {
			return errors.Wrap(err, "cannot seal hidden variable")
		}
		e.sealed, e.nonce = sealed, nonce
		e.value.Str = "" // never retain plaintext for hidden strings
	}
	s.vars[name] = e
	return nil
}

// Get returns the named variable's value. ok is false if the variable has
// never been set (spec.md: unset variables participate in condition
// evaluation as "unknown", handled by the condition package).
func (s *Store) Get(name string) (Variant, bool, error) {
	s.mu.RLock()
	e, ok := s.vars[name]
	s.mu.RUnlock()
	if !ok {
		return Variant{}, false, nil
	}
	if e.hidden && e.value.Kind == KindString {
		plain, err := s.unseal(e.sealed, e.nonce)
		if err != nil {
			return Variant{}, false, errors.Wrap(err, "cannot unseal hidden variable")
		}
		v := e.value
		v.Str = plain
		return v, true, nil
	}
	return e.value, true, nil
}

// Persisted returns the names of every variable marked persisted, for the
// registration store to write back.
func (s *Store) Persisted() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var names []string
	for n, e := range s.vars {
		if e.persisted {
			names = append(names, n)
		}
	}
	return names
}

// Hidden reports whether name is marked hidden, for callers (logging,
// progress messages) that must never print its value.
func (s *Store) Hidden(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.vars[name]
	return ok && e.hidden
}

func (s *Store) seal(plaintext string) (cipherText, nonce []byte, err error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, nonce, []byte(plaintext), nil), nonce, nil
}

func (s *Store) unseal(cipherText, nonce []byte) (string, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
