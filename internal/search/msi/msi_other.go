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

// Package msi implements search.ProductDatabase. Off Windows there is no
// MSI product database to query.
package msi

import (
	"github.com/chainboot/engine/internal/search"
	"github.com/chainboot/engine/internal/variable"
)

// Database is the non-Windows stand-in; every call fails with
// search.ErrUnsupportedPlatform.
type Database struct{}

// New returns the non-Windows stub Database.
func New() *Database { return &Database{} }

// ProductVersion implements search.ProductDatabase.
func (d *Database) ProductVersion(productCode string) (variable.Version, bool, error) {
	return variable.Version{}, false, search.ErrUnsupportedPlatform
}

// FeatureState implements search.ProductDatabase.
func (d *Database) FeatureState(productCode, feature string) (string, error) {
	return "", search.ErrUnsupportedPlatform
}
