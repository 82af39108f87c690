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
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/chainboot/engine/internal/plan"
)

// modifyCmd drives a bundle through the modify action, changing feature
// selections of an already-installed bundle (spec.md §4).
type modifyCmd struct {
	commonFlags
}

// Run detects, plans, and applies a modify.
func (c *modifyCmd) Run(log logging.Logger) error {
	return runAction(&c.commonFlags, log, plan.ActionModify, "")
}
