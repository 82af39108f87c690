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
	"context"
	"os"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/chainboot/engine/internal/engine"
	"github.com/chainboot/engine/internal/plan"
)

// installCmd drives a bundle through the install action (spec.md §4).
type installCmd struct {
	commonFlags
}

// Run detects, plans, and applies an install.
func (c *installCmd) Run(log logging.Logger) error {
	return runAction(&c.commonFlags, log, plan.ActionInstall, "")
}

// runAction is the detect/plan/apply pipeline shared by every user-facing
// action command; only the requested plan.Action (and, for layout, the
// destination directory) differs between them.
func runAction(c *commonFlags, log logging.Logger, action plan.Action, layoutDir string) error {
	e, _, err := c.buildEngine(log)
	if err != nil {
		return err
	}

	detected, err := e.DetectAll()
	if err != nil {
		return errors.Wrap(err, "detect installed state")
	}

	p, err := e.Plan(action, detected, nil, layoutDir, c.ancestorIDs(), c.ignoredDependencies())
	if err != nil {
		return errors.Wrap(err, "build plan")
	}

	if p.DisallowRemoval {
		return errors.Errorf("uninstall blocked by dependents: %v (use -ignoredependencies to override)", p.BlockedByDependents)
	}

	if c.GraphOut != "" {
		if err := writePlanGraph(c.GraphOut, p); err != nil {
			return errors.Wrapf(err, "write plan graph %q", c.GraphOut)
		}
	}

	cacheRunner := engine.NewCacheRunner(e.Bundle, e.Cache, layoutDir, e.Bundle.PerMachine, log)
	executeRunner := engine.NewExecuteRunner(e.Bundle, e.Registration, nil, log)

	res := e.Apply(context.Background(), p, cacheRunner, executeRunner)
	if res.Err != nil {
		return errors.Wrap(res.Err, "apply plan")
	}
	return nil
}

// writePlanGraph renders p's execute and rollback sequences as a Graphviz
// dot file at path, for the -graph diagnostic switch.
func writePlanGraph(path string, p *plan.Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.WriteDot(f)
}
