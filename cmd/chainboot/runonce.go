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

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/chainboot/engine/internal/engine"
	"github.com/chainboot/engine/internal/plan"
	"github.com/chainboot/engine/internal/registration"
)

// runOnceCmd resumes a bundle whose apply was suspended for a reboot
// (spec.md §4.6 resume modes ResumeInterrupted/ResumeSuspend). It re-plans
// an install and reapplies it; a no-op if nothing is pending.
type runOnceCmd struct {
	commonFlags
}

// Run resumes a suspended apply, or does nothing if the bundle reports
// ResumeNone.
func (c *runOnceCmd) Run(log logging.Logger) error {
	e, _, err := c.buildEngine(log)
	if err != nil {
		return err
	}

	detected, err := e.DetectAll()
	if err != nil {
		return errors.Wrap(err, "detect installed state")
	}

	switch detected.Resume {
	case registration.ResumeNone:
		return nil
	case registration.ResumeRebootPending:
		return errors.New("runonce: a reboot is still pending, not resuming")
	}

	p, err := e.Plan(plan.ActionInstall, detected, engine.PackageRequest{}, "", c.ancestorIDs(), c.ignoredDependencies())
	if err != nil {
		return errors.Wrap(err, "build plan")
	}

	cacheRunner := engine.NewCacheRunner(e.Bundle, e.Cache, "", e.Bundle.PerMachine, log)
	executeRunner := engine.NewExecuteRunner(e.Bundle, e.Registration, nil, log)

	res := e.Apply(context.Background(), p, cacheRunner, executeRunner)
	return errors.Wrap(res.Err, "apply resumed plan")
}
