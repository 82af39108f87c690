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
	"github.com/chainboot/engine/internal/ipc"
	"github.com/chainboot/engine/internal/plan"
)

// embeddedCmd runs this bundle's action synchronously as a child embedded
// inside a parent bundle, reporting progress and completion back over the
// control pipe instead of to a local bootstrapper-application host
// (spec.md §6 "embedded" mode).
type embeddedCmd struct {
	commonFlags
	companionFlags
	Action string `enum:"install,modify,repair,uninstall" default:"install" help:"Action to run as the embedded child."`
}

// Run connects to the parent, runs the requested action, and reports the
// outcome before returning.
func (c *embeddedCmd) Run(log logging.Logger) error {
	ctx := context.Background()
	ch, err := c.companionFlags.connect(ctx, log)
	if err != nil {
		return err
	}
	defer ch.Close()

	runErr := runEmbeddedAction(ctx, &c.commonFlags, log, parseEmbeddedAction(c.Action), ch)
	if runErr != nil {
		_ = ch.Send(ipc.Message{Type: ipc.MsgError, Payload: []byte(runErr.Error())})
		return runErr
	}
	return ch.Send(ipc.Message{Type: ipc.MsgComplete})
}

func parseEmbeddedAction(name string) plan.Action {
	switch name {
	case "modify":
		return plan.ActionModify
	case "repair":
		return plan.ActionRepair
	case "uninstall":
		return plan.ActionUninstall
	default:
		return plan.ActionInstall
	}
}

// runEmbeddedAction mirrors runAction but reports progress over ch rather
// than to a local bootstrapper-application host.
func runEmbeddedAction(ctx context.Context, c *commonFlags, log logging.Logger, action plan.Action, ch *ipc.Channel) error {
	e, _, err := c.buildEngine(log)
	if err != nil {
		return err
	}

	_ = ch.Send(ipc.Message{Type: ipc.MsgProgress, Payload: []byte("detecting")})
	detected, err := e.DetectAll()
	if err != nil {
		return errors.Wrap(err, "detect installed state")
	}

	p, err := e.Plan(action, detected, engine.PackageRequest{}, "", c.ancestorIDs(), c.ignoredDependencies())
	if err != nil {
		return errors.Wrap(err, "build plan")
	}

	if p.DisallowRemoval {
		return errors.Errorf("uninstall blocked by dependents: %v (use -ignoredependencies to override)", p.BlockedByDependents)
	}

	_ = ch.Send(ipc.Message{Type: ipc.MsgProgress, Payload: []byte("applying")})
	cacheRunner := engine.NewCacheRunner(e.Bundle, e.Cache, "", e.Bundle.PerMachine, log)
	executeRunner := engine.NewExecuteRunner(e.Bundle, e.Registration, nil, log)

	res := e.Apply(ctx, p, cacheRunner, executeRunner)
	return errors.Wrap(res.Err, "apply plan")
}
