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

// Package apply drives the cache and execute plans, coordinating a cache
// worker and an execute worker with per-package hand-off syncpoints,
// rollback-on-failure, and resume-state bracketing (spec.md §4.5; grounded
// on original_source/src/burn/engine/apply.cpp).
package apply

import (
	"context"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"golang.org/x/sync/errgroup"

	"github.com/chainboot/engine/internal/plan"
)

// CacheRunner executes one cache action. Implementations live in
// internal/cache; this interface lets apply stay decoupled from the
// concrete filesystem/verification backend (and be exercised by fakes in
// tests).
type CacheRunner interface {
	RunCacheAction(ctx context.Context, a plan.CacheAction) error
}

// ExecuteRunner executes one execute (or rollback) action, against the
// polymorphic per-technology execute drivers (spec.md §1 "out of scope:
// the per-package execution back-ends").
type ExecuteRunner interface {
	RunExecuteAction(ctx context.Context, a plan.ExecuteAction) error
}

// ProgressSink receives apply progress/error messages, mirroring the BA
// callback channel of spec.md §7 without binding apply to a concrete UI.
type ProgressSink interface {
	OnMessage(kind, text string)
}

// nopSink discards all messages.
type nopSink struct{}

func (nopSink) OnMessage(string, string) {}

// Driver coordinates cache and execute workers over a single Plan.
type Driver struct {
	Cache   CacheRunner
	Execute ExecuteRunner
	Sink    ProgressSink
	Log     logging.Logger
}

// NewDriver constructs a Driver. sink and log may be nil.
func NewDriver(cache CacheRunner, execute ExecuteRunner, sink ProgressSink, log logging.Logger) *Driver {
	if sink == nil {
		sink = nopSink{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Driver{Cache: cache, Execute: execute, Sink: sink, Log: log}
}

// Result summarizes an apply run.
type Result struct {
	// RolledBack is true if any execute failure triggered rollback.
	RolledBack bool
	// Err is the first fatal error encountered, after any rollback has run.
	Err error
}

// Run drives p's cache and execute plans to completion. The cache worker
// processes p.CacheActions and closes a per-package syncpoint channel as
// each package's PackageStop/SignalSyncpoint action completes; the execute
// worker waits on that channel before running a package's execute actions,
// per spec.md §5's ordering guarantees. On any execute failure, the
// rollback-action prefix back to the most recent rollback boundary runs;
// a vital boundary ends the apply, a non-vital one lets it continue.
func (d *Driver) Run(ctx context.Context, p *plan.Plan) Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	syncpoints := newSyncpointSet(p.CacheActions)

	var rolledBackPastNonVital bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.runCacheWorker(gctx, p, syncpoints) })
	g.Go(func() error {
		rolledBack, err := d.runExecuteWorker(gctx, p, syncpoints)
		rolledBackPastNonVital = rolledBack
		return err
	})

	if err := g.Wait(); err != nil {
		return Result{RolledBack: rolledBackPastNonVital || isRollbackError(err), Err: unwrapRollback(err)}
	}
	return Result{RolledBack: rolledBackPastNonVital}
}

func (d *Driver) runCacheWorker(ctx context.Context, p *plan.Plan, sp *syncpointSet) error {
	for _, a := range p.CacheActions {
		if a.Deleted {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.Cache.RunCacheAction(ctx, a); err != nil {
			return errors.Wrapf(err, "cache action for package %q", a.PackageID)
		}
		if a.Kind == plan.CacheSignalSyncpoint {
			sp.signal(a.PackageID)
		}
	}
	sp.signalAll() // layout/cache-only plans may have no execute actions to wait
	return nil
}

// runExecuteWorker runs p's execute actions in order, returning whether any
// failure was rolled back and continued past (a non-vital boundary, spec.md
// §4.5/§7), plus the first fatal error (if a vital boundary's failure ended
// the apply).
func (d *Driver) runExecuteWorker(ctx context.Context, p *plan.Plan, sp *syncpointSet) (bool, error) {
	vital := true
	var rolledBackPastNonVital bool

	for i, a := range p.ExecuteActions {
		if a.Deleted {
			continue
		}
		if a.Kind == plan.ExecRollbackBoundary {
			vital = a.Vital
		}
		if a.Kind == plan.ExecWaitSyncpoint {
			if err := sp.wait(ctx, a.PackageID); err != nil {
				return rolledBackPastNonVital, err
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return rolledBackPastNonVital, err
		}
		if err := d.Execute.RunExecuteAction(ctx, a); err != nil {
			wrapped := errors.Wrapf(err, "execute action for package %q", a.PackageID)
			rollbackErr := d.rollbackFrom(ctx, p, i)
			if !vital {
				d.Log.Info("apply continuing past non-vital boundary", "package", a.PackageID, "error", wrapped)
				rolledBackPastNonVital = true
				if rollbackErr != nil {
					d.Log.Info("rollback past non-vital boundary also failed", "package", a.PackageID, "error", rollbackErr)
				}
				continue
			}
			if rollbackErr != nil {
				return rolledBackPastNonVital, &rollbackError{cause: wrapped, rollbackCause: rollbackErr}
			}
			return rolledBackPastNonVital, &rollbackError{cause: wrapped}
		}
	}
	return rolledBackPastNonVital, nil
}

// rollbackFrom runs rollback actions from the most recent rollback
// boundary back to the failing index, in strict reverse order (spec.md §5
// "Rollback actions run in strict reverse order of their matching execute
// actions").
func (d *Driver) rollbackFrom(ctx context.Context, p *plan.Plan, failedIdx int) error {
	start := 0
	for i := failedIdx; i >= 0; i-- {
		if p.ExecuteActions[i].Kind == plan.ExecRollbackBoundary {
			start = i
			break
		}
	}

	for i := failedIdx; i >= start; i-- {
		a := p.ExecuteActions[i]
		if a.Deleted || a.Kind == plan.ExecWaitSyncpoint || a.Kind == plan.ExecCheckpoint {
			continue
		}
		rb := findRollbackCounterpart(p.RollbackActions, a)
		if rb == nil {
			continue
		}
		if err := d.Execute.RunExecuteAction(ctx, *rb); err != nil {
			return errors.Wrapf(err, "rollback action for package %q", a.PackageID)
		}
	}
	return nil
}

func findRollbackCounterpart(rollback []plan.ExecuteAction, exec plan.ExecuteAction) *plan.ExecuteAction {
	for _, rb := range rollback {
		if rb.Kind == exec.Kind && rb.PackageID == exec.PackageID {
			return &rb
		}
	}
	return nil
}

type rollbackError struct {
	cause         error
	rollbackCause error
}

func (e *rollbackError) Error() string {
	if e.rollbackCause != nil {
		return e.cause.Error() + " (rollback also failed: " + e.rollbackCause.Error() + ")"
	}
	return e.cause.Error()
}

func (e *rollbackError) Unwrap() error { return e.cause }

func isRollbackError(err error) bool {
	_, ok := err.(*rollbackError)
	return ok
}

func unwrapRollback(err error) error {
	if rb, ok := err.(*rollbackError); ok {
		return rb.cause
	}
	return err
}
