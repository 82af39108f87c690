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

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/chainboot/engine/internal/ipc"
)

// embeddedAsyncCmd is embeddedCmd's fire-and-forget sibling: the parent does
// not block waiting for a synchronous reply to each step, so this child
// acknowledges the connection immediately before running the action
// (spec.md §6 "embedded-async" mode).
type embeddedAsyncCmd struct {
	commonFlags
	companionFlags
	Action string `enum:"install,modify,repair,uninstall" default:"install" help:"Action to run as the embedded child."`
}

// Run connects, acknowledges immediately, then runs the requested action
// and reports its outcome.
func (c *embeddedAsyncCmd) Run(log logging.Logger) error {
	ctx := context.Background()
	ch, err := c.companionFlags.connect(ctx, log)
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Send(ipc.Message{Type: ipc.MsgProgress, Payload: []byte("accepted")}); err != nil {
		return err
	}

	runErr := runEmbeddedAction(ctx, &c.commonFlags, log, parseEmbeddedAction(c.Action), ch)
	if runErr != nil {
		_ = ch.Send(ipc.Message{Type: ipc.MsgError, Payload: []byte(runErr.Error())})
		return runErr
	}
	return ch.Send(ipc.Message{Type: ipc.MsgComplete})
}
