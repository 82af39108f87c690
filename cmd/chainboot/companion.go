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

	"github.com/chainboot/engine/internal/ipc"
)

// companionFlags are the positional arguments a primary instance passes to
// every companion process it spawns: the control pipe name, the shared
// handshake secret, and the parent's pid (spec.md §6).
type companionFlags struct {
	PipeName  string `arg:"" help:"Control pipe name to connect back to the parent on."`
	Secret    string `arg:"" help:"Shared handshake secret."`
	ParentPID uint32 `arg:"" help:"Parent process id."`
}

// connect dials the parent's control pipe, completes the handshake, and
// returns a Channel ready to relay framed messages (spec.md §6).
func (f *companionFlags) connect(ctx context.Context, log logging.Logger) (*ipc.Channel, error) {
	conn, err := ipc.Dial(ctx, f.PipeName)
	if err != nil {
		return nil, errors.Wrap(err, "dial control pipe")
	}

	childPID := uint32(os.Getpid())
	parentPID, err := ipc.HandshakeChild(conn, f.Secret, childPID)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "companion handshake")
	}
	if parentPID != f.ParentPID {
		conn.Close()
		return nil, errors.Errorf("companion handshake: parent reported pid %d, command line named %d", parentPID, f.ParentPID)
	}

	return ipc.NewChannel(conn, log), nil
}

// relayUntilTerminate logs every message it receives until the parent sends
// MsgTerminate or the channel errors (spec.md §6). Real executor opcodes
// (MsgExecutorBase and above) are out of this module's scope (spec.md §1);
// they are logged and otherwise ignored.
func relayUntilTerminate(ctx context.Context, ch *ipc.Channel, log logging.Logger) error {
	defer ch.Close()
	return ch.Relay(ctx, func(msg ipc.Message) error {
		log.Debug("companion message", "type", msg.Type, "bytes", len(msg.Payload))
		return nil
	})
}
