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

package ipc

import (
	"context"
	"net"
	"sync"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

// Handler reacts to one inbound message. A non-nil error stops the relay
// loop (spec.md §7: "Protocol/invariant ... are treated as fatal without
// rollback because they indicate state divergence").
type Handler func(Message) error

// Channel is a handshaken pipe connection with a message relay loop, used
// on both the parent and companion side of the elevated/embedded process
// split (spec.md §6).
type Channel struct {
	conn net.Conn
	log  logging.Logger

	mu sync.Mutex
}

// NewChannel wraps an already-connected, already-handshaken conn.
func NewChannel(conn net.Conn, log logging.Logger) *Channel {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Channel{conn: conn, log: log}
}

// Send writes one framed message. Safe for concurrent use.
func (c *Channel) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteMessage(c.conn, msg)
}

// Relay reads framed messages until ctx is canceled, the peer closes the
// connection, or handle returns an error. It is the companion-process
// analog of the parent's message pump (original_source/src/burn/engine/pipe.cpp).
func (c *Channel) Relay(ctx context.Context, handle Handler) error {
	type result struct {
		msg Message
		err error
	}
	next := make(chan result, 1)

	readOne := func() {
		msg, err := ReadMessage(c.conn)
		next <- result{msg: msg, err: err}
	}

	go readOne()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-next:
			if r.err != nil {
				return errors.Wrap(r.err, "ipc: relay read failed")
			}
			if r.msg.Type == MsgTerminate {
				return nil
			}
			if err := handle(r.msg); err != nil {
				return err
			}
			go readOne()
		}
	}
}

// Close closes the underlying connection.
func (c *Channel) Close() error { return c.conn.Close() }
