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
	"bytes"
	"context"
	"net"
	"testing"
	"time"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	cases := map[string]struct {
		reason string
		msg    Message
	}{
		"EmptyPayload": {
			reason: "a zero-length payload must still round-trip the header correctly",
			msg:    Message{Type: MsgComplete},
		},
		"WithPayload": {
			reason: "payload bytes must survive the frame unmodified",
			msg:    Message{Type: MsgLog, Payload: []byte("installing pkgA")},
		},
		"ExecutorOpcode": {
			reason: "executor-specific opcodes above MsgExecutorBase must round-trip",
			msg:    Message{Type: MsgExecutorBase + 7, Payload: []byte{1, 2, 3}},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteMessage(&buf, tc.msg); err != nil {
				t.Fatalf("%s: WriteMessage(...): unexpected error: %v", tc.reason, err)
			}
			got, err := ReadMessage(&buf)
			if err != nil {
				t.Fatalf("%s: ReadMessage(...): unexpected error: %v", tc.reason, err)
			}
			if got.Type != tc.msg.Type {
				t.Errorf("%s: Type = %v, want %v", tc.reason, got.Type, tc.msg.Type)
			}
			if !bytes.Equal(got.Payload, tc.msg.Payload) && len(got.Payload)+len(tc.msg.Payload) != 0 {
				t.Errorf("%s: Payload = %v, want %v", tc.reason, got.Payload, tc.msg.Payload)
			}
		})
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	parentConn, childConn := net.Pipe()
	defer parentConn.Close()
	defer childConn.Close()

	var childPID, parentPID uint32
	var childErr, parentErr error

	done := make(chan struct{})
	go func() {
		childPID, parentErr = HandshakeParent(parentConn, "s3cr3t", 111)
		close(done)
	}()

	parentPID, childErr = HandshakeChild(childConn, "s3cr3t", 222)
	<-done

	if parentErr != nil {
		t.Fatalf("HandshakeParent(...): unexpected error: %v", parentErr)
	}
	if childErr != nil {
		t.Fatalf("HandshakeChild(...): unexpected error: %v", childErr)
	}
	if childPID != 222 {
		t.Errorf("parent observed childPID = %d, want 222", childPID)
	}
	if parentPID != 111 {
		t.Errorf("child observed parentPID = %d, want 111", parentPID)
	}
}

func TestHandshakeChildRejectsWrongSecret(t *testing.T) {
	parentConn, childConn := net.Pipe()
	defer parentConn.Close()
	defer childConn.Close()

	go func() { _, _ = HandshakeParent(parentConn, "expected", 1) }()

	if _, err := HandshakeChild(childConn, "different", 2); err == nil {
		t.Fatalf("HandshakeChild(...): expected an error for a mismatched shared secret")
	}
}

func TestDialWithTimeoutRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	conn, err := DialWithTimeout(context.Background(), func() (net.Conn, error) {
		attempts++
		if attempts < 3 {
			return nil, errFakeDial
		}
		c, _ := net.Pipe()
		return c, nil
	})
	if err != nil {
		t.Fatalf("DialWithTimeout(...): unexpected error: %v", err)
	}
	if conn == nil {
		t.Fatalf("DialWithTimeout(...): expected a non-nil conn")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDialWithTimeoutRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DialWithTimeout(ctx, func() (net.Conn, error) {
		return nil, errFakeDial
	})
	if err == nil {
		t.Fatalf("DialWithTimeout(...): expected an error once context is canceled")
	}
}

func TestChannelRelayStopsOnTerminate(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	chA := NewChannel(a, nil)
	chB := NewChannel(b, nil)

	var received []Message
	done := make(chan error, 1)
	go func() {
		done <- chB.Relay(context.Background(), func(m Message) error {
			received = append(received, m)
			return nil
		})
	}()

	if err := chA.Send(Message{Type: MsgLog, Payload: []byte("hello")}); err != nil {
		t.Fatalf("Send(...): unexpected error: %v", err)
	}
	if err := chA.Send(Message{Type: MsgTerminate}); err != nil {
		t.Fatalf("Send(...): unexpected error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Relay(...): unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Relay(...) did not stop after a terminate message")
	}

	if len(received) != 1 || received[0].Type != MsgLog {
		t.Errorf("received = %v, want exactly one MsgLog", received)
	}
}

func TestControlAndCachePipeNames(t *testing.T) {
	guid := "{ABCD-1234}"
	if got, want := ControlPipeName(guid), "Burn.{ABCD-1234}"; got != want {
		t.Errorf("ControlPipeName(%q) = %q, want %q", guid, got, want)
	}
	if got, want := CachePipeName(guid), "Burn.{ABCD-1234}.Cache"; got != want {
		t.Errorf("CachePipeName(%q) = %q, want %q", guid, got, want)
	}
}

type fakeDialErr struct{}

func (fakeDialErr) Error() string { return "simulated dial failure" }

var errFakeDial = fakeDialErr{}
