//go:build windows

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

	"github.com/Microsoft/go-winio"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

func pipePath(name string) string { return `\\.\pipe\` + name }

// Listen creates a Windows named pipe listener for name.
func Listen(name string) (net.Listener, error) {
	l, err := winio.ListenPipe(pipePath(name), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on named pipe %q", name)
	}
	return l, nil
}

// Dial connects to a Windows named pipe, polling until ConnectTimeout
// elapses (spec.md §6).
func Dial(ctx context.Context, name string) (net.Conn, error) {
	path := pipePath(name)
	return DialWithTimeout(ctx, func() (net.Conn, error) {
		return winio.DialPipe(path, nil)
	})
}
