//go:build !windows

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
	"os"
	"path/filepath"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

func socketPath(name string) string {
	return filepath.Join(os.TempDir(), name+".sock")
}

// Listen creates a Unix domain socket listener at the path corresponding to
// name, standing in for a Windows named pipe on this platform.
func Listen(name string) (net.Listener, error) {
	path := socketPath(name)
	_ = os.Remove(path) // stale socket from a prior, unclean exit
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on unix socket %q", path)
	}
	return l, nil
}

// Dial connects to the Unix domain socket standing in for name, polling
// until ConnectTimeout elapses (spec.md §6).
func Dial(ctx context.Context, name string) (net.Conn, error) {
	path := socketPath(name)
	return DialWithTimeout(ctx, func() (net.Conn, error) {
		d := net.Dialer{}
		return d.DialContext(ctx, "unix", path)
	})
}
