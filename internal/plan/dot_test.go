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

package plan

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteDotRendersExecuteActions(t *testing.T) {
	p := &Plan{
		ExecuteActions: []ExecuteAction{
			{Kind: ExecRegistration, Keep: true},
			{Kind: ExecMsiPackage, PackageID: "pkgA", State: ExecuteInstall},
		},
	}

	var buf bytes.Buffer
	if err := p.WriteDot(&buf); err != nil {
		t.Fatalf("WriteDot(...): unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "digraph") {
		t.Errorf("WriteDot output = %q, want a digraph", out)
	}
	if !strings.Contains(out, "pkgA") {
		t.Errorf("WriteDot output = %q, want the MsiPackage action's package id", out)
	}
}
