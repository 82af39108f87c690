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
	"fmt"
	"io"

	"github.com/emicklei/dot"
)

// WriteDot renders the execute and rollback action sequences as a Graphviz
// dot graph: one node per action, connected in plan order, so a stuck or
// misordered plan can be inspected visually (adapted from the teacher's
// cmd/crank/internal/graph dot printer).
func (p *Plan) WriteDot(w io.Writer) error {
	g := dot.NewGraph(dot.Directed)

	writeSequence(g, "exec", p.ExecuteActions)
	writeSequence(g, "rollback", p.RollbackActions)

	g.Write(w)
	return nil
}

func writeSequence(g *dot.Graph, prefix string, actions []ExecuteAction) {
	var prev dot.Node
	havePrev := false
	for i, a := range actions {
		node := g.Node(fmt.Sprintf("%s%d", prefix, i))
		node.Label(fmt.Sprintf("%s\n%s", actionKindLabel(a.Kind), a.PackageID))
		node.Attr("group", prefix)
		if havePrev {
			g.Edge(prev, node)
		}
		prev = node
		havePrev = true
	}
}

func actionKindLabel(k ExecuteActionKind) string {
	switch k {
	case ExecCheckpoint:
		return "Checkpoint"
	case ExecRollbackBoundary:
		return "RollbackBoundary"
	case ExecWaitSyncpoint:
		return "WaitSyncpoint"
	case ExecUncachePackage:
		return "UncachePackage"
	case ExecPackageDependency:
		return "PackageDependency"
	case ExecPackageProvider:
		return "PackageProvider"
	case ExecExePackage:
		return "ExePackage"
	case ExecMsiPackage:
		return "MsiPackage"
	case ExecMspTarget:
		return "MspTarget"
	case ExecMsuPackage:
		return "MsuPackage"
	case ExecRegistration:
		return "Registration"
	case ExecCompatiblePackage:
		return "CompatiblePackage"
	default:
		return "Unknown"
	}
}
