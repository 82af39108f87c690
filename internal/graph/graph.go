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

// Package graph implements a small directed graph used to detect cycles in
// the related-bundle ancestor chain (spec.md §4.4, §9).
package graph

import (
	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// Node is a node in the graph: something identified by a string key that
// knows its outgoing edges.
type Node interface {
	Identifier() string
	Neighbors() []Node

	// AddNeighbors records additional outgoing edges. Implementations must
	// de-duplicate against existing neighbors.
	AddNeighbors(ns ...Node) error
}

// Graph is a directed graph over Nodes. It has no topological sort; callers
// query node membership with NodeExists.
type Graph interface {
	AddNode(n Node) error
	AddNodes(ns ...Node) error
	NodeExists(identifier string) bool
	AddEdge(from string, to Node) (implied bool, err error)
}

// MapGraph is a Graph backed by a map.
type MapGraph struct {
	nodes map[string]Node
}

// New returns an empty MapGraph.
func New() *MapGraph {
	return &MapGraph{nodes: map[string]Node{}}
}

// AddNode adds a node to the graph. It is an error to add the same
// identifier twice.
func (g *MapGraph) AddNode(node Node) error {
	if _, ok := g.nodes[node.Identifier()]; ok {
		return errors.Errorf("node %s already exists", node.Identifier())
	}
	g.nodes[node.Identifier()] = node
	return nil
}

// AddNodes adds several nodes.
func (g *MapGraph) AddNodes(nodes ...Node) error {
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return err
		}
	}
	return nil
}

// NodeExists reports whether a node with the given identifier is present.
func (g *MapGraph) NodeExists(identifier string) bool {
	_, ok := g.nodes[identifier]
	return ok
}

// AddEdge records an edge from -> to, implying the destination node if it
// was not already present (the caller's ancestor chain may reference a
// bundle id we have not yet fabricated a node for).
func (g *MapGraph) AddEdge(from string, to Node) (bool, error) {
	fromNode, ok := g.nodes[from]
	if !ok {
		return false, errors.Errorf("node %s does not exist", from)
	}
	implied := false
	if _, ok := g.nodes[to.Identifier()]; !ok {
		implied = true
		if err := g.AddNode(to); err != nil {
			return implied, err
		}
	}
	return implied, fromNode.AddNeighbors(to)
}

// StringNode is a minimal Node for plain identifiers with explicit edges,
// used for ancestor-chain cycle checks where nodes carry no payload beyond
// their id (e.g. a bundle id in the -ancestors chain).
type StringNode struct {
	ID    string
	edges []Node
}

// NewStringNode returns a StringNode with no edges.
func NewStringNode(id string) *StringNode { return &StringNode{ID: id} }

// Identifier returns the node's id.
func (n *StringNode) Identifier() string { return n.ID }

// Neighbors returns the node's recorded edges.
func (n *StringNode) Neighbors() []Node { return n.edges }

// AddNeighbors appends edges, skipping ones already present by identifier.
func (n *StringNode) AddNeighbors(ns ...Node) error {
	for _, cand := range ns {
		dup := false
		for _, existing := range n.edges {
			if existing.Identifier() == cand.Identifier() {
				dup = true
				break
			}
		}
		if !dup {
			n.edges = append(n.edges, cand)
		}
	}
	return nil
}
