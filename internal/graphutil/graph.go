// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graphutil

import (
	"github.com/yourbasic/graph"
)

// IndexGraph is a view of a directed graph over comparable nodes T where each node is identified by its index in
// the node slice. It implements the graph.Iterator interface of yourbasic/graph, so the algorithms of that library
// can be run on any graph of the analyses.
type IndexGraph[T comparable] struct {
	// nodes maps indices to nodes
	nodes []T

	// index maps nodes to their index in nodes
	index map[T]int

	// succs[i] lists the indices of the successors of nodes[i], in the order given by the successor function,
	// without duplicates
	succs [][]int
}

// NewIndexGraph returns the index graph of nodes with edges given by successors. Successors that are not in nodes
// are ignored.
func NewIndexGraph[T comparable](nodes []T, successors func(T) []T) *IndexGraph[T] {
	g := &IndexGraph[T]{
		nodes: nodes,
		index: make(map[T]int, len(nodes)),
		succs: make([][]int, len(nodes)),
	}
	for i, n := range nodes {
		g.index[n] = i
	}
	for i, n := range nodes {
		seen := map[int]bool{}
		for _, s := range successors(n) {
			j, ok := g.index[s]
			if !ok || seen[j] {
				continue
			}
			seen[j] = true
			g.succs[i] = append(g.succs[i], j)
		}
	}
	return g
}

// Order implements the graph.Iterator interface
func (g *IndexGraph[T]) Order() int {
	return len(g.nodes)
}

// Visit implements the graph.Iterator interface. All edges have cost 1.
func (g *IndexGraph[T]) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if v < 0 || v >= len(g.succs) {
		return false
	}
	for _, w := range g.succs[v] {
		if do(w, 1) {
			return true
		}
	}
	return false
}

// Index returns the index of node n and true if n is in the graph
func (g *IndexGraph[T]) Index(n T) (int, bool) {
	i, ok := g.index[n]
	return i, ok
}

// Node returns the node at index i
func (g *IndexGraph[T]) Node(i int) T {
	return g.nodes[i]
}

// BreadthFirstOrder returns the nodes reachable from root in breadth-first order, root first. It returns nil if root
// is not in the graph.
func (g *IndexGraph[T]) BreadthFirstOrder(root T) []T {
	r, ok := g.index[root]
	if !ok {
		return nil
	}
	order := []T{root}
	graph.BFS(g, r, func(_, w int, _ int64) {
		order = append(order, g.nodes[w])
	})
	return order
}

// Unreachable returns the nodes that cannot be reached from root, in the order of the graph's nodes.
func (g *IndexGraph[T]) Unreachable(root T) []T {
	reached := map[T]bool{}
	for _, n := range g.BreadthFirstOrder(root) {
		reached[n] = true
	}
	var res []T
	for _, n := range g.nodes {
		if !reached[n] {
			res = append(res, n)
		}
	}
	return res
}

// Loops returns the strongly connected components of the graph that contain a cycle, i.e. the components with
// more than one node and the nodes with an edge to themselves.
func (g *IndexGraph[T]) Loops() [][]T {
	var loops [][]T
	for _, component := range graph.StrongComponents(g) {
		if len(component) == 1 && !g.hasSelfEdge(component[0]) {
			continue
		}
		loop := make([]T, len(component))
		for i, v := range component {
			loop[i] = g.nodes[v]
		}
		loops = append(loops, loop)
	}
	return loops
}

func (g *IndexGraph[T]) hasSelfEdge(v int) bool {
	for _, w := range g.succs[v] {
		if w == v {
			return true
		}
	}
	return false
}
