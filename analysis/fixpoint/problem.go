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

// Package fixpoint implements a forward, branch-sensitive dataflow solver over control-flow graphs whose successor
// edges are split into fall-through edges and branch-taken edges.
//
// A transfer function computes two output flows per node: one that flows along the fall-through edges of the node
// and one that flows along its branch-taken edges. This lets analyses refine what they know on each side of a
// conditional branch. The solver is parameterized by a [Problem] value rather than by an interface to implement.
package fixpoint

// Graph is a control-flow graph with a single entry node and successors partitioned into fall-through and
// branch-taken edges.
type Graph[N comparable] interface {
	// Entry returns the unique entry node of the graph
	Entry() N

	// Nodes returns all the nodes of the graph. The order should be deterministic.
	Nodes() []N

	// Preds returns the predecessors of n, in order
	Preds(n N) []N

	// FallSuccs returns the successors reached when n does not alter control flow (or when a conditional branch
	// is not taken)
	FallSuccs(n N) []N

	// BranchSuccs returns the successors reached through an explicit jump of n
	BranchSuccs(n N) []N
}

// Problem is a dataflow problem over flows F on nodes N.
type Problem[N comparable, F any] struct {
	// EntryInitialFlow returns the flow entering the entry node of the graph
	EntryInitialFlow func() F

	// NewInitialFlow returns the flow of every other point before it is visited
	NewInitialFlow func() F

	// FlowThrough returns the flow after n along its fall-through edges and along its branch-taken edges, given
	// the flow before n. It must not modify in.
	FlowThrough func(in F, n N) (fallOut F, branchOut F)

	// Merge combines the flows of two converging edges. The flow of the earlier predecessor is the first argument.
	Merge func(a F, b F) F

	// Equal decides when a flow has not changed
	Equal func(a F, b F) bool
}

func (p Problem[N, F]) validate() error {
	if p.EntryInitialFlow == nil || p.NewInitialFlow == nil || p.FlowThrough == nil || p.Merge == nil ||
		p.Equal == nil {
		return ErrIncompleteProblem
	}
	return nil
}
