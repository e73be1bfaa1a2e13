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

package fixpoint

import (
	"fmt"

	"github.com/awslabs/featureflow/analysis/config"
	"github.com/awslabs/featureflow/internal/funcutil"
	"github.com/awslabs/featureflow/internal/graphutil"
)

// Options are the options of the solver
type Options struct {
	// MaxVisits bounds the number of node visits. If MaxVisits <= 0, the solver runs until a fixpoint is reached.
	MaxVisits int

	// Logger is used for debugging output. Can be nil.
	Logger *config.LogGroup
}

// Result holds the flows computed for every node of the graph at the fixpoint.
type Result[N comparable, F any] struct {
	// Entry is the entry node of the graph
	Entry N

	// Order is the order in which nodes were first queued: nodes reachable from the entry in breadth-first
	// order, followed by the unreachable nodes
	Order []N

	// Unreachable are the nodes that cannot be reached from the entry
	Unreachable []N

	// Visits is the total number of node visits until the fixpoint was reached
	Visits int

	in        map[N]F
	fallOut   map[N]F
	branchOut map[N]F
}

// In returns the flow before n
func (r *Result[N, F]) In(n N) F {
	return r.in[n]
}

// FallOut returns the flow leaving n along its fall-through edges
func (r *Result[N, F]) FallOut(n N) F {
	return r.fallOut[n]
}

// BranchOut returns the flow leaving n along its branch-taken edges
func (r *Result[N, F]) BranchOut(n N) F {
	return r.branchOut[n]
}

// Out returns the flow leaving n along the branch-taken edges if branch is true, along the fall-through edges
// otherwise.
func (r *Result[N, F]) Out(n N, branch bool) F {
	if branch {
		return r.branchOut[n]
	}
	return r.fallOut[n]
}

// inEdge is an edge entering a node
type inEdge[N comparable] struct {
	from   N
	branch bool
}

// solver holds the state of one run
type solver[N comparable, F any] struct {
	graph   Graph[N]
	problem Problem[N, F]
	opts    Options
	res     *Result[N, F]

	// incoming lists the edges entering each node, ordered by predecessor
	incoming map[N][]inEdge[N]

	worklist []N
	queued   map[N]bool
}

// Solve computes the fixpoint of problem over graph.
//
// Every node starts with the problem's new initial flow, except for the entry which receives the entry initial flow.
// Nodes are then visited from a worklist: the flow before a node is the left-to-right merge of the outputs of the
// edges entering it, the transfer function computes the outputs of the node, and the successors of the node are
// queued again whenever one of the outputs changed.
func Solve[N comparable, F any](graph Graph[N], problem Problem[N, F], opts Options) (*Result[N, F], error) {
	if err := problem.validate(); err != nil {
		return nil, err
	}
	nodes := graph.Nodes()
	entry := graph.Entry()
	if len(nodes) == 0 || !funcutil.Contains(nodes, entry) {
		return nil, ErrNoEntry
	}

	s := &solver[N, F]{
		graph:   graph,
		problem: problem,
		opts:    opts,
		res: &Result[N, F]{
			Entry:     entry,
			in:        make(map[N]F, len(nodes)),
			fallOut:   make(map[N]F, len(nodes)),
			branchOut: make(map[N]F, len(nodes)),
		},
		incoming: make(map[N][]inEdge[N], len(nodes)),
		queued:   make(map[N]bool, len(nodes)),
	}
	s.initialize(nodes)

	if err := s.run(); err != nil {
		return s.res, err
	}
	s.debugf("fixpoint reached after %d visits of %d nodes\n", s.res.Visits, len(nodes))
	return s.res, nil
}

func (s *solver[N, F]) initialize(nodes []N) {
	g := graphutil.NewIndexGraph(nodes, func(n N) []N {
		return append(append([]N{}, s.graph.FallSuccs(n)...), s.graph.BranchSuccs(n)...)
	})
	order := g.BreadthFirstOrder(s.res.Entry)
	s.res.Unreachable = g.Unreachable(s.res.Entry)
	s.res.Order = append(order, s.res.Unreachable...)
	if len(s.res.Unreachable) > 0 && s.opts.Logger != nil {
		s.opts.Logger.Debugf("%d nodes are unreachable from the entry\n", len(s.res.Unreachable))
	}

	for _, n := range nodes {
		for _, pred := range s.graph.Preds(n) {
			if funcutil.Contains(s.graph.FallSuccs(pred), n) {
				s.incoming[n] = append(s.incoming[n], inEdge[N]{from: pred, branch: false})
			}
			if funcutil.Contains(s.graph.BranchSuccs(pred), n) {
				s.incoming[n] = append(s.incoming[n], inEdge[N]{from: pred, branch: true})
			}
		}
		s.res.in[n] = s.problem.NewInitialFlow()
		s.res.fallOut[n] = s.problem.NewInitialFlow()
		s.res.branchOut[n] = s.problem.NewInitialFlow()
	}
	s.res.in[s.res.Entry] = s.problem.EntryInitialFlow()

	for _, n := range s.res.Order {
		s.enqueue(n)
	}
}

func (s *solver[N, F]) enqueue(n N) {
	if !s.queued[n] {
		s.queued[n] = true
		s.worklist = append(s.worklist, n)
	}
}

func (s *solver[N, F]) run() error {
	for len(s.worklist) > 0 {
		n := s.worklist[0]
		s.worklist = s.worklist[1:]
		s.queued[n] = false

		s.res.Visits++
		if s.opts.MaxVisits > 0 && s.res.Visits > s.opts.MaxVisits {
			return fmt.Errorf("after %d visits: %w", s.opts.MaxVisits, ErrNoFixpoint)
		}

		in := s.flowBefore(n)
		s.res.in[n] = in
		fallOut, branchOut := s.problem.FlowThrough(in, n)
		s.tracef("visit %v: in %v, fall-through %v, branch %v\n", n, in, fallOut, branchOut)

		fallChanged := !s.problem.Equal(fallOut, s.res.fallOut[n])
		branchChanged := !s.problem.Equal(branchOut, s.res.branchOut[n])
		s.res.fallOut[n] = fallOut
		s.res.branchOut[n] = branchOut
		if fallChanged {
			for _, succ := range s.graph.FallSuccs(n) {
				s.enqueue(succ)
			}
		}
		if branchChanged {
			for _, succ := range s.graph.BranchSuccs(n) {
				s.enqueue(succ)
			}
		}
	}
	return nil
}

// flowBefore merges the flows of all the edges entering n. The entry node additionally merges the entry flow,
// which is its only flow when it has no predecessor. An entry with predecessors therefore keeps the entry flow in
// its merge instead of having it replaced by the flows of its predecessors.
func (s *solver[N, F]) flowBefore(n N) F {
	edges := s.incoming[n]
	isEntry := n == s.res.Entry
	if len(edges) == 0 {
		if isEntry {
			return s.problem.EntryInitialFlow()
		}
		return s.res.in[n]
	}
	flow := s.res.Out(edges[0].from, edges[0].branch)
	for _, e := range edges[1:] {
		flow = s.problem.Merge(flow, s.res.Out(e.from, e.branch))
	}
	if isEntry {
		flow = s.problem.Merge(flow, s.problem.EntryInitialFlow())
	}
	return flow
}

func (s *solver[N, F]) debugf(format string, v ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Debugf(format, v...)
	}
}

func (s *solver[N, F]) tracef(format string, v ...any) {
	if s.opts.Logger != nil {
		s.opts.Logger.Tracef(format, v...)
	}
}
