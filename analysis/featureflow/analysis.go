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

// Package featureflow implements an intra-procedural, path-sensitive analysis that tracks which primitive local
// variables are entailed by a feature flag, and under which condition on the flag each program point executes.
//
// The flag is introduced by calls to a designated function (see [Transfer]): the first argument of such a call
// becomes [Feature]. The state then flows through assignments, comparisons with zero and conditional branches, the
// two successors of a branch receiving different path conditions. The fixpoint is computed by the generic solver
// of the fixpoint package.
package featureflow

import (
	"fmt"

	"github.com/awslabs/featureflow/analysis/config"
	"github.com/awslabs/featureflow/analysis/fixpoint"
)

// Body is a function body to analyze: a branched control-flow graph whose nodes carry statements.
type Body[N comparable] interface {
	fixpoint.Graph[N]

	// Stmt returns the statement at node n
	Stmt(n N) Stmt
}

// Result is the result of the analysis of one body: the state before each node and the states flowing out of it.
type Result[N comparable] struct {
	*fixpoint.Result[N, AnalysisState]
}

// Options configure a run of the analysis.
type Options struct {
	// Transfer is the transfer function configuration
	Transfer Transfer

	// MaxVisits bounds the number of node visits of the solver. If MaxVisits <= 0, DefaultMaxVisits of the body
	// is used.
	MaxVisits int

	// Logger is used for debugging output. Can be nil.
	Logger *config.LogGroup
}

// OptionsFromConfig returns the analysis options set in the config
func OptionsFromConfig(cfg *config.Config, logger *config.LogGroup) Options {
	return Options{
		Transfer:  Transfer{IsFeatureCallee: cfg.IsFeatureCallee},
		MaxVisits: cfg.MaxVisits,
		Logger:    logger,
	}
}

// EntryInitialFlow is the state at the entry of a function: no variable facts, and the path condition of an
// external call.
func EntryInitialFlow() AnalysisState {
	return NewAnalysisState(ExternalCall)
}

// NewInitialFlow is the state of every program point that has not been reached yet.
func NewInitialFlow() AnalysisState {
	return NewAnalysisState(Bottom)
}

// NewProblem returns the dataflow problem of the feature analysis on body.
func NewProblem[N comparable](body Body[N], transfer Transfer) fixpoint.Problem[N, AnalysisState] {
	return fixpoint.Problem[N, AnalysisState]{
		EntryInitialFlow: EntryInitialFlow,
		NewInitialFlow:   NewInitialFlow,
		FlowThrough: func(in AnalysisState, n N) (AnalysisState, AnalysisState) {
			return transfer.FlowThrough(in, body.Stmt(n))
		},
		Merge: Merge,
		Equal: func(a AnalysisState, b AnalysisState) bool { return a.Equal(b) },
	}
}

// VisitsPerNodeState is the number of visits of each node allowed per state of the lattice by DefaultMaxVisits.
const VisitsPerNodeState = 16

// DefaultMaxVisits is the visit budget of a body with numNodes nodes. The merge copies the facts known on one side
// only, so the states at a loop header can alternate forever; the budget turns that into fixpoint.ErrNoFixpoint.
func DefaultMaxVisits(numNodes int) int {
	return numNodes * len(AllFeatureStates) * VisitsPerNodeState
}

// Analyze runs the feature analysis on body until a fixpoint is reached, or fails with fixpoint.ErrNoFixpoint
// when the visit budget is exhausted.
func Analyze[N comparable](body Body[N], opts Options) (Result[N], error) {
	maxVisits := opts.MaxVisits
	if maxVisits <= 0 {
		maxVisits = DefaultMaxVisits(len(body.Nodes()))
	}
	res, err := fixpoint.Solve[N, AnalysisState](body, NewProblem(body, opts.Transfer),
		fixpoint.Options{MaxVisits: maxVisits, Logger: opts.Logger})
	if err != nil {
		return Result[N]{res}, fmt.Errorf("feature analysis failed: %w", err)
	}
	return Result[N]{res}, nil
}

// Branch is a conditional branch whose condition is entailed by the feature flag.
type Branch[N comparable] struct {
	// Node is the conditional branch
	Node N

	// Condition is Feature if the branch condition is the feature flag, NotFeature if it is its negation
	Condition FeatureState
}

// FeatureBranches returns the conditional branches of body whose condition evaluates to Feature or NotFeature in
// the result, in the order the solver first visited them.
func (r Result[N]) FeatureBranches(body Body[N]) []Branch[N] {
	var branches []Branch[N]
	for _, n := range r.Order {
		stmt := body.Stmt(n)
		if stmt == nil {
			continue
		}
		cond, ok := stmt.AsConditional()
		if !ok {
			continue
		}
		if x := EvalCondition(cond, r.In(n)); x.IsFeatureDependent() {
			branches = append(branches, Branch[N]{Node: n, Condition: x})
		}
	}
	return branches
}
