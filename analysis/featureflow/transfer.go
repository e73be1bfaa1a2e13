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

package featureflow

// DefaultFeatureCallee is the name of the function that introduces the feature flag when no other name is
// configured.
const DefaultFeatureCallee = "makeFeature"

// Transfer is the transfer function of the feature analysis.
type Transfer struct {
	// IsFeatureCallee returns true if calling a function with that name makes its first argument carry the feature
	// flag. If nil, only DefaultFeatureCallee is.
	IsFeatureCallee func(name string) bool
}

func (t Transfer) isFeatureCallee(name string) bool {
	if t.IsFeatureCallee == nil {
		return name == DefaultFeatureCallee
	}
	return t.IsFeatureCallee(name)
}

// FlowThrough computes the states after stmt given the state in before stmt: fallOut flows to the fall-through
// successors and branchOut to the branch-taken successors.
//
// Conditional branches whose condition evaluates to Feature (resp. NotFeature) set the path condition of the
// fall-through output to Feature (resp. NotFeature) and the branch output to the opposite. Calls to the feature
// callee make their first argument Feature. Assignments to primitive variables record the evaluation of their
// right-hand side, looking through casts.
func (t Transfer) FlowThrough(in AnalysisState, stmt Stmt) (fallOut AnalysisState, branchOut AnalysisState) {
	fallOut = in
	branchOut = in
	if stmt == nil {
		return fallOut, branchOut
	}

	if callee, args, ok := stmt.AsCall(); ok && len(args) > 0 && t.isFeatureCallee(callee) {
		if v, ok := args[0].AsVariable(); ok {
			fallOut = fallOut.WithVar(v, Feature)
		}
	}

	if cond, ok := stmt.AsConditional(); ok {
		switch EvalCondition(cond, in) {
		case Feature:
			fallOut = fallOut.WithPathCondition(Feature)
			branchOut = branchOut.WithPathCondition(NotFeature)
		case NotFeature:
			fallOut = fallOut.WithPathCondition(NotFeature)
			branchOut = branchOut.WithPathCondition(Feature)
		}
	}

	if lhs, rhs, primitive, ok := stmt.AsDefinition(); ok && primitive && lhs != nil {
		if inner, isCast := castOperand(rhs); isCast {
			rhs = inner
		}
		fallOut = fallOut.WithVar(lhs, EvalCondition(rhs, fallOut))
	}

	return fallOut, branchOut
}

func castOperand(e Expr) (Expr, bool) {
	if e == nil {
		return nil, false
	}
	return e.AsCast()
}
