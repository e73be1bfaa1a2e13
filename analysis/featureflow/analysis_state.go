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

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

// AnalysisState is the abstract state at one program point: the feature state of each tracked variable and the
// path condition under which the point is reached.
//
// AnalysisState is a value: the variables map is never modified once the state is built, and every update returns
// a new state. States can therefore be shared freely between successors and between iterations of the solver.
type AnalysisState struct {
	variables     map[Var]FeatureState
	pathCondition FeatureState
}

// NewAnalysisState returns a state with no variable facts and the given path condition.
func NewAnalysisState(pathCondition FeatureState) AnalysisState {
	return AnalysisState{pathCondition: pathCondition}
}

// PathCondition returns the abstract truth of the feature flag on the paths reaching the state
func (s AnalysisState) PathCondition() FeatureState {
	return s.pathCondition
}

// Lookup returns the state of v and true if the state has a fact about v.
func (s AnalysisState) Lookup(v Var) (FeatureState, bool) {
	x, ok := s.variables[v]
	return x, ok
}

// Get returns the state of v, or Top when there is no fact about v.
func (s AnalysisState) Get(v Var) FeatureState {
	if x, ok := s.variables[v]; ok {
		return x
	}
	return Top
}

// Len returns the number of variables with a fact in the state.
func (s AnalysisState) Len() int {
	return len(s.variables)
}

// Vars returns the variables that have a fact in s, ordered by name.
func (s AnalysisState) Vars() []Var {
	vars := maps.Keys(s.variables)
	sort.SliceStable(vars, func(i, j int) bool { return vars[i].Name() < vars[j].Name() })
	return vars
}

// Clone returns a copy of s that does not share its variable map.
func (s AnalysisState) Clone() AnalysisState {
	r := AnalysisState{pathCondition: s.pathCondition}
	if len(s.variables) > 0 {
		r.variables = maps.Clone(s.variables)
	}
	return r
}

// WithVar returns a copy of s where v has the state x.
func (s AnalysisState) WithVar(v Var, x FeatureState) AnalysisState {
	if cur, ok := s.variables[v]; ok && cur == x {
		return s
	}
	r := s.Clone()
	if r.variables == nil {
		r.variables = map[Var]FeatureState{}
	}
	r.variables[v] = x
	return r
}

// WithPathCondition returns a copy of s with the path condition c.
func (s AnalysisState) WithPathCondition(c FeatureState) AnalysisState {
	return AnalysisState{variables: s.variables, pathCondition: c}
}

// Equal returns true when both states have the same path condition and the same variable facts.
func (s AnalysisState) Equal(o AnalysisState) bool {
	if s.pathCondition != o.pathCondition || len(s.variables) != len(o.variables) {
		return false
	}
	for v, x := range s.variables {
		if y, ok := o.variables[v]; !ok || x != y {
			return false
		}
	}
	return true
}

func (s AnalysisState) String() string {
	var b strings.Builder
	b.WriteString(s.pathCondition.String())
	b.WriteString(" -- {")
	for i, v := range s.Vars() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", v.Name(), s.variables[v])
	}
	b.WriteString("}")
	return b.String()
}

// Merge combines the states of two converging paths, a first and b second.
//
// The path condition is kept when both agree and becomes Top otherwise. Facts present on one side only are kept.
// Facts that differ become Top, except for the feature-toggle idiom: a variable that is True on the Feature path and
// False on the NotFeature path is itself equivalent to the feature (and symmetrically). That exception looks at the
// path conditions in argument order, so Merge is not commutative.
func Merge(a AnalysisState, b AnalysisState) AnalysisState {
	r := a.Clone()
	if a.pathCondition != b.pathCondition {
		r.pathCondition = Top
	}
	if len(b.variables) == 0 {
		return r
	}
	if r.variables == nil {
		r.variables = make(map[Var]FeatureState, len(b.variables))
	}
	for v, stateB := range b.variables {
		stateA, ok := r.variables[v]
		if !ok {
			r.variables[v] = stateB
			continue
		}
		r.variables[v] = mergeValues(stateA, stateB, a.pathCondition, b.pathCondition)
	}
	return r
}

// mergeValues merges the state of a variable on two paths, given the path conditions of both paths.
func mergeValues(stateA, stateB, condA, condB FeatureState) FeatureState {
	merged := Top
	if stateA == stateB {
		merged = stateA
	}
	// TODO: track choices between path conditions instead of matching the two-branch toggle only
	switch {
	case stateA == True && stateB == False:
		if condA == Feature && condB == NotFeature {
			merged = Feature
		} else if condA == NotFeature && condB == Feature {
			merged = NotFeature
		}
	case stateA == False && stateB == True:
		if condA == Feature && condB == NotFeature {
			merged = NotFeature
		} else if condA == NotFeature && condB == Feature {
			merged = Feature
		}
	}
	return merged
}
