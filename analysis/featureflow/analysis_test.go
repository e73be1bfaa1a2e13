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
	"errors"
	"sort"
	"testing"

	"github.com/awslabs/featureflow/analysis/fixpoint"
	"github.com/google/go-cmp/cmp"
)

// A small statement language to build test bodies

type variable string

func (v variable) Name() string { return string(v) }

type testExpr struct {
	x, y     Expr
	isEq     bool
	c        int64
	isConst  bool
	v        Var
	isCast   bool
	inner    Expr
	isOpaque bool
}

func (e testExpr) AsEquality() (Expr, Expr, bool) { return e.x, e.y, e.isEq }
func (e testExpr) AsIntConstant() (int64, bool)   { return e.c, e.isConst }
func (e testExpr) AsVariable() (Var, bool)        { return e.v, e.v != nil }
func (e testExpr) AsCast() (Expr, bool)           { return e.inner, e.isCast }

func eq(x, y Expr) Expr     { return testExpr{x: x, y: y, isEq: true} }
func num(c int64) Expr      { return testExpr{c: c, isConst: true} }
func ref(name string) Expr  { return testExpr{v: variable(name)} }
func cast(inner Expr) Expr  { return testExpr{inner: inner, isCast: true} }
func opaque() Expr          { return testExpr{isOpaque: true} }
func zeroEq(x string) Expr  { return eq(ref(x), num(0)) }
func zeroEqL(x string) Expr { return eq(num(0), ref(x)) }

type testStmt struct {
	callee    string
	args      []Expr
	isCall    bool
	cond      Expr
	isCond    bool
	lhs       Var
	rhs       Expr
	primitive bool
	isDef     bool
}

func (s testStmt) AsCall() (string, []Expr, bool) { return s.callee, s.args, s.isCall }
func (s testStmt) AsConditional() (Expr, bool)    { return s.cond, s.isCond }
func (s testStmt) AsDefinition() (Var, Expr, bool, bool) {
	return s.lhs, s.rhs, s.primitive, s.isDef
}

func call(callee string, args ...Expr) Stmt {
	return testStmt{callee: callee, args: args, isCall: true}
}
func branch(cond Expr) Stmt { return testStmt{cond: cond, isCond: true} }
func assign(lhs string, rhs Expr) Stmt {
	return testStmt{lhs: variable(lhs), rhs: rhs, primitive: true, isDef: true}
}
func assignRef(lhs string, rhs Expr) Stmt {
	return testStmt{lhs: variable(lhs), rhs: rhs, primitive: false, isDef: true}
}
func nop() Stmt { return testStmt{} }

// testBody is a body over integer nodes. Node 0 is the entry.
type testBody struct {
	stmts  map[int]Stmt
	fall   map[int][]int
	branch map[int][]int
}

func newBody() *testBody {
	return &testBody{stmts: map[int]Stmt{}, fall: map[int][]int{}, branch: map[int][]int{}}
}

// add adds node n with statement s and its fall-through successors
func (b *testBody) add(n int, s Stmt, fall ...int) *testBody {
	b.stmts[n] = s
	b.fall[n] = fall
	return b
}

// jump adds branch-taken successors to n
func (b *testBody) jump(n int, targets ...int) *testBody {
	b.branch[n] = append(b.branch[n], targets...)
	return b
}

func (b *testBody) Entry() int { return 0 }

func (b *testBody) Nodes() []int {
	var nodes []int
	for n := range b.stmts {
		nodes = append(nodes, n)
	}
	sort.Ints(nodes)
	return nodes
}

func (b *testBody) Preds(n int) []int {
	var preds []int
	for _, p := range b.Nodes() {
		for _, s := range append(append([]int{}, b.fall[p]...), b.branch[p]...) {
			if s == n {
				preds = append(preds, p)
				break
			}
		}
	}
	return preds
}

func (b *testBody) FallSuccs(n int) []int   { return b.fall[n] }
func (b *testBody) BranchSuccs(n int) []int { return b.branch[n] }
func (b *testBody) Stmt(n int) Stmt         { return b.stmts[n] }

func analyze(t *testing.T, b *testBody) Result[int] {
	t.Helper()
	res, err := Analyze[int](b, Options{})
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return res
}

func expectState(t *testing.T, s AnalysisState, name string, expected FeatureState) {
	t.Helper()
	if got := s.Get(variable(name)); got != expected {
		t.Errorf("expected %s to be %s, got %s in %s", name, expected, got, s)
	}
}

func TestFeatureCallMarksArgument(t *testing.T) {
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("x")), 1).
		add(1, assign("z", num(3)), 2).
		add(2, nop())
	res := analyze(t, b)

	if _, ok := res.In(0).Lookup(variable("x")); ok {
		t.Errorf("x should have no fact before the call")
	}
	if res.In(0).PathCondition() != ExternalCall {
		t.Errorf("entry path condition should be %s, got %s", ExternalCall, res.In(0).PathCondition())
	}
	expectState(t, res.In(1), "x", Feature)
	expectState(t, res.In(1), "y", Top)
	if _, ok := res.In(2).Lookup(variable("y")); ok {
		t.Errorf("y should never have a fact")
	}
	expectState(t, res.In(2), "z", True)
	if res.In(2).PathCondition() != ExternalCall {
		t.Errorf("path condition should remain %s, got %s", ExternalCall, res.In(2).PathCondition())
	}
}

func TestOtherCalleesAndArgumentsIgnored(t *testing.T) {
	b := newBody().
		add(0, call("other", ref("x")), 1).
		add(1, call(DefaultFeatureCallee, num(1), ref("y")), 2).
		add(2, call(DefaultFeatureCallee), 3).
		add(3, nop())
	res := analyze(t, b)
	if n := res.In(3).Len(); n != 0 {
		t.Errorf("expected no facts, got %s", res.In(3))
	}
}

func TestCustomFeatureCallee(t *testing.T) {
	b := newBody().
		add(0, call("flags.Enabled", ref("x")), 1).
		add(1, nop())
	res, err := Analyze[int](b, Options{Transfer: Transfer{
		IsFeatureCallee: func(name string) bool { return name == "flags.Enabled" },
	}})
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	expectState(t, res.In(1), "x", Feature)
}

func TestBranchOnZeroComparison(t *testing.T) {
	// 0: makeFeature(x); 1: if x == 0 fall 2 / branch 3; 2 and 3 join at 4
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("x")), 1).
		add(1, branch(zeroEq("x")), 2).jump(1, 3).
		add(2, nop(), 4).
		add(3, nop(), 4).
		add(4, nop())
	res := analyze(t, b)

	if pc := res.In(2).PathCondition(); pc != NotFeature {
		t.Errorf("fall-through path condition should be %s, got %s", NotFeature, pc)
	}
	if pc := res.In(3).PathCondition(); pc != Feature {
		t.Errorf("branch path condition should be %s, got %s", Feature, pc)
	}
	if pc := res.In(4).PathCondition(); pc != Top {
		t.Errorf("join path condition should be %s, got %s", Top, pc)
	}
	if pc := res.FallOut(1).PathCondition(); pc != NotFeature {
		t.Errorf("fall-out of the branch should be %s, got %s", NotFeature, pc)
	}
	if pc := res.BranchOut(1).PathCondition(); pc != Feature {
		t.Errorf("branch-out of the branch should be %s, got %s", Feature, pc)
	}

	expected := []Branch[int]{{Node: 1, Condition: NotFeature}}
	if diff := cmp.Diff(expected, res.FeatureBranches(b)); diff != "" {
		t.Errorf("feature branches mismatch (-want +got):\n%s", diff)
	}
}

func TestBranchOnVariable(t *testing.T) {
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("x")), 1).
		add(1, branch(ref("x")), 2).jump(1, 3).
		add(2, nop()).
		add(3, nop())
	res := analyze(t, b)
	if pc := res.In(2).PathCondition(); pc != Feature {
		t.Errorf("fall-through path condition should be %s, got %s", Feature, pc)
	}
	if pc := res.In(3).PathCondition(); pc != NotFeature {
		t.Errorf("branch path condition should be %s, got %s", NotFeature, pc)
	}
}

func TestUnknownConditionKeepsPathCondition(t *testing.T) {
	b := newBody().
		add(0, branch(eq(ref("a"), ref("b"))), 1).jump(0, 2).
		add(1, nop()).
		add(2, nop())
	res := analyze(t, b)
	for _, n := range []int{1, 2} {
		if pc := res.In(n).PathCondition(); pc != ExternalCall {
			t.Errorf("node %d: path condition should be %s, got %s", n, ExternalCall, pc)
		}
	}
	if len(res.FeatureBranches(b)) != 0 {
		t.Errorf("no branch should depend on the feature")
	}
}

func TestCopyThroughAssignment(t *testing.T) {
	// y = x on one side, y = ? on the other
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("x")), 1).
		add(1, branch(opaque()), 2).jump(1, 3).
		add(2, assign("y", ref("x")), 4).
		add(3, assign("y", opaque()), 4).
		add(4, assign("w", cast(ref("x"))), 5).
		add(5, nop())
	res := analyze(t, b)
	expectState(t, res.FallOut(2), "y", Feature)
	expectState(t, res.FallOut(3), "y", Top)
	expectState(t, res.In(4), "y", Top)
	expectState(t, res.In(5), "w", Feature)
}

func TestOneSidedFactsKept(t *testing.T) {
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("x")), 1).
		add(1, branch(opaque()), 2).jump(1, 3).
		add(2, assign("y", ref("x")), 4).
		add(3, nop(), 4).
		add(4, nop())
	res := analyze(t, b)
	expectState(t, res.In(4), "y", Feature)
}

func TestNonPrimitiveDefinitionIgnored(t *testing.T) {
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("x")), 1).
		add(1, assignRef("o", ref("x")), 2).
		add(2, nop())
	res := analyze(t, b)
	if _, ok := res.In(2).Lookup(variable("o")); ok {
		t.Errorf("non-primitive definitions should not be tracked, got %s", res.In(2))
	}
}

func TestFeatureToggle(t *testing.T) {
	// if x { y = 1 } else { y = 0 }, then the join knows y is the feature
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("x")), 1).
		add(1, branch(ref("x")), 2).jump(1, 3).
		add(2, assign("y", num(1)), 4).
		add(3, assign("y", num(0)), 4).
		add(4, branch(zeroEqL("y")), 5).jump(4, 6).
		add(5, nop()).
		add(6, nop())
	res := analyze(t, b)
	expectState(t, res.In(4), "y", Feature)
	expected := []Branch[int]{{Node: 1, Condition: Feature}, {Node: 4, Condition: NotFeature}}
	if diff := cmp.Diff(expected, res.FeatureBranches(b)); diff != "" {
		t.Errorf("feature branches mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopConverges(t *testing.T) {
	// 0: makeFeature(x); 1: loop header; 2: y = x, back to 1; 3: exit
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("x")), 1).
		add(1, branch(opaque()), 2).jump(1, 3).
		add(2, assign("y", ref("x")), 1).
		add(3, nop())
	res := analyze(t, b)
	expectState(t, res.In(3), "x", Feature)
	expectState(t, res.In(3), "y", Feature)
	if pc := res.In(1).PathCondition(); pc != Top {
		t.Errorf("loop header path condition should be %s, got %s", Top, pc)
	}
}

func TestEntryWithPredecessors(t *testing.T) {
	b := newBody().
		add(0, nop(), 1).
		add(1, nop(), 0)
	res := analyze(t, b)
	if pc := res.In(0).PathCondition(); pc != Top {
		t.Errorf("entry path condition should be %s, got %s", Top, pc)
	}
}

func TestUnreachableNodesStayBottom(t *testing.T) {
	b := newBody().
		add(0, nop()).
		add(1, call(DefaultFeatureCallee, ref("x")))
	res := analyze(t, b)
	if pc := res.In(1).PathCondition(); pc != Bottom {
		t.Errorf("unreachable node path condition should be %s, got %s", Bottom, pc)
	}
	if diff := cmp.Diff([]int{1}, res.Unreachable); diff != "" {
		t.Errorf("unreachable nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxVisits(t *testing.T) {
	b := newBody().
		add(0, nop(), 1).
		add(1, nop(), 2).
		add(2, nop())
	if _, err := Analyze[int](b, Options{MaxVisits: 2}); err == nil {
		t.Errorf("expected an error when the visit budget is exhausted")
	}
}

func TestOscillatingLoopHitsDefaultBudget(t *testing.T) {
	// the header alternates between {z=?, y=!A, x=A} and {z=A, y=?, x=?}
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("z")), 1).
		add(1, assign("y", zeroEq("z")), 2).
		add(2, assign("z", ref("x")), 3).
		add(3, assign("x", zeroEq("y")), 4).
		add(4, branch(ref("z")), 5).jump(4, 1).
		add(5, nop())
	res, err := Analyze[int](b, Options{})
	if !errors.Is(err, fixpoint.ErrNoFixpoint) {
		t.Fatalf("expected %v, got %v", fixpoint.ErrNoFixpoint, err)
	}
	if budget := DefaultMaxVisits(6); res.Visits != budget+1 {
		t.Errorf("expected the solver to stop after %d visits, got %d", budget+1, res.Visits)
	}
}

func TestDefaultBudgetAllowsConvergence(t *testing.T) {
	b := newBody().
		add(0, call(DefaultFeatureCallee, ref("x")), 1).
		add(1, branch(opaque()), 2).jump(1, 3).
		add(2, assign("y", ref("x")), 1).
		add(3, nop())
	res := analyze(t, b)
	if res.Visits > DefaultMaxVisits(4) {
		t.Errorf("%d visits exceed the default budget", res.Visits)
	}
}
