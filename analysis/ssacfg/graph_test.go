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

package ssacfg

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/awslabs/featureflow/analysis/featureflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const source = `package p

func makeFeature(p *bool) {}

func makeIntFeature(x int) {}

type flags struct{}

func (flags) makeFeature(x *int) {}

func toggle() int {
	var on bool
	makeFeature(&on)
	y := 0
	if on {
		y = 1
	} else {
		y = 0
	}
	return y
}

func equality() int {
	x := 0
	makeIntFeature(x)
	y := 0
	if x == 0 {
		y = 1
	} else {
		y = 2
	}
	return y
}

func method() {
	var fl flags
	var x int
	fl.makeFeature(&x)
	var b int64 = int64(x)
	if b == 0 {
		println("off")
	}
}

func negation() bool {
	var on bool
	makeFeature(&on)
	off := !on
	return off
}

func constant() {
	ok := true
	if ok {
		println("always")
	}
}

func deferred() {
	defer println("done")
}
`

func buildFunction(t *testing.T, name string) *ssa.Function {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", source, parser.ParseComments)
	require.NoError(t, err)
	pkg := types.NewPackage("p", "p")
	ssaPkg, _, err := ssautil.BuildPackage(&types.Config{Importer: importer.Default()}, fset, pkg,
		[]*ast.File{f}, ssa.NaiveForm)
	require.NoError(t, err)
	fn := ssaPkg.Func(name)
	require.NotNil(t, fn, "function %s not found", name)
	return fn
}

// findLocal returns the cell of the local variable name. Cells of variables whose address is taken are allocated
// on the heap and are not listed in fn.Locals.
func findLocal(t *testing.T, fn *ssa.Function, name string) Local {
	t.Helper()
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if alloc, ok := instr.(*ssa.Alloc); ok && alloc.Comment == name {
				return Local{Alloc: alloc}
			}
		}
	}
	t.Fatalf("no local %s in %s", name, fn.Name())
	return Local{}
}

func findIf(t *testing.T, fn *ssa.Function) *ssa.If {
	t.Helper()
	for _, b := range fn.Blocks {
		if i, ok := b.Instrs[len(b.Instrs)-1].(*ssa.If); ok {
			return i
		}
	}
	t.Fatalf("no conditional in %s", fn.Name())
	return nil
}

func findReturn(t *testing.T, fn *ssa.Function) *ssa.Return {
	t.Helper()
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if r, ok := instr.(*ssa.Return); ok {
				return r
			}
		}
	}
	t.Fatalf("no return in %s", fn.Name())
	return nil
}

func analyze(t *testing.T, g *Graph) featureflow.Result[ssa.Instruction] {
	t.Helper()
	opts := featureflow.Options{
		Transfer: featureflow.Transfer{IsFeatureCallee: func(name string) bool {
			return name == "makeFeature" || name == "makeIntFeature"
		}},
	}
	res, err := featureflow.Analyze[ssa.Instruction](g, opts)
	require.NoError(t, err)
	return res
}

func TestNewNoBody(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoBody)
	_, err = New(&ssa.Function{})
	assert.ErrorIs(t, err, ErrNoBody)
}

func TestGraphEdges(t *testing.T) {
	fn := buildFunction(t, "toggle")
	g, err := New(fn)
	require.NoError(t, err)

	assert.Equal(t, fn.Blocks[0].Instrs[0], g.Entry())
	assert.Empty(t, g.Preds(g.Entry()))

	n := 0
	for _, b := range fn.Blocks {
		n += len(b.Instrs)
	}
	assert.Len(t, g.Nodes(), n)

	cond := findIf(t, fn)
	then := cond.Block().Succs[0].Instrs[0]
	els := cond.Block().Succs[1].Instrs[0]
	assert.Equal(t, []ssa.Instruction{then}, g.FallSuccs(cond))
	assert.Equal(t, []ssa.Instruction{els}, g.BranchSuccs(cond))
	assert.Equal(t, []ssa.Instruction{cond}, g.Preds(then))

	ret := findReturn(t, fn)
	assert.Empty(t, g.FallSuccs(ret))
	assert.Empty(t, g.BranchSuccs(ret))

	join := ret.Block().Instrs[0]
	assert.Len(t, g.Preds(join), 2)
}

func TestToggleIdiom(t *testing.T) {
	fn := buildFunction(t, "toggle")
	g, err := New(fn)
	require.NoError(t, err)
	res := analyze(t, g)

	cond := findIf(t, fn)
	assert.Equal(t, featureflow.Feature, res.In(cond).Get(findLocal(t, fn, "on")))
	assert.Equal(t, featureflow.Feature, res.In(cond.Block().Succs[0].Instrs[0]).PathCondition())
	assert.Equal(t, featureflow.NotFeature, res.In(cond.Block().Succs[1].Instrs[0]).PathCondition())

	ret := findReturn(t, fn)
	assert.Equal(t, featureflow.Feature, res.In(ret).Get(findLocal(t, fn, "y")))
	assert.Equal(t, featureflow.Top, res.In(ret).PathCondition())

	branches := res.FeatureBranches(g)
	require.Len(t, branches, 1)
	assert.Equal(t, ssa.Instruction(cond), branches[0].Node)
	assert.Equal(t, featureflow.Feature, branches[0].Condition)
}

func TestEqualityWithZero(t *testing.T) {
	fn := buildFunction(t, "equality")
	g, err := New(fn)
	require.NoError(t, err)
	res := analyze(t, g)

	cond := findIf(t, fn)
	branches := res.FeatureBranches(g)
	require.Len(t, branches, 1)
	assert.Equal(t, featureflow.NotFeature, branches[0].Condition)
	assert.Equal(t, featureflow.NotFeature, res.In(cond.Block().Succs[0].Instrs[0]).PathCondition())
	assert.Equal(t, featureflow.Feature, res.In(cond.Block().Succs[1].Instrs[0]).PathCondition())

	ret := findReturn(t, fn)
	assert.Equal(t, featureflow.True, res.In(ret).Get(findLocal(t, fn, "y")))
}

func TestMethodCalleeAndConversion(t *testing.T) {
	fn := buildFunction(t, "method")
	g, err := New(fn)
	require.NoError(t, err)
	res := analyze(t, g)

	cond := findIf(t, fn)
	assert.Equal(t, featureflow.Feature, res.In(cond).Get(findLocal(t, fn, "x")))
	assert.Equal(t, featureflow.Feature, res.In(cond).Get(findLocal(t, fn, "b")))
	branches := res.FeatureBranches(g)
	require.Len(t, branches, 1)
	assert.Equal(t, featureflow.NotFeature, branches[0].Condition)
}

func TestNegation(t *testing.T) {
	fn := buildFunction(t, "negation")
	g, err := New(fn)
	require.NoError(t, err)
	res := analyze(t, g)

	ret := findReturn(t, fn)
	assert.Equal(t, featureflow.NotFeature, res.In(ret).Get(findLocal(t, fn, "off")))
}

func TestConstantCondition(t *testing.T) {
	fn := buildFunction(t, "constant")
	g, err := New(fn)
	require.NoError(t, err)
	res := analyze(t, g)

	cond := findIf(t, fn)
	e, ok := g.Stmt(cond).AsConditional()
	require.True(t, ok)
	assert.Equal(t, featureflow.True, featureflow.EvalCondition(e, res.In(cond)))
	assert.Empty(t, res.FeatureBranches(g))
}

func TestStmtViews(t *testing.T) {
	fn := buildFunction(t, "method")
	var calls []string
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			callee, args, ok := NewStmt(instr).AsCall()
			if !ok {
				continue
			}
			calls = append(calls, callee)
			if callee == "makeFeature" {
				require.Len(t, args, 1)
				v, isVar := args[0].AsVariable()
				require.True(t, isVar)
				assert.Equal(t, "x", v.Name())
			}
		}
	}
	assert.Equal(t, []string{"makeFeature", "println"}, calls)
}

func TestBuilderCallsAreNotCalls(t *testing.T) {
	fn := buildFunction(t, "deferred")
	var calls []string
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if callee, _, ok := NewStmt(instr).AsCall(); ok {
				calls = append(calls, callee)
			}
		}
	}
	assert.Equal(t, []string{"println"}, calls)
}

func TestEqualityNeedsFeatureCallee(t *testing.T) {
	fn := buildFunction(t, "equality")
	g, err := New(fn)
	require.NoError(t, err)
	res, err := featureflow.Analyze[ssa.Instruction](g, featureflow.Options{})
	require.NoError(t, err)
	assert.Empty(t, res.FeatureBranches(g), "makeIntFeature is not a feature callee by default")
}

func TestPos(t *testing.T) {
	fn := buildFunction(t, "equality")
	cond := findIf(t, fn)
	assert.True(t, Pos(cond).IsValid())
	assert.Equal(t, 27, fn.Prog.Fset.Position(Pos(cond)).Line)
}
