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
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	"github.com/awslabs/featureflow/analysis/featureflow"
	"golang.org/x/tools/go/ssa"
)

// Local is a local variable of the source function. In naive SSA form, every local variable is a memory cell
// allocated by an Alloc instruction.
type Local struct {
	Alloc *ssa.Alloc
}

// Name returns the name of the variable in the source, if known
func (l Local) Name() string {
	if l.Alloc.Comment != "" {
		return l.Alloc.Comment
	}
	return l.Alloc.Name()
}

// Register is an SSA value that is not a memory cell, such as a parameter or the result of an instruction
type Register struct {
	Value ssa.Value
}

// Name returns the name of the register
func (r Register) Name() string {
	return r.Value.Name()
}

// VarOf returns the variable that v stands for when v is used as an operand. Loads of a memory cell stand for the
// local variable of the cell.
func VarOf(v ssa.Value) featureflow.Var {
	if alloc, ok := loadedCell(v); ok {
		return Local{Alloc: alloc}
	}
	if alloc, ok := v.(*ssa.Alloc); ok {
		return Local{Alloc: alloc}
	}
	return Register{Value: v}
}

// loadedCell returns the cell read when v is a load of an Alloc
func loadedCell(v ssa.Value) (*ssa.Alloc, bool) {
	load, ok := v.(*ssa.UnOp)
	if !ok || load.Op != token.MUL {
		return nil, false
	}
	alloc, ok := load.X.(*ssa.Alloc)
	return alloc, ok
}

type exprKind int

const (
	opaqueExpr exprKind = iota
	eqExpr
	constExpr
	varExpr
	castExpr
)

// Expr is the view of an SSA value as an expression. It implements featureflow.Expr.
type Expr struct {
	kind  exprKind
	value ssa.Value
	x, y  featureflow.Expr
	c     int64
	v     featureflow.Var
}

// AsEquality implements featureflow.Expr
func (e *Expr) AsEquality() (x featureflow.Expr, y featureflow.Expr, ok bool) {
	return e.x, e.y, e.kind == eqExpr
}

// AsIntConstant implements featureflow.Expr
func (e *Expr) AsIntConstant() (int64, bool) {
	return e.c, e.kind == constExpr
}

// AsVariable implements featureflow.Expr
func (e *Expr) AsVariable() (featureflow.Var, bool) {
	return e.v, e.kind == varExpr
}

// AsCast implements featureflow.Expr
func (e *Expr) AsCast() (featureflow.Expr, bool) {
	return e.x, e.kind == castExpr
}

func (e *Expr) String() string {
	switch e.kind {
	case eqExpr:
		return fmt.Sprintf("%v == %v", e.x, e.y)
	case constExpr:
		return fmt.Sprintf("%d", e.c)
	case varExpr:
		return e.v.Name()
	case castExpr:
		return fmt.Sprintf("cast(%v)", e.x)
	default:
		if e.value == nil {
			return "<nil>"
		}
		return e.value.Name()
	}
}

// OperandExpr returns the view of v used as an operand. Integer and boolean constants are integer constants, with
// true being one. Other values are variables.
func OperandExpr(v ssa.Value) featureflow.Expr {
	if v == nil {
		return nil
	}
	if c, ok := v.(*ssa.Const); ok {
		if n, ok := constInt(c); ok {
			return &Expr{kind: constExpr, value: v, c: n}
		}
		return &Expr{kind: opaqueExpr, value: v}
	}
	return &Expr{kind: varExpr, value: v, v: VarOf(v)}
}

// constInt returns the integer value of an integer or boolean constant
func constInt(c *ssa.Const) (int64, bool) {
	if c.Value == nil {
		return 0, false
	}
	switch c.Value.Kind() {
	case constant.Bool:
		if constant.BoolVal(c.Value) {
			return 1, true
		}
		return 0, true
	case constant.Int:
		if n, exact := constant.Int64Val(c.Value); exact {
			return n, true
		}
		// only the comparison with zero matters
		return int64(constant.Sign(c.Value)), true
	}
	return 0, false
}

// DefinitionExpr returns the view of the value computed by a value instruction. Equality comparisons and conversions
// are decomposed, and a boolean negation !x is the comparison x == 0. Any other computation is opaque.
func DefinitionExpr(v ssa.Value) featureflow.Expr {
	switch val := v.(type) {
	case *ssa.UnOp:
		if val.Op == token.NOT {
			zero := &Expr{kind: constExpr, value: v, c: 0}
			return &Expr{kind: eqExpr, value: v, x: OperandExpr(val.X), y: zero}
		}
	case *ssa.BinOp:
		if val.Op == token.EQL {
			return &Expr{kind: eqExpr, value: v, x: OperandExpr(val.X), y: OperandExpr(val.Y)}
		}
	case *ssa.Convert:
		return &Expr{kind: castExpr, value: v, x: OperandExpr(val.X)}
	case *ssa.ChangeType:
		return &Expr{kind: castExpr, value: v, x: OperandExpr(val.X)}
	}
	return &Expr{kind: opaqueExpr, value: v}
}

// Stmt is the view of an SSA instruction as a statement. It implements featureflow.Stmt.
type Stmt struct {
	Instr ssa.Instruction
}

// NewStmt returns the statement view of instr
func NewStmt(instr ssa.Instruction) featureflow.Stmt {
	return Stmt{Instr: instr}
}

// AsCall implements featureflow.Stmt. Calls, go and defer instructions contain a call. The arguments do not include
// the receiver of method calls. Calls of the builder's internal builtins (e.g. ssa:deferstack) are not calls of
// the source.
func (s Stmt) AsCall() (callee string, args []featureflow.Expr, ok bool) {
	call, isCall := s.Instr.(ssa.CallInstruction)
	if !isCall {
		return "", nil, false
	}
	common := call.Common()
	if b, isBuiltin := common.Value.(*ssa.Builtin); isBuiltin && strings.HasPrefix(b.Name(), "ssa:") {
		return "", nil, false
	}
	callArgs := common.Args
	if !common.IsInvoke() && common.Signature().Recv() != nil && len(callArgs) > 0 {
		callArgs = callArgs[1:]
	}
	for _, arg := range callArgs {
		args = append(args, OperandExpr(arg))
	}
	return CalleeName(common), args, true
}

// CalleeName returns the name of the function called, or an empty string for calls of dynamic function values
func CalleeName(common *ssa.CallCommon) string {
	if common.IsInvoke() {
		return common.Method.Name()
	}
	switch callee := common.Value.(type) {
	case *ssa.Builtin:
		return callee.Name()
	case *ssa.Function:
		if origin := callee.Origin(); origin != nil {
			callee = origin
		}
		return callee.Name()
	case *ssa.MakeClosure:
		if fn, ok := callee.Fn.(*ssa.Function); ok {
			return fn.Name()
		}
	}
	return ""
}

// AsConditional implements featureflow.Stmt
func (s Stmt) AsConditional() (featureflow.Expr, bool) {
	if i, ok := s.Instr.(*ssa.If); ok {
		return OperandExpr(i.Cond), true
	}
	return nil, false
}

// AsDefinition implements featureflow.Stmt. A store to a memory cell defines its local variable, and a value
// instruction defines its register. Loads do not define anything.
func (s Stmt) AsDefinition() (lhs featureflow.Var, rhs featureflow.Expr, primitive bool, ok bool) {
	switch instr := s.Instr.(type) {
	case *ssa.Store:
		alloc, isCell := instr.Addr.(*ssa.Alloc)
		if !isCell {
			return nil, nil, false, false
		}
		elem := alloc.Type().Underlying().(*types.Pointer).Elem()
		return Local{Alloc: alloc}, OperandExpr(instr.Val), IsPrimitive(elem), true
	case *ssa.Alloc:
		return nil, nil, false, false
	case ssa.Value:
		if _, isLoad := loadedCell(instr); isLoad {
			return nil, nil, false, false
		}
		return Register{Value: instr}, DefinitionExpr(instr), IsPrimitive(instr.Type()), true
	}
	return nil, nil, false, false
}

// IsPrimitive returns true when t is a boolean, numeric or string type
func IsPrimitive(t types.Type) bool {
	if t == nil {
		return false
	}
	_, ok := t.Underlying().(*types.Basic)
	return ok
}
