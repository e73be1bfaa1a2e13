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

// The analysis only reads the program it analyzes. The host provides statements and expressions through the
// views below; any shape the host does not recognize simply answers false to every question.

// Var identifies a local variable of the analyzed function. Vars are used as map keys, so implementations must be
// comparable (typically pointers).
type Var interface {
	Name() string
}

// Expr is the view of an expression.
type Expr interface {
	// AsEquality returns the two operands of an equality comparison.
	AsEquality() (x Expr, y Expr, ok bool)

	// AsIntConstant returns the value of an integer constant.
	AsIntConstant() (int64, bool)

	// AsVariable returns the variable of a simple variable reference.
	AsVariable() (Var, bool)

	// AsCast returns the operand of a cast expression.
	AsCast() (Expr, bool)
}

// Stmt is the view of a statement, i.e. the payload of a control-flow graph node.
type Stmt interface {
	// AsCall returns the name of the callee and the arguments when the statement contains a call.
	AsCall() (callee string, args []Expr, ok bool)

	// AsConditional returns the condition of a conditional branch.
	AsConditional() (Expr, bool)

	// AsDefinition returns the defined variable and the right-hand side of an assignment. primitive is true when
	// the static type of the variable is a primitive type.
	AsDefinition() (lhs Var, rhs Expr, primitive bool, ok bool)
}
