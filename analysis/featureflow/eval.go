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

// EvalCondition returns the feature state of the boolean expression e in state s. Expressions that are not
// understood evaluate to Top.
func EvalCondition(e Expr, s AnalysisState) FeatureState {
	if e == nil {
		return Top
	}
	if x, y, ok := e.AsEquality(); ok {
		return evalEqCondition(x, y, s)
	}
	if c, ok := e.AsIntConstant(); ok {
		if c == 0 {
			return False
		}
		return True
	}
	if v, ok := e.AsVariable(); ok {
		return s.Get(v)
	}
	return Top
}

// evalEqCondition evaluates x == y when one side is the constant zero and the other a variable: comparing the
// feature (or its negation) to zero yields the negation.
func evalEqCondition(x Expr, y Expr, s AnalysisState) FeatureState {
	var operand Expr
	if isZero(x) {
		operand = y
	} else if isZero(y) {
		operand = x
	}
	if operand == nil {
		return Top
	}
	v, ok := operand.AsVariable()
	if !ok {
		return Top
	}
	if x, ok := s.Lookup(v); ok {
		return x.Negate()
	}
	return Top
}

func isZero(e Expr) bool {
	if e == nil {
		return false
	}
	c, ok := e.AsIntConstant()
	return ok && c == 0
}
