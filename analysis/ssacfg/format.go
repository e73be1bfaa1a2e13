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

	"golang.org/x/tools/go/ssa"
)

// InstrString returns a short representation of the instruction, with the register it defines if any.
func InstrString(instr ssa.Instruction) string {
	switch instr := instr.(type) {
	case *ssa.Store:
		return fmt.Sprintf("*%s = %s", instr.Addr.Name(), instr.Val.Name())
	case *ssa.UnOp:
		return fmt.Sprintf("%s = %s%s", instr.Name(), instr.Op, instr.X.Name())
	case ssa.Value:
		if instr.Name() != "" {
			return fmt.Sprintf("%s = %s", instr.Name(), instr.String())
		}
		return instr.String()
	default:
		return instr.String()
	}
}
