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

// Package ssacfg builds the instruction-level control-flow graph of SSA functions for the feature analysis, and
// exposes SSA instructions and values as featureflow statements and expressions.
//
// Every instruction is a node. The fall-through successor of an instruction is the next instruction of its block.
// At the end of a block, a jump falls through to its target, and a conditional branch falls through to the block
// executed when the condition holds (the then-block) and branches to the other one.
//
// The analysis is most precise on programs built in naive SSA form (see [ssa.NaiveForm]), where the local variables
// of the source are memory cells that are stored to and loaded from.
package ssacfg

import (
	"errors"
	"go/token"

	"github.com/awslabs/featureflow/analysis/featureflow"
	"github.com/awslabs/featureflow/internal/funcutil"
	"golang.org/x/tools/go/ssa"
)

// ErrNoBody is returned when building the graph of a function that has no body, e.g. an external function
var ErrNoBody = errors.New("function has no body")

// Graph is the control-flow graph of a function with instructions as nodes. It implements featureflow.Body.
type Graph struct {
	// Function is the function of the graph
	Function *ssa.Function

	nodes  []ssa.Instruction
	fall   map[ssa.Instruction][]ssa.Instruction
	branch map[ssa.Instruction][]ssa.Instruction
	preds  map[ssa.Instruction][]ssa.Instruction
}

// New returns the instruction graph of fn
func New(fn *ssa.Function) (*Graph, error) {
	if fn == nil || len(fn.Blocks) == 0 {
		return nil, ErrNoBody
	}
	g := &Graph{
		Function: fn,
		fall:     map[ssa.Instruction][]ssa.Instruction{},
		branch:   map[ssa.Instruction][]ssa.Instruction{},
		preds:    map[ssa.Instruction][]ssa.Instruction{},
	}
	for _, block := range fn.Blocks {
		g.nodes = append(g.nodes, block.Instrs...)
	}
	if len(g.nodes) == 0 || len(fn.Blocks[0].Instrs) == 0 {
		return nil, ErrNoBody
	}

	for _, block := range fn.Blocks {
		for i, instr := range block.Instrs {
			if i < len(block.Instrs)-1 {
				next := block.Instrs[i+1]
				g.fall[instr] = []ssa.Instruction{next}
				g.preds[next] = append(g.preds[next], instr)
				continue
			}
			g.addBlockExits(instr)
		}
	}
	return g, nil
}

// addBlockExits adds the edges leaving the last instruction of a block
func (g *Graph) addBlockExits(last ssa.Instruction) {
	block := last.Block()
	switch last.(type) {
	case *ssa.If:
		if then, ok := leader(block.Succs[0]); ok {
			g.addEdge(last, then, false)
		}
		if els, ok := leader(block.Succs[1]); ok {
			g.addEdge(last, els, true)
		}
	case *ssa.Return, *ssa.Panic:
	default:
		for _, succ := range block.Succs {
			if l, ok := leader(succ); ok {
				g.addEdge(last, l, false)
			}
		}
	}
}

func (g *Graph) addEdge(from ssa.Instruction, to ssa.Instruction, branch bool) {
	if branch {
		g.branch[from] = append(g.branch[from], to)
	} else {
		g.fall[from] = append(g.fall[from], to)
	}
	// both successors of a conditional can be the same block
	if !funcutil.Contains(g.preds[to], from) {
		g.preds[to] = append(g.preds[to], from)
	}
}

// leader returns the first instruction executed when entering block
func leader(block *ssa.BasicBlock) (ssa.Instruction, bool) {
	seen := map[*ssa.BasicBlock]bool{}
	for block != nil && !seen[block] {
		seen[block] = true
		if len(block.Instrs) > 0 {
			return block.Instrs[0], true
		}
		if len(block.Succs) != 1 {
			return nil, false
		}
		block = block.Succs[0]
	}
	return nil, false
}

// Entry implements fixpoint.Graph: it returns the first instruction of the entry block
func (g *Graph) Entry() ssa.Instruction {
	return g.Function.Blocks[0].Instrs[0]
}

// Nodes implements fixpoint.Graph: it returns the instructions, block by block
func (g *Graph) Nodes() []ssa.Instruction {
	return g.nodes
}

// Preds implements fixpoint.Graph. The predecessors of the first instruction of a block are ordered like the
// predecessors of the block.
func (g *Graph) Preds(n ssa.Instruction) []ssa.Instruction {
	return g.preds[n]
}

// FallSuccs implements fixpoint.Graph
func (g *Graph) FallSuccs(n ssa.Instruction) []ssa.Instruction {
	return g.fall[n]
}

// BranchSuccs implements fixpoint.Graph
func (g *Graph) BranchSuccs(n ssa.Instruction) []ssa.Instruction {
	return g.branch[n]
}

// Stmt implements featureflow.Body
func (g *Graph) Stmt(n ssa.Instruction) featureflow.Stmt {
	return NewStmt(n)
}

// Pos returns a position for the instruction. Instructions without a position of their own are located at their
// operands, or at the function.
func Pos(instr ssa.Instruction) token.Pos {
	if instr.Pos().IsValid() {
		return instr.Pos()
	}
	if i, ok := instr.(*ssa.If); ok && i.Cond.Pos().IsValid() {
		return i.Cond.Pos()
	}
	var operands []*ssa.Value
	for _, op := range instr.Operands(operands) {
		if op != nil && *op != nil && (*op).Pos().IsValid() {
			return (*op).Pos()
		}
	}
	return instr.Parent().Pos()
}
