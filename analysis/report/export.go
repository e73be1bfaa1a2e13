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

package report

import (
	"fmt"
	"io"

	"github.com/awslabs/featureflow/analysis"
	"github.com/awslabs/featureflow/analysis/featureflow"
	"github.com/awslabs/featureflow/analysis/ssacfg"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/tools/go/ssa"
	"gopkg.in/yaml.v3"
)

// Function is the exported result of the analysis of one function
type Function struct {
	Name     string   `yaml:"name" msgpack:"name"`
	Position string   `yaml:"position" msgpack:"position"`
	Error    string   `yaml:"error,omitempty" msgpack:"error,omitempty"`
	Loops    int      `yaml:"loops" msgpack:"loops"`
	Branches []Branch `yaml:"branches,omitempty" msgpack:"branches,omitempty"`
	Points   []Point  `yaml:"points,omitempty" msgpack:"points,omitempty"`
}

// Branch is a conditional branch that depends on the feature flag
type Branch struct {
	Instruction string `yaml:"instruction" msgpack:"instruction"`
	Position    string `yaml:"position" msgpack:"position"`
	Condition   string `yaml:"condition" msgpack:"condition"`
}

// Point holds the states at one instruction
type Point struct {
	Instruction string `yaml:"instruction" msgpack:"instruction"`
	In          State  `yaml:"in" msgpack:"in"`
	FallOut     *State `yaml:"fall-out,omitempty" msgpack:"fall-out,omitempty"`
	BranchOut   *State `yaml:"branch-out,omitempty" msgpack:"branch-out,omitempty"`
}

// State is an exported analysis state. States are written with their string representation.
type State struct {
	PathCondition string `yaml:"path-condition" msgpack:"path-condition"`
	Variables     []Fact `yaml:"variables,omitempty" msgpack:"variables,omitempty"`
}

// Fact is the state of one variable
type Fact struct {
	Name  string `yaml:"name" msgpack:"name"`
	State string `yaml:"state" msgpack:"state"`
}

// Export returns the exported results of every function in res
func Export(res analysis.ProgramResults) []Function {
	functions := make([]Function, 0, len(res.Functions))
	for _, f := range res.Functions {
		functions = append(functions, ExportFunction(res.Program, f))
	}
	return functions
}

// ExportFunction returns the exported result of f
func ExportFunction(prog *ssa.Program, f *analysis.FunctionResult) Function {
	exported := Function{
		Name:     f.Function.String(),
		Position: prog.Fset.Position(f.Function.Pos()).String(),
		Loops:    f.Loops,
	}
	if f.Err != nil {
		exported.Error = f.Err.Error()
		return exported
	}
	for _, b := range f.Branches {
		exported.Branches = append(exported.Branches, Branch{
			Instruction: ssacfg.InstrString(b.Node),
			Position:    prog.Fset.Position(ssacfg.Pos(b.Node)).String(),
			Condition:   b.Condition.String(),
		})
	}
	if f.Graph == nil {
		return exported
	}
	for _, n := range f.States.Order {
		p := Point{Instruction: ssacfg.InstrString(n), In: ExportState(f.States.In(n))}
		if len(f.Graph.FallSuccs(n)) > 0 {
			s := ExportState(f.States.FallOut(n))
			p.FallOut = &s
		}
		if len(f.Graph.BranchSuccs(n)) > 0 {
			s := ExportState(f.States.BranchOut(n))
			p.BranchOut = &s
		}
		exported.Points = append(exported.Points, p)
	}
	return exported
}

// ExportState returns the exported form of s, with variables ordered by name
func ExportState(s featureflow.AnalysisState) State {
	exported := State{PathCondition: s.PathCondition().String()}
	for _, v := range s.Vars() {
		exported.Variables = append(exported.Variables, Fact{Name: v.Name(), State: s.Get(v).String()})
	}
	return exported
}

// WriteYaml writes the functions to w in yaml
func WriteYaml(w io.Writer, functions []Function) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(functions); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteMsgpack writes the functions to w in msgpack
func WriteMsgpack(w io.Writer, functions []Function) error {
	if err := msgpack.NewEncoder(w).Encode(functions); err != nil {
		return fmt.Errorf("failed to encode msgpack: %w", err)
	}
	return nil
}

// ReadMsgpack reads functions written by WriteMsgpack
func ReadMsgpack(r io.Reader) ([]Function, error) {
	var functions []Function
	if err := msgpack.NewDecoder(r).Decode(&functions); err != nil {
		return nil, fmt.Errorf("failed to decode msgpack: %w", err)
	}
	return functions, nil
}
