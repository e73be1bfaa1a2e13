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

package analysis

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/awslabs/featureflow/analysis/config"
	"github.com/awslabs/featureflow/analysis/featureflow"
	"github.com/awslabs/featureflow/analysis/ssacfg"
	"github.com/awslabs/featureflow/internal/funcutil"
	"github.com/awslabs/featureflow/internal/graphutil"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// FunctionResult is the result of the feature analysis of one function
type FunctionResult struct {
	// Function is the analyzed function
	Function *ssa.Function

	// Graph is the instruction graph the analysis ran on. Nil if the graph could not be built.
	Graph *ssacfg.Graph

	// States holds the states at every instruction
	States featureflow.Result[ssa.Instruction]

	// Branches are the conditional branches that depend on the feature flag, in visit order
	Branches []featureflow.Branch[ssa.Instruction]

	// Loops is the number of loops of the instruction graph
	Loops int

	// Err is set if the analysis of the function failed
	Err error
}

// ProgramResults holds the results of the analysis of all the functions of a program
type ProgramResults struct {
	// Program is the analyzed program
	Program *ssa.Program

	// Functions holds one result per analyzed function, sorted by function name
	Functions []*FunctionResult
}

// Errors returns the results of the functions for which the analysis failed
func (r ProgramResults) Errors() []*FunctionResult {
	var res []*FunctionResult
	for _, f := range r.Functions {
		if f.Err != nil {
			res = append(res, f)
		}
	}
	return res
}

// NumBranches returns the total number of feature-dependent branches
func (r ProgramResults) NumBranches() int {
	n := 0
	for _, f := range r.Functions {
		n += len(f.Branches)
	}
	return n
}

// AnalyzeFunction runs the feature analysis on the body of fn.
func AnalyzeFunction(fn *ssa.Function, opts featureflow.Options) *FunctionResult {
	res := &FunctionResult{Function: fn}
	g, err := ssacfg.New(fn)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", fn, err)
		return res
	}
	res.Graph = g
	states, err := featureflow.Analyze[ssa.Instruction](g, opts)
	res.States = states
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", fn, err)
		return res
	}
	res.Branches = states.FeatureBranches(g)
	res.Loops = len(graphutil.NewIndexGraph(g.Nodes(), func(n ssa.Instruction) []ssa.Instruction {
		return append(append([]ssa.Instruction{}, g.FallSuccs(n)...), g.BranchSuccs(n)...)
	}).Loops())
	return res
}

// AnalyzeProgram runs the feature analysis on every function of the loaded program that should be analyzed (see
// ShouldAnalyze). Functions are analyzed independently, on cfg.NumRoutines goroutines.
func AnalyzeProgram(loaded LoadedProgram, cfg *config.Config, logger *config.LogGroup) ProgramResults {
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	start := time.Now()
	var functions []*ssa.Function
	for fn := range ssautil.AllFunctions(loaded.Program) {
		if ShouldAnalyze(loaded, cfg, fn) {
			functions = append(functions, fn)
		}
	}
	sort.Slice(functions, func(i, j int) bool {
		return functions[i].String() < functions[j].String()
	})
	logger.Infof("Analyzing %d functions\n", len(functions))

	opts := featureflow.OptionsFromConfig(cfg, logger)
	results := funcutil.MapParallel(functions, func(fn *ssa.Function) *FunctionResult {
		logger.Debugf("Analyzing %s\n", fn)
		return AnalyzeFunction(fn, opts)
	}, numRoutines(cfg))

	res := ProgramResults{Program: loaded.Program, Functions: results}
	for _, f := range res.Errors() {
		logger.Warnf("analysis of %s failed: %v\n", f.Function, f.Err)
	}
	logger.Infof("Found %d feature-dependent branches (%.2f s)\n", res.NumBranches(), time.Since(start).Seconds())
	return res
}

func numRoutines(cfg *config.Config) int {
	if cfg.NumRoutines > 0 {
		return cfg.NumRoutines
	}
	return runtime.NumCPU()
}

// ShouldAnalyze returns true when fn is a function with a body, from source, that belongs to a package selected by
// the configuration and is not ignored by a directive. When the configuration has no package filter, the functions
// of the packages that were requested at load time are selected.
func ShouldAnalyze(loaded LoadedProgram, cfg *config.Config, fn *ssa.Function) bool {
	if fn == nil || len(fn.Blocks) == 0 || fn.Synthetic != "" {
		return false
	}
	pkg := fn.Package()
	if pkg == nil {
		return false
	}
	if loaded.IsIgnored(fn) {
		return false
	}
	if cfg.PkgFilter != "" {
		return cfg.MatchPkgFilter(pkg.Pkg.Path())
	}
	return funcutil.Exists(loaded.Packages, func(p *packages.Package) bool { return p.Types == pkg.Pkg })
}
