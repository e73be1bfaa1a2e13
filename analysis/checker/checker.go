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

// Package checker provides a go/analysis analyzer that reports the conditional branches whose condition is the
// feature flag or its negation, and its registration as a golangci-lint module plugin.
package checker

import (
	"sort"
	"strings"

	"github.com/awslabs/featureflow/analysis/config"
	"github.com/awslabs/featureflow/analysis/featureflow"
	"github.com/awslabs/featureflow/analysis/ssacfg"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Name is the name of the analyzer
const Name = "featureflow"

const doc = `reports branches on the feature flag

The feature flag is the first argument of a call to one of the feature callees
(by default makeFeature). A branch is reported when its condition is the flag,
a copy of it, or its comparison with zero.`

// Analyzer is the analyzer with the default feature callee. The callees can be set with the -callees flag.
var Analyzer = NewAnalyzer(nil)

type checker struct {
	callees string
}

// NewAnalyzer returns an analyzer that uses callees as feature callees, or the default callee if callees is empty.
// The -callees flag of the analyzer overrides them.
func NewAnalyzer(callees []string) *analysis.Analyzer {
	c := &checker{callees: strings.Join(callees, ",")}
	if c.callees == "" {
		c.callees = config.DefaultFeatureCallee
	}
	a := &analysis.Analyzer{
		Name: Name,
		Doc:  doc,
		Run:  c.run,
	}
	a.Flags.StringVar(&c.callees, "callees", c.callees,
		"comma-separated names (or regexes) of the functions whose first argument becomes the feature flag")
	return a
}

func (c *checker) run(pass *analysis.Pass) (interface{}, error) {
	cfg := config.NewDefault()
	cfg.SetFeatureCallees(strings.Split(c.callees, ","))
	opts := featureflow.OptionsFromConfig(cfg, nil)

	pkg := ssacfg.BuildPackage(pass.Fset, pass.Pkg, pass.Files, pass.TypesInfo)
	for _, fn := range packageFunctions(pkg) {
		g, err := ssacfg.New(fn)
		if err != nil {
			continue
		}
		res, err := featureflow.Analyze[ssa.Instruction](g, opts)
		if err != nil {
			return nil, err
		}
		for _, b := range res.FeatureBranches(g) {
			pass.Reportf(ssacfg.Pos(b.Node), "branch on feature flag (%s)", b.Condition)
		}
	}
	return nil, nil
}

// packageFunctions returns the functions of pkg with a body, including methods and anonymous functions, sorted
// by position
func packageFunctions(pkg *ssa.Package) []*ssa.Function {
	var functions []*ssa.Function
	for fn := range ssautil.AllFunctions(pkg.Prog) {
		if fn.Package() == pkg && len(fn.Blocks) > 0 && fn.Synthetic == "" {
			functions = append(functions, fn)
		}
	}
	sort.Slice(functions, func(i, j int) bool { return functions[i].Pos() < functions[j].Pos() })
	return functions
}
