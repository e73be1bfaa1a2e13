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

// Package report prints the results of the feature analysis, either as a human-readable text report or exported in
// a structured format (yaml or msgpack).
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/awslabs/featureflow/analysis"
	"github.com/awslabs/featureflow/analysis/config"
	"github.com/awslabs/featureflow/analysis/featureflow"
	"github.com/awslabs/featureflow/analysis/ssacfg"
	"github.com/awslabs/featureflow/internal/formatutil"
	"golang.org/x/tools/go/ssa"
)

// Filename returns the name of the report file for the given format
func Filename(format string) string {
	switch format {
	case config.FormatYaml:
		return "featureflow-report.yaml"
	case config.FormatMsgpack:
		return "featureflow-report.msgpack"
	default:
		return "featureflow-report.txt"
	}
}

// Write writes the report of res in the format of the configuration, to a file in the reports directory if the
// configuration has one, and to w otherwise. It returns the name of the file written, if any.
func Write(cfg *config.Config, res analysis.ProgramResults, w io.Writer, verbose bool) (string, error) {
	filename := ""
	if cfg.ReportsDir != "" {
		filename = filepath.Join(cfg.ReportsDir, Filename(cfg.ReportFormat))
		f, err := os.Create(filename)
		if err != nil {
			return "", fmt.Errorf("could not create report file: %w", err)
		}
		defer f.Close()
		w = f
		formatutil.SetColors(false)
	}

	var err error
	switch cfg.ReportFormat {
	case config.FormatYaml:
		err = WriteYaml(w, Export(res))
	case config.FormatMsgpack:
		err = WriteMsgpack(w, Export(res))
	default:
		err = WriteText(w, res, verbose)
	}
	if err != nil {
		return "", fmt.Errorf("error while writing report: %w", err)
	}
	return filename, nil
}

// WriteText writes a human-readable report of res to w. For each function, it lists the branches that depend on the
// feature flag. When verbose is set, it also lists every instruction with the state before it and the states after
// it when they differ.
func WriteText(w io.Writer, res analysis.ProgramResults, verbose bool) error {
	tw := &textWriter{w: w}
	for _, f := range res.Functions {
		tw.function(res.Program, f, verbose)
	}
	tw.printf("%s functions analyzed, %s feature-dependent branches, %s errors\n",
		formatutil.Bold(len(res.Functions)), formatutil.Bold(res.NumBranches()), formatutil.Bold(len(res.Errors())))
	return tw.err
}

// textWriter remembers the first error so that callers check it once
type textWriter struct {
	w   io.Writer
	err error
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

func (tw *textWriter) function(prog *ssa.Program, f *analysis.FunctionResult, verbose bool) {
	pos := prog.Fset.Position(f.Function.Pos())
	tw.printf("%s %s (%s)\n", formatutil.Bold("function"), formatutil.Sanitize(f.Function.String()), pos)
	if f.Err != nil {
		tw.printf("  %s %v\n", formatutil.Red("error:"), f.Err)
		return
	}
	if verbose && f.Graph != nil {
		for _, n := range f.States.Order {
			tw.point(f, n)
		}
	}
	for _, b := range f.Branches {
		tw.printf("  %s %s at %s\n", StateColor(b.Condition)(b.Condition),
			formatutil.Sanitize(ssacfg.InstrString(b.Node)), prog.Fset.Position(ssacfg.Pos(b.Node)))
	}
	tw.printf("  %d feature-dependent branches, %d loops\n", len(f.Branches), f.Loops)
}

func (tw *textWriter) point(f *analysis.FunctionResult, n ssa.Instruction) {
	in := f.States.In(n)
	tw.printf("  %s\n", formatutil.Sanitize(ssacfg.InstrString(n)))
	tw.printf("    %s %s\n", formatutil.Faint("in:    "), in)
	if fall := f.States.FallOut(n); len(f.Graph.FallSuccs(n)) > 0 && !fall.Equal(in) {
		tw.printf("    %s %s\n", formatutil.Faint("fall:  "), fall)
	}
	if br := f.States.BranchOut(n); len(f.Graph.BranchSuccs(n)) > 0 {
		tw.printf("    %s %s\n", formatutil.Faint("branch:"), br)
	}
}

// StateColor returns the color used to print the state x
func StateColor(x featureflow.FeatureState) func(...any) string {
	switch x {
	case featureflow.Feature:
		return formatutil.Green
	case featureflow.NotFeature:
		return formatutil.Red
	case featureflow.Top:
		return formatutil.Yellow
	default:
		return formatutil.Faint
	}
}
