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

// Package render implements the frontend of the render tool, which writes the flow graph of each analyzed function
// with its states in DOT format.
package render

import (
	"fmt"
	"os"

	flowrender "github.com/awslabs/featureflow/analysis/render"
	"github.com/awslabs/featureflow/cmd/featureflow/tools"
	"github.com/awslabs/featureflow/internal/formatutil"
)

// Usage of the render tool
const Usage = `Render the flow graphs of the analyzed functions, with the state at each instruction.
Usage:
  featureflow render [options] <package path(s)>
Examples:
Write one .dot file per function of package example.com/app in the graphs folder
  % featureflow render -o graphs -pkg-filter example.com/app ./...
`

// Flags represents the parsed render sub-command flags.
type Flags struct {
	tools.CommonFlags
	out string
}

// NewFlags returns the parsed render sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("render")
	out := flags.FlagSet.String("o", "featureflow-graphs", "output folder for the .dot files")
	tools.SetUsage(flags.FlagSet, Usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	if *out == "" {
		return Flags{}, fmt.Errorf("render needs an output folder")
	}
	return Flags{CommonFlags: common, out: *out}, nil
}

// Run runs the render tool with flags.
func Run(flags Flags) error {
	_, _, res, err := flags.LoadAndAnalyze()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, formatutil.Faint("Writing graphs in "+flags.out))
	files, err := flowrender.WriteProgram(res, flags.out)
	if err != nil {
		return fmt.Errorf("could not render flow graphs: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d graphs\n", len(files))
	return nil
}
