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

package main

import (
	"fmt"
	"os"

	"github.com/awslabs/featureflow/cmd/featureflow/annotate"
	"github.com/awslabs/featureflow/cmd/featureflow/render"
	"github.com/awslabs/featureflow/cmd/featureflow/report"
	"github.com/awslabs/featureflow/cmd/featureflow/tools"
)

// Version is the version of the tool
const Version = "v0.1.0"

const usage = `featureflow: feature flag dataflow analysis for Go
Usage:
  featureflow [tool] [options] <package path(s)>
Tools:
  - report: prints the branches that depend on the feature flag, and the analysis states with -verbose
  - render: writes the flow graph of each function, with the analysis states, in DOT format
  - annotate: comments the blocks that only run when the feature flag is set (or unset)
Examples:
  featureflow report -config config.yaml ./...
  featureflow annotate -callees "Enabled" -w ./...`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(Version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "report":
		flags, err := report.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := report.Run(flags); err != nil {
			errExit(err)
		}
	case "render":
		flags, err := render.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := render.Run(flags); err != nil {
			errExit(err)
		}
	case "annotate":
		flags, err := annotate.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := annotate.Run(flags); err != nil {
			errExit(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	hint := tools.HintForErrorMessage(err.Error())
	if hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
