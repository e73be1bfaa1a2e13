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

// Package report implements the frontend of the report tool, which prints the states computed by the feature
// analysis at every instruction and the branches that depend on the feature flag.
package report

import (
	"fmt"
	"os"

	"github.com/awslabs/featureflow/analysis"
	"github.com/awslabs/featureflow/analysis/config"
	flowreport "github.com/awslabs/featureflow/analysis/report"
	"github.com/awslabs/featureflow/cmd/featureflow/tools"
	"github.com/awslabs/featureflow/internal/formatutil"
	"github.com/awslabs/featureflow/internal/funcutil"
)

// Usage of the report tool
const Usage = `Report the feature-dependent branches of a program.
Usage:
  featureflow report [options] <package path(s)>
Examples:
Print the branches on the flag introduced by makeFeature
  % featureflow report ./...
Print every instruction with its state, for the functions of one package
  % featureflow report -verbose -pkg-filter example.com/app ./...
Export the results as yaml
  % featureflow report -format yaml ./... > report.yaml
`

// Flags represents the parsed report sub-command flags.
type Flags struct {
	tools.CommonFlags
	format string
}

// NewFlags returns the parsed report sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("report")
	format := flags.FlagSet.String("format", "", "report format, one of text, yaml, msgpack (overrides the config)")
	tools.SetUsage(flags.FlagSet, Usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	if *format != "" && !funcutil.Contains([]string{config.FormatText, config.FormatYaml, config.FormatMsgpack},
		*format) {
		return Flags{}, fmt.Errorf("unknown report format %q", *format)
	}
	return Flags{CommonFlags: common, format: *format}, nil
}

// Run runs the report tool with flags.
func Run(flags Flags) error {
	cfg, _, res, err := flags.LoadAndAnalyze()
	if err != nil {
		return err
	}
	if flags.format != "" {
		cfg.ReportFormat = flags.format
	}
	filename, err := flowreport.Write(cfg, res, os.Stdout, flags.Verbose)
	if err != nil {
		return err
	}
	if filename != "" {
		fmt.Fprintln(os.Stderr, formatutil.Faint("Report written in "+filename))
	}
	return analysisErrors(res)
}

// analysisErrors returns an error summarizing the functions whose analysis failed, if any
func analysisErrors(res analysis.ProgramResults) error {
	failed := res.Errors()
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("analysis failed for %d function(s), first failure in %s: %w",
		len(failed), failed[0].Function, failed[0].Err)
}
