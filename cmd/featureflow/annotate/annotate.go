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

// Package annotate implements the frontend of the annotate tool, which comments the if and else blocks that only
// run when the feature flag is set, or unset.
package annotate

import (
	"fmt"
	"os"

	flowannotate "github.com/awslabs/featureflow/analysis/annotate"
	"github.com/awslabs/featureflow/cmd/featureflow/tools"
	"github.com/awslabs/featureflow/internal/formatutil"
)

// Usage of the annotate tool
const Usage = `Annotate the blocks whose path condition is the feature flag or its negation.
Usage:
  featureflow annotate [options] <package path(s)>
Examples:
Print the annotated files
  % featureflow annotate ./...
Rewrite the files in place
  % featureflow annotate -w ./...
`

// Flags represents the parsed annotate sub-command flags.
type Flags struct {
	tools.CommonFlags
	write bool
}

// NewFlags returns the parsed annotate sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("annotate")
	write := flags.FlagSet.Bool("w", false, "write the annotated files instead of printing them")
	tools.SetUsage(flags.FlagSet, Usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, write: *write}, nil
}

// Run runs the annotate tool with flags.
func Run(flags Flags) error {
	_, loaded, res, err := flags.LoadAndAnalyze()
	if err != nil {
		return err
	}
	files, err := flowannotate.Annotate(loaded, res)
	if err != nil {
		return fmt.Errorf("could not annotate files: %v", err)
	}
	for _, f := range files {
		if flags.write {
			if err := f.Write(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%s: %d annotations\n", f.Filename, len(f.Annotations))
			continue
		}
		fmt.Println(formatutil.Faint("// " + f.Filename))
		if err := f.Fprint(os.Stdout); err != nil {
			return err
		}
	}
	return nil
}
