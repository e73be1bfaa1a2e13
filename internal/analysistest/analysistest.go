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

// Package analysistest contains helpers to load test programs and to read the expected results written as comments
// in their source.
package analysistest

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/awslabs/featureflow/analysis"
	"github.com/awslabs/featureflow/analysis/config"
	"github.com/awslabs/featureflow/analysis/featureflow"
	"golang.org/x/tools/go/ssa"
)

// LoadTest loads the program in the directory dir, looking for a main.go and a config.yaml. If additional files
// are specified as extraFiles, the program will be loaded using those files too. The default configuration is used
// when dir has no config.yaml.
func LoadTest(t *testing.T, dir string, extraFiles []string) (analysis.LoadedProgram, *config.Config) {
	t.Helper()
	files := []string{filepath.Join(dir, "./main.go")}
	for _, extraFile := range extraFiles {
		files = append(files, filepath.Join(dir, extraFile))
	}

	loaded, err := analysis.LoadProgram(nil, "", ssa.NaiveForm|ssa.InstantiateGenerics, files)
	if err != nil {
		t.Fatalf("error loading packages: %v", err)
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		return loaded, config.NewDefault()
	}
	config.SetGlobalConfig(configFile)
	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("error loading global config: %v", err)
	}
	return loaded, cfg
}

// ExpectedBranchRegex matches annotations of the form "@Feature" or "@NotFeature"
var ExpectedBranchRegex = regexp.MustCompile(`//.*@(Feature|NotFeature)\b`)

// LPos is a position without column
type LPos struct {
	Filename string
	Line     int
}

func (p LPos) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// RemoveColumn returns the position pos without its column
func RemoveColumn(pos token.Position) LPos {
	return LPos{Line: pos.Line, Filename: pos.Filename}
}

// GetExpectedBranches analyzes the Go files in dir and looks for comments @Feature and @NotFeature. Each comment
// marks the line of a conditional branch whose condition is expected to be the feature flag (or its negation).
// File names in the positions are absolute.
func GetExpectedBranches(dir string) (map[LPos]featureflow.FeatureState, error) {
	expected := map[LPos]featureflow.FeatureState{}
	fset := token.NewFileSet()
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, abs, nil, parser.ParseComments)
		if err != nil {
			return err
		}
		for _, group := range f.Comments {
			for _, c := range group.List {
				a := ExpectedBranchRegex.FindStringSubmatch(c.Text)
				if len(a) < 2 {
					continue
				}
				state := featureflow.Feature
				if a[1] == "NotFeature" {
					state = featureflow.NotFeature
				}
				expected[RemoveColumn(fset.Position(c.Pos()))] = state
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read expected branches in %s: %w", dir, err)
	}
	return expected, nil
}
