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

// Package annotate decorates the source of analyzed programs with the path conditions computed by the feature
// analysis: the body of an if statement that only runs when the feature flag is set (resp. not set) gets a
// "// feature: A" (resp. "// feature: !A") comment after its opening brace.
package annotate

import (
	"fmt"
	"go/ast"
	"go/token"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/awslabs/featureflow/analysis"
	"github.com/awslabs/featureflow/analysis/featureflow"
	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/dstutil"
)

// Prefix is the prefix of the annotation comments
const Prefix = "// feature: "

// Annotation is a comment added to a block
type Annotation struct {
	// Pos is the position of the opening brace of the block
	Pos token.Position
	// Condition is the path condition of the block
	Condition featureflow.FeatureState
}

// File is a decorated source file
type File struct {
	// Filename is the name of the source file
	Filename string
	// Annotations are the comments added to the file, in source order
	Annotations []Annotation

	dst *dst.File
}

// Fprint prints the decorated source of the file to w
func (f *File) Fprint(w io.Writer) error {
	if err := decorator.Fprint(w, f.dst); err != nil {
		return fmt.Errorf("could not print %s: %w", f.Filename, err)
	}
	return nil
}

// Write overwrites the source file with its decorated source
func (f *File) Write() error {
	info, err := os.Stat(f.Filename)
	if err != nil {
		return fmt.Errorf("could not write %s: %w", f.Filename, err)
	}
	var b strings.Builder
	if err := f.Fprint(&b); err != nil {
		return err
	}
	return os.WriteFile(f.Filename, []byte(b.String()), info.Mode().Perm())
}

// point is the path condition at a position of the source
type point struct {
	pos       token.Pos
	condition featureflow.FeatureState
}

// conditions holds the path conditions at the instructions of the analyzed functions, sorted by position
type conditions []point

func collectConditions(res analysis.ProgramResults) conditions {
	var points conditions
	for _, f := range res.Functions {
		if f.Graph == nil || f.Err != nil {
			continue
		}
		for _, instr := range f.Graph.Nodes() {
			if instr.Pos().IsValid() {
				points = append(points, point{pos: instr.Pos(), condition: f.States.In(instr).PathCondition()})
			}
		}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].pos < points[j].pos })
	return points
}

// inBlock returns the path condition of the first instruction located in block, if there is one.
func (c conditions) inBlock(block *ast.BlockStmt) (featureflow.FeatureState, bool) {
	i := sort.Search(len(c), func(i int) bool { return c[i].pos > block.Lbrace })
	if i < len(c) && c[i].pos < block.Rbrace {
		return c[i].condition, true
	}
	return featureflow.Bottom, false
}

// Annotate decorates the files of the packages of loaded with the path conditions in res. Only the files that
// receive at least one annotation are returned. Blocks that are already annotated are left unchanged.
func Annotate(loaded analysis.LoadedProgram, res analysis.ProgramResults) ([]*File, error) {
	fset := loaded.Program.Fset
	points := collectConditions(res)
	var files []*File
	for _, pkg := range loaded.Packages {
		for _, astFile := range pkg.Syntax {
			f, err := annotateFile(fset, astFile, points)
			if err != nil {
				return files, err
			}
			if len(f.Annotations) > 0 {
				files = append(files, f)
			}
		}
	}
	return files, nil
}

func annotateFile(fset *token.FileSet, astFile *ast.File, points conditions) (*File, error) {
	dec := decorator.NewDecorator(fset)
	dstFile, err := dec.DecorateFile(astFile)
	if err != nil {
		return nil, fmt.Errorf("could not decorate %s: %w", fset.Position(astFile.Pos()).Filename, err)
	}
	f := &File{Filename: fset.Position(astFile.Pos()).Filename, dst: dstFile}

	annotateBlock := func(block *dst.BlockStmt) {
		astBlock, ok := dec.Ast.Nodes[block].(*ast.BlockStmt)
		if !ok {
			return
		}
		x, ok := points.inBlock(astBlock)
		if !ok || !x.IsFeatureDependent() || isAnnotated(block) {
			return
		}
		block.Decs.Lbrace.Append(Prefix + x.String())
		f.Annotations = append(f.Annotations, Annotation{Pos: fset.Position(astBlock.Lbrace), Condition: x})
	}

	dstutil.Apply(dstFile, func(c *dstutil.Cursor) bool {
		if ifStmt, ok := c.Node().(*dst.IfStmt); ok {
			annotateBlock(ifStmt.Body)
			if els, ok := ifStmt.Else.(*dst.BlockStmt); ok {
				annotateBlock(els)
			}
		}
		return true
	}, nil)
	return f, nil
}

// isAnnotated returns true if the block has an annotation, either after its brace or before its first statement
func isAnnotated(block *dst.BlockStmt) bool {
	decs := append([]string{}, block.Decs.Lbrace.All()...)
	if len(block.List) > 0 {
		decs = append(decs, block.List[0].Decorations().Start.All()...)
	}
	for _, d := range decs {
		if strings.HasPrefix(d, Prefix) {
			return true
		}
	}
	return false
}
