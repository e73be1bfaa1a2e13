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
	"go/ast"
	"go/token"
	"os"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode is the default loading mode in the analyses. Syntax is needed to find directives.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// LoadedProgram represents a loaded program.
type LoadedProgram struct {
	// Program is the SSA version of the program.
	Program *ssa.Program
	// Packages is the list of packages that were requested, with their syntax.
	Packages []*packages.Package
	// Directives is a map from the directive's position in the program to the relevant directive comment.
	Directives Directives

	// ignored contains the positions of the names of the function declarations documented by an ignore directive
	ignored map[token.Pos]bool
}

// IsIgnored returns true if the declaration of fn is documented by an ignore directive.
func (p LoadedProgram) IsIgnored(fn *ssa.Function) bool {
	return fn.Pos().IsValid() && p.ignored[fn.Pos()]
}

// LoadProgram loads a program on platform "platform" using the buildmode provided and the args.
// To understand how to specify the args, look at the documentation of packages.Load.
// The feature analysis expects the buildmode to contain ssa.NaiveForm, so that local variables are not lifted to
// registers.
func LoadProgram(config *packages.Config,
	platform string,
	buildmode ssa.BuilderMode,
	args []string) (LoadedProgram, error) {

	if config == nil {
		config = &packages.Config{
			Mode:  PkgLoadMode,
			Tests: false,
			Fset:  token.NewFileSet(),
		}
	}

	if platform != "" {
		config.Env = append(os.Environ(), fmt.Sprintf("GOOS=%s", platform))
	}

	// load, parse and type check the given packages
	initialPackages, err := packages.Load(config, args...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to load packages: %w", err)
	}

	if len(initialPackages) == 0 {
		return LoadedProgram{}, fmt.Errorf("no packages")
	}

	if packages.PrintErrors(initialPackages) > 0 {
		return LoadedProgram{}, fmt.Errorf("errors found, exiting")
	}

	// Construct SSA for all the packages we have loaded
	program, ssaPackages := ssautil.AllPackages(initialPackages, buildmode)

	for i, p := range ssaPackages {
		if p == nil {
			return LoadedProgram{}, fmt.Errorf("cannot build SSA for package %s", initialPackages[i])
		}
	}

	// Build SSA for entire program
	program.Build()

	directives := findDirectives(initialPackages, program.Fset)
	return LoadedProgram{
		Program:    program,
		Packages:   initialPackages,
		Directives: directives,
		ignored:    ignoredFunctions(initialPackages, directives, program.Fset),
	}, nil
}

// Directives represents a map of directive position to directive.
type Directives map[DirectivePos]Directive

// Directive represents an instruction to the analysis in the source code being analyzed.
// It is a comment in the form: `//featureflow:x`, where x is a valid DirectiveKind.
type Directive struct {
	Kind    DirectiveKind
	Comment *ast.Comment
}

// DirectivePos represents the position of a directive within a program.
type DirectivePos struct {
	Filename string
	Line     int
}

// NewDirectivePos creates a DirectivePos from a token.Position.
func NewDirectivePos(pos token.Position) DirectivePos {
	return DirectivePos{
		Filename: pos.Filename,
		Line:     pos.Line,
	}
}

// DirectiveKind represents the kind of directive.
type DirectiveKind string

const (
	// DirectiveIgnore is a directive to skip the function whose declaration it documents.
	DirectiveIgnore DirectiveKind = "ignore"
)

// NewDirective returns the directive for c and true if c is a valid
// directive comment.
func NewDirective(c *ast.Comment) (Directive, bool) {
	_, after, found := strings.Cut(c.Text, "featureflow:")
	if !found {
		return Directive{}, false
	}

	switch k := DirectiveKind(strings.TrimSpace(after)); k {
	case DirectiveIgnore:
		return Directive{Kind: k, Comment: c}, true
	default:
		return Directive{}, false
	}
}

// ignoredFunctions returns the positions of the names of the function declarations whose doc comment contains an
// ignore directive.
func ignoredFunctions(pkgs []*packages.Package, directives Directives, fset *token.FileSet) map[token.Pos]bool {
	res := map[token.Pos]bool{}
	if len(directives) == 0 {
		return res
	}
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				funcDecl, ok := decl.(*ast.FuncDecl)
				if !ok || funcDecl.Doc == nil {
					continue
				}
				for _, c := range funcDecl.Doc.List {
					d, ok := directives[NewDirectivePos(fset.Position(c.Pos()))]
					if ok && d.Kind == DirectiveIgnore {
						res[funcDecl.Name.Pos()] = true
					}
				}
			}
		}
	}
	return res
}

// findDirectives returns all the directives in pkgs.
func findDirectives(pkgs []*packages.Package, fset *token.FileSet) Directives {
	res := make(Directives)
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			for _, group := range file.Comments {
				for _, c := range group.List {
					pos := fset.Position(c.Pos())
					if !pos.IsValid() {
						continue
					}
					if d, ok := NewDirective(c); ok {
						res[NewDirectivePos(pos)] = d
					}
				}
			}
		}
	}
	return res
}
