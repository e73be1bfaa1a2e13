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

// Package tools contains utility types and functions for the featureflow tool frontends.
package tools

import (
	"flag"
	"fmt"
	"go/build"
	"os"
	"strings"

	"github.com/awslabs/featureflow/analysis"
	"github.com/awslabs/featureflow/analysis/config"
	"golang.org/x/tools/go/buildutil"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

// BuildMode is the SSA build mode of the frontends. Locals must stay in memory cells for the feature analysis
// to track them.
const BuildMode = ssa.NaiveForm | ssa.InstantiateGenerics

// UnparsedCommonFlags represents an unparsed CLI sub-command flags.
type UnparsedCommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath *string
	Verbose    *bool
	WithTest   *bool
	PkgFilter  *string
	Callees    *string
}

// NewUnparsedCommonFlags returns an unparsed flag set with a given name.
// This is useful for creating sub-commands that have the flags -config, -verbose, -with-test, -pkg-filter,
// -callees and -build-tags but need other flags in addition.
func NewUnparsedCommonFlags(name string) UnparsedCommonFlags {
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := cmd.String("config", "", "config file path for analysis")
	verbose := cmd.Bool("verbose", false, "verbose printing on standard output")
	withTest := cmd.Bool("with-test", false, "load tests during analysis")
	pkgFilter := cmd.String("pkg-filter", "", "only analyze the functions of the packages matching this regex")
	callees := cmd.String("callees", "", "comma-separated feature callees (overrides the config)")
	cmd.Var((*buildutil.TagsFlag)(&build.Default.BuildTags), "build-tags", buildutil.TagsFlagDoc)
	return UnparsedCommonFlags{
		FlagSet:    cmd,
		ConfigPath: configPath,
		Verbose:    verbose,
		WithTest:   withTest,
		PkgFilter:  pkgFilter,
		Callees:    callees,
	}
}

// Parse parses args and returns the parsed common flags.
func (f UnparsedCommonFlags) Parse(args []string) (CommonFlags, error) {
	if err := f.FlagSet.Parse(args); err != nil {
		return CommonFlags{}, fmt.Errorf("failed to parse command %s with args %v: %v", f.FlagSet.Name(), args, err)
	}
	return CommonFlags{
		FlagSet:    f.FlagSet,
		ConfigPath: *f.ConfigPath,
		Verbose:    *f.Verbose,
		WithTest:   *f.WithTest,
		PkgFilter:  *f.PkgFilter,
		Callees:    *f.Callees,
	}, nil
}

// CommonFlags represents a parsed CLI sub-command flags.
// E.g., for the command `featureflow report ...`, "report" is the sub-command.
type CommonFlags struct {
	FlagSet    *flag.FlagSet
	ConfigPath string
	Verbose    bool
	WithTest   bool
	PkgFilter  string
	Callees    string
}

// NewCommonFlags returns a parsed flag set with a given name.
// Returns an error if args are invalid.
// Prints cmdUsage along with flag docs as the --help message.
func NewCommonFlags(name string, args []string, cmdUsage string) (CommonFlags, error) {
	flags := NewUnparsedCommonFlags(name)
	SetUsage(flags.FlagSet, cmdUsage)
	return flags.Parse(args)
}

// SetUsage sets cmd's usage (for --help flag) to output the string cmdUsage
// followed by each flag's documentation.
func SetUsage(cmd *flag.FlagSet, cmdUsage string) {
	cmd.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", cmdUsage)
		fmt.Fprintf(os.Stderr, "Options:\n")
		cmd.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  %s: %s (default: %q)\n", f.Name, f.Usage, f.DefValue)
		})
	}
}

// LoadConfig loads the config file from configPath, or returns the default config if configPath is empty.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.NewDefault(), nil
	}
	config.SetGlobalConfig(configPath)
	cfg, err := config.LoadGlobal()
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %v", configPath, err)
	}

	return cfg, nil
}

// Config returns the configuration selected by the flags: the config file, with the -pkg-filter and -callees
// flags overriding it when they are set. -verbose raises the log level to debug.
func (f CommonFlags) Config() (*config.Config, error) {
	cfg, err := LoadConfig(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	if f.PkgFilter != "" {
		cfg.SetPkgFilter(f.PkgFilter)
	}
	if f.Callees != "" {
		cfg.SetFeatureCallees(strings.Split(f.Callees, ","))
	}
	if f.Verbose && cfg.LogLevel < int(config.DebugLevel) {
		cfg.LogLevel = int(config.DebugLevel)
	}
	return cfg, nil
}

// LoadAndAnalyze loads the program in the positional arguments of the flags and runs the feature analysis on it.
// Logs are written to the standard error, so that the standard output only contains the tool's output.
func (f CommonFlags) LoadAndAnalyze() (*config.Config, analysis.LoadedProgram, analysis.ProgramResults, error) {
	cfg, err := f.Config()
	if err != nil {
		return nil, analysis.LoadedProgram{}, analysis.ProgramResults{}, err
	}
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(os.Stderr)

	pkgConfig := &packages.Config{
		Mode:  analysis.PkgLoadMode,
		Tests: f.WithTest,
	}
	logger.Infof("Loading %v\n", f.FlagSet.Args())
	loaded, err := analysis.LoadProgram(pkgConfig, "", BuildMode, f.FlagSet.Args())
	if err != nil {
		return cfg, loaded, analysis.ProgramResults{}, fmt.Errorf("could not load program: %v", err)
	}
	return cfg, loaded, analysis.AnalyzeProgram(loaded, cfg, logger), nil
}
