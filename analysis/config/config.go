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

package config

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/awslabs/featureflow/internal/funcutil"
	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// DefaultFeatureCallee is the feature-introduction function used when the config does not list any
const DefaultFeatureCallee = "makeFeature"

// Report formats
const (
	// FormatText is the human-readable report format
	FormatText = "text"
	// FormatYaml exports the results as yaml
	FormatYaml = "yaml"
	// FormatMsgpack exports the results in msgpack binary format
	FormatMsgpack = "msgpack"
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains the options of the analysis and the functions that introduce the feature flag.
// To add elements to a config file, add fields to this struct.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	sourceFile string

	// FeatureCallees are the names of the functions whose first argument becomes the feature flag. Each name is
	// used as a regex matching the entire callee name if it compiles, otherwise it must be equal to the name.
	FeatureCallees []string `yaml:"feature-callees"`

	// featureCalleeRegexes[i] is the compiled FeatureCallees[i], or nil
	featureCalleeRegexes []*regexp.Regexp

	// if the PkgFilter is specified
	pkgFilterRegex *regexp.Regexp
}

// Options are the general options of the analysis
type Options struct {
	// ReportsDir is the directory where the reports will be stored. If empty, reports are written to the standard
	// output.
	ReportsDir string `yaml:"reports-dir"`

	// PkgFilter is a filter for the analysis to analyze only the functions whose package match the regex (or have
	// PkgFilter as prefix if it is not a valid regex)
	PkgFilter string `yaml:"pkg-filter"`

	// MaxVisits sets a limit on the number of program points visited by the fixpoint computation of a single
	// function. If MaxVisits <= 0, the limit is proportional to the number of instructions of the function.
	MaxVisits int `yaml:"max-visits"`

	// NumRoutines is the number of functions analyzed in parallel. If NumRoutines <= 0, the number of CPUs is used.
	NumRoutines int `yaml:"num-routines"`

	// ReportFormat is one of text, yaml or msgpack
	ReportFormat string `yaml:"report-format"`

	// LogLevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// SilenceWarn suppresses warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns a default config: the feature is introduced by DefaultFeatureCallee, and all other options
// have their default values.
func NewDefault() *Config {
	cfg := &Config{
		sourceFile:     "",
		FeatureCallees: []string{DefaultFeatureCallee},
		Options: Options{
			ReportsDir:   "",
			PkgFilter:    "",
			MaxVisits:    0,
			NumRoutines:  0,
			ReportFormat: FormatText,
			LogLevel:     int(InfoLevel),
			SilenceWarn:  false,
		},
	}
	cfg.compile()
	return cfg
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	cfg.sourceFile = filename
	if cfg.ReportsDir != "" {
		if err := setReportsDir(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Parse reads a configuration from the contents of a yaml file
func Parse(b []byte) (*Config, error) {
	cfg := NewDefault()
	cfg.FeatureCallees = nil
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}

	if len(cfg.FeatureCallees) == 0 {
		cfg.FeatureCallees = []string{DefaultFeatureCallee}
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.ReportFormat == "" {
		cfg.ReportFormat = FormatText
	}
	if !funcutil.Contains([]string{FormatText, FormatYaml, FormatMsgpack}, cfg.ReportFormat) {
		return nil, fmt.Errorf("unknown report format %q", cfg.ReportFormat)
	}

	cfg.compile()
	return cfg, nil
}

// compile computes the regexes of the config
func (c *Config) compile() {
	c.featureCalleeRegexes = funcutil.Map(c.FeatureCallees, func(name string) *regexp.Regexp {
		r, err := regexp.Compile("^(?:" + name + ")$")
		if err != nil {
			return nil
		}
		return r
	})

	c.pkgFilterRegex = nil
	if c.PkgFilter != "" {
		r, err := regexp.Compile(c.PkgFilter)
		if err == nil {
			c.pkgFilterRegex = r
		}
	}
}

// SetFeatureCallees replaces the feature callees of the config. The default callee is used if names is empty.
func (c *Config) SetFeatureCallees(names []string) {
	c.FeatureCallees = nil
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			c.FeatureCallees = append(c.FeatureCallees, name)
		}
	}
	if len(c.FeatureCallees) == 0 {
		c.FeatureCallees = []string{DefaultFeatureCallee}
	}
	c.compile()
}

// SetPkgFilter replaces the package filter of the config
func (c *Config) SetPkgFilter(filter string) {
	c.PkgFilter = filter
	c.compile()
}

func setReportsDir(c *Config) error {
	if !path.IsAbs(c.ReportsDir) && c.sourceFile != "" {
		c.ReportsDir = c.RelPath(c.ReportsDir)
	}
	err := os.Mkdir(c.ReportsDir, 0750)
	if err != nil {
		if !os.IsExist(err) {
			return fmt.Errorf("could not create directory %s", c.ReportsDir)
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// IsFeatureCallee returns true if the function name matches one of the feature callees of the config
func (c Config) IsFeatureCallee(name string) bool {
	for i, callee := range c.FeatureCallees {
		if i < len(c.featureCalleeRegexes) && c.featureCalleeRegexes[i] != nil {
			if c.featureCalleeRegexes[i].MatchString(name) {
				return true
			}
		} else if callee == name {
			return true
		}
	}
	return false
}

// MatchPkgFilter returns true if the package name pkgname matches the package filter set in the config file. If no
// package filter has been set in the config file, the regex will match anything and return true. This function safely
// considers the case where a filter has been specified by the user, but it could not be compiled to a regex. The safe
// case is to check whether the package filter string is a prefix of the pkgname
func (c Config) MatchPkgFilter(pkgname string) bool {
	if c.pkgFilterRegex != nil {
		return c.pkgFilterRegex.MatchString(pkgname)
	} else if c.PkgFilter != "" {
		return strings.HasPrefix(pkgname, c.PkgFilter)
	} else {
		return true
	}
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
