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

package checker_test

import (
	"testing"

	"github.com/awslabs/featureflow/analysis/checker"
	"github.com/golangci/plugin-module-register/register"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), checker.NewAnalyzer([]string{"makeFeature", "makeIntFeature"}),
		"flags")
}

func TestDefaultAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), checker.Analyzer, "defaults")
}

func TestAnalyzerCallees(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), checker.NewAnalyzer([]string{"Enabled"}), "callees")
}

func TestAnalyzerCalleesFlag(t *testing.T) {
	a := checker.NewAnalyzer(nil)
	require.NoError(t, a.Flags.Set("callees", "Enabled"))
	analysistest.Run(t, analysistest.TestData(), a, "callees")
}

func TestPlugin(t *testing.T) {
	newPlugin, err := register.GetPlugin(checker.Name)
	require.NoError(t, err)

	p, err := newPlugin(map[string]any{"callees": []any{"Enabled"}})
	require.NoError(t, err)
	assert.Equal(t, register.LoadModeTypesInfo, p.GetLoadMode())

	analyzers, err := p.BuildAnalyzers()
	require.NoError(t, err)
	require.Len(t, analyzers, 1)
	assert.Equal(t, checker.Name, analyzers[0].Name)
	assert.Equal(t, "Enabled", analyzers[0].Flags.Lookup("callees").Value.String())

	analysistest.Run(t, analysistest.TestData(), analyzers[0], "callees")
}
