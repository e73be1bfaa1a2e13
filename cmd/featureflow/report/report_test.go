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

package report

import (
	"errors"
	"testing"

	"github.com/awslabs/featureflow/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFlags(t *testing.T) {
	flags, err := NewFlags([]string{"-format", "yaml", "-verbose", "./..."})
	require.NoError(t, err)
	assert.Equal(t, "yaml", flags.format)
	assert.True(t, flags.Verbose)
	assert.Equal(t, []string{"./..."}, flags.FlagSet.Args())

	_, err = NewFlags([]string{"-format", "json", "./..."})
	assert.ErrorContains(t, err, "unknown report format")
}

func TestAnalysisErrors(t *testing.T) {
	assert.NoError(t, analysisErrors(analysis.ProgramResults{
		Functions: []*analysis.FunctionResult{{}},
	}))

	failure := errors.New("no fixpoint reached within the visit budget")
	err := analysisErrors(analysis.ProgramResults{
		Functions: []*analysis.FunctionResult{{}, {Err: failure}, {Err: failure}},
	})
	assert.ErrorIs(t, err, failure)
	assert.ErrorContains(t, err, "analysis failed for 2 function(s)")
}
