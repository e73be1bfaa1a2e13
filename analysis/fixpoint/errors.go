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

package fixpoint

import "errors"

var (
	// ErrNoEntry is returned when the graph is empty, or its entry node is not one of its nodes
	ErrNoEntry = errors.New("control-flow graph has no entry node")

	// ErrNoFixpoint is returned when the solver exhausts its visit budget before reaching a fixpoint
	ErrNoFixpoint = errors.New("no fixpoint reached within the visit budget")

	// ErrIncompleteProblem is returned when some function of the problem is missing
	ErrIncompleteProblem = errors.New("dataflow problem is missing a function")
)
