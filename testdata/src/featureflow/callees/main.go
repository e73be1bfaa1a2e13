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

package main

import "fmt"

type registry struct{}

func (registry) Enabled(flag *bool, name string) {}

func IsOn(flag *int) {}

func makeFeature(p *bool) {}

func main() {
	var r registry
	var beta bool
	r.Enabled(&beta, "beta")
	if beta { // @Feature
		fmt.Println("beta")
	}
	level := 0
	IsOn(&level)
	if level == 0 { // @NotFeature
		fmt.Println("level not set")
	}
	var unrelated bool
	makeFeature(&unrelated)
	if unrelated {
		fmt.Println("makeFeature is not a feature callee here")
	}
}
