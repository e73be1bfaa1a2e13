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

func makeFeature(p *bool) {}

func makeIntFeature(x int) {}

func toggle() int {
	var on bool
	makeFeature(&on)
	y := 0
	if on { // @Feature
		y = 1
	} else {
		y = 0
	}
	if y == 0 { // @NotFeature
		fmt.Println("disabled")
	}
	return y
}

func equality() {
	x := 0
	makeIntFeature(x)
	if x == 0 { // @NotFeature
		fmt.Println("x is not set")
	}
	z := x
	if 0 == z { // @NotFeature
		fmt.Println("z is not set")
	}
	enabled := !(z == 0)
	if enabled { // @Feature
		fmt.Println("z is set")
	}
}

func untracked(n int) {
	if n == 0 {
		fmt.Println("zero")
	}
}

//featureflow:ignore
func ignored() {
	var on bool
	makeFeature(&on)
	if on {
		fmt.Println("ignored")
	}
}

func main() {
	toggle()
	equality()
	untracked(0)
	ignored()
}
