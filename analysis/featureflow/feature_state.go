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

package featureflow

import "fmt"

// FeatureState is an abstract value of the feature lattice. The zero value is Bottom.
// States carry no payload, so comparing two states with == is comparing their identity.
type FeatureState uint8

const (
	// Bottom is the state of program points that have not been analyzed yet.
	Bottom FeatureState = iota
	// Feature means the value (or the path) is known to be equivalent to the feature flag.
	Feature
	// NotFeature means the value (or the path) is known to be the negation of the feature flag.
	NotFeature
	// True is a value known to be a non-zero constant.
	True
	// False is a value known to be zero.
	False
	// ExternalCall is the path condition at the entry of a function: nothing is known about the caller.
	ExternalCall
	// Top is the most general state, used whenever nothing precise is known.
	Top
)

// Unknown is an alias for Top.
const Unknown = Top

var featureStateNames = [...]string{
	Bottom:       "_",
	Feature:      "A",
	NotFeature:   "!A",
	True:         "1",
	False:        "0",
	ExternalCall: "E",
	Top:          "?",
}

// AllFeatureStates lists the states of the lattice.
var AllFeatureStates = []FeatureState{Bottom, Feature, NotFeature, True, False, ExternalCall, Top}

func (s FeatureState) String() string {
	if int(s) < len(featureStateNames) {
		return featureStateNames[s]
	}
	return fmt.Sprintf("FeatureState(%d)", uint8(s))
}

// ParseFeatureState returns the state whose string representation is name.
func ParseFeatureState(name string) (FeatureState, error) {
	for _, s := range AllFeatureStates {
		if featureStateNames[s] == name {
			return s, nil
		}
	}
	return Top, fmt.Errorf("unknown feature state %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (s FeatureState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *FeatureState) UnmarshalText(text []byte) error {
	x, err := ParseFeatureState(string(text))
	if err != nil {
		return err
	}
	*s = x
	return nil
}

// Negate swaps Feature and NotFeature. Every other state negates to Top.
func (s FeatureState) Negate() FeatureState {
	switch s {
	case Feature:
		return NotFeature
	case NotFeature:
		return Feature
	default:
		return Top
	}
}

// IsFeatureDependent returns true when s is Feature or NotFeature.
func (s FeatureState) IsFeatureDependent() bool {
	return s == Feature || s == NotFeature
}
