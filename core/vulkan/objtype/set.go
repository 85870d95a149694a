// Copyright (C) 2024 Google Inc.
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

package objtype

import "strings"

// Set is a set of object types.
type Set uint64

// NewSet returns a Set holding types.
func NewSet(types ...Type) Set {
	var s Set
	for _, t := range types {
		s = s.With(t)
	}
	return s
}

// ParseSet parses each name with Parse and returns the resulting Set.
func ParseSet(names []string) (Set, error) {
	var s Set
	for _, n := range names {
		t, err := Parse(n)
		if err != nil {
			return 0, err
		}
		s = s.With(t)
	}
	return s, nil
}

// With returns s with t added.
func (s Set) With(t Type) Set {
	if !t.Valid() {
		return s
	}
	return s | 1<<t
}

// Without returns s with t removed.
func (s Set) Without(t Type) Set {
	if !t.Valid() {
		return s
	}
	return s &^ (1 << t)
}

// Contains returns true if t is in s.
func (s Set) Contains(t Type) bool {
	return t.Valid() && s&(1<<t) != 0
}

// Types returns the members of s in enumeration order.
func (s Set) Types() []Type {
	out := []Type{}
	for t := Instance; t < Count; t++ {
		if s.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s Set) String() string {
	names := []string{}
	for _, t := range s.Types() {
		names = append(names, t.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}
