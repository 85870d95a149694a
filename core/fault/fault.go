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

// Package fault holds the error types shared by the layer packages.
//
// Two tiers of failure exist. Findings about the application are never errors
// at all, they are diagnostics. Broken invariants inside the layer itself are
// reported as an *Internal panic, since any diagnostic produced after one is
// unreliable.
package fault

import "fmt"

// Const is the type for constant error values.
type Const string

// Error implements error for Const returning the string value of the const.
func (e Const) Error() string { return string(e) }

// Internal is the panic value raised when the layer detects that its own
// bookkeeping is inconsistent.
type Internal struct {
	// Err is the sentinel describing the broken invariant.
	Err error
	// Detail is the formatted context of the failure.
	Detail string
}

// Internalf returns a new Internal for the sentinel err.
func Internalf(err error, format string, args ...interface{}) *Internal {
	return &Internal{Err: err, Detail: fmt.Sprintf(format, args...)}
}

func (i *Internal) Error() string {
	if i.Detail == "" {
		return i.Err.Error()
	}
	return fmt.Sprintf("%v: %v", i.Err, i.Detail)
}

// Unwrap returns the sentinel error.
func (i *Internal) Unwrap() error { return i.Err }

// Check panics with an Internal built from err and the message if cond is
// false.
func Check(cond bool, err error, format string, args ...interface{}) {
	if !cond {
		panic(Internalf(err, format, args...))
	}
}

// Recover converts a recovered panic value into an *Internal.
// Any other non-nil value is re-panicked.
func Recover(r interface{}) *Internal {
	switch r := r.(type) {
	case nil:
		return nil
	case *Internal:
		return r
	default:
		panic(r)
	}
}
