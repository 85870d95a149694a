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

package report

import (
	"context"

	"github.com/google/vklifetime/layers/objtracker"
)

// Policy is a Sink that applies the layer settings before forwarding to Next.
type Policy struct {
	// Muted codes are dropped without being forwarded.
	Muted map[string]bool
	// SkipOn holds the severities that recommend skipping the call.
	SkipOn objtracker.Severity
	Next   objtracker.Sink
}

// Emit implements objtracker.Sink.
func (p *Policy) Emit(ctx context.Context, d objtracker.Diagnostic) bool {
	if p.Muted[d.Code] {
		return false
	}
	skip := d.Severity&p.SkipOn != 0
	if p.Next != nil && p.Next.Emit(ctx, d) {
		skip = true
	}
	return skip
}
