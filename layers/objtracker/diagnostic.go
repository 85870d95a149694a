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

package objtracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/vklifetime/core/vulkan/objtype"
)

// Severity mirrors the VkDebugReportFlagBitsEXT bits.
type Severity uint32

const (
	SeverityInformation Severity = 1 << iota
	SeverityWarning
	SeverityPerformance
	SeverityError
	SeverityDebug
)

var severityNames = map[Severity]string{
	SeverityInformation: "info",
	SeverityWarning:     "warn",
	SeverityPerformance: "perf",
	SeverityError:       "error",
	SeverityDebug:       "debug",
}

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Severity(%#x)", uint32(s))
}

// ParseSeverity parses one of info, warn, perf, error or debug.
func ParseSeverity(name string) (Severity, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	switch want {
	case "warning":
		want = "warn"
	case "information":
		want = "info"
	case "performance":
		want = "perf"
	}
	for s, n := range severityNames {
		if n == want {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// Diagnostic is a single finding reported to a Sink.
type Diagnostic struct {
	Severity   Severity
	ObjectType objtype.DebugReportType
	Handle     Handle
	Code       string
	Message    string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%v] %v: %v", d.Severity, d.Code, d.Message)
}

// Sink receives the diagnostics produced by a Tracker.
//
// Emit returns true if the intercepted call should be skipped.
// Emit is called with the tracker lock held, implementations must not call
// back into the Tracker.
type Sink interface {
	Emit(ctx context.Context, d Diagnostic) bool
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, d Diagnostic) bool

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, d Diagnostic) bool { return f(ctx, d) }

// Status is the outcome of a validation.
type Status uint8

const (
	// Valid means the handle is live under the expected owner, or lives
	// elsewhere but is exempt from ownership checks.
	Valid Status = iota
	// Null means the handle was VK_NULL_HANDLE and null was allowed.
	Null
	// Unknown means the handle is not live anywhere.
	Unknown
	// WrongOwner means the handle is live under a different owner.
	WrongOwner
	// AllocatorMismatch means the destroy allocator differs from the create
	// allocator.
	AllocatorMismatch
	// WrongParent means the handle was allocated from a different pool.
	WrongParent
)

var statusNames = [...]string{"Valid", "Null", "Unknown", "WrongOwner", "AllocatorMismatch", "WrongParent"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Verdict is returned by the validation calls.
type Verdict struct {
	Status Status
	// Skip is true if any sink asked for the intercepted call to be skipped.
	Skip bool
}

// Valid returns true if the handle may be used.
func (v Verdict) Valid() bool { return v.Status == Valid || v.Status == Null }
