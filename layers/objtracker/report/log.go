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

	"github.com/google/vklifetime/core/log"
	"github.com/google/vklifetime/layers/objtracker"
)

// Log is a Sink that writes diagnostics to the logger of the context.
// Only diagnostics with a severity in Flags are written.
type Log struct {
	Flags objtracker.Severity
}

// Emit implements objtracker.Sink. It never asks for a skip.
func (l Log) Emit(ctx context.Context, d objtracker.Diagnostic) bool {
	if d.Severity&l.Flags == 0 {
		return false
	}
	ctx = log.V{
		"code":   d.Code,
		"object": d.ObjectType,
		"handle": d.Handle.String(),
	}.Bind(ctx)
	log.From(ctx).Log(logSeverity(d.Severity), false, d.Message)
	return false
}

func logSeverity(s objtracker.Severity) log.Severity {
	switch s {
	case objtracker.SeverityError:
		return log.Error
	case objtracker.SeverityWarning, objtracker.SeverityPerformance:
		return log.Warning
	case objtracker.SeverityInformation:
		return log.Info
	default:
		return log.Debug
	}
}
