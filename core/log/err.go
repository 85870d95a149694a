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

package log

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Err returns a new error wrapping cause with msg, prefixed by the
// context's tag and trace.
func Err(ctx context.Context, cause error, msg string) error {
	return From(ctx).Err(cause, msg)
}

// Errf is the printf-style form of Err.
func Errf(ctx context.Context, cause error, format string, args ...interface{}) error {
	return From(ctx).Errf(cause, format, args...)
}

// Err returns a new error wrapping cause with msg.
func (l *Logger) Err(cause error, msg string) error {
	msg = l.prefix() + msg
	if cause == nil {
		return errors.New(msg)
	}
	return errors.Wrap(cause, msg)
}

// Errf is the printf-style form of Err.
func (l *Logger) Errf(cause error, format string, args ...interface{}) error {
	return l.Err(cause, fmt.Sprintf(format, args...))
}

func (l *Logger) prefix() string {
	parts := []string{}
	if l.tag != "" {
		parts = append(parts, l.tag)
	}
	for i := len(l.trace) - 1; i >= 0; i-- {
		parts = append(parts, l.trace[i])
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "->") + ": "
}
