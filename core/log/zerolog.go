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
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Zerolog returns a Handler that forwards messages to l.
// Fatal messages are written at zerolog's fatal level but never exit the
// process; stopping is left to the caller.
func Zerolog(l zerolog.Logger) Handler {
	return NewHandler(func(m *Message) {
		ev := l.WithLevel(zerologLevel(m.Severity))
		if ev == nil {
			return
		}
		ev = ev.Time(zerolog.TimestampFieldName, m.Time)
		if m.Tag != "" {
			ev = ev.Str("tag", m.Tag)
		}
		if len(m.Trace) > 0 {
			ev = ev.Strs("trace", m.Trace)
		}
		for _, v := range m.Values {
			ev = ev.Interface(v.Name, v.Value)
		}
		ev.Msg(m.Text)
	}, nil)
}

// Console returns a zerolog backed Handler writing human readable lines to w.
func Console(w io.Writer) Handler {
	return Zerolog(zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}))
}

// JSON returns a zerolog backed Handler writing one JSON object per line to w.
func JSON(w io.Writer) Handler {
	return Zerolog(zerolog.New(w))
}

func zerologLevel(s Severity) zerolog.Level {
	switch s {
	case Verbose:
		return zerolog.TraceLevel
	case Debug:
		return zerolog.DebugLevel
	case Info:
		return zerolog.InfoLevel
	case Warning:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}
