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

// Package report provides the diagnostic sinks used with the object tracker.
//
// Sinks compose: a Policy decides which diagnostics are muted and which
// recommend skipping the call, and forwards the rest to a Fanout of the log,
// metrics and collecting sinks.
package report

import (
	"context"
	"sort"
	"sync"

	"github.com/google/vklifetime/layers/objtracker"
)

// Fanout returns a Sink that forwards every diagnostic to each of sinks.
// The result asks for a skip if any of the sinks did.
func Fanout(sinks ...objtracker.Sink) objtracker.Sink {
	return objtracker.SinkFunc(func(ctx context.Context, d objtracker.Diagnostic) bool {
		skip := false
		for _, s := range sinks {
			if s != nil && s.Emit(ctx, d) {
				skip = true
			}
		}
		return skip
	})
}

// Collector is a Sink that keeps every diagnostic it is given.
// It is safe for concurrent use.
type Collector struct {
	mutex sync.Mutex
	diags []objtracker.Diagnostic
}

// CodeCount is the number of diagnostics emitted with one code.
type CodeCount struct {
	Code     string
	Severity objtracker.Severity
	Count    int
}

// Emit implements objtracker.Sink. It never asks for a skip.
func (c *Collector) Emit(ctx context.Context, d objtracker.Diagnostic) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.diags = append(c.diags, d)
	return false
}

// Diagnostics returns a copy of the collected diagnostics in emission order.
func (c *Collector) Diagnostics() []objtracker.Diagnostic {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]objtracker.Diagnostic{}, c.diags...)
}

// Count returns the number of collected diagnostics with any of the
// severities in mask.
func (c *Collector) Count(mask objtracker.Severity) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	n := 0
	for _, d := range c.diags {
		if d.Severity&mask != 0 {
			n++
		}
	}
	return n
}

// Summary returns the per-code counts, most frequent first.
func (c *Collector) Summary() []CodeCount {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	byCode := map[string]*CodeCount{}
	for _, d := range c.diags {
		cc, ok := byCode[d.Code]
		if !ok {
			cc = &CodeCount{Code: d.Code, Severity: d.Severity}
			byCode[d.Code] = cc
		}
		cc.Count++
	}
	out := make([]CodeCount, 0, len(byCode))
	for _, cc := range byCode {
		out = append(out, *cc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Reset drops every collected diagnostic.
func (c *Collector) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.diags = nil
}
