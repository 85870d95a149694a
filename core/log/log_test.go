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

package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/vklifetime/core/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContext(t *testing.T) {
	buf := &log.Buffer{}
	ctx := log.PutHandler(context.Background(), buf)
	ctx = log.PutTag(ctx, "objtracker")
	ctx = log.Enter(ctx, "outer")
	ctx = log.Enter(ctx, "inner")
	ctx = log.V{"dog": "woof", "cat": "meow"}.Bind(ctx)
	ctx = log.V{"cat": "purr"}.Bind(ctx)

	log.W(ctx, "plain %s", "warning")

	msgs := buf.Messages()
	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.Equal(t, "plain warning", m.Text)
	assert.Equal(t, log.Warning, m.Severity)
	assert.Equal(t, "objtracker", m.Tag)
	assert.Equal(t, []string{"inner", "outer"}, m.Trace)
	require.Len(t, m.Values, 2)
	assert.Equal(t, "cat", m.Values[0].Name)
	assert.Equal(t, "purr", m.Values[0].Value)
	assert.Equal(t, "W: [objtracker] plain warning cat=purr dog=woof", m.String())
}

func TestSeverityFilter(t *testing.T) {
	buf := &log.Buffer{}
	ctx := log.PutHandler(context.Background(), buf)
	ctx = log.PutFilter(ctx, log.SeverityFilter(log.Warning))

	log.D(ctx, "dropped")
	log.I(ctx, "dropped")
	log.W(ctx, "kept")
	log.E(ctx, "kept")

	assert.Len(t, buf.Messages(), 2)
}

func TestNoHandler(t *testing.T) {
	assert.NotPanics(t, func() { log.E(context.Background(), "nowhere") })
}

func TestFork(t *testing.T) {
	a, b := &log.Buffer{}, &log.Buffer{}
	ctx := log.PutHandler(context.Background(), log.Fork(a, b))
	log.I(ctx, "both")
	assert.Len(t, a.Messages(), 1)
	assert.Len(t, b.Messages(), 1)
}

func TestJSONHandler(t *testing.T) {
	out := &bytes.Buffer{}
	ctx := log.PutHandler(context.Background(), log.JSON(out))
	ctx = log.PutTag(ctx, "replay")
	ctx = log.V{"owner": "0x1"}.Bind(ctx)
	log.E(ctx, "leaked %d objects", 3)

	got := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "error", got["level"])
	assert.Equal(t, "leaked 3 objects", got["message"])
	assert.Equal(t, "replay", got["tag"])
	assert.Equal(t, "0x1", got["owner"])
}

func TestErr(t *testing.T) {
	cause := errors.New("disk on fire")
	ctx := log.Enter(log.PutTag(context.Background(), "settings"), "Load")

	err := log.Errf(ctx, cause, "reading %v", "layer.yaml")
	assert.Equal(t, "settings->Load: reading layer.yaml: disk on fire", err.Error())
	assert.True(t, errors.Is(err, cause))

	assert.Equal(t, "plain", log.Err(context.Background(), nil, "plain").Error())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "Warning", log.Warning.String())
	assert.Equal(t, "E", log.Error.Short())
	assert.Equal(t, "?", log.Severity(42).String())
}

func TestParseSeverity(t *testing.T) {
	s, err := log.ParseSeverity("warning")
	assert.NoError(t, err)
	assert.Equal(t, log.Warning, s)
	_, err = log.ParseSeverity("loud")
	assert.Error(t, err)
}
