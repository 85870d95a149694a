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

// Package trace holds recorded streams of Vulkan object lifetime commands,
// their YAML and binary encodings, and replays them through a tracker.
package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/google/vklifetime/core/fault"
	"github.com/google/vklifetime/core/vulkan/objtype"
	"github.com/google/vklifetime/layers/objtracker"
)

// ErrUnknownFormat is returned for a trace file with an unsupported
// extension.
const ErrUnknownFormat = fault.Const("unknown trace format")

// Cmd is one recorded call.
type Cmd struct {
	Op Op `yaml:"op"`
	// Owner is the dispatchable handle the call went through. For
	// create_device it is the physical device.
	Owner objtracker.Handle `yaml:"owner,omitempty"`
	Via   Via               `yaml:"via,omitempty"`
	Type  objtype.Type      `yaml:"type,omitempty"`
	// Handle is the object the call created, destroyed or used.
	Handle objtracker.Handle `yaml:"handle"`
	// Parent is the pool or swapchain of an allocated object.
	Parent          objtracker.Handle `yaml:"parent,omitempty"`
	CustomAllocator bool              `yaml:"custom_allocator,omitempty"`
	NullAllowed     bool              `yaml:"null_allowed,omitempty"`
	Secondary       bool              `yaml:"secondary,omitempty"`
	// Entry is the Vulkan entry point, such as vkCmdBindPipeline.
	Entry string `yaml:"entry,omitempty"`
	// Codes overrides the validation codes of use and destroy commands.
	Codes []string `yaml:"codes,omitempty,flow"`
}

// Trace is a named sequence of commands.
type Trace struct {
	Name string `yaml:"name"`
	Cmds []Cmd  `yaml:"cmds"`
}

// Format is the encoding of a trace file.
type Format int

const (
	YAML Format = iota
	Binary
)

// FormatOf returns the format for the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".vklt", ".bin":
		return Binary, nil
	}
	return 0, errors.Wrap(ErrUnknownFormat, path)
}

// ReadYAML decodes a trace from its YAML form.
func ReadYAML(data []byte) (*Trace, error) {
	t := &Trace{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(t); err != nil {
		return nil, errors.Wrap(err, "decoding yaml trace")
	}
	return t, nil
}

// WriteYAML encodes t in its YAML form.
func WriteYAML(t *Trace) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, errors.Wrap(err, "encoding yaml trace")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding yaml trace")
	}
	return buf.Bytes(), nil
}

// Load reads the trace at path, in the format given by its extension.
// A trace without a name is named after the file.
func Load(path string) (*Trace, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %v", path)
	}
	var t *Trace
	if format == YAML {
		t, err = ReadYAML(data)
	} else {
		t, err = Decode(data)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading %v", path)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return t, nil
}

// Save writes t to path, in the format given by its extension.
func Save(path string, t *Trace) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	if format == YAML {
		if data, err = WriteYAML(t); err != nil {
			return err
		}
	} else {
		data = Encode(t)
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing %v", path)
}
