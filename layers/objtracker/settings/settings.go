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

// Package settings loads the object tracker layer settings file.
package settings

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/google/vklifetime/core/fault"
	"github.com/google/vklifetime/core/log"
	"github.com/google/vklifetime/core/vulkan/objtype"
	"github.com/google/vklifetime/layers/objtracker"
	"github.com/google/vklifetime/layers/objtracker/report"
)

// ErrUnknownFormat is returned for a settings file with an unsupported
// extension.
const ErrUnknownFormat = fault.Const("unknown settings format")

// Format is the encoding of a settings file.
type Format int

const (
	YAML Format = iota
	TOML
)

// FormatOf returns the format for the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return 0, errors.Wrap(ErrUnknownFormat, path)
}

// Settings configures the diagnostic policy of the layer.
type Settings struct {
	// ReportFlags are the severities written to the log.
	ReportFlags objtracker.Severity
	// SkipOn are the severities that recommend skipping the call.
	SkipOn objtracker.Severity
	// Muted codes are dropped entirely.
	Muted map[string]bool
	// Exempt types are not subject to wrong-owner checks.
	Exempt objtype.Set
	// LogLevel is the minimum severity of the log filter.
	LogLevel log.Severity
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		ReportFlags: objtracker.SeverityError | objtracker.SeverityWarning,
		SkipOn:      objtracker.SeverityError,
		Muted:       map[string]bool{},
		Exempt:      objtracker.DefaultWrongOwnerExemptions,
		LogLevel:    log.Info,
	}
}

// file is the on-disk form. Absent keys keep their default.
type file struct {
	ReportFlags      *[]string `yaml:"report_flags" toml:"report_flags"`
	SkipOn           *[]string `yaml:"skip_on" toml:"skip_on"`
	MutedCodes       *[]string `yaml:"muted_codes" toml:"muted_codes"`
	WrongOwnerExempt *[]string `yaml:"wrong_owner_exempt" toml:"wrong_owner_exempt"`
	LogLevel         *string   `yaml:"log_level" toml:"log_level"`
}

// Load reads the settings file at path. A missing file yields Default.
func Load(path string) (Settings, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Settings{}, err
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return Default(), nil
	case err != nil:
		return Settings{}, errors.Wrapf(err, "reading %v", path)
	}
	s, err := Parse(data, format)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "loading %v", path)
	}
	return s, nil
}

// Parse decodes settings from data.
func Parse(data []byte, format Format) (Settings, error) {
	var raw file
	switch format {
	case YAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Settings{}, errors.Wrap(err, "decoding yaml")
		}
	case TOML:
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return Settings{}, errors.Wrap(err, "decoding toml")
		}
	default:
		return Settings{}, ErrUnknownFormat
	}
	return raw.apply(Default())
}

func (f file) apply(s Settings) (Settings, error) {
	var err error
	if f.ReportFlags != nil {
		if s.ReportFlags, err = severities(*f.ReportFlags); err != nil {
			return Settings{}, errors.Wrap(err, "report_flags")
		}
	}
	if f.SkipOn != nil {
		if s.SkipOn, err = severities(*f.SkipOn); err != nil {
			return Settings{}, errors.Wrap(err, "skip_on")
		}
	}
	if f.MutedCodes != nil {
		for _, c := range *f.MutedCodes {
			if c = strings.TrimSpace(c); c != "" {
				s.Muted[c] = true
			}
		}
	}
	if f.WrongOwnerExempt != nil {
		if s.Exempt, err = objtype.ParseSet(*f.WrongOwnerExempt); err != nil {
			return Settings{}, errors.Wrap(err, "wrong_owner_exempt")
		}
	}
	if f.LogLevel != nil {
		if s.LogLevel, err = log.ParseSeverity(strings.TrimSpace(*f.LogLevel)); err != nil {
			return Settings{}, errors.Wrap(err, "log_level")
		}
	}
	return s, nil
}

func severities(names []string) (objtracker.Severity, error) {
	var out objtracker.Severity
	for _, n := range names {
		s, err := objtracker.ParseSeverity(n)
		if err != nil {
			return 0, err
		}
		out |= s
	}
	return out, nil
}

// Options returns the tracker options implied by s.
func (s Settings) Options() []objtracker.Option {
	return []objtracker.Option{objtracker.WithWrongOwnerExemptions(s.Exempt)}
}

// Sink wraps sinks in the policy of s. The log sink is added with the
// report flags of s.
func (s Settings) Sink(sinks ...objtracker.Sink) objtracker.Sink {
	all := append([]objtracker.Sink{report.Log{Flags: s.ReportFlags}}, sinks...)
	return &report.Policy{
		Muted:  s.Muted,
		SkipOn: s.SkipOn,
		Next:   report.Fanout(all...),
	}
}

// Filter returns the log filter for s.
func (s Settings) Filter() log.Filter {
	return log.SeverityFilter(s.LogLevel)
}
