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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/google/vklifetime/layers/objtracker"
)

const namespace = "objtracker"

// Metrics is a Sink that counts diagnostics by code and severity.
type Metrics struct {
	diagnostics *prometheus.CounterVec
}

// NewMetrics returns a Metrics sink registered with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Diagnostics emitted by the object tracker.",
			},
			[]string{"code", "severity"},
		),
	}
	if err := reg.Register(m.diagnostics); err != nil {
		return nil, err
	}
	return m, nil
}

// Emit implements objtracker.Sink. It never asks for a skip.
func (m *Metrics) Emit(ctx context.Context, d objtracker.Diagnostic) bool {
	m.diagnostics.WithLabelValues(d.Code, d.Severity.String()).Inc()
	return false
}

// StatsSource returns a snapshot of live objects, such as Tracker.Stats.
type StatsSource func() []objtracker.OwnerStats

// LiveObjects is a prometheus.Collector exposing the live object counts of a
// tracker at scrape time.
type LiveObjects struct {
	source  StatsSource
	objects *prometheus.Desc
	aliases *prometheus.Desc
}

// NewLiveObjects returns a collector reading from source.
func NewLiveObjects(source StatsSource) *LiveObjects {
	return &LiveObjects{
		source: source,
		objects: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_objects"),
			"Objects currently live under an owner.",
			[]string{"scope", "owner", "type"}, nil,
		),
		aliases: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "live_aliases"),
			"Derived handles, such as swapchain images, live under an owner.",
			[]string{"scope", "owner"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (l *LiveObjects) Describe(ch chan<- *prometheus.Desc) {
	ch <- l.objects
	ch <- l.aliases
}

// Collect implements prometheus.Collector.
func (l *LiveObjects) Collect(ch chan<- prometheus.Metric) {
	for _, s := range l.source() {
		scope, owner := s.Scope.String(), s.Handle.String()
		for ty, n := range s.Counts {
			ch <- prometheus.MustNewConstMetric(l.objects, prometheus.GaugeValue, float64(n), scope, owner, ty.String())
		}
		ch <- prometheus.MustNewConstMetric(l.aliases, prometheus.GaugeValue, float64(s.Aliases), scope, owner)
	}
}
