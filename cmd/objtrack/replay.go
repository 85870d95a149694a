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

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/google/vklifetime/core/fault"
	"github.com/google/vklifetime/core/log"
	"github.com/google/vklifetime/layers/objtracker"
	"github.com/google/vklifetime/layers/objtracker/report"
	"github.com/google/vklifetime/layers/objtracker/settings"
	"github.com/google/vklifetime/layers/objtracker/trace"
)

// ErrDiagnostics is returned by replay when error diagnostics were emitted.
const ErrDiagnostics = fault.Const("lifetime errors found")

type replayVerb struct {
	Settings   string
	MetricsOut string
}

func init() {
	addVerb(func() *cobra.Command {
		verb := &replayVerb{}
		cmd := &cobra.Command{
			Use:   "replay [flags] trace...",
			Short: "Replays traces through one object tracker and reports lifetime errors",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return verb.Run(cmd.Context(), cmd.OutOrStdout(), args)
			},
		}
		cmd.Flags().StringVar(&verb.Settings, "settings", "", "layer settings file (.yaml, .yml or .toml)")
		cmd.Flags().StringVar(&verb.MetricsOut, "metrics-out", "", "write prometheus metrics to this textfile")
		return cmd
	})
}

type replayed struct {
	name   string
	result trace.Result
}

// Run replays the traces at paths concurrently against a single tracker.
func (verb *replayVerb) Run(ctx context.Context, out io.Writer, paths []string) error {
	s := settings.Default()
	if verb.Settings != "" {
		var err error
		if s, err = settings.Load(verb.Settings); err != nil {
			return log.Err(ctx, err, "Loading settings")
		}
	}
	ctx = log.PutFilter(ctx, s.Filter())
	ctx = log.V{"run": uuid.NewString()}.Bind(ctx)

	traces := make([]*trace.Trace, len(paths))
	for i, path := range paths {
		t, err := trace.Load(path)
		if err != nil {
			return log.Err(ctx, err, "Loading trace")
		}
		traces[i] = t
	}

	reg := prometheus.NewRegistry()
	metrics, err := report.NewMetrics(reg)
	if err != nil {
		return log.Err(ctx, err, "Registering metrics")
	}
	collected := &report.Collector{}
	tracker := objtracker.New(s.Sink(collected, metrics), s.Options()...)
	reg.MustRegister(report.NewLiveObjects(tracker.Stats))

	results := make([]replayed, len(traces))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range traces {
		i, t := i, t
		g.Go(func() error {
			res, err := trace.Replay(gctx, tracker, t)
			results[i] = replayed{name: t.Name, result: res}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if verb.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(verb.MetricsOut, reg); err != nil {
			return log.Errf(ctx, err, "Writing metrics to %v", verb.MetricsOut)
		}
	}

	if err := printSummary(out, results, collected.Summary()); err != nil {
		return err
	}
	if n := collected.Count(objtracker.SeverityError); n > 0 {
		return errors.Wrapf(ErrDiagnostics, "%d error diagnostics", n)
	}
	return nil
}

func printSummary(out io.Writer, results []replayed, codes []report.CodeCount) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRACE\tEXECUTED\tSKIPPED\tDROPPED")
	for _, r := range results {
		fmt.Fprintf(w, "%v\t%d\t%d\t%d\n", r.name, r.result.Executed, r.result.Skipped, r.result.Dropped)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "CODE\tSEVERITY\tCOUNT")
	for _, c := range codes {
		if c.Code == objtracker.CodeInfo {
			continue
		}
		fmt.Fprintf(w, "%v\t%v\t%d\n", c.Code, c.Severity, c.Count)
	}
	return w.Flush()
}
