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

	"github.com/spf13/cobra"

	"github.com/google/vklifetime/core/log"
	"github.com/google/vklifetime/layers/objtracker/trace"
)

func init() {
	addVerb(func() *cobra.Command {
		return &cobra.Command{
			Use:   "convert in out",
			Short: "Converts a trace between the YAML and binary formats",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return convert(cmd.Context(), args[0], args[1])
			},
		}
	})
	addVerb(func() *cobra.Command {
		return &cobra.Command{
			Use:   "dump trace",
			Short: "Prints the commands of a trace",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return dump(cmd.Context(), cmd.OutOrStdout(), args[0])
			},
		}
	})
}

func convert(ctx context.Context, in, out string) error {
	t, err := trace.Load(in)
	if err != nil {
		return log.Err(ctx, err, "Loading trace")
	}
	if err := trace.Save(out, t); err != nil {
		return log.Err(ctx, err, "Saving trace")
	}
	log.I(ctx, "Converted %v (%d commands) to %v", in, len(t.Cmds), out)
	return nil
}

func dump(ctx context.Context, out io.Writer, path string) error {
	t, err := trace.Load(path)
	if err != nil {
		return log.Err(ctx, err, "Loading trace")
	}
	fmt.Fprintf(out, "%v: %d commands\n", t.Name, len(t.Cmds))
	for i, c := range t.Cmds {
		line := fmt.Sprintf("%4d %v", i, c)
		if c.Owner != 0 {
			line += fmt.Sprintf(" owner=%v", c.Owner)
		}
		if c.Parent != 0 {
			line += fmt.Sprintf(" parent=%v", c.Parent)
		}
		if c.CustomAllocator {
			line += " custom_allocator"
		}
		if c.Entry != "" {
			line += " entry=" + c.Entry
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
