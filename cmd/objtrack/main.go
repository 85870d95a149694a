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

// The objtrack command replays recorded Vulkan object lifetime traces through
// the object tracker and reports lifetime errors.
package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/google/vklifetime/core/log"
)

// verbs holds the constructors of every subcommand, registered from init.
var verbs []func() *cobra.Command

func addVerb(v func() *cobra.Command) { verbs = append(verbs, v) }

type rootFlags struct {
	json bool
}

// newRootCmd returns the objtrack command, logging to stderr.
func newRootCmd(stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "objtrack",
		Short:         "Validates Vulkan object lifetimes in recorded traces",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			h := log.Console(stderr)
			if flags.json {
				h = log.JSON(stderr)
			}
			ctx := log.PutHandler(cmd.Context(), h)
			ctx = log.PutTag(ctx, cmd.Name())
			cmd.SetContext(ctx)
		},
	}
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "log as JSON lines instead of console text")
	for _, v := range verbs {
		root.AddCommand(v())
	}
	return root
}

func main() {
	ctx := context.Background()
	root := newRootCmd(os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		log.E(log.PutHandler(ctx, log.Console(os.Stderr)), "%v", err)
		os.Exit(1)
	}
}
