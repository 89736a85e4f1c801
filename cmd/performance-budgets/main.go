// Copyright 2025 The Performance Budgets Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command performance-budgets audits a URL with Lighthouse and holds the
// results to configured performance budgets.
//
// Usage:
//
//	performance-budgets check <url>
//
// The process exits 0 when every budget passes, 1 when any budget is
// exceeded or the audit could not be obtained, and 2 on usage errors.
package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/flag/fixflagpos"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/BackToTheCode/performance-budgets/lighthouse"
)

type commonFlags struct {
	subcommands.CommandRunBase
	verbose bool
}

func (c *commonFlags) register() {
	c.Flags.BoolVar(&c.verbose, "verbose", false, "Log more.")
}

func (c *commonFlags) ModifyContext(ctx context.Context) context.Context {
	if c.verbose {
		ctx = logging.SetLevel(ctx, logging.Debug)
	}
	return ctx
}

func main() {
	application := &cli.Application{
		Name:  "performance-budgets",
		Title: "Audit a URL with Lighthouse and enforce performance budgets",
		Context: func(ctx context.Context) context.Context {
			goLoggerCfg := gologger.LoggerConfig{Out: os.Stderr}
			goLoggerCfg.Format = "[%{level:.1s} %{time:2006-01-02 15:04:05}] %{message}"
			ctx = goLoggerCfg.Use(ctx)

			ctx = logging.SetLevel(ctx, logging.Info)
			ctx = lighthouse.UseRealExec(ctx)
			return ctx
		},
		Commands: []*subcommands.Command{
			subcommands.CmdHelp,
			cmdCheck,
		},
	}
	os.Exit(subcommands.Run(application, fixflagpos.FixSubcommands(os.Args[1:])))
}
