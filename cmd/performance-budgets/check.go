// Copyright 2025 The Performance Budgets Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/BackToTheCode/performance-budgets/budgets"
	"github.com/BackToTheCode/performance-budgets/lighthouse"
)

var cmdCheck = &subcommands.Command{
	UsageLine: "check <url>",
	ShortDesc: "Audits a URL and enforces the configured budgets.",
	LongDesc: `Runs a Lighthouse audit against the URL in a headless browser and compares
the results to the configured budgets.

Timing budgets are evaluated here from the "speeds" section of the budget
configuration. Resource size and count budgets are handed to Lighthouse,
which evaluates them during the audit; this command classifies and reports
what the engine found.

Without -budgets and -lighthouse-config, the bundled example configuration
is used and a one-time advisory is printed.`,
	CommandRun: func() subcommands.CommandRun {
		c := &checkRun{}
		c.register()
		return c
	},
}

type checkRun struct {
	commonFlags
	budgetsPath    string
	engineCfgPath  string
	chromePath     string
	lighthousePath string

	disableGPU bool
	headless   bool
	noSandbox  bool
	port       int
}

func (c *checkRun) register() {
	c.commonFlags.register()
	c.Flags.StringVar(&c.budgetsPath, "budgets", "", "Path to the budget configuration. Uses the bundled example when empty.")
	c.Flags.StringVar(&c.engineCfgPath, "lighthouse-config", "", "Path to the Lighthouse configuration. Uses the bundled example when empty.")
	c.Flags.StringVar(&c.chromePath, "chrome", "", "Chrome executable. Defaults to $CHROME_PATH or \"google-chrome\".")
	c.Flags.StringVar(&c.lighthousePath, "lighthouse", "", "Lighthouse executable. Defaults to \"lighthouse\".")
	c.Flags.BoolVar(&c.disableGPU, "disable-gpu", true, "Launch the browser without GPU acceleration.")
	c.Flags.BoolVar(&c.headless, "headless", true, "Launch the browser headless.")
	c.Flags.BoolVar(&c.noSandbox, "no-sandbox", true, "Launch the browser without its sandbox.")
	c.Flags.IntVar(&c.port, "port", 0, "DevTools debugging port. 0 uses the default.")
}

func (c *checkRun) launchOptions() lighthouse.LaunchOptions {
	return lighthouse.LaunchOptions{
		DisableGPU:      c.disableGPU,
		Headless:        c.headless,
		SandboxDisabled: c.noSandbox,
		PortOverride:    c.port,
	}
}

func (c *checkRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	if len(args) != 1 || args[0] == "" {
		errors.Log(ctx, errors.Reason("no URL specified; usage: performance-budgets check <url>").Err())
		return 2
	}
	url := args[0]

	cfg, err := budgets.LoadConfig(c.budgetsPath)
	if err != nil {
		errors.Log(ctx, err)
		return 2
	}
	engineCfg, err := budgets.LoadEngineConfig(c.engineCfgPath)
	if err != nil {
		errors.Log(ctx, err)
		return 2
	}

	result, err := c.audit(ctx, url, cfg, engineCfg)
	if err != nil {
		var shapeErr *budgets.ReportShapeError
		if stderrors.As(err, &shapeErr) {
			errors.Log(ctx, err)
			return 1
		}
		// The specific engine failure only matters for debugging; the outcome
		// is the same either way.
		logging.Errorf(ctx, "%s", err)
		fmt.Fprintf(os.Stderr, "performance-budgets: failed to obtain audit data for %s\n", url)
		return 1
	}

	if result.Valid() {
		fmt.Printf("All performance budgets passed for %s.\n", url)
		return 0
	}
	budgets.Render(os.Stdout, result)
	return 1
}

func (c *checkRun) audit(ctx context.Context, url string, cfg *budgets.Config, engineCfg *budgets.EngineConfig) (*budgets.Result, error) {
	if !engineCfg.Custom {
		logging.Infof(ctx, "No custom Lighthouse configuration supplied; auditing with the bundled example. Pass -lighthouse-config to customize.")
	}

	runner := lighthouse.NewRunner(c.launchOptions())
	if c.chromePath != "" {
		runner.ChromePath = c.chromePath
	}
	if c.lighthousePath != "" {
		runner.LighthousePath = c.lighthousePath
	}

	if len(cfg.Budgets) > 0 {
		path, cleanup, err := writeTempJSON("performance-budgets-*.json", cfg.Budgets)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		runner.BudgetPath = path
	}
	if len(engineCfg.Settings) > 0 {
		path, cleanup, err := writeTempJSON("lighthouse-config-*.json", engineCfg.Settings)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		runner.ConfigPath = path
	}

	report, err := runner.Audit(ctx, url)
	if err != nil {
		return nil, err
	}
	logPageWeight(ctx, report)

	return budgets.Evaluate(report, cfg)
}

func logPageWeight(ctx context.Context, report *lighthouse.Report) {
	for _, item := range report.BudgetItems() {
		if item.ResourceType == "total" {
			logging.Infof(ctx, "Total page weight: %s across %d requests",
				humanize.Bytes(uint64(item.TransferSize)), item.RequestCount)
			return
		}
	}
}

func writeTempJSON(pattern string, content json.RawMessage) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, errors.Annotate(err, "creating temp config").Err()
	}
	if _, err := io.WriteString(f, string(content)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, errors.Annotate(err, "writing temp config %s", f.Name()).Err()
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, errors.Annotate(err, "closing temp config %s", f.Name()).Err()
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
