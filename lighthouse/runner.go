// Copyright 2025 The Performance Budgets Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package lighthouse

import (
	"context"
	"os"
	"strconv"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Default executables, overridable per Runner. CHROME_PATH mirrors the
// variable the lighthouse CLI itself honors.
const (
	DefaultChromeExecutable     = "google-chrome"
	DefaultLighthouseExecutable = "lighthouse"

	defaultDebuggingPort = 9222
)

// LaunchOptions configure the browser the audit runs in. They are passed
// explicitly into the Runner rather than read from process-wide state.
type LaunchOptions struct {
	DisableGPU      bool
	Headless        bool
	SandboxDisabled bool
	// PortOverride selects the DevTools debugging port; 0 picks the default.
	PortOverride int
}

// DefaultLaunchOptions are the options audits run with unless overridden:
// a headless, GPU-less, sandbox-less browser on the default debugging port.
func DefaultLaunchOptions() LaunchOptions {
	return LaunchOptions{
		DisableGPU:      true,
		Headless:        true,
		SandboxDisabled: true,
	}
}

func (o LaunchOptions) port() int {
	if o.PortOverride != 0 {
		return o.PortOverride
	}
	return defaultDebuggingPort
}

func (o LaunchOptions) chromeArgs() []string {
	args := []string{"--remote-debugging-port=" + strconv.Itoa(o.port())}
	if o.Headless {
		args = append(args, "--headless")
	}
	if o.DisableGPU {
		args = append(args, "--disable-gpu")
	}
	if o.SandboxDisabled {
		args = append(args, "--no-sandbox")
	}
	return append(args, "about:blank")
}

// Runner produces audit reports. It owns the browser process for the duration
// of one audit: the browser is launched before the engine runs and terminated
// before Audit returns, on the success and failure paths alike.
type Runner struct {
	ChromePath     string
	LighthousePath string
	Options        LaunchOptions

	// BudgetPath and ConfigPath are file paths handed to the engine verbatim
	// (--budget-path / --config-path). Empty means not passed.
	BudgetPath string
	ConfigPath string
}

// NewRunner returns a Runner with executable paths resolved from the
// environment and the given launch options.
func NewRunner(opts LaunchOptions) *Runner {
	chrome := os.Getenv("CHROME_PATH")
	if chrome == "" {
		chrome = DefaultChromeExecutable
	}
	return &Runner{
		ChromePath:     chrome,
		LighthousePath: DefaultLighthouseExecutable,
		Options:        opts,
	}
}

func (r *Runner) lighthouseArgs(url string) []string {
	args := []string{
		url,
		"--port=" + strconv.Itoa(r.Options.port()),
		"--output=json",
		"--output-path=stdout",
		"--quiet",
	}
	if r.ConfigPath != "" {
		args = append(args, "--config-path="+r.ConfigPath)
	}
	if r.BudgetPath != "" {
		args = append(args, "--budget-path="+r.BudgetPath)
	}
	return args
}

// Audit launches the browser, runs the lighthouse CLI against it and decodes
// the report. The browser is always terminated before Audit returns.
func (r *Runner) Audit(ctx context.Context, url string) (*Report, error) {
	logging.Infof(ctx, "Auditing %s", url)

	browser, err := StartProcess(ctx, r.ChromePath, r.Options.chromeArgs()...)
	if err != nil {
		return nil, errors.Annotate(err, "launching browser").Err()
	}
	defer func() {
		if err := browser.Kill(); err != nil {
			logging.Warningf(ctx, "Failed to terminate browser: %s", err)
		}
	}()

	if err := probeDebugger(ctx, r.Options.port()); err != nil {
		return nil, errors.Annotate(err, "waiting for browser").Err()
	}

	out, err := RunOutput(ctx, r.LighthousePath, r.lighthouseArgs(url)...)
	if err != nil {
		return nil, errors.Annotate(err, "running lighthouse").Err()
	}

	report, err := DecodeReport([]byte(out))
	if err != nil {
		return nil, err
	}
	logging.Debugf(ctx, "Received report for %s with %d audits", report.FinalURL, len(report.Audits))
	return report, nil
}
