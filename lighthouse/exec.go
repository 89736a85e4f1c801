// Copyright 2025 The Performance Budgets Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package lighthouse

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Session abstracts process execution so tests can run without a browser or a
// lighthouse binary installed. A Session is carried in the context; commands
// issued through RunOutput and StartProcess are dispatched to whichever
// session the context holds.
type Session interface {
	// Run executes a command to completion and returns its stdout.
	Run(ctx context.Context, executable string, args ...string) (string, error)
	// Start launches a long-lived command and returns a handle to it.
	Start(ctx context.Context, executable string, args ...string) (Process, error)
	// Probe reports whether the DevTools endpoint on the given port accepts
	// connections yet.
	Probe(ctx context.Context, port int) error
}

// Process is a handle to a command launched with Session.Start.
type Process interface {
	Kill() error
}

type sessionKeyType struct{}

var sessionKey sessionKeyType

// UseRealExec installs the real process-spawning session into the context.
func UseRealExec(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionKey, &realSession{})
}

// UseMockSession installs a MockSession into the context for tests.
func UseMockSession(ctx context.Context, s *MockSession) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func getSession(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(sessionKey).(Session)
	if !ok {
		return nil, errors.Reason("no exec session in context; forgot UseRealExec?").Err()
	}
	return s, nil
}

// RunOutput runs the executable through the context's session and returns its
// stdout. Stderr of the child is passed through to the caller's stderr.
func RunOutput(ctx context.Context, executable string, args ...string) (string, error) {
	s, err := getSession(ctx)
	if err != nil {
		return "", err
	}
	return s.Run(ctx, executable, args...)
}

// StartProcess launches the executable through the context's session.
func StartProcess(ctx context.Context, executable string, args ...string) (Process, error) {
	s, err := getSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.Start(ctx, executable, args...)
}

func probeDebugger(ctx context.Context, port int) error {
	s, err := getSession(ctx)
	if err != nil {
		return err
	}
	return s.Probe(ctx, port)
}

type realSession struct{}

func (s *realSession) Run(ctx context.Context, executable string, args ...string) (string, error) {
	logging.Debugf(ctx, "Running %s %s", executable, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, executable, args...)
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Annotate(err, "running %s", executable).Err()
	}
	return string(out), nil
}

func (s *realSession) Start(ctx context.Context, executable string, args ...string) (Process, error) {
	logging.Debugf(ctx, "Starting %s %s", executable, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, executable, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Annotate(err, "starting %s", executable).Err()
	}
	return &realProcess{cmd}, nil
}

// Probe polls the DevTools version endpoint until the browser answers or the
// deadline runs out.
func (s *realSession) Probe(ctx context.Context, port int) error {
	url := fmt.Sprintf("http://127.0.0.1:%d/json/version", port)
	deadline := time.Now().Add(debuggerProbeTimeout)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Annotate(err, "browser debugging port %d never came up", port).Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(debuggerProbeInterval):
		}
	}
}

const (
	debuggerProbeTimeout  = 10 * time.Second
	debuggerProbeInterval = 200 * time.Millisecond
)

type realProcess struct {
	cmd *exec.Cmd
}

func (p *realProcess) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil {
		return err
	}
	// Reap the child; the error is the kill signal and carries no information.
	p.cmd.Wait()
	return nil
}

// MockCall records one command dispatched to a MockSession.
type MockCall struct {
	Executable string
	Args       []string
}

// MockSession is a fake Session for tests. Every Run or Start call consumes
// the next slot of ReturnOutput and ReturnError; missing slots mean empty
// output and nil error.
type MockSession struct {
	Calls  []*MockCall
	Probes []int
	Killed int

	ReturnOutput []string
	ReturnError  []error
	ProbeError   error

	calls int
}

func (s *MockSession) next() (string, error) {
	i := s.calls
	s.calls++
	var out string
	var err error
	if i < len(s.ReturnOutput) {
		out = s.ReturnOutput[i]
	}
	if i < len(s.ReturnError) {
		err = s.ReturnError[i]
	}
	return out, err
}

func (s *MockSession) Run(ctx context.Context, executable string, args ...string) (string, error) {
	s.Calls = append(s.Calls, &MockCall{Executable: executable, Args: args})
	return s.next()
}

func (s *MockSession) Start(ctx context.Context, executable string, args ...string) (Process, error) {
	s.Calls = append(s.Calls, &MockCall{Executable: executable, Args: args})
	if _, err := s.next(); err != nil {
		return nil, err
	}
	return &mockProcess{s}, nil
}

func (s *MockSession) Probe(ctx context.Context, port int) error {
	s.Probes = append(s.Probes, port)
	return s.ProbeError
}

type mockProcess struct {
	session *MockSession
}

func (p *mockProcess) Kill() error {
	p.session.Killed++
	return nil
}
