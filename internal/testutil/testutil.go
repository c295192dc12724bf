// Package testutil holds helpers shared by package tests: shell stubs for exec-level tests
// and a recording fake of host.Runner.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/openstack-charmers/charm-openstack-dashboard/internal/host"
)

// WriteStub writes an executable shell stub that exits successfully.
// t is the active test; dir is the output directory; name is the executable file name.
func WriteStub(t *testing.T, dir string, name string) {
	t.Helper()
	WriteStubWithExit(t, dir, name, 0)
}

// WriteStubWithExit writes an executable shell stub that exits with the provided code.
// t is the active test; dir is the output directory; name is the executable file name.
func WriteStubWithExit(t *testing.T, dir string, name string, exitCode int) {
	t.Helper()
	WriteStubWithOutput(t, dir, name, "", "", exitCode)
}

// WriteStubWithOutput writes an executable shell stub that prints stdout and stderr and
// exits with exitCode.
func WriteStubWithOutput(t *testing.T, dir string, name string, stdout string, stderr string, exitCode int) {
	t.Helper()
	path := filepath.Join(dir, name)
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	if stdout != "" {
		fmt.Fprintf(&b, "printf '%%s' '%s'\n", stdout)
	}
	if stderr != "" {
		fmt.Fprintf(&b, "printf '%%s' '%s' >&2\n", stderr)
	}
	fmt.Fprintf(&b, "exit %d\n", exitCode)
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

// Response is a canned result for FakeRunner.
type Response struct {
	Stdout string
	Err    error
}

// FakeRunner records every command and answers from Responses, keyed by the full command
// line or, failing that, by the longest matching prefix. Unmatched commands succeed with
// empty output.
type FakeRunner struct {
	mu        sync.Mutex
	Responses map[string]Response
	Commands  []host.Command
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Responses: map[string]Response{}}
}

// On registers a response for commands whose line starts with prefix.
func (f *FakeRunner) On(prefix string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[prefix] = resp
	return f
}

// Run implements host.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd host.Command) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = append(f.Commands, cmd)
	line := cmd.String()
	if resp, ok := f.Responses[line]; ok {
		return resp.Stdout, resp.Err
	}
	best := ""
	for prefix := range f.Responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		resp := f.Responses[best]
		return resp.Stdout, resp.Err
	}
	return "", nil
}

// Lines returns the recorded command lines in order.
func (f *FakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Commands))
	for _, cmd := range f.Commands {
		out = append(out, cmd.String())
	}
	return out
}
