// Package testutil provides test helpers and fixtures for diskindex tests.
// All file operations use t.TempDir() for safe, isolated testing.
package testutil

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestFixture holds paths to a scratch tree and a cache location
type TestFixture struct {
	T       *testing.T
	RootDir string // Tree to scan (auto-cleaned)
	DataDir string // Snapshot cache location (auto-cleaned)
}

// NewFixture creates a new fixture with separate scan and cache roots
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()

	base := t.TempDir()
	f := &TestFixture{
		T:       t,
		RootDir: filepath.Join(base, "home"),
		DataDir: filepath.Join(base, "data"),
	}

	for _, dir := range []string{f.RootDir, f.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return f
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file with specified content and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateRandomFile creates a file with random content so compressing
// filesystems still allocate its full size
func (f *TestFixture) CreateRandomFile(relPath string, size int) string {
	f.T.Helper()
	content := make([]byte, size)
	rand.Read(content)
	return f.CreateFile(relPath, content)
}

// CreateDir creates a directory and returns its path
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// Path returns the full path for a relative path within the fixture
func (f *TestFixture) Path(relPath string) string {
	return filepath.Join(f.RootDir, relPath)
}

// =============================================================================
// du Output Helpers
// =============================================================================

// DuLine formats one du -k output line
func DuLine(kb int64, path string) string {
	return fmt.Sprintf("%d\t%s", kb, path)
}

// DeniedLine formats a BSD-style du permission failure
func DeniedLine(path string) string {
	return fmt.Sprintf("du: %s: Permission denied", path)
}

// FakeDu describes the output of a stand-in size-listing process
type FakeDu struct {
	Stdout   []string
	Stderr   []string
	ExitCode int
	Hang     bool // Keep running after the output until interrupted
}

// Command writes a shell script producing the configured output and returns
// a command factory that runs it in place of du, plus the file where the
// script records the arguments it was given.
func (d FakeDu) Command(t *testing.T) (func(ctx context.Context, name string, args ...string) *exec.Cmd, string) {
	t.Helper()
	SkipOnWindows(t)

	dir := t.TempDir()
	write := func(name string, lines []string) string {
		path := filepath.Join(dir, name)
		content := strings.Join(lines, "\n")
		if len(lines) > 0 {
			content += "\n"
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
		return path
	}

	out := write("stdout.txt", d.Stdout)
	errOut := write("stderr.txt", d.Stderr)

	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	argsFile := filepath.Join(dir, "args.txt")
	fmt.Fprintf(&script, "printf '%%s\\n' \"$*\" > '%s'\n", argsFile)
	fmt.Fprintf(&script, "cat '%s'\n", out)
	fmt.Fprintf(&script, "cat '%s' >&2\n", errOut)
	if d.Hang {
		script.WriteString("exec sleep 30\n")
	}
	fmt.Fprintf(&script, "exit %d\n", d.ExitCode)

	scriptPath := filepath.Join(dir, "du.sh")
	if err := os.WriteFile(scriptPath, []byte(script.String()), 0755); err != nil {
		t.Fatalf("failed to write fake du: %v", err)
	}

	return func(ctx context.Context, _ string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, scriptPath, args...)
	}, argsFile
}

// =============================================================================
// Skip Helpers
// =============================================================================

// SkipOnWindows skips tests that need a POSIX shell
func SkipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping on Windows")
	}
}

// SkipIfRoot skips tests that rely on permission checks
func SkipIfRoot(t *testing.T) {
	t.Helper()
	if os.Getuid() == 0 {
		t.Skip("skipping when running as root")
	}
}

// RequireDu skips unless a real du binary is on PATH
func RequireDu(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("du")
	if err != nil {
		t.Skip("du not available")
	}
	return path
}
