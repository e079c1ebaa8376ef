package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wesm/mailaddrs/internal/testutil"
	"github.com/wesm/mailaddrs/internal/walk"
)

// resetFlags restores every flag to its default so tests can share rootCmd.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var walkCmds func(c *cobra.Command)
	walkCmds = func(c *cobra.Command) {
		reset(c.PersistentFlags())
		reset(c.Flags())
		for _, sub := range c.Commands() {
			walkCmds(sub)
		}
	}
	walkCmds(rootCmd)
}

// execute runs the CLI with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(t)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func lines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func janeMaildir(t *testing.T) string {
	t.Helper()
	dir := testutil.NewMaildir(t)
	for i := 0; i < 3; i++ {
		testutil.WriteMessage(t, dir, fmt.Sprintf("cur/%d", i),
			"From: Jane Doe <jane@example.com>", "To: Bob <bob@example.org>")
	}
	testutil.WriteMessage(t, dir, "new/3", "From: J Doe <jane@example.com>")
	return dir
}

func TestRoot_ListsRankedAddresses(t *testing.T) {
	dir := janeMaildir(t)
	for _, backend := range []string{"threaded", "batched"} {
		t.Run(backend, func(t *testing.T) {
			out, _, err := execute(t, "--backend", backend, dir)
			if err != nil {
				t.Fatalf("execute error = %v", err)
			}
			want := []string{"Jane Doe <jane@example.com>", "Bob <bob@example.org>"}
			if diff := cmp.Diff(want, lines(out)); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoot_Search(t *testing.T) {
	dir := janeMaildir(t)
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"substring ignore case", []string{"-s", "DOE", "-i"}, []string{"Jane Doe <jane@example.com>"}},
		{"substring case sensitive", []string{"-s", "DOE"}, nil},
		{"fuzzy", []string{"-f", "-i", "-s", "jd"}, []string{"Jane Doe <jane@example.com>"}},
		{"limit", []string{"--limit", "1"}, []string{"Jane Doe <jane@example.com>"}},
		{"mutt", []string{"--mutt", "-s", "bob"}, []string{"", "bob@example.org\tBob"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append(tt.args, dir)...)
			if err != nil {
				t.Fatalf("execute error = %v", err)
			}
			if diff := cmp.Diff(tt.want, lines(out)); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoot_InvalidRoot(t *testing.T) {
	out, _, err := execute(t, filepath.Join(testutil.TempDir(t), "missing"))
	if !errors.Is(err, walk.ErrInvalidRoot) {
		t.Errorf("error = %v, want ErrInvalidRoot", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want no rows", out)
	}
}

func TestRoot_UnreadableFileWarns(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	dir := janeMaildir(t)
	locked := testutil.WriteMessage(t, dir, "cur/locked", "From: hidden@example.com")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	out, stderr, err := execute(t, dir)
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}
	if strings.Contains(out, "hidden@example.com") || len(lines(out)) != 2 {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(stderr, "level=WARN") || !strings.Contains(stderr, locked) {
		t.Errorf("stderr missing warning for %s:\n%s", locked, stderr)
	}
}

func TestRoot_HiddenFiles(t *testing.T) {
	dir := testutil.NewMaildir(t)
	testutil.WriteMessage(t, dir, "cur/1", "From: Visible <v@example.com>")
	testutil.WriteMessage(t, dir, "cur/.msg", "From: Dotted <dot@example.com>")
	testutil.WriteMessage(t, dir, "cur/.msg2", "From: Dotted <dot@example.com>")

	out, _, err := execute(t, dir)
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}
	want := []string{"Dotted <dot@example.com>", "Visible <v@example.com>"}
	if diff := cmp.Diff(want, lines(out)); diff != "" {
		t.Errorf("default run mismatch (-want +got):\n%s", diff)
	}

	out, _, err = execute(t, "--skip-hidden", dir)
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}
	if diff := cmp.Diff([]string{"Visible <v@example.com>"}, lines(out)); diff != "" {
		t.Errorf("--skip-hidden mismatch (-want +got):\n%s", diff)
	}
}

func TestRoot_ConfigFile(t *testing.T) {
	dir := janeMaildir(t)
	cfgPath := testutil.WriteFile(t, testutil.TempDir(t), "mailaddrs.toml", []byte(`
[scan]
backend = "batched"
depth = 8

[search]
fuzzy = true
ignore_case = true

[extra]
key = 1
`))

	out, stderr, err := execute(t, "--config", cfgPath, "-s", "JD", dir)
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}
	if diff := cmp.Diff([]string{"Jane Doe <jane@example.com>"}, lines(out)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if cfg.Scan.Backend != "batched" || cfg.Scan.Depth != 8 {
		t.Errorf("cfg.Scan = %+v", cfg.Scan)
	}
	if !strings.Contains(stderr, "extra.key") {
		t.Errorf("stderr missing unknown key warning:\n%s", stderr)
	}

	// Flags override the file.
	out, _, err = execute(t, "--config", cfgPath, "--fuzzy=false", "-s", "JD", dir)
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}
	if len(lines(out)) != 0 {
		t.Errorf("--fuzzy=false should disable fuzzy from config, got %q", out)
	}
}

func TestRoot_InvalidSettings(t *testing.T) {
	dir := janeMaildir(t)
	if _, _, err := execute(t, "--backend", "mmap", dir); err == nil {
		t.Error("unknown backend accepted")
	}
	if _, _, err := execute(t, "--depth=-1", dir); err == nil {
		t.Error("negative depth accepted")
	}
}

func TestRoot_MetricsFile(t *testing.T) {
	dir := janeMaildir(t)
	metrics := filepath.Join(testutil.TempDir(t), "mailaddrs.prom")

	if _, _, err := execute(t, "--metrics-file", metrics, dir); err != nil {
		t.Fatalf("execute error = %v", err)
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), "mailaddrs_files_read_total") {
		t.Errorf("metrics file missing counters:\n%s", data)
	}
}

func TestQuickstart(t *testing.T) {
	out, _, err := execute(t, "quickstart")
	if err != nil {
		t.Fatalf("execute error = %v", err)
	}
	if !strings.HasPrefix(out, "# mailaddrs quickstart") {
		t.Errorf("quickstart output starts with %q", firstLine(out))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
