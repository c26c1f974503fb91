package cli

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func withoutEnv(keys ...string) []string {
	out := make([]string, 0, len(os.Environ()))
	for _, e := range os.Environ() {
		skip := false
		for _, key := range keys {
			if strings.HasPrefix(e, key+"=") {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, e)
		}
	}
	return out
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	// internal/cli -> repo root
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func goExe() string {
	if runtime.GOOS == "windows" {
		return "go.exe"
	}
	return "go"
}

func buildBinary(t *testing.T) string {
	t.Helper()

	outPath := filepath.Join(t.TempDir(), "ghindexer-test")
	if runtime.GOOS == "windows" {
		outPath += ".exe"
	}

	cmd := exec.Command(goExe(), "build", "-o", outPath, "./cmd/ghindexer")
	cmd.Dir = repoRoot(t)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build ghindexer binary: %v; output=%s", err, string(out))
	}

	return outPath
}

// run executes the binary against a fresh config directory and returns its
// combined output and exit code.
func run(t *testing.T, binary string, env []string, args ...string) (string, int) {
	t.Helper()
	args = append([]string{"--config-dir", t.TempDir()}, args...)
	cmd := exec.Command(binary, args...)
	cmd.Env = env

	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v; output=%s", err, err, string(out))
	}
	return string(out), exitErr.ProcessState.ExitCode()
}

func TestCLI(t *testing.T) {
	binary := buildBinary(t)
	withToken := append(withoutEnv("GITHUB_TOKEN", "GHINDEXER_CONFIG_DIR"), "GITHUB_TOKEN=dummy")

	t.Run("kind without repositories collection exits 2", func(t *testing.T) {
		out, code := run(t, binary, withToken, "issues")
		if code != 2 {
			t.Fatalf("expected exit code 2, got %d; output=%s", code, out)
		}
		if !strings.Contains(out, "run `ghindexer repos` first") {
			t.Fatalf("expected hint to run repos; output=%s", out)
		}
	})

	t.Run("apply without repositories.yml exits 2", func(t *testing.T) {
		// apply never talks to GitHub, so no token is needed.
		env := append(withoutEnv("GITHUB_TOKEN", "GHINDEXER_CONFIG_DIR"), "PATH="+t.TempDir())
		out, code := run(t, binary, env, "repos", "apply")
		if code != 2 {
			t.Fatalf("expected exit code 2, got %d; output=%s", code, out)
		}
		if !strings.Contains(out, "repositories.yml") {
			t.Fatalf("expected repositories.yml in message; output=%s", out)
		}
	})

	t.Run("missing token exits 2", func(t *testing.T) {
		// Keep `gh auth token` out of reach.
		env := append(withoutEnv("GITHUB_TOKEN", "GH_ENTERPRISE_TOKEN", "GHINDEXER_CONFIG_DIR"), "PATH="+t.TempDir())
		out, code := run(t, binary, env, "repos")
		if code != 2 {
			t.Fatalf("expected exit code 2, got %d; output=%s", code, out)
		}
		if !strings.Contains(out, "GitHub auth token is required") {
			t.Fatalf("expected token message; output=%s", out)
		}
	})

	t.Run("unsupported grab exits 1", func(t *testing.T) {
		out, code := run(t, binary, withToken, "repos", "--grab", "everything")
		if code != 1 {
			t.Fatalf("expected exit code 1, got %d; output=%s", code, out)
		}
		if !strings.Contains(out, "unsupported --grab") {
			t.Fatalf("expected grab validation message; output=%s", out)
		}
	})

	t.Run("schema then search", func(t *testing.T) {
		dir := t.TempDir()
		cmd := exec.Command(binary, "--config-dir", dir, "schema", "--kind", "repos")
		cmd.Env = withToken
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("schema failed: %v; output=%s", err, string(out))
		}
		if _, err := os.Stat(filepath.Join(dir, "config.yml")); err != nil {
			t.Fatalf("expected default config.yml: %v", err)
		}

		cmd = exec.Command(binary, "--config-dir", dir, "search", "gh_repos", "widgets")
		cmd.Env = withToken
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("search failed: %v; output=%s", err, string(out))
		}
		if !strings.Contains(string(out), "No matches.") {
			t.Fatalf("expected empty result; output=%s", string(out))
		}
	})

	t.Run("help lists exit codes", func(t *testing.T) {
		out, code := run(t, binary, withToken, "--help")
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d; output=%s", code, out)
		}
		for _, want := range []string{"Exit codes:", "repos", "issues", "projects"} {
			if !strings.Contains(out, want) {
				t.Fatalf("expected %q in help; output=%s", want, out)
			}
		}
	})
}
