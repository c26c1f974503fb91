package github

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceExplicit   AuthTokenSource = "explicit"
	AuthTokenSourceEnv        AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceEnterprise AuthTokenSource = "env:GH_ENTERPRISE_TOKEN"
	AuthTokenSourceGitHubCL   AuthTokenSource = "gh"
)

// ResolveAuthToken finds a token for host, trying in order: provided (flag
// or config file), GITHUB_TOKEN, GH_ENTERPRISE_TOKEN for non-github.com hosts,
// then `gh auth token -h <host>`. An empty result is not an error.
func ResolveAuthToken(ctx context.Context, provided, host string) (token string, source AuthTokenSource, err error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceExplicit, nil
	}
	if env := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); env != "" {
		return env, AuthTokenSourceEnv, nil
	}

	host = strings.TrimSpace(host)
	if host == "" {
		host = "github.com"
	}
	if host != "github.com" {
		if env := strings.TrimSpace(os.Getenv("GH_ENTERPRISE_TOKEN")); env != "" {
			return env, AuthTokenSourceEnterprise, nil
		}
	}

	tok, ok, err := tokenFromGitHubCLI(ctx, host)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", nil
	}
	return tok, AuthTokenSourceGitHubCL, nil
}

func tokenFromGitHubCLI(ctx context.Context, host string) (string, bool, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", false, nil
	}

	cmdCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "gh", "auth", "token", "-h", host)
	env := make([]string, 0, len(os.Environ())+1)
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, "GH_PAGER=") {
			env = append(env, entry)
		}
	}
	cmd.Env = append(env, "GH_PAGER=cat")

	out, err := cmd.Output()
	if err != nil {
		if cmdCtx.Err() != nil {
			return "", false, cmdCtx.Err()
		}
		// Not logged in for this host. The gh output is not surfaced.
		return "", false, nil
	}

	tok := strings.TrimSpace(string(out))
	if tok == "" {
		return "", false, nil
	}
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", false, errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, true, nil
}
