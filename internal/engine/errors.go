package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v81/github"
)

// describeError renders err for a parent.finished or run.finished event.
// Unless verbose, request URLs are stripped so tokens in query strings or
// private hostnames do not end up in emitted reports.
func describeError(err error, verbose bool) string {
	if err == nil {
		return ""
	}

	full := err.Error()
	if verbose {
		return full
	}

	// Prefer structured GitHub error types to avoid leaking full request URLs.
	var er *github.ErrorResponse
	if errors.As(err, &er) {
		msg := strings.TrimSpace(er.Message)
		if msg == "" {
			msg = "GitHub API request failed"
		}
		if er.Response != nil {
			code := er.Response.StatusCode
			return fmt.Sprintf("GitHub API request failed (%d %s): %s", code, http.StatusText(code), msg)
		}
		return fmt.Sprintf("GitHub API request failed: %s", msg)
	}

	s := strings.TrimSpace(full)
	if scrubbed := scrubRequest(s); scrubbed != "" {
		return scrubbed
	}
	return s
}

// scrubRequest drops a leading "METHOD URL: " or a "Post \"URL\": " prefix
// as produced by go-github and net/http.
func scrubRequest(s string) string {
	for _, m := range []string{"GET ", "POST ", "PUT ", "PATCH ", "DELETE ", "Get \"", "Post \""} {
		i := strings.Index(s, m)
		if i < 0 {
			continue
		}
		rest := s[i+len(m):]
		if !strings.HasPrefix(rest, "http://") && !strings.HasPrefix(rest, "https://") {
			continue
		}
		if j := strings.Index(rest, ": "); j >= 0 {
			return strings.TrimSpace(s[:i] + rest[j+2:])
		}
	}
	return ""
}
