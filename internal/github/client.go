package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// Client bundles the REST and GraphQL clients sharing one authenticated
// transport.
type Client struct {
	REST    *github.Client
	GraphQL *githubv4.Client
	HTTP    *http.Client

	graphqlURL string
}

type options struct {
	verbose  bool
	writer   io.Writer
	endpoint string
	base     http.RoundTripper
}

type Option func(*options)

// WithVerbose logs one line per request and response to writer (stderr when
// nil) so stdout stays clean for tables and JSON.
func WithVerbose(enabled bool, writer io.Writer) Option {
	return func(o *options) {
		o.verbose = enabled
		o.writer = writer
	}
}

// WithEndpoint points the client at a GitHub Enterprise Server REST base such
// as https://ghe.example.com/api/v3/. The GraphQL endpoint is derived from it.
func WithEndpoint(restBase string) Option {
	return func(o *options) {
		o.endpoint = strings.TrimSpace(restBase)
	}
}

// WithTransport replaces http.DefaultTransport as the innermost round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("github api request", "method", req.Method, "url", req.URL.String())
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Debug("github api error", "after", dur.String(), "error", err)
		return resp, err
	}
	t.logger.Debug("github api response", "status", resp.StatusCode, "text", http.StatusText(resp.StatusCode), "took", dur.String())
	return resp, err
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.writer == nil {
		o.writer = os.Stderr
	}

	transport := o.base
	if transport == nil {
		transport = http.DefaultTransport
	}
	if o.verbose {
		logger := slog.New(slog.NewTextHandler(o.writer, &slog.HandlerOptions{Level: slog.LevelDebug}))
		transport = &loggingRoundTripper{base: transport, logger: logger}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	tc := &http.Client{Transport: transport}

	rest := github.NewClient(tc)
	if o.endpoint != "" {
		ent, err := rest.WithEnterpriseURLs(o.endpoint, o.endpoint)
		if err != nil {
			return nil, fmt.Errorf("github client: endpoint %q: %w", o.endpoint, err)
		}
		rest = ent
	}

	gql, err := graphqlEndpoint(rest.BaseURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		REST:       rest,
		GraphQL:    githubv4.NewEnterpriseClient(gql.String(), tc),
		HTTP:       tc,
		graphqlURL: gql.String(),
	}, nil
}

// GraphQLURL reports the endpoint GraphQL queries are sent to.
func (c *Client) GraphQLURL() string {
	if c == nil {
		return ""
	}
	return c.graphqlURL
}

// Host returns the hostname used for credential lookup, github.com for the
// public API.
func (c *Client) Host() string {
	if c == nil || c.REST == nil || c.REST.BaseURL == nil {
		return "github.com"
	}
	return hostForAPI(c.REST.BaseURL.Host)
}

func hostForAPI(apiHost string) string {
	if apiHost == "" || apiHost == "api.github.com" {
		return "github.com"
	}
	return apiHost
}
