package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	client, err := NewClient(ctx, "test-token")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.REST == nil || client.GraphQL == nil {
		t.Fatalf("expected both clients to be initialized")
	}
	if got := client.GraphQLURL(); got != "https://api.github.com/graphql" {
		t.Fatalf("GraphQLURL() = %q", got)
	}
	if got := client.Host(); got != "github.com" {
		t.Fatalf("Host() = %q", got)
	}

	// Unauthenticated clients are still usable for public data.
	client, err = NewClient(ctx, "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.REST == nil {
		t.Error("Expected client to be initialized even without token")
	}
}

func TestNewClient_NilContextReturnsError(t *testing.T) {
	var nilCtx context.Context
	_, err := NewClient(nilCtx, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "ctx is nil") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewClient_EnterpriseEndpoint(t *testing.T) {
	client, err := NewClient(context.Background(), "t", WithEndpoint("https://ghe.example.com/api/v3/"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if got := client.GraphQLURL(); got != "https://ghe.example.com/api/graphql" {
		t.Fatalf("GraphQLURL() = %q", got)
	}
	if got := client.Host(); got != "ghe.example.com" {
		t.Fatalf("Host() = %q", got)
	}
}

func TestGraphQLEndpoint(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://api.github.com/", "https://api.github.com/graphql"},
		{"https://ghe.example.com/api/v3/", "https://ghe.example.com/api/graphql"},
		{"https://ghe.example.com/api/v3", "https://ghe.example.com/api/graphql"},
		{"http://127.0.0.1:8080/?x=1", "http://127.0.0.1:8080/graphql"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			u, err := url.Parse(tt.base)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got, err := graphqlEndpoint(u)
			if err != nil {
				t.Fatalf("graphqlEndpoint: %v", err)
			}
			if got.String() != tt.want {
				t.Fatalf("got %q, want %q", got.String(), tt.want)
			}
		})
	}

	if _, err := graphqlEndpoint(nil); err == nil {
		t.Fatalf("expected error for nil base")
	}
}

func newTestServerClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append(opts, WithEndpoint(server.URL+"/api/v3/"))
	c, err := NewClient(context.Background(), "test-token", opts...)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestQuery_SendsAuthAndDecodes(t *testing.T) {
	var gotAuth, gotPath, gotBody string
	c := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"viewer":{"login":"octocat"}}}`))
	})

	var q struct {
		Viewer struct {
			Login string
		}
	}
	if err := c.Query(context.Background(), &q, nil); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if q.Viewer.Login != "octocat" {
		t.Fatalf("login = %q", q.Viewer.Login)
	}
	if gotPath != "/api/graphql" {
		t.Fatalf("path = %q", gotPath)
	}
	if !strings.Contains(gotAuth, "test-token") {
		t.Fatalf("expected Authorization header with token, got %q", gotAuth)
	}
	if !strings.Contains(gotBody, "viewer{login}") {
		t.Fatalf("unexpected query body %q", gotBody)
	}
}

func TestQuery_NotFoundClassified(t *testing.T) {
	c := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"repository":null},"errors":[{"type":"NOT_FOUND","message":"Could not resolve to a Repository with the name 'acme/gone'."}]}`))
	})

	var q struct {
		Repository struct {
			Name string
		} `graphql:"repository(owner: \"acme\", name: \"gone\")"`
	}
	err := c.Query(context.Background(), &q, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQuery_OtherErrorsNotClassified(t *testing.T) {
	c := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	var q struct {
		Viewer struct {
			Login string
		}
	}
	err := c.Query(context.Background(), &q, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("502 must not be reported as not found: %v", err)
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatalf("nil stays nil")
	}
	plain := errors.New("boom")
	if got := Classify(plain); got != plain {
		t.Fatalf("unexpected wrap: %v", got)
	}
	wrapped := fmt.Errorf("org acme: %w", ErrNotFound)
	if got := Classify(wrapped); got != wrapped {
		t.Fatalf("already classified errors are returned as is")
	}
	if got := Classify(errors.New("Could not resolve to an Organization with the login of 'x'.")); !errors.Is(got, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", got)
	}
}

func TestVerboseLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	c := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"viewer":{"login":"octocat"}}}`))
	}, WithVerbose(true, &buf))

	var q struct {
		Viewer struct {
			Login string
		}
	}
	if err := c.Query(context.Background(), &q, nil); err != nil {
		t.Fatalf("Query: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "github api request") || !strings.Contains(out, "method=POST") {
		t.Fatalf("expected request log, got %q", out)
	}
	if !strings.Contains(out, "status=200") {
		t.Fatalf("expected response log, got %q", out)
	}
	if strings.Contains(out, "test-token") {
		t.Fatalf("token leaked into verbose log: %q", out)
	}
}

func TestRateLimits(t *testing.T) {
	c := newTestServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/rate_limit" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resources":{
			"core":{"limit":5000,"used":10,"remaining":4990,"reset":1735787045},
			"graphql":{"limit":5000,"used":1,"remaining":4999,"reset":1735787045}
		}}`))
	})

	got, err := c.RateLimits(context.Background())
	if err != nil {
		t.Fatalf("RateLimits: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %+v", got)
	}
	if got[0].Resource != "graphql" || got[0].Remaining != 4999 {
		t.Fatalf("unexpected graphql bucket %+v", got[0])
	}
	if got[1].Resource != "core" || got[1].Used != 10 {
		t.Fatalf("unexpected core bucket %+v", got[1])
	}
	if got[0].ResetAt.Unix() != 1735787045 {
		t.Fatalf("reset = %v", got[0].ResetAt)
	}
}
