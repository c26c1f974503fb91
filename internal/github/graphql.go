package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v81/github"
)

// ErrNotFound marks a parent entity (organization, user or repository) that
// no longer resolves or is not visible to the token.
var ErrNotFound = errors.New("github: not found")

func graphqlEndpoint(base *url.URL) (*url.URL, error) {
	if base == nil {
		return nil, fmt.Errorf("graphql: base url is nil")
	}

	u := *base
	u.RawQuery = ""
	u.Fragment = ""

	// GHES serves REST under /api/v3 and GraphQL under /api/graphql.
	path := strings.TrimSuffix(u.Path, "/")
	if strings.HasSuffix(path, "/api/v3") {
		u.Path = strings.TrimSuffix(path, "/v3") + "/graphql"
		return &u, nil
	}

	u.Path = "/graphql"
	return &u, nil
}

// Query runs a typed githubv4 query and classifies the failure.
func (c *Client) Query(ctx context.Context, q any, vars map[string]any) error {
	if ctx == nil {
		return fmt.Errorf("graphql: ctx is nil")
	}
	if c == nil || c.GraphQL == nil {
		return fmt.Errorf("graphql: client is nil")
	}
	return Classify(c.GraphQL.Query(ctx, q, vars))
}

// Classify wraps errors meaning the queried entity does not exist with
// ErrNotFound. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	if strings.Contains(err.Error(), "Could not resolve to") {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var rerr *github.ErrorResponse
	if errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
