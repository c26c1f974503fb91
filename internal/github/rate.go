package github

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v81/github"
)

// RateStatus is one resource bucket of the REST /rate_limit response.
type RateStatus struct {
	Resource  string    `json:"resource"`
	Limit     int       `json:"limit"`
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// RateLimits reports the graphql and core quotas. The call itself is not
// counted against either.
func (c *Client) RateLimits(ctx context.Context) ([]RateStatus, error) {
	if ctx == nil {
		return nil, fmt.Errorf("rate limits: ctx is nil")
	}
	if c == nil || c.REST == nil {
		return nil, fmt.Errorf("rate limits: client is nil")
	}

	limits, _, err := c.REST.RateLimit.Get(ctx)
	if err != nil {
		return nil, Classify(err)
	}

	var out []RateStatus
	if s, ok := rateStatus("graphql", limits.GetGraphQL()); ok {
		out = append(out, s)
	}
	if s, ok := rateStatus("core", limits.GetCore()); ok {
		out = append(out, s)
	}
	return out, nil
}

func rateStatus(resource string, r *github.Rate) (RateStatus, bool) {
	if r == nil {
		return RateStatus{}, false
	}
	return RateStatus{
		Resource:  resource,
		Limit:     r.Limit,
		Used:      r.Used,
		Remaining: r.Remaining,
		ResetAt:   r.Reset.Time,
	}, true
}
