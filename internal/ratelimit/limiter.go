package ratelimit

import (
	"context"
	"net/url"
	"strings"
)

// RateLimiter caps the send rate towards one RNDC endpoint across every
// batch loop and process sharing the limiter backend.
type RateLimiter interface {
	Allow(ctx context.Context, endpoint string) (bool, error)
	Wait(ctx context.Context, endpoint string) error
}

// EndpointKey reduces a target URL to the host it resolves to, so test and
// production endpoints are limited independently regardless of path or query.
func EndpointKey(targetURL string) string {
	trimmed := strings.TrimSpace(targetURL)
	if u, err := url.Parse(trimmed); err == nil && u.Host != "" {
		return strings.ToLower(u.Host)
	}
	return strings.ToLower(trimmed)
}
