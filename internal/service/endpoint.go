package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/provider"
)

const (
	EnvironmentProduction = "production"
	EnvironmentTest       = "test"
)

// EndpointResolver maps a caller's environment name or explicit URL onto the
// RNDC endpoint a message is sent to.
type EndpointResolver struct {
	productionURL string
	testURL       string
	allowedHosts  map[string]struct{}
}

func NewEndpointResolver(productionURL, testURL string, allowedHosts []string) *EndpointResolver {
	r := &EndpointResolver{
		productionURL: strings.TrimSpace(productionURL),
		testURL:       strings.TrimSpace(testURL),
		allowedHosts:  make(map[string]struct{}, len(allowedHosts)),
	}
	if r.productionURL == "" {
		r.productionURL = provider.DefaultProductionURL
	}
	if r.testURL == "" {
		r.testURL = provider.DefaultTestURL
	}
	for _, host := range allowedHosts {
		if h := strings.ToLower(strings.TrimSpace(host)); h != "" {
			r.allowedHosts[h] = struct{}{}
		}
	}
	return r
}

// Resolve picks targetURL when given, otherwise the URL of the named
// environment. Production is the fallback.
func (r *EndpointResolver) Resolve(environment, targetURL string) (string, error) {
	if trimmed := strings.TrimSpace(targetURL); trimmed != "" {
		u, err := url.Parse(trimmed)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("%w: targetUrl must be an absolute http(s) URL", domain.ErrValidation)
		}
		if !r.allowed(u.Hostname()) {
			return "", fmt.Errorf("%w: host %q is not an allowed RNDC endpoint", domain.ErrValidation, u.Hostname())
		}
		return trimmed, nil
	}

	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "", EnvironmentProduction:
		return r.productionURL, nil
	case EnvironmentTest:
		return r.testURL, nil
	default:
		return "", fmt.Errorf("%w: invalid environment %q", domain.ErrValidation, environment)
	}
}

func (r *EndpointResolver) allowed(host string) bool {
	if len(r.allowedHosts) == 0 {
		return true
	}
	_, ok := r.allowedHosts[strings.ToLower(host)]
	return ok
}
