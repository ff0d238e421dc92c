package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
)

const defaultPingTimeout = 10 * time.Second

type PingStatus string

const (
	PingOnline  PingStatus = "online"
	PingOffline PingStatus = "offline"
	PingTimeout PingStatus = "timeout"
	PingError   PingStatus = "error"
)

// PingResult is a diagnostic reachability check of an RNDC endpoint.
type PingResult struct {
	URL        string     `json:"url"`
	Status     PingStatus `json:"status"`
	StatusCode int        `json:"statusCode,omitempty"`
	LatencyMS  int64      `json:"latencyMs"`
	Message    string     `json:"message,omitempty"`
	CheckedAt  time.Time  `json:"checkedAt"`
	Cached     bool       `json:"cached"`
}

// Pinger issues lightweight GET requests against RNDC endpoints. Results are
// cached per URL so dashboards polling the ping do not hammer the upstream.
type Pinger struct {
	client     *resty.Client
	cache      *gocache.Cache
	defaultURL string
	timeout    time.Duration
	now        func() time.Time
}

func NewPinger(client *resty.Client, defaultURL string, cacheTTL time.Duration) *Pinger {
	if client == nil {
		client = resty.New()
	}
	client.SetRetryCount(0)

	trimmed := strings.TrimSpace(defaultURL)
	if trimmed == "" {
		trimmed = DefaultProductionURL
	}

	var cache *gocache.Cache
	if cacheTTL > 0 {
		cache = gocache.New(cacheTTL, 2*cacheTTL)
	}

	return &Pinger{
		client:     client,
		cache:      cache,
		defaultURL: trimmed,
		timeout:    defaultPingTimeout,
		now:        time.Now,
	}
}

func (p *Pinger) Ping(ctx context.Context, targetURL string) PingResult {
	endpoint := strings.TrimSpace(targetURL)
	if endpoint == "" {
		endpoint = p.defaultURL
	}

	if p.cache != nil {
		if cached, ok := p.cache.Get(endpoint); ok {
			result := cached.(PingResult)
			result.Cached = true
			return result
		}
	}

	result := p.check(ctx, endpoint)
	if p.cache != nil {
		p.cache.SetDefault(endpoint, result)
	}
	return result
}

func (p *Pinger) check(ctx context.Context, endpoint string) PingResult {
	pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := p.now()
	response, err := p.client.R().SetContext(pingCtx).Get(endpoint)
	result := PingResult{
		URL:       endpoint,
		LatencyMS: p.now().Sub(started).Milliseconds(),
		CheckedAt: started.UTC(),
	}

	switch {
	case err != nil && (IsTimeout(err) || pingCtx.Err() == context.DeadlineExceeded):
		result.Status = PingTimeout
		result.Message = fmt.Sprintf("no response within %s", p.timeout)
	case err != nil:
		result.Status = PingError
		result.Message = err.Error()
	default:
		result.StatusCode = response.StatusCode()
		if isReachableStatus(result.StatusCode) {
			result.Status = PingOnline
		} else {
			result.Status = PingOffline
			result.Message = fmt.Sprintf("endpoint returned status %d", result.StatusCode)
		}
	}

	return result
}

// SOAP endpoints commonly reject GET with 405, which still proves liveness.
func isReachableStatus(statusCode int) bool {
	return (statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices) ||
		statusCode == http.StatusMethodNotAllowed
}
