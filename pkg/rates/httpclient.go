package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lunavault/saleflow/pkg/utils"
)

// HTTPProvider queries a market-data service for historical average rates.
// It fails over across endpoints and keeps a per-endpoint circuit-breaker
// plus a token-bucket rate limit, since the pricing path hits it once per
// crypto deposit.
type HTTPProvider struct {
	endpoints []string
	client    *http.Client

	// token-bucket
	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  atomic.Value // time.Time

	// circuit-breaker
	mu       sync.Mutex
	failures map[string]int
	opened   map[string]time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// Opts is the set of options for a new HTTPProvider.
type Opts struct {
	Endpoints       []string
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// NewHTTPProvider creates a rate provider with the given options.
func NewHTTPProvider(o Opts) *HTTPProvider {
	if o.RPS <= 0 {
		o.RPS = 20
	}
	if o.Burst <= 0 {
		o.Burst = 40
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	p := &HTTPProvider{
		endpoints:        utils.Dedup(o.Endpoints),
		client:           client,
		maxTokens:        int64(o.Burst),
		refillEvery:      time.Second / time.Duration(o.RPS),
		failures:         map[string]int{},
		opened:           map[string]time.Time{},
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
	}
	p.tokens = p.maxTokens
	p.lastRefill.Store(time.Now())
	return p
}

// NewFromEnv builds the provider from RATES_ENDPOINTS (comma-separated).
func NewFromEnv() *HTTPProvider {
	raw := utils.Env("RATES_ENDPOINTS", "http://localhost:5000")
	return NewHTTPProvider(Opts{
		Endpoints: strings.Split(raw, ","),
	})
}

// AverageRate implements Provider.
func (p *HTTPProvider) AverageRate(ctx context.Context, assetPair string, at int64) (*AverageRate, error) {
	path := fmt.Sprintf("/api/rates/average/%s?dateTime=%d", url.PathEscape(assetPair), at)

	raw, err := p.getJSON(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("average rate %s: %w", assetPair, err)
	}

	var rate AverageRate
	if err := json.Unmarshal(raw, &rate); err != nil {
		return nil, fmt.Errorf("decode rate %s: %w", assetPair, err)
	}
	rate.AssetPair = assetPair
	rate.Context = string(raw)
	return &rate, nil
}

func (p *HTTPProvider) refill() {
	last := p.lastRefill.Load().(time.Time)
	now := time.Now()
	if now.Sub(last) >= p.refillEvery {
		if atomic.LoadInt64(&p.tokens) < p.maxTokens {
			atomic.AddInt64(&p.tokens, 1)
		}
		p.lastRefill.Store(now)
	}
}

func (p *HTTPProvider) acquire() {
	for {
		p.refill()
		if atomic.LoadInt64(&p.tokens) > 0 {
			atomic.AddInt64(&p.tokens, -1)
			return
		}
		time.Sleep(p.refillEvery / 2)
	}
}

// isOpen returns true if the endpoint's breaker is in the OPEN state.
func (p *HTTPProvider) isOpen(ep string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	until, ok := p.opened[ep]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(p.opened, ep)
		p.failures[ep] = 0
		return false
	}
	return true
}

func (p *HTTPProvider) noteFailure(ep string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[ep]++
	if p.failures[ep] >= p.breakerThreshold {
		p.opened[ep] = time.Now().Add(p.breakerCooldown)
	}
}

// getJSON fetches a path from the first healthy endpoint and returns the raw
// response body. Server-side errors rotate to the next endpoint.
func (p *HTTPProvider) getJSON(ctx context.Context, path string) (json.RawMessage, error) {
	if len(p.endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}

	var lastErr error
	for i := 0; i < len(p.endpoints); i++ {
		ep := p.endpoints[i%len(p.endpoints)]
		if p.isOpen(ep) {
			continue
		}

		p.acquire()

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, ep+path, nil)
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			p.noteFailure(ep)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server %d", resp.StatusCode)
			p.noteFailure(ep)
			_ = utils.DrainAndClose(resp.Body)
			continue
		}
		if resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("http %d", resp.StatusCode)
			_ = utils.DrainAndClose(resp.Body)
			continue
		}

		bz, readErr := io.ReadAll(resp.Body)
		if cerr := utils.DrainAndClose(resp.Body); cerr != nil && readErr == nil {
			readErr = cerr
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}

		return bz, nil
	}

	return nil, lastErr
}
