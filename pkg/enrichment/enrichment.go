package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/time/rate"

	"github.com/crowd-dev/crowd-api/pkg/retry"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

var (
	ErrNotFound = errors.New("enrichment: no data for url")
	ErrDisabled = errors.New("enrichment: provider disabled")
)

// OrganizationMetadata is what a provider knows about a company.
type OrganizationMetadata struct {
	Name         string
	URL          string
	Description  string
	ParentURL    string
	Emails       []string
	PhoneNumbers []string
	Logo         string
	Tags         []string
	Twitter      map[string]any
	Linkedin     map[string]any
	Crunchbase   map[string]any
	Employees    *int
	RevenueRange map[string]any
}

type Provider interface {
	Enrich(ctx context.Context, url string) (*OrganizationMetadata, error)
	URLFromName(ctx context.Context, name string) (string, error)
}

// Disabled is used when no provider is configured. Every call fails with
// ErrDisabled and callers treat that like any other best-effort miss.
type Disabled struct{}

func (Disabled) Enrich(context.Context, string) (*OrganizationMetadata, error) {
	return nil, ErrDisabled
}

func (Disabled) URLFromName(context.Context, string) (string, error) {
	return "", ErrDisabled
}

type HTTPOptions struct {
	BaseURL         string
	AutocompleteURL string
	APIKey          string
	RPS             float64
	Burst           int
	Timeout         time.Duration
	MaxAttempts     int
	Client          *http.Client
}

// HTTPProvider talks to a Clearbit-compatible company API. Outbound calls
// share one token bucket and 429/5xx responses are retried with backoff.
type HTTPProvider struct {
	opts    HTTPOptions
	limiter *rate.Limiter
	sleep   func(context.Context, time.Duration) error
}

func NewHTTPProvider(opts HTTPOptions) *HTTPProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.AutocompleteURL == "" {
		opts.AutocompleteURL = "https://autocomplete.clearbit.com"
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &HTTPProvider{
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		sleep:   sleepCtx,
	}
}

type companyResponse struct {
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	Description string   `json:"description"`
	Logo        string   `json:"logo"`
	Tags        []string `json:"tags"`
	Parent      struct {
		Domain string `json:"domain"`
	} `json:"parent"`
	Site struct {
		EmailAddresses []string `json:"emailAddresses"`
		PhoneNumbers   []string `json:"phoneNumbers"`
	} `json:"site"`
	Metrics struct {
		Employees              *int   `json:"employees"`
		EstimatedAnnualRevenue string `json:"estimatedAnnualRevenue"`
	} `json:"metrics"`
	Twitter    map[string]any `json:"twitter"`
	Linkedin   map[string]any `json:"linkedin"`
	Crunchbase map[string]any `json:"crunchbase"`
}

func (p *HTTPProvider) Enrich(ctx context.Context, rawURL string) (*OrganizationMetadata, error) {
	domain := Domain(rawURL)
	if domain == "" {
		return nil, ErrNotFound
	}
	endpoint := strings.TrimRight(p.opts.BaseURL, "/") + "/v2/companies/find?domain=" + url.QueryEscape(domain)

	var body companyResponse
	if err := p.get(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	md := &OrganizationMetadata{
		Name:         body.Name,
		URL:          rawURL,
		Description:  body.Description,
		Emails:       body.Site.EmailAddresses,
		PhoneNumbers: body.Site.PhoneNumbers,
		Logo:         body.Logo,
		Tags:         body.Tags,
		Twitter:      body.Twitter,
		Linkedin:     body.Linkedin,
		Crunchbase:   body.Crunchbase,
		Employees:    body.Metrics.Employees,
	}
	if body.Parent.Domain != "" {
		md.ParentURL = body.Parent.Domain
	}
	if r := parseRevenueRange(body.Metrics.EstimatedAnnualRevenue); r != nil {
		md.RevenueRange = r
	}
	return md, nil
}

type suggestion struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// URLFromName resolves a company name to its best-matching domain.
func (p *HTTPProvider) URLFromName(ctx context.Context, name string) (string, error) {
	endpoint := strings.TrimRight(p.opts.AutocompleteURL, "/") + "/v1/companies/suggest?query=" + url.QueryEscape(name)
	var out []suggestion
	if err := p.get(ctx, endpoint, &out); err != nil {
		return "", err
	}
	if len(out) == 0 || out[0].Domain == "" {
		return "", ErrNotFound
	}
	return out[0].Domain, nil
}

func (p *HTTPProvider) get(ctx context.Context, endpoint string, dst any) error {
	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return serrors.Upstream("enrichment", err)
		}
		retryable, err := p.do(ctx, endpoint, dst)
		if err == nil || !retryable {
			return err
		}
		lastErr = err
		if attempt < p.opts.MaxAttempts {
			if err := p.sleep(ctx, retry.Backoff(attempt, 200*time.Millisecond, 2*time.Second)); err != nil {
				return serrors.Upstream("enrichment", err)
			}
		}
	}
	return lastErr
}

func (p *HTTPProvider) do(ctx context.Context, endpoint string, dst any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, serrors.Upstream("enrichment", err)
	}
	if p.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.opts.APIKey)
	}
	resp, err := p.opts.Client.Do(req)
	if err != nil {
		return true, serrors.Upstream("enrichment", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return true, serrors.Upstream("enrichment", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusBadRequest:
		return false, serrors.Upstream("enrichment", fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return false, serrors.Upstream("enrichment", errors.Wrap(err, "decode response"))
	}
	return false, nil
}

// Domain strips scheme, www and path from a url-ish string.
func Domain(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// parseRevenueRange turns "$10M-$50M" into {min: 10, max: 50} in millions.
func parseRevenueRange(s string) map[string]any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.SplitN(s, "-", 2)
	out := map[string]any{}
	if v, ok := parseMillions(parts[0]); ok {
		out["min"] = v
	}
	if len(parts) == 2 {
		if v, ok := parseMillions(parts[1]); ok {
			out["max"] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseMillions(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "B"):
		mult = 1000
		s = strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		mult = 0.001
		s = strings.TrimSuffix(s, "K")
	}
	var v float64
	if _, err := fmt.Sscanf(strings.TrimSuffix(s, "+"), "%g", &v); err != nil {
		return 0, false
	}
	return v * mult, true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
