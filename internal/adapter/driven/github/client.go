// Package github implements the repository and token ports using the go-github library.
package github

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/orgsync/internal/domain/model"
	"github.com/ericfisherdev/orgsync/internal/domain/port/driven"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com/"

// Compile-time interface satisfaction checks.
var (
	_ driven.SourceRepository      = (*Client)(nil)
	_ driven.DestinationRepository = (*Client)(nil)
	_ driven.ClientFactory         = (*Factory)(nil)
)

// Client implements the source and destination repository ports for one token.
type Client struct {
	gh *gh.Client
}

// NewClient creates a token-scoped GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, private to this client)
//  2. oauth2 (static installation token as bearer credential)
//  3. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  4. go-github (GitHub REST API client)
func NewClient(token model.AccessToken, baseURL *url.URL) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	authTransport := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token.Value,
			TokenType:   "Bearer",
			Expiry:      token.ExpiresAt,
		}),
		Base: cacheTransport,
	}
	rateLimitClient := github_ratelimit.NewClient(authTransport)

	client := gh.NewClient(rateLimitClient)
	if baseURL != nil {
		client.BaseURL = baseURL
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	client := gh.NewClient(httpClient)
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// ParseBaseURL parses an API base URL and adds the trailing slash go-github requires.
func ParseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	return u, nil
}

// Factory hands out a fresh Client per token. Clients share no state, so a
// token never leaks into another organization's calls.
type Factory struct {
	baseURL *url.URL
}

// NewFactory creates a Factory targeting baseURL.
func NewFactory(baseURL string) (*Factory, error) {
	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Factory{baseURL: u}, nil
}

// Destination returns a destination client authenticated with token.
func (f *Factory) Destination(token model.AccessToken) driven.DestinationRepository {
	return NewClient(token, f.baseURL)
}

// Source returns a source client authenticated with token.
func (f *Factory) Source(token model.AccessToken) driven.SourceRepository {
	return NewClient(token, f.baseURL)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
