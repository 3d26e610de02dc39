package qbt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/jfxdev/go-qbt-client/shared"
)

var _ shared.TorrentClient = (*Client)(nil)

func New(config Config) (*Client, error) {
	config = withDefaults(config)

	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", config.BaseURL)
	}

	return &Client{
		config:  config,
		session: &session{},
		limiter: newLimiter(config),
		metrics: newMetrics(config.Registerer),
		logger:  newLogger(config),
	}, nil
}

func withDefaults(config Config) Config {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.RateLimit > 0 && config.RateBurst <= 0 {
		config.RateBurst = DefaultRateBurst
	}
	return config
}

func newLimiter(config Config) *rate.Limiter {
	if config.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
}

// Update replaces the configuration and drops the cached session so the next
// call authenticates with the new credentials. Metrics stay on the original
// registerer.
func (qb *Client) Update(config Config) {
	config = withDefaults(config)

	qb.mu.Lock()
	qb.config = config
	qb.limiter = newLimiter(config)
	qb.logger = newLogger(config)
	qb.mu.Unlock()

	qb.session.clear()
}

func (qb *Client) settings() (Config, *rate.Limiter, *slog.Logger) {
	qb.mu.RLock()
	defer qb.mu.RUnlock()
	return qb.config, qb.limiter, qb.logger
}

// endpoint joins base URL, API prefix and path without doubling slashes.
func endpoint(config Config, path string) string {
	return strings.TrimRight(config.BaseURL, "/") +
		"/" + strings.Trim(config.Path, "/") +
		"/" + strings.TrimLeft(path, "/")
}

// HasSession reports whether a session token is cached.
func (qb *Client) HasSession() bool {
	return qb.session.get() != ""
}

// Logout forgets the cached session locally. The daemon-side session is left
// alone; use Close to end it on the daemon as well.
func (qb *Client) Logout() {
	qb.session.clear()
}

// Close ends the daemon-side session when one exists and forgets it locally.
func (qb *Client) Close() error {
	if !qb.HasSession() {
		return nil
	}
	defer qb.session.clear()

	_, err := qb.dispatch(context.Background(), call{
		method: http.MethodPost,
		path:   "/auth/logout",
	})
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}
