package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultUserAgent = "DocHarvester/1.0"

// Error is the terminal failure returned once every retry and transport
// fallback has been exhausted. It carries the last underlying cause.
type Error struct {
	URL   string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Options tunes the retry loop and transport chain.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration
	UserAgent   string
	// AllowInsecure enables the certificate-skipping fallback transport.
	AllowInsecure bool
	// CurlBinary, when set, appends an external curl --insecure transport
	// as the last resort.
	CurlBinary string
}

// Client issues GET requests with bounded exponential backoff on 429/5xx
// and an ordered transport fallback chain for TLS verification failures.
// Other 4xx responses are terminal and never retried.
type Client struct {
	transports  []Transport
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient assembles the transport chain from options. The verified
// transport always comes first; insecure and curl fallbacks are appended
// only when enabled.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	transports := []Transport{newHTTPTransport("verified", opts, false)}
	if opts.AllowInsecure {
		transports = append(transports, newHTTPTransport("insecure", opts, true))
	}
	if opts.CurlBinary != "" {
		transports = append(transports, newCurlTransport(opts.CurlBinary, opts))
	}

	return &Client{
		transports:  transports,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// sleepContext waits out the backoff delay but wakes immediately on
// cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Get retrieves the URL (with optional query params) and returns the body.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	target, err := buildURL(rawURL, params)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i, transport := range c.transports {
		body, err := c.getWithRetries(ctx, transport, target)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var terminal *Error
		if errors.As(err, &terminal) {
			return nil, err
		}
		if !isCertError(err) || i == len(c.transports)-1 {
			break
		}
		c.warn("certificate verification failed, trying fallback transport",
			"url", target, "transport", transport.Name(), "next", c.transports[i+1].Name())
	}

	return nil, &Error{URL: target, Cause: lastErr}
}

// GetJSON fetches and unmarshals a JSON response.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, v any) error {
	body, err := c.Get(ctx, rawURL, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) getWithRetries(ctx context.Context, transport Transport, target string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			c.warn("retrying", "url", target, "attempt", attempt+1, "delay", delay.String())
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := transport.Get(ctx, target)
		if err != nil {
			if isCertError(err) || ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				lastErr = fmt.Errorf("read body: %w", readErr)
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			continue
		default:
			// Remaining 4xx responses are not transient.
			return nil, &Error{URL: target, Cause: fmt.Errorf("server returned %s", resp.Status)}
		}
	}

	return nil, lastErr
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func buildURL(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", rawURL, err)
	}
	query := parsed.Query()
	for key, values := range params {
		for _, v := range values {
			query.Set(key, v)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func isCertError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return true
	}
	var invalid x509.CertificateInvalidError
	return errors.As(err, &invalid)
}
