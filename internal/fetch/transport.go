package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"time"
)

// Transport is one strategy in the fallback chain. Strategies are tried in
// order; the chain advances only on TLS certificate verification failure.
type Transport interface {
	Name() string
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

type httpTransport struct {
	name      string
	client    *http.Client
	userAgent string
}

func newHTTPTransport(name string, opts Options, insecure bool) *httpTransport {
	client := &http.Client{Timeout: opts.Timeout}
	if insecure {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // explicit operator-enabled fallback
		}
	}
	return &httpTransport{name: name, client: client, userAgent: opts.UserAgent}
}

func (t *httpTransport) Name() string { return t.name }

func (t *httpTransport) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	return resp, nil
}

// curlTransport shells out to curl with certificate checks disabled. Last
// resort for hosts whose chains neither Go client accepts.
type curlTransport struct {
	binary    string
	timeout   time.Duration
	userAgent string
}

func newCurlTransport(binary string, opts Options) *curlTransport {
	return &curlTransport{binary: binary, timeout: opts.Timeout, userAgent: opts.UserAgent}
}

func (t *curlTransport) Name() string { return "curl" }

func (t *curlTransport) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.binary,
		"--insecure",
		"--silent",
		"--location",
		"--fail",
		"--user-agent", t.userAgent,
		rawURL,
	)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("curl %s: exit %d: %s", rawURL, exitErr.ExitCode(), bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, fmt.Errorf("curl %s: %w", rawURL, err)
	}

	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(out)),
	}, nil
}
