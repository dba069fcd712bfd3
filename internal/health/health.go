// Package health implements the liveness probes run before backups.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
)

// DefaultTimeout bounds a single liveness check.
const DefaultTimeout = 5 * time.Second

// Prober checks whether the record store can serve a backup.
// A failing probe returns an error wrapping errors.ErrConnectivity.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProber calls the application's health endpoint.
type HTTPProber struct {
	client HTTPClient
	url    string
}

// NewHTTPProber probes baseURL + path with a default client.
func NewHTTPProber(baseURL, path string) *HTTPProber {
	return NewHTTPProberWithClient(&http.Client{}, baseURL, path)
}

// NewHTTPProberWithClient is NewHTTPProber with an injected client.
func NewHTTPProberWithClient(client HTTPClient, baseURL, path string) *HTTPProber {
	return &HTTPProber{
		client: client,
		url:    strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"),
	}
}

// URL returns the probed endpoint.
func (p *HTTPProber) URL() string { return p.url }

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConnectivity, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConnectivity, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: health endpoint returned %d", apperrors.ErrConnectivity, resp.StatusCode)
	}
	return nil
}

// StoreProber pings the record store directly.
type StoreProber struct {
	store recordstore.Store
}

// NewStoreProber creates a prober over store.
func NewStoreProber(store recordstore.Store) *StoreProber {
	return &StoreProber{store: store}
}

func (p *StoreProber) Probe(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		if apperrors.IsConnectivity(err) {
			return err
		}
		return fmt.Errorf("%w: %v", apperrors.ErrConnectivity, err)
	}
	return nil
}

// All passes only when every prober passes; probers run in order.
func All(probers ...Prober) Prober {
	return ProberFunc(func(ctx context.Context) error {
		for _, p := range probers {
			if err := p.Probe(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// Checker runs a prober under a timeout.
type Checker struct {
	prober  Prober
	timeout time.Duration
}

// NewChecker creates a Checker. A non-positive timeout uses DefaultTimeout.
func NewChecker(prober Prober, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{prober: prober, timeout: timeout}
}

// Check races the probe against the timeout. A timeout is reported as a connectivity error.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.prober.Probe(ctx) }()

	select {
	case err := <-done:
		if err != nil && !apperrors.IsConnectivity(err) {
			err = fmt.Errorf("%w: %v", apperrors.ErrConnectivity, err)
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: liveness check timed out after %s", apperrors.ErrConnectivity, c.timeout)
	}
}

// Probe lets a Checker be used as a Prober.
func (c *Checker) Probe(ctx context.Context) error {
	return c.Check(ctx)
}
