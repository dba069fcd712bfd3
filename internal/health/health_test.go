package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/errors"
	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
)

func TestHTTPProber(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL+"/", "/api/health")
	assert.Equal(t, srv.URL+"/api/health", p.URL())
	require.NoError(t, p.Probe(context.Background()))

	status = http.StatusServiceUnavailable
	err := p.Probe(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConnectivity)
}

type failingClient struct{}

func (failingClient) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestHTTPProberTransportError(t *testing.T) {
	p := NewHTTPProberWithClient(failingClient{}, "http://localhost:3000", "api/health")
	err := p.Probe(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConnectivity)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStoreProber(t *testing.T) {
	store := recordstore.NewMemoryStore()
	p := NewStoreProber(store)
	require.NoError(t, p.Probe(context.Background()))

	store.SetDown(true)
	assert.ErrorIs(t, p.Probe(context.Background()), apperrors.ErrConnectivity)
}

func TestCheckerTimeout(t *testing.T) {
	slow := ProberFunc(func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	c := NewChecker(slow, 20*time.Millisecond)

	start := time.Now()
	err := c.Check(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrConnectivity)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCheckerWrapsPlainErrors(t *testing.T) {
	c := NewChecker(ProberFunc(func(context.Context) error { return errors.New("boom") }), 0)
	assert.ErrorIs(t, c.Check(context.Background()), apperrors.ErrConnectivity)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestAll(t *testing.T) {
	calls := 0
	ok := ProberFunc(func(context.Context) error { calls++; return nil })
	bad := ProberFunc(func(context.Context) error { calls++; return apperrors.ErrConnectivity })

	assert.NoError(t, All(ok, ok).Probe(context.Background()))
	calls = 0
	assert.Error(t, All(bad, ok).Probe(context.Background()))
	assert.Equal(t, 1, calls)
}
