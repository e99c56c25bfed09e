package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abgdnv/storefront/internal/backend"
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	carterrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newShop(t *testing.T) (*Client, *backend.Store) {
	t.Helper()
	store := backend.NewStore()
	backend.SeedCatalog(store, backend.DefaultCatalog())
	require.NoError(t, backend.SeedAdmin(store, "admin@example.com", "admin-pass"))
	api := backend.NewServer(store, backend.NewTokens("0123456789abcdef-test", time.Hour), discard())
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(srv.URL, srv.Client(), discard()), store
}

func registerAndLogin(t *testing.T, c *Client) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, "shopper@example.com", "secret1"))
	token, err := c.Login(ctx, "shopper@example.com", "secret1")
	require.NoError(t, err)
	return token
}

func TestClient_CartRoundTrip(t *testing.T) {
	// given
	ctx := context.Background()
	c, _ := newShop(t)
	token := registerAndLogin(t, c)

	// when: product 4 has stock 3
	require.NoError(t, c.AddItem(ctx, token, 4, 1))
	require.NoError(t, c.AddItem(ctx, token, 4, 1))
	require.NoError(t, c.AddItem(ctx, token, 1, 1))
	snapshot, err := c.FetchCart(ctx, token)

	// then
	require.NoError(t, err)
	lines := snapshot.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, cart.Line{ProductID: 4, Quantity: 2, Product: cart.ProductSnapshot{Name: "Celeste", UnitPrice: 1999, Stock: 3}}, lines[0])
	assert.Equal(t, int64(1), lines[1].ProductID)

	// when
	require.NoError(t, c.AddItem(ctx, token, 4, -2))
	require.NoError(t, c.RemoveItem(ctx, token, 1))
	snapshot, err = c.FetchCart(ctx, token)

	// then
	require.NoError(t, err)
	assert.True(t, snapshot.IsEmpty())
}

func TestClient_Checkout(t *testing.T) {
	ctx := context.Background()
	c, store := newShop(t)
	token := registerAndLogin(t, c)

	_, err := c.Checkout(ctx, token)
	assert.ErrorIs(t, err, carterrors.ErrConflict)
	assert.Equal(t, "cart is empty", carterrors.Reason(err))

	require.NoError(t, c.AddItem(ctx, token, 2, 2))
	order, err := c.Checkout(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, cart.Order{ID: 1, TotalPaid: 2 * 2499, Message: "Order placed successfully"}, order)

	p, err := store.FindProduct(2)
	require.NoError(t, err)
	assert.Equal(t, int32(23), p.Stock)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	ctx := context.Background()
	c, _ := newShop(t)
	token := registerAndLogin(t, c)

	testCases := []struct {
		name         string
		call         func() error
		expectErr    error
		expectReason string
	}{
		{
			name:      "bad token is unauthorized",
			call:      func() error { _, err := c.FetchCart(ctx, "bogus"); return err },
			expectErr: carterrors.ErrUnauthorized,
		},
		{
			name:         "over stock is conflict",
			call:         func() error { return c.AddItem(ctx, token, 4, 5) },
			expectErr:    carterrors.ErrConflict,
			expectReason: "not enough stock for: Celeste",
		},
		{
			name:      "unknown product is conflict",
			call:      func() error { return c.AddItem(ctx, token, 404, 1) },
			expectErr: carterrors.ErrConflict,
		},
		{
			name:      "missing line is conflict",
			call:      func() error { return c.RemoveItem(ctx, token, 3) },
			expectErr: carterrors.ErrConflict,
		},
		{
			name: "non-admin create is forbidden",
			call: func() error {
				_, err := c.CreateProduct(ctx, token, catalog.ProductCreate{Name: "X", SKU: "X"})
				return err
			},
			expectErr: carterrors.ErrForbidden,
		},
		{
			name:      "wrong password is unauthorized",
			call:      func() error { _, err := c.Login(ctx, "shopper@example.com", "nope!!"); return err },
			expectErr: carterrors.ErrUnauthorized,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expectErr)
			if tc.expectReason != "" {
				assert.Equal(t, tc.expectReason, carterrors.Reason(err))
			}
		})
	}
}

func TestClient_Catalog(t *testing.T) {
	ctx := context.Background()
	c, _ := newShop(t)
	adminToken, err := c.Login(ctx, "admin@example.com", "admin-pass")
	require.NoError(t, err)

	created, err := c.CreateProduct(ctx, adminToken, catalog.ProductCreate{Name: "Tetris", Price: 499, Stock: 7, SKU: "T-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)

	list, err := c.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 5)

	got, err := c.GetProduct(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = c.GetProduct(ctx, 77)
	assert.ErrorIs(t, err, carterrors.ErrConflict)
}

func TestClient_StatusMapping(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		body      string
		expectErr error
	}{
		{name: "401", status: http.StatusUnauthorized, expectErr: carterrors.ErrUnauthorized},
		{name: "403", status: http.StatusForbidden, expectErr: carterrors.ErrForbidden},
		{name: "409", status: http.StatusConflict, body: `{"error":"sold out"}`, expectErr: carterrors.ErrConflict},
		{name: "422", status: http.StatusUnprocessableEntity, expectErr: carterrors.ErrConflict},
		{name: "500", status: http.StatusInternalServerError, expectErr: carterrors.ErrUnreachable},
		{name: "503", status: http.StatusServiceUnavailable, body: "<html>", expectErr: carterrors.ErrUnreachable},
		{name: "200 with garbage", status: http.StatusOK, body: "not json", expectErr: carterrors.ErrMalformed},
		{name: "200 with duplicate lines", status: http.StatusOK, body: `[{"product_id":1,"quantity":1},{"product_id":1,"quantity":2}]`, expectErr: carterrors.ErrMalformed},
		{name: "200 with zero quantity", status: http.StatusOK, body: `[{"product_id":1,"quantity":0}]`, expectErr: carterrors.ErrMalformed},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()
			c := NewWithHTTPClient(srv.URL, srv.Client(), discard())

			// when
			_, err := c.FetchCart(context.Background(), "T")

			// then
			assert.ErrorIs(t, err, tc.expectErr)
		})
	}
}

func TestClient_Headers(t *testing.T) {
	var gotAuth, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get(web.XRequestID)
		_, _ = io.WriteString(w, "[]")
	}))
	defer srv.Close()
	c := NewWithHTTPClient(srv.URL, srv.Client(), discard())

	_, err := c.FetchCart(context.Background(), "T")
	require.NoError(t, err)
	assert.Equal(t, "Bearer T", gotAuth)
	_, err = uuid.Parse(gotReqID)
	assert.NoError(t, err)

	ctx := web.WithRequestID(context.Background(), "fixed-id")
	_, err = c.FetchCart(ctx, "T")
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", gotReqID)
}

func TestClient_Unreachable(t *testing.T) {
	// given
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := New(
		config.HTTPClientConfig{BaseURL: srv.URL, Timeout: time.Second},
		config.ResilienceConfig{CircuitBreaker: config.CircuitBreakerConfig{
			Name: "test", MaxRequests: 1, ConsecutiveFailures: 2, ErrorRatePercent: 100, OpenTimeout: time.Minute,
		}},
		discard(),
	)

	// when
	for range 4 {
		_, err := c.FetchCart(context.Background(), "T")
		assert.ErrorIs(t, err, carterrors.ErrUnreachable)
	}

	// then
	assert.Equal(t, int32(2), calls.Load(), "open breaker must fail fast")
}

func TestClient_ClosedServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewWithHTTPClient(url, http.DefaultClient, discard())

	err := c.AddItem(context.Background(), "T", 1, 1)

	assert.ErrorIs(t, err, carterrors.ErrUnreachable)
}
