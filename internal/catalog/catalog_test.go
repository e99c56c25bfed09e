package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	carterrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	products    []Product
	product     Product
	error       error
	createCalls int
	lastToken   string
}

func (m *mockClient) ListProducts(_ context.Context) ([]Product, error) {
	return m.products, m.error
}

func (m *mockClient) GetProduct(_ context.Context, _ int64) (Product, error) {
	return m.product, m.error
}

func (m *mockClient) CreateProduct(_ context.Context, token string, p ProductCreate) (Product, error) {
	m.createCalls++
	m.lastToken = token
	if m.error != nil {
		return Product{}, m.error
	}
	return Product{ID: 10, Name: p.Name, Price: p.Price, Stock: p.Stock, SKU: p.SKU}, nil
}

type staticTokens string

func (s staticTokens) Token() (string, bool) {
	return string(s), s != ""
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_List(t *testing.T) {
	// given
	client := &mockClient{products: []Product{{ID: 1, Name: "Chess", Price: 999, Stock: 3}}}
	svc := NewService(client, staticTokens(""), discard())

	// when
	list, err := svc.List(context.Background())

	// then
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].InStock())
}

func TestService_ListError(t *testing.T) {
	client := &mockClient{error: carterrors.Transport(errors.New("dial tcp"))}
	svc := NewService(client, staticTokens(""), discard())

	_, err := svc.List(context.Background())

	assert.ErrorIs(t, err, carterrors.ErrUnreachable)
}

func TestService_Get_InvalidID(t *testing.T) {
	svc := NewService(&mockClient{}, staticTokens(""), discard())

	_, err := svc.Get(context.Background(), 0)

	assert.ErrorIs(t, err, carterrors.ErrInvalidArgument)
}

func TestService_Create(t *testing.T) {
	valid := ProductCreate{Name: "Go", Price: 4999, Stock: 5, SKU: "GO-1"}
	testCases := []struct {
		name        string
		input       ProductCreate
		token       staticTokens
		clientErr   error
		expectErr   error
		expectCalls int
	}{
		{name: "Success", input: valid, token: "T", expectCalls: 1},
		{name: "Error - validation", input: ProductCreate{Price: -1}, token: "T", expectErr: carterrors.ErrInvalidArgument},
		{name: "Error - no session", input: valid, expectErr: carterrors.ErrUnauthenticated},
		{
			name:        "Error - backend forbids",
			input:       valid,
			token:       "T",
			clientErr:   carterrors.Remote(carterrors.ErrForbidden, 403, "admin only"),
			expectErr:   carterrors.ErrForbidden,
			expectCalls: 1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			client := &mockClient{error: tc.clientErr}
			svc := NewService(client, tc.token, discard())

			// when
			p, err := svc.Create(context.Background(), tc.input)

			// then
			assert.Equal(t, tc.expectCalls, client.createCalls)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "T", client.lastToken)
			assert.Equal(t, int64(10), p.ID)
		})
	}
}
