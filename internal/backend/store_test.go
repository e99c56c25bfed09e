package backend

import (
	"math"
	"testing"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededStore(t *testing.T) (*Store, int64) {
	t.Helper()
	store := NewStore()
	store.CreateProduct(catalog.ProductCreate{Name: "Hades", Price: 2499, Stock: 10, SKU: "H"})
	store.CreateProduct(catalog.ProductCreate{Name: "Celeste", Price: 1999, Stock: 3, SKU: "C"})
	u, err := store.CreateUser("user@example.com", "secret1", RoleUser)
	require.NoError(t, err)
	return store, u.ID
}

func TestStore_AddToCart(t *testing.T) {
	testCases := []struct {
		name      string
		deltas    []int
		productID int64
		expectQty []int
		expectErr error
	}{
		{name: "add then increment", productID: 2, deltas: []int{1, 1}, expectQty: []int{2}},
		{name: "decrement to zero removes", productID: 2, deltas: []int{2, -2}, expectQty: nil},
		{name: "decrement below zero removes", productID: 2, deltas: []int{1, -5}, expectQty: nil},
		{name: "over stock", productID: 2, deltas: []int{3, 1}, expectErr: ErrInsufficientStock},
		{name: "huge delta on existing line", productID: 2, deltas: []int{1, math.MaxInt}, expectErr: ErrInsufficientStock},
		{name: "unknown product", productID: 99, deltas: []int{1}, expectErr: ErrProductNotFound},
		{name: "decrement absent line", productID: 1, deltas: []int{-1}, expectErr: ErrLineNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			store, userID := newSeededStore(t)

			// when
			var err error
			for _, d := range tc.deltas {
				if _, err = store.AddToCart(userID, tc.productID, d); err != nil {
					break
				}
			}

			// then
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			var got []int
			for _, l := range store.Cart(userID) {
				got = append(got, l.Quantity)
			}
			assert.Equal(t, tc.expectQty, got)
		})
	}
}

func TestStore_HugeDeltaKeepsLine(t *testing.T) {
	// given
	store, userID := newSeededStore(t)
	_, err := store.AddToCart(userID, 2, 1)
	require.NoError(t, err)

	// when
	_, err = store.AddToCart(userID, 2, math.MaxInt)

	// then
	assert.ErrorIs(t, err, ErrInsufficientStock)
	lines := store.Cart(userID)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestStore_CartKeepsInsertionOrder(t *testing.T) {
	store, userID := newSeededStore(t)

	_, err := store.AddToCart(userID, 2, 1)
	require.NoError(t, err)
	_, err = store.AddToCart(userID, 1, 1)
	require.NoError(t, err)
	lines, err := store.AddToCart(userID, 2, 1)
	require.NoError(t, err)

	require.Len(t, lines, 2)
	assert.Equal(t, int64(2), lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "Celeste", lines[0].Product.Name)
	assert.Equal(t, int64(1), lines[1].ProductID)
}

func TestStore_Checkout(t *testing.T) {
	// given
	store, userID := newSeededStore(t)
	_, err := store.AddToCart(userID, 1, 2)
	require.NoError(t, err)
	_, err = store.AddToCart(userID, 2, 3)
	require.NoError(t, err)

	// when
	order, err := store.Checkout(userID)

	// then
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, int64(2*2499+3*1999), order.TotalPaid)
	assert.Empty(t, store.Cart(userID))
	p, err := store.FindProduct(2)
	require.NoError(t, err)
	assert.Equal(t, int32(0), p.Stock)

	_, err = store.Checkout(userID)
	assert.ErrorIs(t, err, ErrCartEmpty)
}

func TestStore_CheckoutStockChanged(t *testing.T) {
	// given
	store, userID := newSeededStore(t)
	_, err := store.AddToCart(userID, 1, 1)
	require.NoError(t, err)
	_, err = store.AddToCart(userID, 2, 2)
	require.NoError(t, err)
	require.NoError(t, store.SetStock(2, 1))

	// when
	_, err = store.Checkout(userID)

	// then
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Len(t, store.Cart(userID), 2)
	p, _ := store.FindProduct(1)
	assert.Equal(t, int32(10), p.Stock, "no partial stock decrement")
}

func TestStore_Users(t *testing.T) {
	store, _ := newSeededStore(t)

	_, err := store.CreateUser("USER@example.com", "other12", RoleUser)
	assert.ErrorIs(t, err, ErrUserExists)

	u, err := store.Authenticate("user@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, u.Role)

	_, err = store.Authenticate("user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = store.Authenticate("nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
