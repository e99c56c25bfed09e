package backend

import (
	"errors"
	"fmt"

	"github.com/abgdnv/storefront/internal/catalog"
)

// DefaultCatalog is the product list the devshop starts with.
func DefaultCatalog() []catalog.ProductCreate {
	return []catalog.ProductCreate{
		{Name: "Elden Ring", Description: "Open-world action RPG", Price: 5999, Stock: 10, SKU: "GAME-ER-001"},
		{Name: "Hades", Description: "Rogue-like dungeon crawler", Price: 2499, Stock: 25, SKU: "GAME-HD-002"},
		{Name: "Stardew Valley", Description: "Farming simulation", Price: 1499, Stock: 50, SKU: "GAME-SV-003"},
		{Name: "Celeste", Description: "Precision platformer", Price: 1999, Stock: 3, SKU: "GAME-CL-004"},
	}
}

// SeedCatalog adds products to the store.
func SeedCatalog(store *Store, products []catalog.ProductCreate) {
	for _, p := range products {
		store.CreateProduct(p)
	}
}

// SeedAdmin creates the admin account unless it already exists.
func SeedAdmin(store *Store, email, password string) error {
	if email == "" {
		return nil
	}
	if _, err := store.CreateUser(email, password, RoleAdmin); err != nil && !errors.Is(err, ErrUserExists) {
		return fmt.Errorf("seed admin %s: %w", email, err)
	}
	return nil
}
