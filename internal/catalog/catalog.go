// Package catalog provides read access to the shop's products and the privileged create call.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	carterrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/go-playground/validator/v10"
)

// Product is a purchasable item as published by the backend. Prices are in minor units.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int32  `json:"stock"`
	SKU         string `json:"sku"`
}

// InStock reports whether the product can be added to a cart.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductCreate is the admin form for publishing a new product.
type ProductCreate struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"min=0"`
	Stock       int32  `json:"stock" validate:"min=0"`
	SKU         string `json:"sku" validate:"required,max=64"`
}

// Client is the remote side of the catalog.
type Client interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, token string, p ProductCreate) (Product, error)
}

// TokenSource yields the current bearer credential, if any.
type TokenSource interface {
	Token() (string, bool)
}

// Service exposes the catalog to the presentation layer.
type Service struct {
	client   Client
	tokens   TokenSource
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates a catalog service backed by client.
func NewService(client Client, tokens TokenSource, logger *slog.Logger) *Service {
	return &Service{
		client:   client,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger.With("component", "catalog"),
	}
}

// List returns all products. It needs no session.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.client.ListProducts(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load products", "error", err)
		return nil, fmt.Errorf("list products: %w", err)
	}
	s.logger.DebugContext(ctx, "Products loaded", "count", len(products))
	return products, nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("product id %d: %w", id, carterrors.ErrInvalidArgument)
	}
	p, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// Create publishes a product. The backend decides whether the caller may do so;
// a non-admin session gets ErrForbidden back.
func (s *Service) Create(ctx context.Context, in ProductCreate) (Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return Product{}, fmt.Errorf("%w: %v", carterrors.ErrInvalidArgument, err)
	}
	token, ok := s.tokens.Token()
	if !ok {
		return Product{}, carterrors.ErrUnauthenticated
	}
	p, err := s.client.CreateProduct(ctx, token, in)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to create product", "sku", in.SKU, "error", err)
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.InfoContext(ctx, "Product created", "ID", p.ID, "Name", p.Name)
	return p, nil
}
