// Package app wires the storefront CLI and the devshop backend together.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/backend"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/pkg/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ShopDependencies struct {
	Store  *backend.Store
	Server *backend.Server
	Logger *slog.Logger
}

// SetupShopDependencies creates the in-memory store, seeds it and builds the API.
func SetupShopDependencies(cfg *config.Devshop, logger *slog.Logger) (*ShopDependencies, error) {
	store := backend.NewStore()
	if cfg.SeedCatalog {
		backend.SeedCatalog(store, backend.DefaultCatalog())
	}
	if err := backend.SeedAdmin(store, cfg.Auth.Admin.Email, cfg.Auth.Admin.Password); err != nil {
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}
	tokens := backend.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	return &ShopDependencies{
		Store:  store,
		Server: backend.NewServer(store, tokens, logger),
		Logger: logger,
	}, nil
}

// SetupShopHandler returns the traced router of the shop API.
// Used by tests to run the backend behind httptest.
func SetupShopHandler(deps *ShopDependencies) http.Handler {
	return otelhttp.NewHandler(deps.Server.Handler(), "devshop")
}

// SetupShopHttpServer creates and configures the HTTP server of the devshop.
func SetupShopHttpServer(deps *ShopDependencies, cfg *config.Devshop) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupShopHandler(deps))
}
