package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/abgdnv/storefront/internal/auth"
	"github.com/abgdnv/storefront/internal/cartsync"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/gateway"
	"github.com/abgdnv/storefront/internal/render"
	"github.com/abgdnv/storefront/internal/session"
)

// Client is everything the CLI commands need. Close it when done.
type Client struct {
	Sessions *session.Store
	Auth     *auth.Service
	Catalog  *catalog.Service
	Cart     *cartsync.Engine
	View     *render.Text
	Logger   *slog.Logger
}

// SetupClient builds the storefront client: gateway, session store, services and the cart engine.
func SetupClient(cfg *config.Storefront, out io.Writer, logger *slog.Logger) (*Client, error) {
	return SetupClientWith(gateway.New(cfg.Backend, cfg.Resilience, logger), session.NewFileBackend(cfg.Session.File), out, logger)
}

// SetupClientWith builds the client on top of an existing gateway and session backend.
func SetupClientWith(gw *gateway.Client, backend session.Backend, out io.Writer, logger *slog.Logger) (*Client, error) {
	sessions, err := session.NewStore(backend, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	view := render.NewText(out)
	return &Client{
		Sessions: sessions,
		Auth:     auth.NewService(gw, sessions, logger),
		Catalog:  catalog.NewService(gw, sessions, logger),
		Cart:     cartsync.New(gw, sessions, view, logger),
		View:     view,
		Logger:   logger,
	}, nil
}

// Close stops the cart engine.
func (c *Client) Close() {
	c.Cart.Close()
}
