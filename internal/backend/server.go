// Package backend is an in-memory implementation of the shop REST API.
// It serves the devshop command and the HTTP tests of the client packages.
package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Server holds the HTTP handlers of the shop API.
type Server struct {
	store    *Store
	tokens   *Tokens
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer creates the API on top of store.
func NewServer(store *Store, tokens *Tokens, logger *slog.Logger) *Server {
	return &Server{
		store:    store,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger.With("component", "backend"),
	}
}

// Handler returns the router with the shared middleware chain.
func (s *Server) Handler() http.Handler {
	mux := server.NewChiRouter(s.logger)
	s.RegisterRoutes(mux)
	return mux
}

// RegisterRoutes registers the HTTP routes of the shop API.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.Register)
		r.Post("/auth/login", s.Login)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.ListProducts)
			r.Get("/{id}", s.GetProduct)
			r.With(s.Authenticate, s.RequireAdmin).Post("/", s.CreateProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(s.Authenticate)
			r.Get("/", s.GetCart)
			r.Post("/", s.AddToCart)
			r.Post("/checkout", s.Checkout)
			r.Delete("/{product_id}", s.RemoveFromCart)
		})
	})

	r.Get("/healthz", s.HealthCheck)
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register creates a user account with the "user" role.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !web.DecodeAndValidate(w, r, s.logger, s.validate, &in) {
		return
	}
	u, err := s.store.CreateUser(in.Email, in.Password, RoleUser)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			web.RespondError(w, s.logger, http.StatusConflict, "User already exists")
			return
		}
		s.logger.ErrorContext(r.Context(), "Error creating user", "error", err)
		web.RespondError(w, s.logger, http.StatusInternalServerError, "Failed to register")
		return
	}
	s.logger.InfoContext(r.Context(), "User registered", "ID", u.ID)
	web.RespondJSON(w, s.logger, http.StatusCreated, map[string]string{"message": "Registration successful"})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges credentials for an access token.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !web.DecodeAndValidate(w, r, s.logger, s.validate, &in) {
		return
	}
	u, err := s.store.Authenticate(in.Email, in.Password)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Login failed", "email", in.Email)
		web.RespondError(w, s.logger, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Error issuing token", "error", err)
		web.RespondError(w, s.logger, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	web.RespondJSON(w, s.logger, http.StatusOK, map[string]string{"token": token})
}

// ListProducts returns the whole catalog.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	list := s.store.ListProducts()
	s.logger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, s.logger, http.StatusOK, list)
}

// GetProduct retrieves a product by its ID.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, s.logger, "id")
	if !ok {
		return
	}
	p, err := s.store.FindProduct(id)
	if err != nil {
		web.RespondError(w, s.logger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
		return
	}
	web.RespondJSON(w, s.logger, http.StatusOK, p)
}

// CreateProduct publishes a product. Admin only.
func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductCreate
	if !web.DecodeAndValidate(w, r, s.logger, s.validate, &in) {
		return
	}
	p := s.store.CreateProduct(in)
	s.logger.InfoContext(r.Context(), "Product created successfully", "ID", p.ID, "Name", p.Name)
	web.RespondJSON(w, s.logger, http.StatusCreated, p)
}

// GetCart returns the caller's cart.
func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	id, _ := ContextIdentity(r.Context())
	web.RespondJSON(w, s.logger, http.StatusOK, s.store.Cart(id.UserID))
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required"`
}

// AddToCart applies a signed quantity delta to a cart line and returns the updated cart.
func (s *Server) AddToCart(w http.ResponseWriter, r *http.Request) {
	id, _ := ContextIdentity(r.Context())
	var in addToCartRequest
	if !web.DecodeAndValidate(w, r, s.logger, s.validate, &in) {
		return
	}
	lines, err := s.store.AddToCart(id.UserID, in.ProductID, in.Quantity)
	if err != nil {
		s.respondCartError(w, r, err)
		return
	}
	s.logger.DebugContext(r.Context(), "Cart updated", "product_id", in.ProductID, "delta", in.Quantity)
	web.RespondJSON(w, s.logger, http.StatusOK, lines)
}

// RemoveFromCart deletes a cart line.
func (s *Server) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, _ := ContextIdentity(r.Context())
	productID, ok := web.ParseID(w, r, s.logger, "product_id")
	if !ok {
		return
	}
	if err := s.store.RemoveFromCart(id.UserID, productID); err != nil {
		s.respondCartError(w, r, err)
		return
	}
	web.RespondJSON(w, s.logger, http.StatusOK, map[string]string{"message": "Item removed"})
}

type checkoutResponse struct {
	Message   string `json:"message"`
	OrderID   int64  `json:"order_id"`
	TotalPaid int64  `json:"total_paid"`
}

// Checkout places an order for the caller's whole cart.
func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	id, _ := ContextIdentity(r.Context())
	order, err := s.store.Checkout(id.UserID)
	if err != nil {
		s.respondCartError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Order placed", "order_id", order.ID, "total_paid", order.TotalPaid)
	web.RespondJSON(w, s.logger, http.StatusCreated, checkoutResponse{
		Message:   "Order placed successfully",
		OrderID:   order.ID,
		TotalPaid: order.TotalPaid,
	})
}

func (s *Server) respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrCartEmpty):
		web.RespondError(w, s.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientStock):
		web.RespondError(w, s.logger, http.StatusConflict, err.Error())
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrLineNotFound):
		web.RespondError(w, s.logger, http.StatusNotFound, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Cart operation failed", "error", err)
		web.RespondError(w, s.logger, http.StatusInternalServerError, "Cart operation failed")
		return
	}
	s.logger.WarnContext(r.Context(), "Cart operation rejected", "error", err)
}

// HealthCheck is a simple health check endpoint.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
