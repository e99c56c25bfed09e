// Package gateway talks to the shop backend over its REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	carterrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/pkg/client/resilience"
	"github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const apiPrefix = "/api/v1"

// maxErrorBody caps how much of an error response is read to extract the reason.
const maxErrorBody = 1 << 20

// Client is the HTTP implementation of the cart gateway. It also serves auth and catalog calls.
// It never retries; a request either succeeds, or fails with one of the errors of the errors package.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New builds a client whose transport is traced and guarded by a circuit breaker.
func New(cfg config.HTTPClientConfig, rCfg config.ResilienceConfig, logger *slog.Logger) *Client {
	breaker := resilience.NewCircuitBreaker(rCfg.CircuitBreaker)
	transport := otelhttp.NewTransport(
		resilience.NewTransport(http.DefaultTransport, breaker),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return NewWithHTTPClient(cfg.BaseURL, &http.Client{Transport: transport, Timeout: cfg.Timeout}, logger)
}

// NewWithHTTPClient builds a client on top of an existing http.Client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + apiPrefix,
		http:    httpClient,
		logger:  logger.With("component", "gateway"),
	}
}

// FetchCart returns the server's cart in server order.
func (c *Client) FetchCart(ctx context.Context, token string) (cart.Snapshot, error) {
	var lines []cart.Line
	if err := c.do(ctx, http.MethodGet, "/cart", token, nil, &lines); err != nil {
		return cart.Snapshot{}, err
	}
	snapshot, err := cart.NewSnapshot(lines)
	if err != nil {
		return cart.Snapshot{}, carterrors.Malformed(err)
	}
	return snapshot, nil
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// AddItem adds delta to the quantity of productID. A negative delta decrements;
// the backend removes the line when the quantity drops to zero.
func (c *Client) AddItem(ctx context.Context, token string, productID int64, delta int) error {
	return c.do(ctx, http.MethodPost, "/cart", token, addItemRequest{ProductID: productID, Quantity: delta}, nil)
}

func (c *Client) RemoveItem(ctx context.Context, token string, productID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/%d", productID), token, nil, nil)
}

// Checkout turns the server cart into an order.
func (c *Client) Checkout(ctx context.Context, token string) (cart.Order, error) {
	var order cart.Order
	if err := c.do(ctx, http.MethodPost, "/cart/checkout", token, nil, &order); err != nil {
		return cart.Order{}, err
	}
	if err := order.Validate(); err != nil {
		return cart.Order{}, carterrors.Malformed(err)
	}
	return order, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", credentials{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", carterrors.Malformed(errors.New("login response has no token"))
	}
	return resp.Token, nil
}

func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/register", "", credentials{Email: email, Password: password}, nil)
}

func (c *Client) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := c.do(ctx, http.MethodGet, "/products", "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	var p catalog.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), "", nil, &p); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

// CreateProduct publishes a product. Only admins may do so; others get ErrForbidden.
func (c *Client) CreateProduct(ctx context.Context, token string, in catalog.ProductCreate) (catalog.Product, error) {
	var p catalog.Product
	if err := c.do(ctx, http.MethodPost, "/products", token, in, &p); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

type errorResponse struct {
	Error            string            `json:"error"`
	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
}

// do performs a single request. body and out may be nil.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID, ok := web.GetRequestID(ctx)
	if !ok {
		reqID = uuid.NewString()
	}
	req.Header.Set(web.XRequestID, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.With("method", method, "path", path, "request_id", reqID)
	resp, err := c.http.Do(req)
	if err != nil {
		log.WarnContext(ctx, "Backend request failed", "error", err)
		return carterrors.Transport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := statusError(resp)
		log.DebugContext(ctx, "Backend rejected request", "status", resp.StatusCode, "error", err)
		return err
	}
	log.DebugContext(ctx, "Backend request done", "status", resp.StatusCode)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return carterrors.Malformed(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

// statusError maps a non-2xx response to the client error taxonomy.
func statusError(resp *http.Response) error {
	reason := readReason(resp.Body)
	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized:
		return carterrors.Remote(carterrors.ErrUnauthorized, status, reason)
	case status == http.StatusForbidden:
		return carterrors.Remote(carterrors.ErrForbidden, status, reason)
	case status == http.StatusBadRequest, status == http.StatusNotFound,
		status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return carterrors.Remote(carterrors.ErrConflict, status, reason)
	case status >= http.StatusInternalServerError:
		return carterrors.Remote(carterrors.ErrUnreachable, status, reason)
	case status >= http.StatusBadRequest:
		return carterrors.Remote(carterrors.ErrConflict, status, reason)
	default:
		return carterrors.Remote(carterrors.ErrMalformed, status, reason)
	}
}

func readReason(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var er errorResponse
	if err := json.Unmarshal(data, &er); err != nil {
		return ""
	}
	if len(er.ValidationErrors) == 0 {
		return er.Error
	}
	fields := make([]string, 0, len(er.ValidationErrors))
	for field, rule := range er.ValidationErrors {
		fields = append(fields, field+" "+rule)
	}
	slices.Sort(fields)
	return fmt.Sprintf("%s: %s", er.Error, strings.Join(fields, ", "))
}
