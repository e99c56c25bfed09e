// Package cartsync keeps the local cart in step with the backend.
//
// All intents run one at a time on a single worker goroutine, each finishing
// (refreshed or failed) before the next one starts. After every successful
// mutation the cart is fetched again and the snapshot is replaced with the
// server's answer; nothing is computed locally.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/storefront/internal/cart"
	carterrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Gateway is the remote side of the cart.
type Gateway interface {
	FetchCart(ctx context.Context, token string) (cart.Snapshot, error)
	AddItem(ctx context.Context, token string, productID int64, delta int) error
	RemoveItem(ctx context.Context, token string, productID int64) error
	Checkout(ctx context.Context, token string) (cart.Order, error)
}

// Sessions is the part of the session store the engine needs.
type Sessions interface {
	Token() (string, bool)
	Clear() error
	OnChange(fn session.Listener)
}

// Presenter receives every observable change of the engine.
// Calls come from the worker goroutine or from whoever cleared the session.
type Presenter interface {
	CartChanged(s cart.Snapshot)
	IntentFailed(intent Intent, err error)
	SessionChanged(s *session.Session)
}

type result struct {
	order cart.Order
	err   error
}

// credential is the token an intent runs with and the session generation it was read in.
type credential struct {
	token      string
	generation uint64
}

type job struct {
	ctx    context.Context
	intent Intent
	run    func(ctx context.Context) (cart.Order, error)
	done   chan result
}

// Engine owns the cart snapshot. Create it with New and release it with Close.
type Engine struct {
	gateway   Gateway
	sessions  Sessions
	presenter Presenter
	logger    *slog.Logger
	tracer    trace.Tracer
	counter   metric.Int64Counter

	queue    chan *job
	lifetime context.Context
	stop     context.CancelFunc
	stopped  chan struct{}
	once     sync.Once

	mu       sync.RWMutex
	snapshot cart.Snapshot
	state    State
	// generation changes whenever the session token changes; results from an older one are dropped.
	generation   uint64
	sessionToken string
}

// New starts an engine. A nil presenter discards notifications.
func New(gateway Gateway, sessions Sessions, presenter Presenter, logger *slog.Logger) *Engine {
	meter := otel.Meter("storefront-cartsync")
	counter, err := meter.Int64Counter("cart_intents", metric.WithDescription("Total number of processed cart intents"))
	if err != nil {
		panic(fmt.Sprintf("failed to create cart_intents counter: %v", err))
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}
	lifetime, stop := context.WithCancel(context.Background())
	e := &Engine{
		gateway:   gateway,
		sessions:  sessions,
		presenter: presenter,
		logger:    logger.With("component", "cartsync"),
		tracer:    otel.Tracer("storefront-cartsync"),
		counter:   counter,
		queue:     make(chan *job),
		lifetime:  lifetime,
		stop:      stop,
		stopped:   make(chan struct{}),
	}
	e.sessionToken, _ = sessions.Token()
	sessions.OnChange(e.sessionChanged)
	go e.loop()
	return e
}

// Snapshot returns the current cart. The returned value is a copy.
func (e *Engine) Snapshot() cart.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Close stops the worker. The in-flight request is cancelled and every
// waiting or later intent fails with ErrClosed. Close is idempotent.
func (e *Engine) Close() {
	e.once.Do(func() {
		e.stop()
		<-e.stopped
		e.logger.Debug("Cart engine closed")
	})
}

// Logout drops the session. The engine moves to LoggedOut through the session listener.
func (e *Engine) Logout() error {
	return e.sessions.Clear()
}

// Refresh replaces the snapshot with the backend's cart.
// On failure the previous snapshot is kept.
func (e *Engine) Refresh(ctx context.Context) error {
	_, err := e.submit(ctx, Intent{Kind: KindRefresh}, func(ctx context.Context) (cart.Order, error) {
		cred, err := e.credential()
		if err != nil {
			return cart.Order{}, err
		}
		return cart.Order{}, e.refresh(ctx, cred)
	})
	return err
}

// RefreshBadge is Refresh for background callers: without a session it does nothing,
// and failures are only logged.
func (e *Engine) RefreshBadge(ctx context.Context) {
	if _, ok := e.sessions.Token(); !ok {
		return
	}
	_, _ = e.submit(ctx, Intent{Kind: KindRefreshBadge}, func(ctx context.Context) (cart.Order, error) {
		cred, err := e.credential()
		if err != nil {
			return cart.Order{}, err
		}
		return cart.Order{}, e.refresh(ctx, cred)
	})
}

// Add puts quantity more units of productID into the cart. A zero quantity adds one.
func (e *Engine) Add(ctx context.Context, productID int64, quantity int) error {
	if quantity == 0 {
		quantity = 1
	}
	intent := Intent{Kind: KindAdd, ProductID: productID, Quantity: quantity}
	_, err := e.submit(ctx, intent, func(ctx context.Context) (cart.Order, error) {
		if quantity < 0 {
			return cart.Order{}, fmt.Errorf("%w: quantity %d", carterrors.ErrInvalidArgument, quantity)
		}
		return cart.Order{}, e.mutate(ctx, func(ctx context.Context, token string) error {
			return e.gateway.AddItem(ctx, token, productID, quantity)
		})
	})
	return err
}

// SetQuantity changes the quantity of productID by delta. The backend removes
// the line when the quantity drops to zero or below.
func (e *Engine) SetQuantity(ctx context.Context, productID int64, delta int) error {
	intent := Intent{Kind: KindSetQuantity, ProductID: productID, Quantity: delta}
	_, err := e.submit(ctx, intent, func(ctx context.Context) (cart.Order, error) {
		if delta == 0 {
			return cart.Order{}, fmt.Errorf("%w: zero quantity delta", carterrors.ErrInvalidArgument)
		}
		return cart.Order{}, e.mutate(ctx, func(ctx context.Context, token string) error {
			return e.gateway.AddItem(ctx, token, productID, delta)
		})
	})
	return err
}

// Remove deletes the line of productID.
func (e *Engine) Remove(ctx context.Context, productID int64) error {
	intent := Intent{Kind: KindRemove, ProductID: productID}
	_, err := e.submit(ctx, intent, func(ctx context.Context) (cart.Order, error) {
		return cart.Order{}, e.mutate(ctx, func(ctx context.Context, token string) error {
			return e.gateway.RemoveItem(ctx, token, productID)
		})
	})
	return err
}

// Checkout places an order for the whole cart and then refreshes.
// If the order is placed but the refresh fails, both the order and the error are returned.
func (e *Engine) Checkout(ctx context.Context) (cart.Order, error) {
	return e.submit(ctx, Intent{Kind: KindCheckout}, func(ctx context.Context) (cart.Order, error) {
		cred, err := e.credential()
		if err != nil {
			return cart.Order{}, err
		}
		if e.Snapshot().IsEmpty() {
			return cart.Order{}, carterrors.Remote(carterrors.ErrConflict, 0, "cart is empty")
		}
		order, err := e.gateway.Checkout(ctx, cred.token)
		if err != nil {
			return cart.Order{}, err
		}
		e.logger.InfoContext(ctx, "Order placed", "order_id", order.ID, "total_paid", order.TotalPaid)
		if err := e.refresh(ctx, cred); err != nil {
			return order, fmt.Errorf("order %d placed, refresh failed: %w", order.ID, err)
		}
		return order, nil
	})
}

// submit queues an intent and waits for its result.
func (e *Engine) submit(ctx context.Context, intent Intent, run func(ctx context.Context) (cart.Order, error)) (cart.Order, error) {
	intent.ID = uuid.NewString()
	ctx = logger.WithIntentID(ctx, intent.ID)
	j := &job{ctx: ctx, intent: intent, run: run, done: make(chan result, 1)}

	if e.lifetime.Err() != nil {
		return cart.Order{}, carterrors.ErrClosed
	}
	select {
	case e.queue <- j:
	case <-ctx.Done():
		return cart.Order{}, ctx.Err()
	case <-e.lifetime.Done():
		return cart.Order{}, carterrors.ErrClosed
	}

	select {
	case r := <-j.done:
		return r.order, r.err
	case <-ctx.Done():
		return cart.Order{}, ctx.Err()
	}
}

func (e *Engine) loop() {
	defer close(e.stopped)
	for {
		select {
		case <-e.lifetime.Done():
			return
		case j := <-e.queue:
			j.done <- e.dispatch(j)
		}
	}
}

// dispatch runs one intent to completion on the worker.
func (e *Engine) dispatch(j *job) result {
	if err := j.ctx.Err(); err != nil {
		e.logger.DebugContext(j.ctx, "Intent skipped", "kind", j.intent.Kind, "error", err)
		e.record(j.ctx, j.intent, "skipped")
		return result{err: err}
	}

	// The caller may stop waiting, but the request keeps going until Close.
	ctx, cancel := context.WithCancel(context.WithoutCancel(j.ctx))
	defer cancel()
	unhook := context.AfterFunc(e.lifetime, cancel)
	defer unhook()

	ctx, span := e.tracer.Start(ctx, "cartsync."+string(j.intent.Kind), trace.WithAttributes(
		attribute.String("intent.id", j.intent.ID),
		attribute.Int64("product.id", j.intent.ProductID),
		attribute.Int("quantity", j.intent.Quantity),
	))
	defer span.End()

	e.logger.DebugContext(ctx, "Intent started", "kind", j.intent.Kind, "product_id", j.intent.ProductID, "quantity", j.intent.Quantity)
	order, err := j.run(ctx)
	if err != nil && e.lifetime.Err() != nil {
		err = errors.Join(carterrors.ErrClosed, err)
	}
	if err == nil {
		e.record(ctx, j.intent, "ok")
		e.logger.DebugContext(ctx, "Intent done", "kind", j.intent.Kind)
		return result{order: order}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.record(ctx, j.intent, "failed")
	e.fail(ctx, j.intent, err)
	return result{order: order, err: err}
}

func (e *Engine) fail(ctx context.Context, intent Intent, err error) {
	if errors.Is(err, carterrors.ErrUnauthorized) {
		e.logger.WarnContext(ctx, "Credential rejected, dropping session", "kind", intent.Kind)
		if clearErr := e.sessions.Clear(); clearErr != nil {
			e.logger.ErrorContext(ctx, "Failed to clear session", "error", clearErr)
		}
	}
	if intent.Kind == KindRefreshBadge {
		e.logger.DebugContext(ctx, "Badge refresh failed", "error", err)
		return
	}
	e.logger.WarnContext(ctx, "Intent failed", "kind", intent.Kind, "error", err)
	e.presenter.IntentFailed(intent, err)
}

func (e *Engine) record(ctx context.Context, intent Intent, outcome string) {
	e.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(intent.Kind)),
		attribute.String("outcome", outcome),
	))
}

// credential reads the generation before the token, so a session change in between
// makes the result look stale rather than current.
func (e *Engine) credential() (credential, error) {
	e.mu.RLock()
	generation := e.generation
	e.mu.RUnlock()
	token, ok := e.sessions.Token()
	if !ok {
		return credential{}, carterrors.ErrUnauthenticated
	}
	return credential{token: token, generation: generation}, nil
}

// mutate sends one mutating call and, on success, refreshes.
func (e *Engine) mutate(ctx context.Context, call func(ctx context.Context, token string) error) error {
	cred, err := e.credential()
	if err != nil {
		return err
	}
	if err := call(ctx, cred.token); err != nil {
		return err
	}
	return e.refresh(ctx, cred)
}

// refresh fetches the cart and replaces the snapshot with it.
func (e *Engine) refresh(ctx context.Context, cred credential) error {
	snapshot, err := e.gateway.FetchCart(ctx, cred.token)
	if err != nil {
		return err
	}
	if !e.apply(cred, snapshot) {
		e.logger.DebugContext(ctx, "Stale cart dropped")
		return nil
	}
	e.logger.DebugContext(ctx, "Cart synced", "lines", snapshot.Len())
	e.presenter.CartChanged(snapshot)
	return nil
}

// apply stores snapshot unless the engine was closed or the session it was fetched for is gone.
// The generation is compared under the same lock sessionChanged resets the cart with.
func (e *Engine) apply(cred credential, snapshot cart.Snapshot) bool {
	if current, ok := e.sessions.Token(); !ok || current != cred.token {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lifetime.Err() != nil || e.generation != cred.generation {
		return false
	}
	e.snapshot = snapshot
	e.state = Synced
	return true
}

// sessionChanged resets the cart on logout and when another session replaces the current one.
func (e *Engine) sessionChanged(s *session.Session) {
	token := ""
	if s != nil {
		token = s.Token
	}
	e.mu.Lock()
	changed := token != e.sessionToken
	hadLines := !e.snapshot.IsEmpty()
	if changed {
		e.generation++
		e.sessionToken = token
	}
	switch {
	case s == nil:
		e.snapshot = cart.Snapshot{}
		e.state = LoggedOut
	case changed:
		e.snapshot = cart.Snapshot{}
		e.state = Uninitialized
	}
	e.mu.Unlock()

	switch {
	case s == nil:
		e.logger.Debug("Session cleared, cart reset")
		e.presenter.CartChanged(cart.Snapshot{})
	case changed && hadLines:
		e.logger.Debug("Session replaced, cart reset")
		e.presenter.CartChanged(cart.Snapshot{})
	}
	e.presenter.SessionChanged(s)
}

type nopPresenter struct{}

func (nopPresenter) CartChanged(cart.Snapshot) {}

func (nopPresenter) IntentFailed(Intent, error) {}

func (nopPresenter) SessionChanged(*session.Session) {}
