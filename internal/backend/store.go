package backend

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/abgdnv/storefront/internal/catalog"
	"golang.org/x/crypto/bcrypt"
)

// User is a registered account.
type User struct {
	ID           int64
	Email        string
	PasswordHash []byte
	Role         string
}

// CartLine is one product in a user's cart, with the product as it is now.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   catalog.Product `json:"product"`
}

// Order is a placed order.
type Order struct {
	ID        int64
	UserID    int64
	TotalPaid int64
}

type line struct {
	productID int64
	quantity  int
}

// Store keeps products, users, carts and orders in memory. All methods are safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	products    map[int64]catalog.Product
	productIDs  []int64
	users       map[string]User
	carts       map[int64][]line
	orders      []Order
	nextProduct int64
	nextUser    int64
	nextOrder   int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products:    make(map[int64]catalog.Product),
		users:       make(map[string]User),
		carts:       make(map[int64][]line),
		nextProduct: 1,
		nextUser:    1,
		nextOrder:   1,
	}
}

// ListProducts returns all products in creation order.
func (s *Store) ListProducts() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]catalog.Product, 0, len(s.productIDs))
	for _, id := range s.productIDs {
		list = append(list, s.products[id])
	}
	return list
}

// FindProduct retrieves a product by its ID.
func (s *Store) FindProduct(id int64) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, ErrProductNotFound
	}
	return p, nil
}

// CreateProduct adds a product and returns it with its new ID.
func (s *Store) CreateProduct(in catalog.ProductCreate) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := catalog.Product{
		ID:          s.nextProduct,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		SKU:         in.SKU,
	}
	s.nextProduct++
	s.products[p.ID] = p
	s.productIDs = append(s.productIDs, p.ID)
	return p
}

// SetStock overwrites the stock of a product.
func (s *Store) SetStock(id int64, stock int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock = stock
	s.products[id] = p
	return nil
}

// CreateUser registers a new account. Emails are compared case-insensitively.
func (s *Store) CreateUser(email, password, role string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	key := strings.ToLower(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[key]; exists {
		return User{}, ErrUserExists
	}
	u := User{ID: s.nextUser, Email: email, PasswordHash: hash, Role: role}
	s.nextUser++
	s.users[key] = u
	return u, nil
}

// Authenticate checks credentials and returns the matching user.
func (s *Store) Authenticate(email, password string) (User, error) {
	s.mu.RLock()
	u, ok := s.users[strings.ToLower(email)]
	s.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Cart returns the user's cart lines in the order they were first added.
func (s *Store) Cart(userID int64) []CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartLocked(userID)
}

func (s *Store) cartLocked(userID int64) []CartLine {
	lines := s.carts[userID]
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, CartLine{ProductID: l.productID, Quantity: l.quantity, Product: s.products[l.productID]})
	}
	return out
}

// AddToCart changes the quantity of productID by delta. A resulting quantity of zero or less
// removes the line. The resulting quantity may not exceed the product's stock.
func (s *Store) AddToCart(userID, productID int64, delta int) ([]CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	lines := s.carts[userID]
	i := slices.IndexFunc(lines, func(l line) bool { return l.productID == productID })

	current := 0
	if i >= 0 {
		current = lines[i].quantity
	} else if delta <= 0 {
		return nil, ErrLineNotFound
	}
	if delta > int(p.Stock) {
		return nil, fmt.Errorf("%w for: %s", ErrInsufficientStock, p.Name)
	}
	next := current + delta
	switch {
	case next <= 0:
		lines = slices.Delete(lines, i, i+1)
	case next > int(p.Stock):
		return nil, fmt.Errorf("%w for: %s", ErrInsufficientStock, p.Name)
	case i >= 0:
		lines[i].quantity = next
	default:
		lines = append(lines, line{productID: productID, quantity: next})
	}
	s.carts[userID] = lines
	return s.cartLocked(userID), nil
}

// RemoveFromCart deletes the line for productID.
func (s *Store) RemoveFromCart(userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[userID]
	i := slices.IndexFunc(lines, func(l line) bool { return l.productID == productID })
	if i < 0 {
		return ErrLineNotFound
	}
	s.carts[userID] = slices.Delete(lines, i, i+1)
	return nil
}

// Checkout turns the user's cart into an order: stock is checked and decremented for every line,
// and the cart is cleared. Nothing changes when any line fails.
func (s *Store) Checkout(userID int64) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[userID]
	if len(lines) == 0 {
		return Order{}, ErrCartEmpty
	}
	var total int64
	for _, l := range lines {
		p, ok := s.products[l.productID]
		if !ok {
			return Order{}, fmt.Errorf("%w: %d", ErrProductNotFound, l.productID)
		}
		if int(p.Stock) < l.quantity {
			return Order{}, fmt.Errorf("%w for: %s", ErrInsufficientStock, p.Name)
		}
		total += int64(l.quantity) * p.Price
	}
	for _, l := range lines {
		p := s.products[l.productID]
		p.Stock -= int32(l.quantity)
		s.products[l.productID] = p
	}
	order := Order{ID: s.nextOrder, UserID: userID, TotalPaid: total}
	s.nextOrder++
	s.orders = append(s.orders, order)
	delete(s.carts, userID)
	return order, nil
}
