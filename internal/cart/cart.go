// Package cart holds the client-side view of the shopping cart as confirmed by the backend.
package cart

import (
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ProductSnapshot is the product data denormalized into a cart line, as last reported by the server.
type ProductSnapshot struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"price" validate:"min=0"` // minor units
	Stock     int32  `json:"stock"`
}

// Line is one product in the cart.
type Line struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Product   ProductSnapshot `json:"product"`
}

// Snapshot is the ordered list of cart lines exactly as the backend last returned it.
// The zero value is the empty cart. A Snapshot is immutable: accessors return copies.
type Snapshot struct {
	lines []Line
}

// NewSnapshot validates lines and returns a Snapshot owning a copy of them.
func NewSnapshot(lines []Line) (Snapshot, error) {
	s := Snapshot{lines: slices.Clone(lines)}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Validate checks that every quantity is at least 1 and that product ids are unique.
func (s Snapshot) Validate() error {
	seen := make(map[int64]struct{}, len(s.lines))
	for i, l := range s.lines {
		if err := validate.Struct(l); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		if _, dup := seen[l.ProductID]; dup {
			return fmt.Errorf("line %d: duplicate product_id %d", i, l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
	}
	return nil
}

// Lines returns a copy of the cart lines in server order.
func (s Snapshot) Lines() []Line {
	return slices.Clone(s.lines)
}

func (s Snapshot) Len() int {
	return len(s.lines)
}

func (s Snapshot) IsEmpty() bool {
	return len(s.lines) == 0
}

// Find returns the line for productID.
func (s Snapshot) Find(productID int64) (Line, bool) {
	i := slices.IndexFunc(s.lines, func(l Line) bool { return l.ProductID == productID })
	if i < 0 {
		return Line{}, false
	}
	return s.lines[i], true
}

// Equal reports whether both snapshots hold the same lines in the same order.
func (s Snapshot) Equal(other Snapshot) bool {
	return slices.Equal(s.lines, other.lines)
}

// Order is the confirmation returned by a successful checkout.
type Order struct {
	ID        int64  `json:"order_id" validate:"required,gt=0"`
	TotalPaid int64  `json:"total_paid"`
	Message   string `json:"message"`
}

// Validate checks that the backend returned an order identifier.
func (o Order) Validate() error {
	return validate.Struct(o)
}
