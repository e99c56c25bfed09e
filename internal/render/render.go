// Package render prints the storefront state for a terminal.
package render

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/cartsync"
	"github.com/abgdnv/storefront/internal/catalog"
	carterrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/session"
)

// Text writes plain text to w. It implements cartsync.Presenter.
type Text struct {
	mu sync.Mutex
	w  io.Writer
	// quiet suppresses cart output during background badge refreshes.
	quiet bool
}

var _ cartsync.Presenter = (*Text)(nil)

func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// SetQuiet turns cart change output off or on.
func (t *Text) SetQuiet(quiet bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quiet = quiet
}

// FormatPrice formats minor units as dollars.
func FormatPrice(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s$%d.%02d", sign, minor/100, minor%100)
}

// BadgeCount is the number of items in the cart.
func BadgeCount(s cart.Snapshot) int {
	n := 0
	for _, l := range s.Lines() {
		n += l.Quantity
	}
	return n
}

// Total is the display total of the cart in minor units.
func Total(s cart.Snapshot) int64 {
	var total int64
	for _, l := range s.Lines() {
		total += int64(l.Quantity) * l.Product.UnitPrice
	}
	return total
}

func (t *Text) CartChanged(s cart.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quiet {
		return
	}
	t.cart(s)
}

// Cart prints the cart regardless of the quiet flag.
func (t *Text) Cart(s cart.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cart(s)
}

func (t *Text) cart(s cart.Snapshot) {
	if s.IsEmpty() {
		fmt.Fprintln(t.w, "Cart (0): your cart is empty")
		return
	}
	fmt.Fprintf(t.w, "Cart (%d)\n", BadgeCount(s))
	tw := tabwriter.NewWriter(t.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range s.Lines() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			l.ProductID, l.Product.Name, l.Quantity,
			FormatPrice(l.Product.UnitPrice), FormatPrice(int64(l.Quantity)*l.Product.UnitPrice))
	}
	_ = tw.Flush()
	fmt.Fprintf(t.w, "Total: %s\n", FormatPrice(Total(s)))
}

// IntentFailed prints a one-line error with the backend's reason.
func (t *Text) IntentFailed(intent cartsync.Intent, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "error: %s: %s\n", describe(intent), carterrors.Reason(err))
}

func describe(intent cartsync.Intent) string {
	switch intent.Kind {
	case cartsync.KindAdd:
		return fmt.Sprintf("could not add product %d", intent.ProductID)
	case cartsync.KindSetQuantity:
		return fmt.Sprintf("could not change quantity of product %d", intent.ProductID)
	case cartsync.KindRemove:
		return fmt.Sprintf("could not remove product %d", intent.ProductID)
	case cartsync.KindCheckout:
		return "checkout failed"
	}
	return "could not load cart"
}

// SessionChanged prints the navigation for a guest, user or admin.
func (t *Text) SessionChanged(s *session.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nav(s)
}

// Nav prints the navigation for s without a session change.
func (t *Text) Nav(s *session.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nav(s)
}

func (t *Text) nav(s *session.Session) {
	switch {
	case s == nil:
		fmt.Fprintln(t.w, "Guest | login | register | products")
	case s.IsAdmin():
		fmt.Fprintf(t.w, "%s (admin) | products | cart | checkout | add-product | logout\n", s.Identity)
	default:
		fmt.Fprintf(t.w, "%s | products | cart | checkout | logout\n", s.Identity)
	}
}

// Products prints the catalog.
func (t *Text) Products(list []catalog.Product) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(list) == 0 {
		fmt.Fprintln(t.w, "No products")
		return
	}
	tw := tabwriter.NewWriter(t.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tSKU")
	for _, p := range list {
		stock := fmt.Sprintf("%d", p.Stock)
		if !p.InStock() {
			stock = "sold out"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, FormatPrice(p.Price), stock, p.SKU)
	}
	_ = tw.Flush()
}

// Product prints one product with its description.
func (t *Text) Product(p catalog.Product) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "#%d %s (%s)\n%s\nPrice: %s  Stock: %d\n", p.ID, p.Name, p.SKU, p.Description, FormatPrice(p.Price), p.Stock)
}

// Order prints a checkout confirmation.
func (t *Text) Order(o cart.Order) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg := o.Message
	if msg == "" {
		msg = "Order placed"
	}
	fmt.Fprintf(t.w, "%s: order #%d, paid %s\n", msg, o.ID, FormatPrice(o.TotalPaid))
}

// Message prints one line of free text.
func (t *Text) Message(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format+"\n", args...)
}

// Badge prints the cart item count next to the navigation. An empty cart prints nothing.
func (t *Text) Badge(s cart.Snapshot) {
	n := BadgeCount(s)
	if n == 0 {
		return
	}
	t.Message("Cart (%d)", n)
}
