package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/catalog"
	carterrors "github.com/abgdnv/storefront/internal/errors"
	"golang.org/x/sync/errgroup"
)

// shownError is an error the presenter already printed.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }

func (e *shownError) Unwrap() error { return e.err }

func shown(err error) error {
	if err == nil {
		return nil
	}
	return &shownError{err: err}
}

type command struct {
	name string
	help string
	args int
	run  func(ctx context.Context, c *app.Client, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{name: "login", help: "<email> <password>  log in", args: 2, run: login},
		{name: "register", help: "<email> <password>  create an account", args: 2, run: register},
		{name: "logout", help: "log out", run: logout},
		{name: "whoami", help: "show the session and the cart badge", run: whoami},
		{name: "products", help: "list products", run: products},
		{name: "product", help: "<id>  show one product", args: 1, run: product},
		{name: "add-product", help: "-name -sku -price -stock [-description]  publish a product (admin)", args: -1, run: addProduct},
		{name: "cart", help: "show the cart", run: showCart},
		{name: "add", help: "<product_id> [quantity]  add to the cart", args: -1, run: add},
		{name: "qty", help: "<product_id> <delta>  change a quantity, e.g. -1", args: 2, run: quantity},
		{name: "remove", help: "<product_id>  remove a product from the cart", args: 1, run: remove},
		{name: "checkout", help: "place an order for the cart", run: checkout},
	}
}

func dispatch(ctx context.Context, c *app.Client, name string, args []string) error {
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if cmd.args >= 0 && len(args) != cmd.args {
			return fmt.Errorf("%w: %s expects %d argument(s): %s", carterrors.ErrInvalidArgument, name, cmd.args, cmd.help)
		}
		return cmd.run(ctx, c, args)
	}
	return fmt.Errorf("%w: unknown command %q", carterrors.ErrInvalidArgument, name)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid product id %q", carterrors.ErrInvalidArgument, s)
	}
	return id, nil
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number %q", carterrors.ErrInvalidArgument, s)
	}
	return n, nil
}

func login(ctx context.Context, c *app.Client, args []string) error {
	_, err := c.Auth.Login(ctx, args[0], args[1])
	return err
}

func register(ctx context.Context, c *app.Client, args []string) error {
	if err := c.Auth.Register(ctx, args[0], args[1]); err != nil {
		return err
	}
	c.View.Message("Account created, please log in.")
	return nil
}

func logout(_ context.Context, c *app.Client, _ []string) error {
	if _, ok := c.Auth.Current(); !ok {
		c.View.Nav(nil)
		return nil
	}
	return c.Auth.Logout()
}

func whoami(ctx context.Context, c *app.Client, _ []string) error {
	s, ok := c.Auth.Current()
	if !ok {
		c.View.Nav(nil)
		return nil
	}
	c.View.Nav(&s)
	badge(ctx, c)
	return nil
}

// badge refreshes the cart quietly and prints the item count, if there is one.
func badge(ctx context.Context, c *app.Client) {
	c.View.SetQuiet(true)
	c.Cart.RefreshBadge(ctx)
	c.View.SetQuiet(false)
	c.View.Badge(c.Cart.Snapshot())
}

func products(ctx context.Context, c *app.Client, _ []string) error {
	var list []catalog.Product
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = c.Catalog.List(gCtx)
		return err
	})
	g.Go(func() error {
		c.View.SetQuiet(true)
		c.Cart.RefreshBadge(gCtx)
		c.View.SetQuiet(false)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	c.View.Products(list)
	c.View.Badge(c.Cart.Snapshot())
	return nil
}

func product(ctx context.Context, c *app.Client, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	p, err := c.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	c.View.Product(p)
	return nil
}

func addProduct(ctx context.Context, c *app.Client, args []string) error {
	fs := flag.NewFlagSet("add-product", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var in catalog.ProductCreate
	fs.StringVar(&in.Name, "name", "", "product name")
	fs.StringVar(&in.Description, "description", "", "product description")
	fs.StringVar(&in.SKU, "sku", "", "stock keeping unit")
	fs.Int64Var(&in.Price, "price", 0, "price in cents")
	stock := fs.Int("stock", 0, "units in stock")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", carterrors.ErrInvalidArgument, err)
	}
	if *stock < 0 || *stock > math.MaxInt32 {
		return fmt.Errorf("%w: stock %d out of range", carterrors.ErrInvalidArgument, *stock)
	}
	in.Stock = int32(*stock)
	p, err := c.Catalog.Create(ctx, in)
	if err != nil {
		return err
	}
	c.View.Product(p)
	return nil
}

func showCart(ctx context.Context, c *app.Client, _ []string) error {
	return shown(c.Cart.Refresh(ctx))
}

func add(ctx context.Context, c *app.Client, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: add expects <product_id> [quantity]", carterrors.ErrInvalidArgument)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty := 1
	if len(args) == 2 {
		if qty, err = parseInt(args[1]); err != nil {
			return err
		}
	}
	return shown(c.Cart.Add(ctx, id, qty))
}

func quantity(ctx context.Context, c *app.Client, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	delta, err := parseInt(args[1])
	if err != nil {
		return err
	}
	return shown(c.Cart.SetQuantity(ctx, id, delta))
}

func remove(ctx context.Context, c *app.Client, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return shown(c.Cart.Remove(ctx, id))
}

func checkout(ctx context.Context, c *app.Client, _ []string) error {
	c.View.SetQuiet(true)
	err := c.Cart.Refresh(ctx)
	c.View.SetQuiet(false)
	if err != nil {
		return shown(err)
	}
	order, err := c.Cart.Checkout(ctx)
	if order.ID != 0 {
		c.View.Order(order)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return shown(err)
}
