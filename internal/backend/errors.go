package backend

import "errors"

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrLineNotFound       = errors.New("product is not in the cart")
	ErrInsufficientStock  = errors.New("not enough stock")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
