package domain

import "errors"

// Validation failures returned by cart and checkout operations.
// All of them are recoverable: the caller keeps the prior value and
// surfaces the kind to the user.
var (
	ErrInvalidName     = errors.New("name is blank")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrEmptyCart       = errors.New("cart is empty, nothing to process")
	ErrNotFound        = errors.New("not found")
	ErrCorruptState    = errors.New("line already violates an invariant and cannot be updated")
)
