package wishlist

import "errors"

var (
	ErrWishlistNotFound = errors.New("wishlist not found for this customer")
	ErrAlreadyListed    = errors.New("product is already in the wishlist")
	ErrNotListed        = errors.New("product not found in wishlist")
)
