package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/example/ec-checkout/internal/api/middleware"
	"github.com/example/ec-checkout/internal/apperr"
	"github.com/example/ec-checkout/internal/command"
	"github.com/example/ec-checkout/internal/query"
	"github.com/go-chi/chi/v5"
)

var errCustomerMismatch = errors.New("customerId does not match the signed-in customer")

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
	}
}

// Checkout

type checkoutRequest struct {
	CustomerID int64 `json:"customerId"`
	AddressID  int64 `json:"addressId"`
}

type checkoutResponse struct {
	Message        string `json:"message"`
	OrderID        int64  `json:"orderId"`
	TrackingNumber string `json:"trackingNumber"`
	Total          string `json:"total"`
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	customerID := middleware.GetCustomerID(r.Context())

	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CustomerID != 0 && req.CustomerID != customerID {
		respondError(w, apperr.Forbidden(errCustomerMismatch))
		return
	}

	res, err := h.cmdHandler.Checkout(r.Context(), command.Checkout{
		CustomerID:     customerID,
		AddressID:      req.AddressID,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, checkoutResponse{
		Message:        "Order placed successfully!",
		OrderID:        res.OrderID,
		TrackingNumber: res.TrackingNumber,
		Total:          res.Total.StringFixed(2),
	})
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.queryHandler.GetCart(r.Context(), middleware.GetCustomerID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToCart
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.CustomerID = middleware.GetCustomerID(r.Context())

	if err := h.cmdHandler.AddToCart(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Item added to cart successfully!")
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	var cmd command.UpdateCartItem
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.CustomerID = middleware.GetCustomerID(r.Context())
	cmd.ProductID = productID

	if err := h.cmdHandler.UpdateCartItem(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Cart updated.")
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	cmd := command.RemoveFromCart{
		CustomerID: middleware.GetCustomerID(r.Context()),
		ProductID:  productID,
	}
	if err := h.cmdHandler.RemoveFromCart(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Item removed from cart.")
}

// Wishlist Handlers

func (h *Handlers) GetWishlist(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.GetWishlist(r.Context(), middleware.GetCustomerID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handlers) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var cmd command.AddToWishlist
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.CustomerID = middleware.GetCustomerID(r.Context())

	if err := h.cmdHandler.AddToWishlist(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusCreated, "Item added to wishlist!")
}

func (h *Handlers) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	cmd := command.RemoveFromWishlist{
		CustomerID: middleware.GetCustomerID(r.Context()),
		ProductID:  productID,
	}
	if err := h.cmdHandler.RemoveFromWishlist(r.Context(), cmd); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Item removed from wishlist.")
}

// Address Handlers

func (h *Handlers) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.queryHandler.ListAddresses(r.Context(), middleware.GetCustomerID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, addresses)
}

func (h *Handlers) SaveAddress(w http.ResponseWriter, r *http.Request) {
	var cmd command.SaveAddress
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.CustomerID = middleware.GetCustomerID(r.Context())

	addr, err := h.cmdHandler.SaveAddress(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, addr)
}

// Order Handlers

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrders(r.Context(), middleware.GetCustomerID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) TrackOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.TrackOrder(r.Context(), strings.TrimSpace(chi.URLParam(r, "trackingNumber")))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
