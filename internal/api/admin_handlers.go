package api

import (
	"net/http"

	"github.com/example/ec-checkout/internal/api/middleware"
	"github.com/example/ec-checkout/internal/command"
)

// Admin Product Handlers

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if !decodeJSON(w, r, &cmd) {
		return
	}
	sellerID := middleware.GetCustomerID(r.Context())
	cmd.SellerID = &sellerID

	p, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	var cmd command.UpdateProduct
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.ProductID = productID

	p, err := h.cmdHandler.UpdateProduct(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	if err := h.cmdHandler.DeleteProduct(r.Context(), command.DeleteProduct{ProductID: productID}); err != nil {
		respondError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Product deleted successfully.")
}

// Admin Customer and Order Handlers

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.queryHandler.ListCustomers(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *Handlers) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListAllOrders(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}
	var cmd command.UpdateOrderStatus
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.OrderID = orderID

	o, err := h.cmdHandler.UpdateOrderStatus(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
