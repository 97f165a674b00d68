package api

import (
	"net/http"

	"github.com/example/ec-checkout/internal/api/middleware"
	"github.com/example/ec-checkout/internal/command"
	"github.com/example/ec-checkout/internal/query"
)

func listParams(r *http.Request) query.ProductListParams {
	q := r.URL.Query()
	return query.ProductListParams{
		Sort:  q.Get("sort"),
		Order: q.Get("order"),
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.queryHandler.ListProducts(r.Context(), listParams(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	p, err := h.queryHandler.GetProduct(r.Context(), productID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Category Handlers

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queryHandler.ListCategories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handlers) GetCategoryProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "categoryID")
	if !ok {
		return
	}
	params := listParams(r)
	params.CategoryID = &categoryID

	page, err := h.queryHandler.ListProducts(r.Context(), params)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Review Handlers

func (h *Handlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	reviews, err := h.queryHandler.ListReviews(r.Context(), productID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reviews)
}

func (h *Handlers) PostReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	var cmd command.PostReview
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.CustomerID = middleware.GetCustomerID(r.Context())
	cmd.ProductID = productID

	review, err := h.cmdHandler.PostReview(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, review)
}
