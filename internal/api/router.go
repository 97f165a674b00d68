package api

import (
	"net/http"
	"time"

	"github.com/example/ec-checkout/internal/api/middleware"
	"github.com/example/ec-checkout/internal/auth"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterOptions carries the optional pieces of the HTTP surface.
type RouterOptions struct {
	Recorder       middleware.RequestRecorder
	MetricsHandler http.Handler
	RequestTimeout time.Duration
}

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, jwtService *auth.JWTService, opts RouterOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Observe(opts.Recorder))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(opts.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	requireAuth := middleware.AuthMiddleware(jwtService)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/register", authHandlers.Register)
		r.Post("/login", authHandlers.Login)
		r.Post("/logout", authHandlers.Logout)
		r.Get("/products", handlers.GetProducts)
		r.Get("/products/{productID}", handlers.GetProduct)
		r.Get("/products/{productID}/reviews", handlers.ListReviews)
		r.Get("/categories", handlers.ListCategories)
		r.Get("/categories/{categoryID}/products", handlers.GetCategoryProducts)
		r.Get("/track/{trackingNumber}", handlers.TrackOrder)

		// Signed-in customers
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandlers.Me)

			r.Get("/cart", handlers.GetCart)
			r.Post("/cart/items", handlers.AddToCart)
			r.Put("/cart/items/{productID}", handlers.UpdateCartItem)
			r.Delete("/cart/items/{productID}", handlers.RemoveFromCart)

			r.Get("/wishlist", handlers.GetWishlist)
			r.Post("/wishlist", handlers.AddToWishlist)
			r.Delete("/wishlist/{productID}", handlers.RemoveFromWishlist)

			r.Get("/addresses", handlers.ListAddresses)
			r.Post("/addresses", handlers.SaveAddress)

			r.Post("/checkout", handlers.Checkout)
			r.Get("/orders", handlers.GetOrders)

			r.Post("/products/{productID}/reviews", handlers.PostReview)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RequireRole(handlers.queryHandler, customer.RoleAdmin))

			r.Post("/products", handlers.CreateProduct)
			r.Put("/products/{productID}", handlers.UpdateProduct)
			r.Delete("/products/{productID}", handlers.DeleteProduct)
			r.Get("/users", handlers.ListUsers)
			r.Get("/orders", handlers.ListAllOrders)
			r.Put("/orders/{orderID}", handlers.UpdateOrderStatus)
		})
	})

	return r
}
