package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/example/ec-checkout/internal/api/middleware"
	"github.com/example/ec-checkout/internal/auth"
	"github.com/example/ec-checkout/internal/command"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/query"
)

// AuthHandlers handles registration, login and session endpoints
type AuthHandlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	jwtService   *auth.JWTService
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		jwtService:   jwtService,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message    string `json:"message"`
	CustomerID int64  `json:"customerId"`
}

type loginResponse struct {
	Message    string        `json:"message"`
	Token      string        `json:"token"`
	ExpiresAt  time.Time     `json:"expiresAt"`
	CustomerID int64         `json:"customerId"`
	Role       customer.Role `json:"role"`
}

// Register creates a customer along with an empty cart and wishlist
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var cmd command.Register
	if !decodeJSON(w, r, &cmd) {
		return
	}

	c, err := h.cmdHandler.Register(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, registerResponse{
		Message:    fmt.Sprintf("User registered successfully as %s!", c.Role),
		CustomerID: c.ID,
	})
}

// Login verifies credentials and issues an access token, both in the body and as a cookie
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.queryHandler.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateAccessToken(c.ID, c.Email, c.Role)
	if err != nil {
		log.Printf("[Auth] Error issuing token for customer %d: %v", c.ID, err)
		respondMessage(w, http.StatusInternalServerError, "Server error. Please try again.")
		return
	}
	h.setAuthCookie(w, r, token, expiresAt)

	respondJSON(w, http.StatusOK, loginResponse{
		Message:    "Logged in successfully!",
		Token:      token,
		ExpiresAt:  expiresAt,
		CustomerID: c.ID,
		Role:       c.Role,
	})
}

// Logout clears the access token cookie
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookie(w)
	respondMessage(w, http.StatusOK, "Logged out successfully.")
}

// Me returns the current authenticated customer
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	view, err := h.queryHandler.GetCustomer(r.Context(), middleware.GetCustomerID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Helper methods

func (h *AuthHandlers) setAuthCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
