package customer

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrAddressNotFound    = errors.New("address not found")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrInvalidName        = errors.New("name is required")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrIncompleteAddress  = errors.New("street_no, city, state and zip_code are required")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}$`)

const maxEmailLength = 254

type Customer struct {
	ID            int64     `json:"customer_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Phone         string    `json:"phone,omitempty"`
	Role          Role      `json:"role"`
	LoyaltyPoints int       `json:"loyalty_points"`
	CreatedAt     time.Time `json:"created_at"`
}

// New builds a customer ready to be persisted. The password must already be
// hashed.
func New(name, email, passwordHash, phone string, role Role) (*Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, ErrInvalidName
	}
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if role == "" {
		role = RoleUser
	}
	return &Customer{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Phone:        phone,
		Role:         role,
		CreatedAt:    time.Now(),
	}, nil
}

func (c *Customer) IsAdmin() bool {
	return c.Role == RoleAdmin
}

func isValidEmail(email string) bool {
	if len(email) > maxEmailLength {
		return false
	}
	return emailRegex.MatchString(email)
}

// Address is a shipping destination owned by one customer.
type Address struct {
	ID         int64  `json:"address_id"`
	CustomerID int64  `json:"customer_id"`
	StreetNo   string `json:"street_no"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

func (a *Address) Validate() error {
	a.StreetNo = strings.TrimSpace(a.StreetNo)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	if a.StreetNo == "" || a.City == "" || a.State == "" || a.ZipCode == "" {
		return ErrIncompleteAddress
	}
	return nil
}

// OwnedBy reports whether the address may be used by the given customer.
func (a *Address) OwnedBy(customerID int64) bool {
	return a.CustomerID == customerID
}
