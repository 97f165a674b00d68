package customer

import "time"

const AggregateType = "Customer"

const EventCustomerRegistered = "CustomerRegistered"

type CustomerRegistered struct {
	CustomerID int64     `json:"customer_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}
