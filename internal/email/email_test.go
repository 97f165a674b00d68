package email

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRupees(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "₹0.00"},
		{"5", "₹5.00"},
		{"999.5", "₹999.50"},
		{"1000", "₹1,000.00"},
		{"1234567.891", "₹1,234,567.89"},
		{"-2500", "-₹2,500.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatRupees(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestBuildOrderConfirmationBody(t *testing.T) {
	body := BuildOrderConfirmationBody(OrderConfirmation{
		CustomerName:   "Asha <script>",
		OrderID:        42,
		TrackingNumber: "MYECOM-26-01234",
		Items: []OrderItem{
			{Name: "Mug", Quantity: 2, Price: decimal.RequireFromString("199.00")},
		},
		Total: decimal.RequireFromString("398.00"),
	})

	assert.Contains(t, body, "MYECOM-26-01234")
	assert.Contains(t, body, "order #42")
	assert.Contains(t, body, "₹398.00")
	assert.Contains(t, body, "Asha &lt;script&gt;")
	assert.NotContains(t, body, "<script>")
}

func TestService_SendOrderConfirmation(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s := NewService("mail.local", 2525, "shop@example.com")
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := s.SendOrderConfirmation("buyer@example.com", OrderConfirmation{OrderID: 1, TrackingNumber: "MYECOM-26-00001"})

	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, "shop@example.com", gotFrom)
	assert.Equal(t, []string{"buyer@example.com"}, gotTo)
	headers, _, _ := strings.Cut(string(gotMsg), "\r\n\r\n")
	assert.Contains(t, headers, "Subject: Order confirmed: MYECOM-26-00001")
	assert.Contains(t, headers, "To: buyer@example.com")
}
