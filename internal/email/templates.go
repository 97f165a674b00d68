package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// OrderConfirmation is everything the confirmation email shows.
type OrderConfirmation struct {
	CustomerName   string
	OrderID        int64
	TrackingNumber string
	Items          []OrderItem
	Total          decimal.Decimal
}

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(c OrderConfirmation) string {
	var itemsHTML strings.Builder
	for _, item := range c.Items {
		fmt.Fprintf(&itemsHTML,
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			html.EscapeString(item.Name),
			item.Quantity,
			formatRupees(item.Price),
			formatRupees(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		)
	}

	greeting := "Hello,"
	if c.CustomerName != "" {
		greeting = fmt.Sprintf("Hello %s,", html.EscapeString(c.CustomerName))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: #2d6a4f; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Thank you for your order</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">%s</p>
		<p>We have received order #%d and are getting it ready.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Tracking number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Item</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Subtotal</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #2d6a4f; margin-left: 10px;">%s</span>
		</div>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. Track your order any time with the number above.
		</p>
	</div>
</body>
</html>`, greeting, c.OrderID, html.EscapeString(c.TrackingNumber), itemsHTML.String(), formatRupees(c.Total))
}

// formatRupees renders an amount with two decimals and comma separators
func formatRupees(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var result strings.Builder
	remainder := len(whole) % 3
	if remainder > 0 {
		result.WriteString(whole[:remainder])
	}
	for i := remainder; i < len(whole); i += 3 {
		if result.Len() > 0 {
			result.WriteString(",")
		}
		result.WriteString(whole[i : i+3])
	}

	return sign + "₹" + result.String() + "." + frac
}
