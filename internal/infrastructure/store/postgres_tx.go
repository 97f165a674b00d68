package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/inventory"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/product"
	"github.com/example/ec-checkout/internal/domain/wishlist"
)

type postgresTx struct {
	tx *sql.Tx
}

var _ Tx = (*postgresTx)(nil)

func (t *postgresTx) CreateCustomer(ctx context.Context, c *customer.Customer) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO customers (name, email, password, phone, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING customer_id`,
		c.Name, c.Email, c.PasswordHash, c.Phone, string(c.Role), c.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, customer.ErrEmailTaken
	}
	return id, err
}

func (t *postgresTx) CreateCart(ctx context.Context, customerID int64) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO carts (customer_id) VALUES ($1) RETURNING cart_id`, customerID,
	).Scan(&id)
	return id, err
}

func (t *postgresTx) CreateWishlist(ctx context.Context, customerID int64) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO wishlists (customer_id) VALUES ($1) RETURNING wishlist_id`, customerID,
	).Scan(&id)
	return id, err
}

func (t *postgresTx) LockCart(ctx context.Context, customerID int64) (int64, error) {
	var cartID int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT cart_id FROM carts WHERE customer_id = $1 FOR UPDATE`, customerID,
	).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, cart.ErrCartNotFound
	}
	return cartID, err
}

func (t *postgresTx) CartLines(ctx context.Context, cartID int64, lockProducts bool) ([]cart.Line, error) {
	query := `SELECT ci.product_id, p.name, p.image_url, ci.quantity, p.mrp, p.quantity
		 FROM cart_items ci
		 JOIN products p ON p.product_id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.product_id`
	if lockProducts {
		query += ` FOR UPDATE OF p`
	}

	rows, err := t.tx.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.ProductID, &l.Name, &l.ImageURL, &l.Quantity, &l.UnitPrice, &l.Stock); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *postgresTx) SetCartItem(ctx context.Context, cartID, productID int64, quantity int) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		 ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, productID, quantity,
	)
	return err
}

func (t *postgresTx) DeleteCartItem(ctx context.Context, cartID, productID int64) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, cart.ErrItemNotInCart)
}

func (t *postgresTx) ClearCart(ctx context.Context, cartID int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

func (t *postgresTx) wishlistID(ctx context.Context, customerID int64) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT wishlist_id FROM wishlists WHERE customer_id = $1`, customerID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, wishlist.ErrWishlistNotFound
	}
	return id, err
}

func (t *postgresTx) AddWishlistItem(ctx context.Context, customerID, productID int64) error {
	wishlistID, err := t.wishlistID(ctx, customerID)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO wishlist_items (wishlist_id, product_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		wishlistID, productID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, wishlist.ErrAlreadyListed)
}

func (t *postgresTx) RemoveWishlistItem(ctx context.Context, customerID, productID int64) error {
	wishlistID, err := t.wishlistID(ctx, customerID)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE wishlist_id = $1 AND product_id = $2`, wishlistID, productID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, wishlist.ErrNotListed)
}

func (t *postgresTx) GetAddress(ctx context.Context, addressID int64) (*customer.Address, error) {
	var a customer.Address
	err := t.tx.QueryRowContext(ctx,
		`SELECT address_id, customer_id, street_no, city, state, zip_code
		 FROM addresses WHERE address_id = $1`,
		addressID,
	).Scan(&a.ID, &a.CustomerID, &a.StreetNo, &a.City, &a.State, &a.ZipCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customer.ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *postgresTx) InsertAddress(ctx context.Context, a *customer.Address) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO addresses (customer_id, street_no, city, state, zip_code)
		 VALUES ($1, $2, $3, $4, $5) RETURNING address_id`,
		a.CustomerID, a.StreetNo, a.City, a.State, a.ZipCode,
	).Scan(&id)
	return id, err
}

func (t *postgresTx) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	return scanProduct(t.tx.QueryRowContext(ctx, productSelect+` WHERE p.product_id = $1`, productID))
}

func (t *postgresTx) LockProduct(ctx context.Context, productID int64) (*product.Product, error) {
	return scanProduct(t.tx.QueryRowContext(ctx, productSelect+` WHERE p.product_id = $1 FOR UPDATE OF p`, productID))
}

func (t *postgresTx) InsertProduct(ctx context.Context, p *product.Product) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO products (name, description, detailed_description, mrp, image_url, seller_id, quantity, category_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING product_id`,
		p.Name, p.Description, p.DetailedDescription, p.MRP, p.ImageURL, p.SellerID, p.Quantity, p.CategoryID,
	).Scan(&id)
	return id, err
}

func (t *postgresTx) UpdateProduct(ctx context.Context, p *product.Product) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE products
		 SET name = $1, description = $2, detailed_description = $3, mrp = $4,
		     image_url = $5, quantity = $6, category_id = $7
		 WHERE product_id = $8`,
		p.Name, p.Description, p.DetailedDescription, p.MRP, p.ImageURL, p.Quantity, p.CategoryID, p.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, product.ErrProductNotFound)
}

func (t *postgresTx) DeleteProduct(ctx context.Context, productID int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, productID)
	if err != nil {
		return err
	}
	return requireAffected(res, product.ErrProductNotFound)
}

func (t *postgresTx) DecrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	var remaining int
	err := t.tx.QueryRowContext(ctx,
		`UPDATE products SET quantity = quantity - $1
		 WHERE product_id = $2 AND quantity >= $1
		 RETURNING quantity`,
		quantity, productID,
	).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	var available int
	err = t.tx.QueryRowContext(ctx,
		`SELECT quantity FROM products WHERE product_id = $1`, productID,
	).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, product.ErrProductNotFound
	}
	if err != nil {
		return 0, err
	}
	return 0, &inventory.InsufficientStockError{ProductID: productID, Requested: quantity, Available: available}
}

func (t *postgresTx) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	// The product may have been deleted since the order was placed.
	_, err := t.tx.ExecContext(ctx,
		`UPDATE products SET quantity = quantity + $1 WHERE product_id = $2`, quantity, productID,
	)
	return err
}

func (t *postgresTx) InsertReview(ctx context.Context, r *product.Review) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO reviews (product_id, customer_id, rating, comment)
		 VALUES ($1, $2, $3, $4) RETURNING review_id, created_at`,
		r.ProductID, r.CustomerID, r.Rating, r.Comment,
	).Scan(&id, &r.CreatedAt)
	return id, err
}

func (t *postgresTx) InsertOrder(ctx context.Context, o *order.Order) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO orders (customer_id, address_id, order_date, total_amount, status, tracking_number)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT ON CONSTRAINT orders_tracking_number_key DO NOTHING
		 RETURNING order_id`,
		o.CustomerID, o.AddressID, o.OrderDate, o.Total, string(o.Status), o.TrackingNumber,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrDuplicateTrackingNumber
	}
	return id, err
}

func (t *postgresTx) InsertOrderItems(ctx context.Context, orderID int64, items []order.Item) error {
	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, price_per_item) VALUES ($1, $2, $3, $4)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, orderID, it.ProductID, it.Quantity, it.PricePerItem); err != nil {
			return fmt.Errorf("insert item for product %d: %w", it.ProductID, err)
		}
	}
	return nil
}

func (t *postgresTx) LockOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	var o order.Order
	var status string
	err := t.tx.QueryRowContext(ctx,
		`SELECT order_id, customer_id, address_id, order_date, total_amount, status, tracking_number
		 FROM orders WHERE order_id = $1 FOR UPDATE`,
		orderID,
	).Scan(&o.ID, &o.CustomerID, &o.AddressID, &o.OrderDate, &o.Total, &status, &o.TrackingNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)

	items, err := queryOrderItems(ctx, t.tx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (t *postgresTx) SetOrderStatus(ctx context.Context, orderID int64, status order.Status) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE order_id = $2`, string(status), orderID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, order.ErrOrderNotFound)
}

func (t *postgresTx) AppendEvent(ctx context.Context, aggregateType string, aggregateID int64, eventType string, data any) (*Event, error) {
	event, err := newEvent(aggregateType, aggregateID, eventType, data)
	if err != nil {
		return nil, err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.AggregateType, event.AggregateID, event.EventType, []byte(event.Data), event.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
