package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/category"
	"github.com/example/ec-checkout/internal/domain/customer"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/product"
)

const productSelect = `SELECT p.product_id, p.name, p.description, p.detailed_description, p.mrp,
	p.quantity, p.image_url, p.seller_id, p.category_id, COALESCE(c.name, ''), p.created_at
	FROM products p
	LEFT JOIN categories c ON c.category_id = p.category_id`

const orderSelect = `SELECT o.order_id, o.customer_id, cu.name, o.address_id, o.order_date,
	o.total_amount, o.status, o.tracking_number,
	a.address_id, a.customer_id, a.street_no, a.city, a.state, a.zip_code
	FROM orders o
	JOIN customers cu ON cu.customer_id = o.customer_id
	LEFT JOIN addresses a ON a.address_id = o.address_id`

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var _ Store = (*PostgresStore)(nil)

func scanProduct(row rowScanner) (*product.Product, error) {
	var p product.Product
	var sellerID, categoryID sql.NullInt64
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.DetailedDescription, &p.MRP,
		&p.Quantity, &p.ImageURL, &sellerID, &categoryID, &p.CategoryName, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if sellerID.Valid {
		p.SellerID = &sellerID.Int64
	}
	if categoryID.Valid {
		p.CategoryID = &categoryID.Int64
	}
	return &p, nil
}

func queryProducts(ctx context.Context, q queryer, query string, args ...any) ([]product.Product, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []product.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func queryOrderItems(ctx context.Context, q queryer, orderID int64) ([]order.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT oi.product_id, COALESCE(p.name, ''), COALESCE(p.image_url, ''), oi.quantity, oi.price_per_item
		 FROM order_items oi
		 LEFT JOIN products p ON p.product_id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.order_item_id`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []order.Item
	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.ImageURL, &it.Quantity, &it.PricePerItem); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// sortColumn whitelists ORDER BY targets.
func sortColumn(sort string) string {
	switch sort {
	case "mrp":
		return "p.mrp"
	case "name":
		return "p.name"
	default:
		return "p.product_id"
	}
}

func (s *PostgresStore) ListProducts(ctx context.Context, q ProductQuery) ([]product.Product, int, error) {
	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}

	where := ""
	args := []any{}
	if q.CategoryID != nil {
		where = " WHERE p.category_id = $1"
		args = append(args, *q.CategoryID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("%s%s ORDER BY %s %s, p.product_id LIMIT $%d OFFSET $%d",
		productSelect, where, sortColumn(q.Sort), direction, len(args)+1, len(args)+2)
	products, err := queryProducts(ctx, s.db, query, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *PostgresStore) FindProduct(ctx context.Context, productID int64) (*product.Product, error) {
	return scanProduct(s.db.QueryRowContext(ctx, productSelect+` WHERE p.product_id = $1`, productID))
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]category.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category_id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []category.Category{}
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		c.Slug = category.Slug(c.Name)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PostgresStore) FindCategory(ctx context.Context, categoryID int64) (*category.Category, error) {
	var c category.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT category_id, name, description FROM categories WHERE category_id = $1`, categoryID,
	).Scan(&c.ID, &c.Name, &c.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, category.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Slug = category.Slug(c.Name)
	return &c, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, productID int64) ([]product.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.review_id, r.product_id, r.customer_id, c.name, r.rating, r.comment, r.created_at
		 FROM reviews r
		 JOIN customers c ON c.customer_id = r.customer_id
		 WHERE r.product_id = $1
		 ORDER BY r.created_at DESC`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []product.Review{}
	for rows.Next() {
		var r product.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.CustomerID, &r.CustomerName, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *PostgresStore) FindCart(ctx context.Context, customerID int64) (*cart.Cart, error) {
	c := cart.Cart{CustomerID: customerID}
	err := s.db.QueryRowContext(ctx,
		`SELECT cart_id FROM carts WHERE customer_id = $1`, customerID,
	).Scan(&c.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cart.ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ci.product_id, p.name, p.image_url, ci.quantity, p.mrp, p.quantity
		 FROM cart_items ci
		 JOIN products p ON p.product_id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.product_id`,
		c.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.ProductID, &l.Name, &l.ImageURL, &l.Quantity, &l.UnitPrice, &l.Stock); err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, l)
	}
	return &c, rows.Err()
}

func (s *PostgresStore) ListWishlist(ctx context.Context, customerID int64) ([]product.Product, error) {
	return queryProducts(ctx, s.db,
		productSelect+`
		 JOIN wishlist_items wi ON wi.product_id = p.product_id
		 JOIN wishlists w ON w.wishlist_id = wi.wishlist_id
		 WHERE w.customer_id = $1
		 ORDER BY wi.added_at DESC`,
		customerID,
	)
}

func (s *PostgresStore) ListAddresses(ctx context.Context, customerID int64) ([]customer.Address, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT address_id, customer_id, street_no, city, state, zip_code
		 FROM addresses WHERE customer_id = $1 ORDER BY address_id`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addresses := []customer.Address{}
	for rows.Next() {
		var a customer.Address
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.StreetNo, &a.City, &a.State, &a.ZipCode); err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func (s *PostgresStore) queryOrders(ctx context.Context, withItems bool, query string, args ...any) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	orders := []order.Order{}
	for rows.Next() {
		var o order.Order
		var status string
		var addrID, addrCustomerID sql.NullInt64
		var street, city, state, zip sql.NullString
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &o.AddressID, &o.OrderDate,
			&o.Total, &status, &o.TrackingNumber,
			&addrID, &addrCustomerID, &street, &city, &state, &zip); err != nil {
			rows.Close()
			return nil, err
		}
		o.Status = order.Status(status)
		if addrID.Valid {
			o.Address = &customer.Address{
				ID:         addrID.Int64,
				CustomerID: addrCustomerID.Int64,
				StreetNo:   street.String,
				City:       city.String,
				State:      state.String,
				ZipCode:    zip.String,
			}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if withItems {
		for i := range orders {
			items, err := queryOrderItems(ctx, s.db, orders[i].ID)
			if err != nil {
				return nil, err
			}
			orders[i].Items = items
		}
	}
	return orders, nil
}

func (s *PostgresStore) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]order.Order, error) {
	return s.queryOrders(ctx, true, orderSelect+` WHERE o.customer_id = $1 ORDER BY o.order_date DESC, o.order_id DESC`, customerID)
}

func (s *PostgresStore) FindOrderByTracking(ctx context.Context, trackingNumber string) (*order.Order, error) {
	orders, err := s.queryOrders(ctx, true, orderSelect+` WHERE o.tracking_number = $1`, trackingNumber)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, order.ErrOrderNotFound
	}
	return &orders[0], nil
}

func (s *PostgresStore) ListAllOrders(ctx context.Context) ([]order.Order, error) {
	return s.queryOrders(ctx, false, orderSelect+` ORDER BY o.order_date DESC, o.order_id DESC`)
}

const customerSelect = `SELECT customer_id, name, email, password, COALESCE(phone, ''), role, loyalty_points, created_at FROM customers`

func scanCustomer(row rowScanner) (*customer.Customer, error) {
	var c customer.Customer
	var role string
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.Phone, &role, &c.LoyaltyPoints, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customer.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Role = customer.Role(role)
	return &c, nil
}

func (s *PostgresStore) FindCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	return scanCustomer(s.db.QueryRowContext(ctx, customerSelect+` WHERE customer_id = $1`, customerID))
}

func (s *PostgresStore) FindCustomerByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return scanCustomer(s.db.QueryRowContext(ctx, customerSelect+` WHERE email = $1`, email))
}

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]customer.Customer, error) {
	rows, err := s.db.QueryContext(ctx, customerSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []customer.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}
