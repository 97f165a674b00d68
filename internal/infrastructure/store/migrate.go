package store

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		customer_id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(254) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		phone VARCHAR(32),
		dob DATE,
		loyalty_points INTEGER NOT NULL DEFAULT 0,
		role VARCHAR(16) NOT NULL DEFAULT 'user',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS categories (
		category_id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS products (
		product_id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		detailed_description TEXT NOT NULL DEFAULT '',
		mrp NUMERIC(12,2) NOT NULL CHECK (mrp > 0),
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		image_url TEXT NOT NULL DEFAULT '',
		seller_id BIGINT,
		category_id BIGINT REFERENCES categories(category_id) ON DELETE SET NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_id ON products(category_id)`,

	`CREATE TABLE IF NOT EXISTS carts (
		cart_id BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL UNIQUE REFERENCES customers(customer_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		cart_id BIGINT NOT NULL REFERENCES carts(cart_id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(product_id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (cart_id, product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS wishlists (
		wishlist_id BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL UNIQUE REFERENCES customers(customer_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS wishlist_items (
		wishlist_id BIGINT NOT NULL REFERENCES wishlists(wishlist_id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(product_id) ON DELETE CASCADE,
		added_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		PRIMARY KEY (wishlist_id, product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS addresses (
		address_id BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL REFERENCES customers(customer_id) ON DELETE CASCADE,
		street_no VARCHAR(255) NOT NULL,
		city VARCHAR(255) NOT NULL,
		state VARCHAR(255) NOT NULL,
		zip_code VARCHAR(32) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_addresses_customer_id ON addresses(customer_id)`,

	`CREATE TABLE IF NOT EXISTS orders (
		order_id BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL REFERENCES customers(customer_id),
		address_id BIGINT NOT NULL REFERENCES addresses(address_id),
		order_date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		total_amount NUMERIC(14,2) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'Order Placed',
		tracking_number VARCHAR(32) NOT NULL,
		CONSTRAINT orders_tracking_number_key UNIQUE (tracking_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_item_id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(order_id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price_per_item NUMERIC(12,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id)`,

	`CREATE TABLE IF NOT EXISTS reviews (
		review_id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(product_id) ON DELETE CASCADE,
		customer_id BIGINT NOT NULL REFERENCES customers(customer_id) ON DELETE CASCADE,
		rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_product_id ON reviews(product_id)`,

	`CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type VARCHAR(64) NOT NULL,
		aggregate_id VARCHAR(64) NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		sent_at TIMESTAMP WITH TIME ZONE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(created_at) WHERE sent_at IS NULL`,
}

// Migrate creates the schema if it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
