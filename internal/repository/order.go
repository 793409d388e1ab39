package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbay/storefront-api/internal/model"
)

var (
	// ErrUnknownProduct aborts an order placement that references a
	// product id with no row behind it.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrInsufficientStock aborts a placement that would drive stock
	// negative while backorders are disabled.
	ErrInsufficientStock = errors.New("insufficient stock")
)

type OrderRepository interface {
	// CreateWithItems writes the order, its shipping address and all
	// items, and decrements each referenced product's stock, as one
	// transaction. Item snapshots (name, price, image) are filled in
	// from the locked product rows. Any failure rolls the whole unit
	// back.
	CreateWithItems(ctx context.Context, order *model.Order, address *model.ShippingAddress, items []model.OrderItem) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetFull(ctx context.Context, id int64) (*model.Order, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	MarkPaid(ctx context.Context, id int64, at time.Time) error
	MarkDelivered(ctx context.Context, id int64, at time.Time) error
	ShippingAddressByOrder(ctx context.Context, orderID int64) (*model.ShippingAddress, error)
}

type pgOrderRepo struct {
	pool           *pgxpool.Pool
	allowBackorder bool
}

func NewOrderRepository(pool *pgxpool.Pool, allowBackorder bool) OrderRepository {
	return &pgOrderRepo{pool: pool, allowBackorder: allowBackorder}
}

func (r *pgOrderRepo) CreateWithItems(ctx context.Context, order *model.Order, address *model.ShippingAddress, items []model.OrderItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, payment_method, tax_price, shipping_price, total_price,
			is_paid, is_delivered, created_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, NOW())
		 RETURNING id, created_at`,
		order.UserID, order.PaymentMethod, order.TaxPrice, order.ShippingPrice, order.TotalPrice,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	address.OrderID = order.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO shipping_addresses (order_id, address, city, postal_code, country, shipping_price)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		address.OrderID, address.Address, address.City, address.PostalCode,
		address.Country, address.ShippingPrice,
	).Scan(&address.ID)
	if err != nil {
		return fmt.Errorf("insert shipping address: %w", err)
	}

	for i := range items {
		item := &items[i]
		if item.ProductID == nil {
			return ErrUnknownProduct
		}

		// FOR UPDATE serializes concurrent decrements on the same
		// product row; two racing placements never lose an update.
		err = tx.QueryRow(ctx,
			`SELECT name, price, image FROM products WHERE id = $1 FOR UPDATE`,
			*item.ProductID,
		).Scan(&item.Name, &item.Price, &item.Image)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUnknownProduct
			}
			return fmt.Errorf("lock product: %w", err)
		}

		item.OrderID = &order.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, product_id, name, qty, price, image)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			item.OrderID, item.ProductID, item.Name, item.Qty, item.Price, item.Image,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}

		if r.allowBackorder {
			_, err = tx.Exec(ctx,
				`UPDATE products SET count_in_stock = count_in_stock - $2 WHERE id = $1`,
				*item.ProductID, item.Qty,
			)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		} else {
			ct, err := tx.Exec(ctx,
				`UPDATE products SET count_in_stock = count_in_stock - $2
				 WHERE id = $1 AND count_in_stock >= $2`,
				*item.ProductID, item.Qty,
			)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if ct.RowsAffected() == 0 {
				return ErrInsufficientStock
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	order.Items = items
	order.ShippingAddress = address
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	order := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, payment_method, tax_price, shipping_price, total_price,
			is_paid, paid_at, is_delivered, delivered_at, created_at
		 FROM orders WHERE id = $1`, id,
	).Scan(
		&order.ID, &order.UserID, &order.PaymentMethod, &order.TaxPrice,
		&order.ShippingPrice, &order.TotalPrice, &order.IsPaid, &order.PaidAt,
		&order.IsDelivered, &order.DeliveredAt, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// GetFull loads the order with its items, shipping address and
// purchaser summary.
func (r *pgOrderRepo) GetFull(ctx context.Context, id int64) (*model.Order, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil || order == nil {
		return order, err
	}
	if err := r.attachRelations(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT id, user_id, payment_method, tax_price, shipping_price, total_price,
			is_paid, paid_at, is_delivered, delivered_at, created_at
		 FROM orders WHERE user_id = $1 ORDER BY id DESC`, userID)
}

func (r *pgOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT id, user_id, payment_method, tax_price, shipping_price, total_price,
			is_paid, paid_at, is_delivered, delivered_at, created_at
		 FROM orders ORDER BY id DESC`)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.PaymentMethod, &o.TaxPrice, &o.ShippingPrice,
			&o.TotalPrice, &o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := r.attachRelations(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *pgOrderRepo) attachRelations(ctx context.Context, order *model.Order) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, name, qty, price, image
		 FROM order_items WHERE order_id = $1 ORDER BY id`, order.ID,
	)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Name,
			&item.Qty, &item.Price, &item.Image,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	address, err := r.ShippingAddressByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	order.ShippingAddress = address

	if order.UserID != nil {
		user := &model.User{}
		err := r.pool.QueryRow(ctx,
			`SELECT id, username, email, name, is_admin FROM users WHERE id = $1`,
			*order.UserID,
		).Scan(&user.ID, &user.Username, &user.Email, &user.Name, &user.IsAdmin)
		if err == nil {
			order.User = user
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("get purchaser: %w", err)
		}
	}
	return nil
}

func (r *pgOrderRepo) ShippingAddressByOrder(ctx context.Context, orderID int64) (*model.ShippingAddress, error) {
	addr := &model.ShippingAddress{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, order_id, address, city, postal_code, country, shipping_price
		 FROM shipping_addresses WHERE order_id = $1`, orderID,
	).Scan(
		&addr.ID, &addr.OrderID, &addr.Address, &addr.City,
		&addr.PostalCode, &addr.Country, &addr.ShippingPrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipping address: %w", err)
	}
	return addr, nil
}

func (r *pgOrderRepo) MarkPaid(ctx context.Context, id int64, at time.Time) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET is_paid = TRUE, paid_at = $2 WHERE id = $1`, id, at,
	)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET is_delivered = TRUE, delivered_at = $2 WHERE id = $1`, id, at,
	)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
