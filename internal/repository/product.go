package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/marketbay/storefront-api/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	List(ctx context.Context, keyword string, limit, offset int) ([]model.Product, int, error)
	Top(ctx context.Context, minRating decimal.Decimal, limit int) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int64) error
}

const productColumns = `id, user_id, name, image, brand, category, description,
	rating, num_reviews, price, count_in_stock, created_at`

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	query := `INSERT INTO products (user_id, name, image, brand, category, description,
				num_reviews, price, count_in_stock, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, NOW())
			  RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		product.UserID, product.Name, product.Image, product.Brand,
		product.Category, product.Description, product.Price, product.CountInStock,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p := &model.Product{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Image, &p.Brand, &p.Category, &p.Description,
		&p.Rating, &p.NumReviews, &p.Price, &p.CountInStock, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) List(ctx context.Context, keyword string, limit, offset int) ([]model.Product, int, error) {
	var total int
	countQ := `SELECT COUNT(*) FROM products WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')`
	if err := r.pool.QueryRow(ctx, countQ, keyword).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + productColumns + `
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY id LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, keyword, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *pgProductRepo) Top(ctx context.Context, minRating decimal.Decimal, limit int) ([]model.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products WHERE rating >= $1 ORDER BY rating DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, minRating, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products
			  SET name=$2, price=$3, brand=$4, category=$5, count_in_stock=$6, description=$7
			  WHERE id=$1`
	_, err := r.pool.Exec(ctx, query,
		product.ID, product.Name, product.Price, product.Brand,
		product.Category, product.CountInStock, product.Description,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// Delete nulls the product reference on dependent reviews and order
// items before removing the row, all in one transaction. Order history
// keeps its snapshots; only the back-reference goes away.
func (r *pgProductRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE reviews SET product_id = NULL WHERE product_id = $1`, id); err != nil {
		return fmt.Errorf("detach reviews: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE order_items SET product_id = NULL WHERE product_id = $1`, id); err != nil {
		return fmt.Errorf("detach order items: %w", err)
	}

	ct, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func scanProducts(rows pgx.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.Image, &p.Brand, &p.Category, &p.Description,
			&p.Rating, &p.NumReviews, &p.Price, &p.CountInStock, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
