package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketbay/storefront-api/internal/model"
)

// ErrDuplicateReview is returned when the (product, author) pair
// already has a review.
var ErrDuplicateReview = errors.New("duplicate review")

type ReviewRepository interface {
	// Create inserts the review and recomputes the product's rating and
	// review count in the same transaction. Returns pgx.ErrNoRows when
	// the product is gone and ErrDuplicateReview when the author
	// already reviewed it.
	Create(ctx context.Context, review *model.Review) error
	ListByProduct(ctx context.Context, productID int64) ([]model.Review, error)
	ExistsByProductAndUser(ctx context.Context, productID, userID int64) (bool, error)
}

type pgReviewRepo struct{ pool *pgxpool.Pool }

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgReviewRepo{pool: pool}
}

func (r *pgReviewRepo) Create(ctx context.Context, review *model.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Locking the product row serializes concurrent submissions for the
	// same product, so both see each other's contribution to the mean.
	var productID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM products WHERE id = $1 FOR UPDATE`, review.ProductID,
	).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("lock product: %w", err)
	}

	// Re-check under the lock; the unique constraint is the backstop.
	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE product_id = $1 AND user_id = $2)`,
		review.ProductID, review.UserID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		return ErrDuplicateReview
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO reviews (product_id, user_id, name, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 RETURNING id, created_at`,
		review.ProductID, review.UserID, review.Name, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		// unique constraint backstop, in case a racing insert slipped
		// past the re-check
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE products p
		 SET num_reviews = a.cnt, rating = a.mean
		 FROM (SELECT COUNT(*) AS cnt, AVG(rating) AS mean
		       FROM reviews WHERE product_id = $1) a
		 WHERE p.id = $1`,
		review.ProductID,
	)
	if err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgReviewRepo) ListByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, user_id, name, rating, comment, created_at
		 FROM reviews WHERE product_id = $1 ORDER BY id`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(
			&rv.ID, &rv.ProductID, &rv.UserID, &rv.Name, &rv.Rating, &rv.Comment, &rv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *pgReviewRepo) ExistsByProductAndUser(ctx context.Context, productID, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE product_id = $1 AND user_id = $2)`,
		productID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check review exists: %w", err)
	}
	return exists, nil
}
