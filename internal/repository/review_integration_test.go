//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbay/storefront-api/internal/model"
)

func TestReviewRepository_CreateRecomputesAggregates(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewReviewRepository(pool)
	ctx := context.Background()

	product := seedProduct(t, pool, 5)
	first := seedUser(t, pool)
	second := seedUser(t, pool)

	require.NoError(t, repo.Create(ctx, &model.Review{
		ProductID: &product.ID, UserID: &first.ID, Name: first.Name, Rating: 4, Comment: "good",
	}))

	got, err := NewProductRepository(pool).GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumReviews)
	require.True(t, got.Rating.Valid)
	assert.True(t, got.Rating.Decimal.Equal(decimal.NewFromInt(4)))

	require.NoError(t, repo.Create(ctx, &model.Review{
		ProductID: &product.ID, UserID: &second.ID, Name: second.Name, Rating: 5, Comment: "great",
	}))

	got, err = NewProductRepository(pool).GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumReviews)
	assert.True(t, got.Rating.Decimal.Equal(decimal.NewFromFloat(4.5)))
}

// Two reviews for the same product land concurrently; the product row
// lock serializes the recomputes so neither aggregate update is lost.
func TestReviewRepository_ConcurrentCreates(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewReviewRepository(pool)
	ctx := context.Background()

	product := seedProduct(t, pool, 5)
	users := []*model.User{seedUser(t, pool), seedUser(t, pool)}
	ratings := []int{4, 5}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &model.Review{
				ProductID: &product.ID, UserID: &users[i].ID,
				Name: users[i].Name, Rating: ratings[i],
			})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, err := NewProductRepository(pool).GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumReviews)
	require.True(t, got.Rating.Valid)
	assert.True(t, got.Rating.Decimal.Equal(decimal.NewFromFloat(4.5)))
}

func TestReviewRepository_DuplicateRejected(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewReviewRepository(pool)
	ctx := context.Background()

	product := seedProduct(t, pool, 5)
	user := seedUser(t, pool)

	require.NoError(t, repo.Create(ctx, &model.Review{
		ProductID: &product.ID, UserID: &user.ID, Name: user.Name, Rating: 4,
	}))

	err := repo.Create(ctx, &model.Review{
		ProductID: &product.ID, UserID: &user.ID, Name: user.Name, Rating: 1,
	})
	require.ErrorIs(t, err, ErrDuplicateReview)

	// the rejected attempt left the aggregates alone
	got, gerr := NewProductRepository(pool).GetByID(ctx, product.ID)
	require.NoError(t, gerr)
	assert.Equal(t, 1, got.NumReviews)
	assert.True(t, got.Rating.Decimal.Equal(decimal.NewFromInt(4)))

	reviews, err := repo.ListByProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestReviewRepository_ExistsByProductAndUser(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewReviewRepository(pool)
	ctx := context.Background()

	product := seedProduct(t, pool, 5)
	user := seedUser(t, pool)

	exists, err := repo.ExistsByProductAndUser(ctx, product.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Create(ctx, &model.Review{
		ProductID: &product.ID, UserID: &user.ID, Name: user.Name, Rating: 3,
	}))

	exists, err = repo.ExistsByProductAndUser(ctx, product.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}
