package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbay/storefront-api/internal/dto"
	"github.com/marketbay/storefront-api/internal/model"
	"github.com/marketbay/storefront-api/internal/repository"
)

type mockReviewRepo struct {
	products *mockProductRepo
	reviews  map[int64]*model.Review
	nextID   int64
}

func newMockReviewRepo(products *mockProductRepo) *mockReviewRepo {
	return &mockReviewRepo{products: products, reviews: make(map[int64]*model.Review)}
}

// Create inserts the review and recomputes the product's aggregates,
// matching the transactional contract of the real repository.
func (m *mockReviewRepo) Create(_ context.Context, review *model.Review) error {
	if review.ProductID == nil {
		return pgx.ErrNoRows
	}
	product := m.products.products[*review.ProductID]
	if product == nil {
		return pgx.ErrNoRows
	}
	for _, rv := range m.reviews {
		if rv.ProductID != nil && *rv.ProductID == *review.ProductID &&
			rv.UserID != nil && review.UserID != nil && *rv.UserID == *review.UserID {
			return repository.ErrDuplicateReview
		}
	}

	m.nextID++
	review.ID = m.nextID
	review.CreatedAt = time.Now()
	stored := *review
	m.reviews[review.ID] = &stored

	var sum, count int64
	for _, rv := range m.reviews {
		if rv.ProductID != nil && *rv.ProductID == product.ID {
			sum += int64(rv.Rating)
			count++
		}
	}
	product.NumReviews = int(count)
	product.Rating = decimal.NewNullDecimal(decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)))
	return nil
}

func (m *mockReviewRepo) ListByProduct(_ context.Context, productID int64) ([]model.Review, error) {
	var out []model.Review
	for i := int64(1); i <= m.nextID; i++ {
		rv, ok := m.reviews[i]
		if ok && rv.ProductID != nil && *rv.ProductID == productID {
			out = append(out, *rv)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) ExistsByProductAndUser(_ context.Context, productID, userID int64) (bool, error) {
	for _, rv := range m.reviews {
		if rv.ProductID != nil && *rv.ProductID == productID && rv.UserID != nil && *rv.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func TestReviewService_SubmitReview(t *testing.T) {
	products := newMockProductRepo()
	reviews := newMockReviewRepo(products)
	svc := NewReviewService(reviews, products, nil)

	p := products.add(&model.Product{Name: "Widget", Price: decimal.NewFromFloat(10.00)})

	err := svc.SubmitReview(context.Background(), testCustomer(1), p.ID, dto.SubmitReviewRequest{Rating: 4, Comment: "good"})
	require.NoError(t, err)

	assert.Equal(t, 1, p.NumReviews)
	require.True(t, p.Rating.Valid)
	assert.True(t, p.Rating.Decimal.Equal(decimal.NewFromInt(4)))

	other := testCustomer(2)
	err = svc.SubmitReview(context.Background(), other, p.ID, dto.SubmitReviewRequest{Rating: 5, Comment: "great"})
	require.NoError(t, err)

	assert.Equal(t, 2, p.NumReviews)
	assert.True(t, p.Rating.Decimal.Equal(decimal.NewFromFloat(4.5)))
}

func TestReviewService_SubmitReview_Duplicate(t *testing.T) {
	products := newMockProductRepo()
	reviews := newMockReviewRepo(products)
	svc := NewReviewService(reviews, products, nil)

	p := products.add(&model.Product{Name: "Widget", Price: decimal.NewFromFloat(10.00)})
	user := testCustomer(1)

	require.NoError(t, svc.SubmitReview(context.Background(), user, p.ID, dto.SubmitReviewRequest{Rating: 4}))

	err := svc.SubmitReview(context.Background(), user, p.ID, dto.SubmitReviewRequest{Rating: 1, Comment: "changed my mind"})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	// aggregates are untouched by the rejected attempt
	assert.Equal(t, 1, p.NumReviews)
	assert.True(t, p.Rating.Decimal.Equal(decimal.NewFromInt(4)))
	assert.Len(t, reviews.reviews, 1)
}

// racingReviewRepo simulates a concurrent submission that lands
// between the existence pre-check and the insert: the pre-check sees
// nothing, the insert hits the duplicate guard.
type racingReviewRepo struct{ *mockReviewRepo }

func (m *racingReviewRepo) ExistsByProductAndUser(context.Context, int64, int64) (bool, error) {
	return false, nil
}

func TestReviewService_SubmitReview_DuplicateRace(t *testing.T) {
	products := newMockProductRepo()
	reviews := newMockReviewRepo(products)
	svc := NewReviewService(&racingReviewRepo{reviews}, products, nil)

	p := products.add(&model.Product{Name: "Widget", Price: decimal.NewFromFloat(10.00)})
	user := testCustomer(1)

	require.NoError(t, svc.SubmitReview(context.Background(), user, p.ID, dto.SubmitReviewRequest{Rating: 4}))

	err := svc.SubmitReview(context.Background(), user, p.ID, dto.SubmitReviewRequest{Rating: 1})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.Len(t, reviews.reviews, 1)
}

func TestReviewService_SubmitReview_RatingRequired(t *testing.T) {
	products := newMockProductRepo()
	reviews := newMockReviewRepo(products)
	svc := NewReviewService(reviews, products, nil)

	p := products.add(&model.Product{Name: "Widget", Price: decimal.NewFromFloat(10.00)})

	err := svc.SubmitReview(context.Background(), testCustomer(1), p.ID, dto.SubmitReviewRequest{Comment: "no stars given"})
	assert.ErrorIs(t, err, ErrRatingRequired)
	assert.Empty(t, reviews.reviews)
	assert.Equal(t, 0, p.NumReviews)
}

func TestReviewService_SubmitReview_UnknownProduct(t *testing.T) {
	products := newMockProductRepo()
	svc := NewReviewService(newMockReviewRepo(products), products, nil)

	err := svc.SubmitReview(context.Background(), testCustomer(1), 42, dto.SubmitReviewRequest{Rating: 4})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestReviewService_SubmitReview_NameSnapshot(t *testing.T) {
	products := newMockProductRepo()
	reviews := newMockReviewRepo(products)
	svc := NewReviewService(reviews, products, nil)

	p := products.add(&model.Product{Name: "Widget", Price: decimal.NewFromFloat(10.00)})

	named := &model.User{ID: 1, Username: "jane@example.com", Email: "jane@example.com", Name: "Jane"}
	require.NoError(t, svc.SubmitReview(context.Background(), named, p.ID, dto.SubmitReviewRequest{Rating: 5}))

	// a blank display name falls back to the email
	unnamed := &model.User{ID: 2, Username: "anon@example.com", Email: "anon@example.com"}
	require.NoError(t, svc.SubmitReview(context.Background(), unnamed, p.ID, dto.SubmitReviewRequest{Rating: 3}))

	stored, err := reviews.ListByProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Jane", stored[0].Name)
	assert.Equal(t, "anon@example.com", stored[1].Name)
}
