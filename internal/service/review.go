package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/marketbay/storefront-api/internal/dto"
	"github.com/marketbay/storefront-api/internal/metrics"
	"github.com/marketbay/storefront-api/internal/model"
	"github.com/marketbay/storefront-api/internal/repository"
)

var (
	ErrAlreadyReviewed = errors.New("product already reviewed by this user")
	ErrRatingRequired  = errors.New("rating required")
)

type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	redisClient *redis.Client
}

func NewReviewService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository, redisClient *redis.Client) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, productRepo: productRepo, redisClient: redisClient}
}

// SubmitReview records one review per (product, author) and folds it
// into the product's rating and review count. A zero rating is
// rejected; 1 through 5 are accepted with no upper-bound check, which
// is the boundary the storefront client has always relied on.
func (s *ReviewService) SubmitReview(ctx context.Context, user *model.User, productID int64, req dto.SubmitReviewRequest) error {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}

	exists, err := s.reviewRepo.ExistsByProductAndUser(ctx, productID, user.ID)
	if err != nil {
		return fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		metrics.ReviewsRejectedTotal.WithLabelValues("duplicate").Inc()
		return ErrAlreadyReviewed
	}

	if req.Rating == 0 {
		metrics.ReviewsRejectedTotal.WithLabelValues("no_rating").Inc()
		return ErrRatingRequired
	}

	review := &model.Review{
		ProductID: &productID,
		UserID:    &user.ID,
		Name:      user.DisplayName(),
		Rating:    req.Rating,
		Comment:   req.Comment,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateReview):
			metrics.ReviewsRejectedTotal.WithLabelValues("duplicate").Inc()
			return ErrAlreadyReviewed
		case errors.Is(err, pgx.ErrNoRows):
			return ErrProductNotFound
		default:
			return fmt.Errorf("create review: %w", err)
		}
	}

	metrics.ReviewsSubmittedTotal.Inc()
	invalidateProducts(ctx, s.redisClient, productID)
	return nil
}
