package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/marketbay/storefront-api/internal/dto"
	"github.com/marketbay/storefront-api/internal/model"
	"github.com/marketbay/storefront-api/internal/repository"
)

var ErrProductNotFound = errors.New("product not found")

const (
	productCacheTTL = 60 * time.Second
	productPageSize = 8
	topRatingFloor  = 4
	topProductLimit = 5
)

type CatalogService struct {
	productRepo repository.ProductRepository
	reviewRepo  repository.ReviewRepository
	redisClient *redis.Client
}

func NewCatalogService(productRepo repository.ProductRepository, reviewRepo repository.ReviewRepository, redisClient *redis.Client) *CatalogService {
	return &CatalogService{productRepo: productRepo, reviewRepo: reviewRepo, redisClient: redisClient}
}

// GetByID returns the product with its reviews embedded, read through
// the redis cache.
func (s *CatalogService) GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	cacheKey := productCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	reviews, err := s.reviewRepo.ListByProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	product.Reviews = reviews

	resp := toProductResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, productCacheTTL)
		}
	}

	return &resp, nil
}

// List pages the catalog 8 at a time, filtered by keyword. A page past
// the end clamps to the last page, matching the legacy pagination.
func (s *CatalogService) List(ctx context.Context, keyword string, page int) (*dto.ProductListResponse, error) {
	if page < 1 {
		page = 1
	}

	products, total, err := s.productRepo.List(ctx, keyword, productPageSize, (page-1)*productPageSize)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	pages := (total + productPageSize - 1) / productPageSize
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
		products, _, err = s.productRepo.List(ctx, keyword, productPageSize, (page-1)*productPageSize)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	return &dto.ProductListResponse{Products: items, Page: page, Pages: pages}, nil
}

func (s *CatalogService) Top(ctx context.Context) ([]dto.ProductResponse, error) {
	products, err := s.productRepo.Top(ctx, decimal.NewFromInt(topRatingFloor), topProductLimit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	return items, nil
}

// Create inserts a placeholder product owned by the acting admin; the
// admin client edits it in place afterwards.
func (s *CatalogService) Create(ctx context.Context, admin *model.User) (*dto.ProductResponse, error) {
	product := &model.Product{
		UserID:   &admin.ID,
		Name:     "Sample Name",
		Image:    "sample.png",
		Brand:    "Sample Brand",
		Category: "Sample Category",
		Price:    decimal.Zero,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *CatalogService) Update(ctx context.Context, id int64, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	product.Name = req.Name
	product.Price = req.Price
	product.Brand = req.Brand
	product.Category = req.Category
	product.CountInStock = req.CountInStock
	product.Description = req.Description

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	invalidateProducts(ctx, s.redisClient, id)
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	invalidateProducts(ctx, s.redisClient, id)
	return nil
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func invalidateProducts(ctx context.Context, client *redis.Client, ids ...int64) {
	if client == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productCacheKey(id)
	}
	client.Del(ctx, keys...)
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	reviews := make([]dto.ReviewResponse, 0, len(p.Reviews))
	for _, rv := range p.Reviews {
		reviews = append(reviews, dto.ReviewResponse{
			ID:        rv.ID,
			ProductID: rv.ProductID,
			UserID:    rv.UserID,
			Name:      rv.Name,
			Rating:    rv.Rating,
			Comment:   rv.Comment,
			CreatedAt: rv.CreatedAt,
		})
	}
	return dto.ProductResponse{
		ID:           p.ID,
		UserID:       p.UserID,
		Name:         p.Name,
		Image:        p.Image,
		Brand:        p.Brand,
		Category:     p.Category,
		Description:  p.Description,
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		Price:        p.Price,
		CountInStock: p.CountInStock,
		CreatedAt:    p.CreatedAt,
		Reviews:      reviews,
	}
}
