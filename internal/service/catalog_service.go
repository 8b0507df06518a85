package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const (
	DefaultPageSize       = 5
	DefaultBestsellers    = 5
	maxProductNameLength  = 200
	maxCategoryNameLength = 100
	maxCommentTextLength  = 2000
	maxRating             = 5.0
	priceDecimalPlaces    = 2
)

// CatalogService serves the product catalog: listing, detail, management,
// comments and the bestseller ranking.
type CatalogService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	comments   repository.CommentRepository
	ranking    repository.RankingStore
	pageSize   int
}

func NewCatalogService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	comments repository.CommentRepository,
	ranking repository.RankingStore,
	pageSize int,
) *CatalogService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &CatalogService{
		categories: categories,
		products:   products,
		comments:   comments,
		ranking:    ranking,
		pageSize:   pageSize,
	}
}

func (s *CatalogService) Categories(ctx context.Context) ([]entity.Category, error) {
	return s.categories.FindAll(ctx)
}

// CreateCategory adds a category. Names are unique.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*entity.Category, error) {
	name = strings.TrimSpace(name)
	verr := entity.NewValidationError()
	switch {
	case name == "":
		verr.Add("name", "is required")
	case utf8.RuneCountInString(name) > maxCategoryNameLength:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", maxCategoryNameLength))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	c := entity.Category{Name: name}
	if err := s.categories.Create(ctx, &c); err != nil {
		return nil, err
	}
	slog.Info("Category created", "category_id", c.ID, "name", c.Name)
	return &c, nil
}

// ListProducts returns one page of the filtered listing. A category filter
// naming an unknown category fails with entity.ErrNotFound.
func (s *CatalogService) ListProducts(ctx context.Context, f entity.ProductFilter, page int) (entity.Page[entity.Product], error) {
	if f.CategoryID != 0 {
		if _, err := s.categories.FindByID(ctx, f.CategoryID); err != nil {
			return entity.Page[entity.Product]{}, err
		}
	}
	products, err := s.products.List(ctx, f)
	if err != nil {
		return entity.Page[entity.Product]{}, fmt.Errorf("failed to list products: %w", err)
	}
	return entity.Paginate(products, page, s.pageSize), nil
}

func (s *CatalogService) ProductDetail(ctx context.Context, id int64) (*entity.ProductDetail, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &entity.ProductDetail{Product: *p}
	if c, err := s.categories.FindByID(ctx, p.CategoryID); err == nil {
		detail.Category = c
	} else if !errors.Is(err, entity.ErrNotFound) {
		return nil, err
	}

	if detail.Comments, err = s.comments.FindVisible(ctx, id); err != nil {
		return nil, err
	}
	if detail.Related, err = s.products.FindRelated(ctx, *p); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, p entity.Product) (*entity.Product, error) {
	if err := s.validateProduct(ctx, &p); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, &p); err != nil {
		return nil, err
	}
	slog.Info("Product created", "product_id", p.ID, "name", p.Name)
	return &p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, p entity.Product) (*entity.Product, error) {
	if _, err := s.products.FindByID(ctx, id); err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.validateProduct(ctx, &p); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, &p); err != nil {
		return nil, err
	}
	slog.Info("Product updated", "product_id", p.ID)
	return &p, nil
}

// DeleteProduct removes the product and, with it, its orders and comments.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("Product deleted", "product_id", id)
	return nil
}

func (s *CatalogService) validateProduct(ctx context.Context, p *entity.Product) error {
	verr := entity.NewValidationError()

	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		verr.Add("name", "is required")
	case utf8.RuneCountInString(p.Name) > maxProductNameLength:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", maxProductNameLength))
	}
	if p.Price.IsNegative() {
		verr.Add("price", "must not be negative")
	} else if !p.Price.Equal(p.Price.Truncate(priceDecimalPlaces)) {
		verr.Add("price", "must have at most 2 decimal places")
	}
	if p.Quantity < 0 {
		verr.Add("quantity", "must not be negative")
	}
	if p.Rating < 0 || p.Rating > maxRating {
		verr.Add("rating", "must be between 0 and 5")
	}
	if p.CategoryID <= 0 {
		verr.Add("category_id", "is required")
	} else if _, err := s.categories.FindByID(ctx, p.CategoryID); err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			return err
		}
		verr.Add("category_id", "does not exist")
	}
	return verr.OrNil()
}

// AddComment stores a comment on an existing product.
func (s *CatalogService) AddComment(ctx context.Context, productID int64, text string) (*entity.Comment, error) {
	text = strings.TrimSpace(text)
	verr := entity.NewValidationError()
	switch {
	case text == "":
		verr.Add("text", "is required")
	case utf8.RuneCountInString(text) > maxCommentTextLength:
		verr.Add("text", fmt.Sprintf("must be at most %d characters", maxCommentTextLength))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}

	c := entity.Comment{ProductID: productID, Text: text}
	if err := s.comments.Create(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FlagComment hides a comment from product pages.
func (s *CatalogService) FlagComment(ctx context.Context, id int64) error {
	if err := s.comments.FlagNegative(ctx, id); err != nil {
		return err
	}
	slog.Info("Comment flagged negative", "comment_id", id)
	return nil
}

// Bestsellers returns the top selling products, most units sold first.
// Products deleted since they were ranked are skipped.
func (s *CatalogService) Bestsellers(ctx context.Context, limit int) ([]entity.RankedProduct, error) {
	if limit <= 0 {
		limit = DefaultBestsellers
	}
	ranks, err := s.ranking.Top(ctx, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(ranks))
	for i, r := range ranks {
		ids[i] = r.ProductID
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]entity.RankedProduct, 0, len(ranks))
	for _, r := range ranks {
		if p, ok := byID[r.ProductID]; ok {
			out = append(out, entity.RankedProduct{Product: p, Sold: r.Sold})
		}
	}
	return out, nil
}
