package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

func newCatalog(t *testing.T) (*CatalogService, *memory.Store, *memory.RankingStore) {
	t.Helper()
	s := memory.New()
	price := decimal.RequireFromString
	err := s.Products().Seed(context.Background(),
		[]entity.Category{{Name: "Office"}, {Name: "Lighting"}},
		[]entity.Product{
			{Name: "Monitor", Price: price("699.99"), Quantity: 4, Rating: 4.9, CategoryID: 1},
			{Name: "Chair", Price: price("549.99"), Quantity: 2, Rating: 3.5, CategoryID: 1},
			{Name: "Headphones", Price: price("349.99"), Quantity: 9, Rating: 4.2, CategoryID: 1},
			{Name: "Keyboard", Price: price("179.99"), Quantity: 7, Rating: 4.0, CategoryID: 1},
			{Name: "Backpack", Price: price("129.99"), Quantity: 3, Rating: 2.0, CategoryID: 1},
			{Name: "Desk Lamp", Price: price("89.99"), Quantity: 10, Rating: 4.4, CategoryID: 2},
			{Name: "Floor Lamp", Price: price("149.00"), Quantity: 1, Rating: 3.9, CategoryID: 2},
		})
	require.NoError(t, err)
	ranking := memory.NewRankingStore()
	return NewCatalogService(s.Categories(), s.Products(), s.Comments(), ranking, 0), s, ranking
}

func names(ps []entity.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestListProducts_Pagination(t *testing.T) {
	svc, _, _ := newCatalog(t)
	ctx := context.Background()

	first, err := svc.ListProducts(ctx, entity.ProductFilter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Monitor", "Chair", "Headphones", "Keyboard", "Backpack"}, names(first.Items))
	assert.Equal(t, 7, first.Total)
	assert.True(t, first.HasNext)

	second, err := svc.ListProducts(ctx, entity.ProductFilter{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Desk Lamp", "Floor Lamp"}, names(second.Items))
	assert.False(t, second.HasNext)

	beyond, err := svc.ListProducts(ctx, entity.ProductFilter{}, 9)
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
}

func TestListProducts_FiltersBeforeMode(t *testing.T) {
	svc, _, _ := newCatalog(t)
	ctx := context.Background()

	page, err := svc.ListProducts(ctx, entity.ProductFilter{Search: "lamp", Mode: entity.SortRating}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Desk Lamp"}, names(page.Items))

	page, err = svc.ListProducts(ctx, entity.ProductFilter{CategoryID: 2, Mode: entity.SortExpensive}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Floor Lamp", "Desk Lamp"}, names(page.Items))

	_, err = svc.ListProducts(ctx, entity.ProductFilter{CategoryID: 99}, 1)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestProductDetail(t *testing.T) {
	svc, _, _ := newCatalog(t)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, 6, "Bright and sturdy")
	require.NoError(t, err)
	hidden, err := svc.AddComment(ctx, 6, "Terrible")
	require.NoError(t, err)
	require.NoError(t, svc.FlagComment(ctx, hidden.ID))

	detail, err := svc.ProductDetail(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", detail.Product.Name)
	require.NotNil(t, detail.Category)
	assert.Equal(t, "Lighting", detail.Category.Name)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "Bright and sturdy", detail.Comments[0].Text)
	assert.Equal(t, []string{"Floor Lamp"}, names(detail.Related))

	_, err = svc.ProductDetail(ctx, 999)
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestAddComment_Validation(t *testing.T) {
	svc, _, _ := newCatalog(t)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, 999, "nice")
	require.ErrorIs(t, err, entity.ErrNotFound)

	var verr *entity.ValidationError
	_, err = svc.AddComment(ctx, 1, "   ")
	require.ErrorAs(t, err, &verr)
	_, err = svc.AddComment(ctx, 1, strings.Repeat("a", 2001))
	require.ErrorAs(t, err, &verr)

	require.ErrorIs(t, svc.FlagComment(ctx, 999), entity.ErrNotFound)
}

func TestCreateCategory(t *testing.T) {
	svc, _, _ := newCatalog(t)
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, "  Garden ")
	require.NoError(t, err)
	assert.Equal(t, "Garden", c.Name)
	assert.NotZero(t, c.ID)

	all, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.CreateCategory(ctx, "Garden")
	require.ErrorIs(t, err, entity.ErrAlreadyExists)

	var verr *entity.ValidationError
	_, err = svc.CreateCategory(ctx, " ")
	require.ErrorAs(t, err, &verr)
	_, err = svc.CreateCategory(ctx, strings.Repeat("x", 101))
	require.ErrorAs(t, err, &verr)
}

func TestCreateUpdateDeleteProduct(t *testing.T) {
	svc, store, _ := newCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, entity.Product{
		Name: "  Standing Desk ", Price: decimal.RequireFromString("499.50"), Quantity: 2, Rating: 4.5, CategoryID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Standing Desk", created.Name)
	assert.NotZero(t, created.ID)

	created.Quantity = 8
	updated, err := svc.UpdateProduct(ctx, created.ID, *created)
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Quantity)

	_, err = svc.UpdateProduct(ctx, 999, *created)
	require.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, svc.DeleteProduct(ctx, created.ID))
	_, err = store.Products().FindByID(ctx, created.ID)
	require.ErrorIs(t, err, entity.ErrNotFound)
	require.ErrorIs(t, svc.DeleteProduct(ctx, created.ID), entity.ErrNotFound)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc, _, _ := newCatalog(t)

	_, err := svc.CreateProduct(context.Background(), entity.Product{
		Name:       "",
		Price:      decimal.RequireFromString("1.999"),
		Quantity:   -1,
		Rating:     6,
		CategoryID: 42,
	})
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 5)
	assert.Equal(t, "does not exist", verr.Fields["category_id"])

	_, err = svc.CreateProduct(context.Background(), entity.Product{
		Name: "Pen", Price: decimal.RequireFromString("-1"), CategoryID: 1,
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "price")
}

func TestBestsellers(t *testing.T) {
	svc, _, ranking := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, ranking.Increment(ctx, "a", 3, 5))
	require.NoError(t, ranking.Increment(ctx, "b", 1, 2))
	require.NoError(t, ranking.Increment(ctx, "c", 6, 9))
	require.NoError(t, svc.DeleteProduct(ctx, 6))

	top, err := svc.Bestsellers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Headphones", top[0].Product.Name)
	assert.Equal(t, int64(5), top[0].Sold)
	assert.Equal(t, "Monitor", top[1].Product.Name)
}
