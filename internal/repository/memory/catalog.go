package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type categoryRepository struct{ s *Store }

func (r categoryRepository) FindAll(_ context.Context) ([]entity.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r categoryRepository) FindByID(_ context.Context, id int64) (*entity.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, entity.ErrNotFound)
	}
	return &c, nil
}

func (r categoryRepository) Create(_ context.Context, c *entity.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.categories {
		if existing.Name == c.Name {
			return fmt.Errorf("category %q: %w", c.Name, entity.ErrAlreadyExists)
		}
	}
	r.s.lastCategoryID++
	c.ID = r.s.lastCategoryID
	r.s.categories[c.ID] = *c
	return nil
}

type productRepository struct{ s *Store }

func (r productRepository) List(_ context.Context, f entity.ProductFilter) ([]entity.Product, error) {
	r.s.mu.RLock()
	all := r.s.sortedProducts()
	r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := []entity.Product{}
	for _, p := range all {
		if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if f.Mode == entity.SortRating && p.Rating < entity.MinTopRating {
			continue
		}
		out = append(out, p)
	}

	switch f.Mode {
	case entity.SortExpensive:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
		out = limit(out, entity.ModeLimit)
	case entity.SortCheap:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
		out = limit(out, entity.ModeLimit)
	case entity.SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	}
	return out, nil
}

func limit(ps []entity.Product, n int) []entity.Product {
	if len(ps) > n {
		return ps[:n]
	}
	return ps
}

func (r productRepository) FindByID(_ context.Context, id int64) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, entity.ErrNotFound)
	}
	return &p, nil
}

func (r productRepository) FindByIDs(_ context.Context, ids []int64) ([]entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []entity.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r productRepository) FindRelated(_ context.Context, p entity.Product) ([]entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []entity.Product{}
	for _, other := range r.s.sortedProducts() {
		if other.CategoryID == p.CategoryID && other.ID != p.ID {
			out = append(out, other)
		}
	}
	return out, nil
}

func (r productRepository) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[p.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", p.CategoryID, entity.ErrNotFound)
	}
	r.s.lastProductID++
	p.ID = r.s.lastProductID
	r.s.products[p.ID] = *p
	return nil
}

func (r productRepository) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return fmt.Errorf("product %d: %w", p.ID, entity.ErrNotFound)
	}
	if _, ok := r.s.categories[p.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", p.CategoryID, entity.ErrNotFound)
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r productRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return fmt.Errorf("product %d: %w", id, entity.ErrNotFound)
	}
	delete(r.s.products, id)

	kept := r.s.orders[:0]
	for _, o := range r.s.orders {
		if o.ProductID != id {
			kept = append(kept, o)
			continue
		}
		delete(r.s.orderIDs, o.ID)
	}
	r.s.orders = kept
	for cid, c := range r.s.comments {
		if c.ProductID == id {
			delete(r.s.comments, cid)
		}
	}
	return nil
}

// Seed mirrors the Postgres seeding: product CategoryID values are 1-based
// positions in categories.
func (r productRepository) Seed(_ context.Context, categories []entity.Category, products []entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if len(r.s.products) > 0 {
		return nil
	}
	ids := make([]int64, len(categories))
	for i, c := range categories {
		r.s.lastCategoryID++
		c.ID = r.s.lastCategoryID
		r.s.categories[c.ID] = c
		ids[i] = c.ID
	}
	for _, p := range products {
		pos := int(p.CategoryID) - 1
		if pos < 0 || pos >= len(ids) {
			return fmt.Errorf("product %s references unknown category position %d", p.Name, p.CategoryID)
		}
		r.s.lastProductID++
		p.ID = r.s.lastProductID
		p.CategoryID = ids[pos]
		r.s.products[p.ID] = p
	}
	return nil
}

type commentRepository struct{ s *Store }

func (r commentRepository) Create(_ context.Context, c *entity.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[c.ProductID]; !ok {
		return fmt.Errorf("product %d: %w", c.ProductID, entity.ErrNotFound)
	}
	r.s.lastCommentID++
	c.ID = r.s.lastCommentID
	c.CreatedAt = r.s.now()
	r.s.comments[c.ID] = *c
	return nil
}

func (r commentRepository) FindVisible(_ context.Context, productID int64) ([]entity.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []entity.Comment{}
	for _, c := range r.s.comments {
		if c.ProductID == productID && !c.IsNegative {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r commentRepository) FlagNegative(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok {
		return fmt.Errorf("comment %d: %w", id, entity.ErrNotFound)
	}
	c.IsNegative = true
	r.s.comments[id] = c
	return nil
}
