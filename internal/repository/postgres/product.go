package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const productColumns = "id, name, price, quantity, rating, category_id"

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) List(ctx context.Context, f entity.ProductFilter) ([]entity.Product, error) {
	query, args := buildListQuery(f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return scanProducts(rows)
}

// buildListQuery applies category and search filters before the mode's
// ordering and limit.
func buildListQuery(f entity.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.CategoryID != 0 {
		args = append(args, f.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if f.Mode == entity.SortRating {
		args = append(args, entity.MinTopRating)
		conds = append(conds, fmt.Sprintf("rating >= $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + productColumns + " FROM products")
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	switch f.Mode {
	case entity.SortExpensive:
		fmt.Fprintf(&b, " ORDER BY price DESC, id LIMIT %d", entity.ModeLimit)
	case entity.SortCheap:
		fmt.Fprintf(&b, " ORDER BY price ASC, id LIMIT %d", entity.ModeLimit)
	case entity.SortRating:
		b.WriteString(" ORDER BY rating DESC, id")
	default:
		b.WriteString(" ORDER BY id")
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *productRepository) FindByID(ctx context.Context, id int64) (*entity.Product, error) {
	var p entity.Product
	err := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.Rating, &p.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product %d: %w", id, translateError(err))
	}
	return &p, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []int64) ([]entity.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1) ORDER BY id", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return scanProducts(rows)
}

func (r *productRepository) FindRelated(ctx context.Context, p entity.Product) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE category_id = $1 AND id <> $2 ORDER BY id",
		p.CategoryID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query related products: %w", err)
	}
	return scanProducts(rows)
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO products (name, price, quantity, rating, category_id) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		p.Name, p.Price, p.Quantity, p.Rating, p.CategoryID,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", translateError(err))
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, p *entity.Product) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET name = $1, price = $2, quantity = $3, rating = $4, category_id = $5 WHERE id = $6",
		p.Name, p.Price, p.Quantity, p.Rating, p.CategoryID, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", p.ID, translateError(err))
	}
	return expectOneRow(res, "product", p.ID)
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return expectOneRow(res, "product", id)
}

// Seed inserts categories and products when the catalog is empty. Product
// CategoryID values are 1-based positions in categories.
func (r *productRepository) Seed(ctx context.Context, categories []entity.Category, products []entity.Product) error {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // already seeded
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, len(categories))
	for i, c := range categories {
		err := tx.QueryRowContext(ctx,
			"INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id",
			c.Name,
		).Scan(&ids[i])
		if err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}

	for _, p := range products {
		pos := int(p.CategoryID) - 1
		if pos < 0 || pos >= len(ids) {
			return fmt.Errorf("product %s references unknown category position %d", p.Name, p.CategoryID)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO products (name, price, quantity, rating, category_id) VALUES ($1, $2, $3, $4, $5)",
			p.Name, p.Price, p.Quantity, p.Rating, ids[pos],
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.Name, err)
		}
	}

	return tx.Commit()
}

func scanProducts(rows *sql.Rows) ([]entity.Product, error) {
	defer rows.Close()

	products := []entity.Product{}
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.Rating, &p.CategoryID); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

func expectOneRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, entity.ErrNotFound)
	}
	return nil
}
