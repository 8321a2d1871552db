package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/lumina/internal/model"
)

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

const productColumns = `id, COALESCE(category_id::text, ''), name, slug, description, price, original_price, stock, featured, trending, images, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	p := &model.Product{}
	var originalPrice sql.NullInt64
	err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description,
		&p.Price, &originalPrice, &p.Stock, &p.Featured, &p.Trending,
		pq.Array(&p.Images), &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if originalPrice.Valid {
		p.OriginalPrice = &originalPrice.Int64
	}
	return p, nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return p, nil
}

// FindBySlug はスラッグで商品を検索する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}
	return p, nil
}

// List はフィルタ条件に合致する商品一覧を返す。
// ソート指定がない場合は注目商品優先で返す。
func (r *PostgresProductRepo) List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any

	if filter.CategoryID != "" {
		query += ` WHERE category_id = $1`
		args = append(args, filter.CategoryID)
	}

	switch filter.Sort {
	case model.ProductSortPriceAsc:
		query += ` ORDER BY price ASC`
	case model.ProductSortPriceDesc:
		query += ` ORDER BY price DESC`
	default:
		query += ` ORDER BY featured DESC, created_at DESC`
	}

	return r.queryProducts(ctx, query, args...)
}

// ListFeatured は注目フラグ付き商品を返す。
func (r *PostgresProductRepo) ListFeatured(ctx context.Context) ([]*model.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE featured ORDER BY created_at DESC`)
}

// ListTrending はトレンドフラグ付き商品を返す。
func (r *PostgresProductRepo) ListTrending(ctx context.Context) ([]*model.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE trending ORDER BY created_at DESC`)
}

// Create は商品を作成する（管理者用）。
func (r *PostgresProductRepo) Create(ctx context.Context, product *model.Product) error {
	var categoryID any
	if product.CategoryID != "" {
		categoryID = product.CategoryID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, category_id, name, slug, description, price, original_price, stock, featured, trending, images, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		product.ID, categoryID, product.Name, product.Slug, product.Description,
		product.Price, product.OriginalPrice, product.Stock,
		product.Featured, product.Trending, pq.Array(product.Images),
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update は商品情報を更新する（管理者用）。
func (r *PostgresProductRepo) Update(ctx context.Context, product *model.Product) error {
	var categoryID any
	if product.CategoryID != "" {
		categoryID = product.CategoryID
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET category_id = $2, name = $3, description = $4, price = $5,
		     original_price = $6, stock = $7, featured = $8, trending = $9,
		     images = $10, updated_at = now()
		 WHERE id = $1`,
		product.ID, categoryID, product.Name, product.Description,
		product.Price, product.OriginalPrice, product.Stock,
		product.Featured, product.Trending, pq.Array(product.Images),
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepo) queryProducts(ctx context.Context, query string, args ...any) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
