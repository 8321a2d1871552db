package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/lumina/internal/model"
)

// PostgresCartRepo はPostgreSQLを使用したカートリポジトリ。
type PostgresCartRepo struct {
	db *sql.DB
}

// NewPostgresCartRepo はPostgresCartRepoを生成する。
func NewPostgresCartRepo(db *sql.DB) *PostgresCartRepo {
	return &PostgresCartRepo{db: db}
}

// ListByUserID はユーザーのカート行一覧を商品情報とJOINして返す。
// 商品が解決できない行はProductをnilのまま含める。
func (r *PostgresCartRepo) ListByUserID(ctx context.Context, userID string) ([]model.CartLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		        p.id, COALESCE(p.category_id::text, ''), p.name, p.slug, p.description,
		        p.price, p.original_price, p.stock, p.featured, p.trending, p.images,
		        p.created_at, p.updated_at
		 FROM cart_items c
		 LEFT JOIN products p ON p.id = c.product_id
		 WHERE c.user_id = $1
		 ORDER BY c.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var line model.CartLine
		var (
			pID, pCategoryID, pName, pSlug, pDescription sql.NullString
			pPrice, pOriginalPrice                       sql.NullInt64
			pStock                                       sql.NullInt64
			pFeatured, pTrending                         sql.NullBool
			pImages                                      []string
			pCreatedAt, pUpdatedAt                       sql.NullTime
		)
		err := rows.Scan(
			&line.ID, &line.UserID, &line.ProductID, &line.Quantity,
			&line.CreatedAt, &line.UpdatedAt,
			&pID, &pCategoryID, &pName, &pSlug, &pDescription,
			&pPrice, &pOriginalPrice, &pStock, &pFeatured, &pTrending,
			pq.Array(&pImages), &pCreatedAt, &pUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}

		if pID.Valid {
			product := &model.Product{
				ID:          pID.String,
				CategoryID:  pCategoryID.String,
				Name:        pName.String,
				Slug:        pSlug.String,
				Description: pDescription.String,
				Price:       pPrice.Int64,
				Stock:       int(pStock.Int64),
				Featured:    pFeatured.Bool,
				Trending:    pTrending.Bool,
				Images:      pImages,
				CreatedAt:   pCreatedAt.Time,
				UpdatedAt:   pUpdatedAt.Time,
			}
			if pOriginalPrice.Valid {
				product.OriginalPrice = &pOriginalPrice.Int64
			}
			line.Product = product
		}

		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart lines: %w", err)
	}

	return lines, nil
}

// FindByID は指定IDのカート行を取得する。見つからない場合はnilを返す。
func (r *PostgresCartRepo) FindByID(ctx context.Context, id string) (*model.CartItem, error) {
	item := &model.CartItem{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, product_id, quantity, created_at, updated_at
		 FROM cart_items WHERE id = $1`,
		id,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity,
		&item.CreatedAt, &item.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	return item, nil
}

// AddOne は (user, product) の行が存在すればquantityを+1し、
// 存在しなければquantity=1で挿入する。
// UNIQUE(user_id, product_id) に対するON CONFLICTで単一のアトミックな
// 書き込みとして実行するため、同一商品への同時追加でも重複行は生じない。
func (r *PostgresCartRepo) AddOne(ctx context.Context, userID, productID string) (*model.CartItem, error) {
	now := time.Now()
	item := &model.CartItem{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, 1, $4, $4)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + 1, updated_at = $4
		 RETURNING id, user_id, product_id, quantity, created_at, updated_at`,
		uuid.New().String(), userID, productID, now,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity,
		&item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return item, nil
}

// UpdateQuantity はカート行の数量を更新する。
func (r *PostgresCartRepo) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $2, updated_at = now() WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to update cart quantity: %w", err)
	}
	return nil
}

// Delete は指定IDのカート行を無条件に削除する。
func (r *PostgresCartRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

// DeleteByUserID はユーザーの全カート行を削除する。
func (r *PostgresCartRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// CountByUserID はユーザーのカート内商品点数（quantity合計）を返す。
func (r *PostgresCartRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ CartRepository = (*PostgresCartRepo)(nil)
