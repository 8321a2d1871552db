package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/lumina/internal/model"
)

// PostgresWishlistRepo はPostgreSQLを使用したウィッシュリストリポジトリ。
type PostgresWishlistRepo struct {
	db *sql.DB
}

// NewPostgresWishlistRepo はPostgresWishlistRepoを生成する。
func NewPostgresWishlistRepo(db *sql.DB) *PostgresWishlistRepo {
	return &PostgresWishlistRepo{db: db}
}

// ListByUserID はユーザーのウィッシュリストを商品情報とJOINして返す。
func (r *PostgresWishlistRepo) ListByUserID(ctx context.Context, userID string) ([]model.WishlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.id, w.user_id, w.product_id, w.created_at,
		        p.id, COALESCE(p.category_id::text, ''), p.name, p.slug, p.description,
		        p.price, p.original_price, p.stock, p.featured, p.trending, p.images,
		        p.created_at, p.updated_at
		 FROM wishlist w
		 LEFT JOIN products p ON p.id = w.product_id
		 WHERE w.user_id = $1
		 ORDER BY w.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	defer rows.Close()

	var entries []model.WishlistEntry
	for rows.Next() {
		var entry model.WishlistEntry
		var (
			pID, pCategoryID, pName, pSlug, pDescription sql.NullString
			pPrice, pOriginalPrice                       sql.NullInt64
			pStock                                       sql.NullInt64
			pFeatured, pTrending                         sql.NullBool
			pImages                                      []string
			pCreatedAt, pUpdatedAt                       sql.NullTime
		)
		err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.ProductID, &entry.CreatedAt,
			&pID, &pCategoryID, &pName, &pSlug, &pDescription,
			&pPrice, &pOriginalPrice, &pStock, &pFeatured, &pTrending,
			pq.Array(&pImages), &pCreatedAt, &pUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wishlist entry: %w", err)
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
			entry.Product = product
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wishlist entries: %w", err)
	}

	return entries, nil
}

// Exists は (user, product) のメンバーシップ行が存在するかを返す。
func (r *PostgresWishlistRepo) Exists(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM wishlist WHERE user_id = $1 AND product_id = $2)`,
		userID, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist membership: %w", err)
	}
	return exists, nil
}

// Create はメンバーシップ行を挿入する。
func (r *PostgresWishlistRepo) Create(ctx context.Context, item *model.WishlistItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wishlist (id, user_id, product_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		item.ID, item.UserID, item.ProductID, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wishlist item: %w", err)
	}
	return nil
}

// DeleteByUserAndProduct はメンバーシップ行を削除し、
// 実際に行が削除されたかどうかを返す。
func (r *PostgresWishlistRepo) DeleteByUserAndProduct(ctx context.Context, userID, productID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete wishlist item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted wishlist rows: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ WishlistRepository = (*PostgresWishlistRepo)(nil)
