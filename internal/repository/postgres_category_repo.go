package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lumina/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM categories WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return c, nil
}

// List は全カテゴリを名前順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// Create はカテゴリを作成する（管理者用）。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, created_at)
		 VALUES ($1, $2, $3, $4)`,
		category.ID, category.Name, category.Slug, category.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
