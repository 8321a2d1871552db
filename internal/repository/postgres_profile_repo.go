package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lumina/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `id, full_name, email, password_hash, is_admin, loyalty_points, membership_tier, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(
		&p.ID, &p.FullName, &p.Email, &p.PasswordHash,
		&p.IsAdmin, &p.LoyaltyPoints, &p.MembershipTier,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return p, nil
}

// FindByEmail はメールアドレスでプロフィールを検索する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by email: %w", err)
	}
	return p, nil
}

// Create はサインアップ時にプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, email, password_hash, is_admin, loyalty_points, membership_tier, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		profile.ID, profile.FullName, profile.Email, profile.PasswordHash,
		profile.IsAdmin, profile.LoyaltyPoints, profile.MembershipTier,
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// List は全プロフィールを返す（管理者用スナップショット）。
func (r *PostgresProfileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
