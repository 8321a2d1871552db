// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/lumina/internal/model"
)

// ProfileRepository はプロフィールデータの永続化インターフェース。
// is_adminフラグは本コアからは読み取り専用で、更新操作は提供しない。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// FindByEmail はメールアドレスでプロフィールを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)

	// Create はサインアップ時にプロフィールを作成する。
	Create(ctx context.Context, profile *model.Profile) error

	// List は全プロフィールを返す（管理者用スナップショット）。
	List(ctx context.Context) ([]*model.Profile, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ProductRepository は商品データの永続化インターフェース。
type ProductRepository interface {
	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// FindBySlug はスラッグで商品を検索する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)

	// List はフィルタ条件に合致する商品一覧を返す。
	List(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)

	// ListFeatured は注目フラグ付き商品を返す。
	ListFeatured(ctx context.Context) ([]*model.Product, error)

	// ListTrending はトレンドフラグ付き商品を返す。
	ListTrending(ctx context.Context) ([]*model.Product, error)

	// Create は商品を作成する（管理者用）。
	Create(ctx context.Context, product *model.Product) error

	// Update は商品情報を更新する（管理者用）。
	Update(ctx context.Context, product *model.Product) error
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// List は全カテゴリを返す。
	List(ctx context.Context) ([]*model.Category, error)

	// Create はカテゴリを作成する（管理者用）。
	Create(ctx context.Context, category *model.Category) error
}

// CartRepository はカート行の永続化インターフェース。
// (user_id, product_id) の一意性はDB制約で保証し、追加操作はアトミックな
// UPSERT（insert-or-increment）で行うことで同時実行時の重複行を防ぐ。
type CartRepository interface {
	// ListByUserID はユーザーのカート行一覧を商品情報とJOINして返す。
	// 商品が解決できない行はProductがnilのまま含める（行自体は落とさない）。
	ListByUserID(ctx context.Context, userID string) ([]model.CartLine, error)

	// FindByID は指定IDのカート行を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.CartItem, error)

	// AddOne は (user, product) の行が存在すればquantityを+1し、
	// 存在しなければquantity=1で挿入する。単一のアトミックな書き込みで行う。
	AddOne(ctx context.Context, userID, productID string) (*model.CartItem, error)

	// UpdateQuantity はカート行の数量を更新する。
	UpdateQuantity(ctx context.Context, id string, quantity int) error

	// Delete は指定IDのカート行を無条件に削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByUserID はユーザーの全カート行を削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// CountByUserID はユーザーのカート内商品点数（quantity合計）を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// WishlistRepository はウィッシュリストの永続化インターフェース。
type WishlistRepository interface {
	// ListByUserID はユーザーのウィッシュリストを商品情報とJOINして返す。
	ListByUserID(ctx context.Context, userID string) ([]model.WishlistEntry, error)

	// Exists は (user, product) のメンバーシップ行が存在するかを返す。
	Exists(ctx context.Context, userID, productID string) (bool, error)

	// Create はメンバーシップ行を挿入する。
	Create(ctx context.Context, item *model.WishlistItem) error

	// DeleteByUserAndProduct はメンバーシップ行を削除し、
	// 実際に行が削除されたかどうかを返す。
	DeleteByUserAndProduct(ctx context.Context, userID, productID string) (bool, error)
}

// チェックアウトの各段階を識別するセンチネルエラー。
// PlaceOrderは失敗段階をこのいずれかでラップして返し、サービス層が
// errors.Isで段階別のAPIエラーコードに変換する。
var (
	ErrOrderInsert      = errors.New("order insert failed")
	ErrOrderItemsInsert = errors.New("order items insert failed")
	ErrCartClear        = errors.New("cart clear failed")
)

// OrderRepository は注文データの永続化インターフェース。
type OrderRepository interface {
	// PlaceOrder は注文・注文明細の作成とカートクリアを単一トランザクションで実行する。
	// いずれかの段階が失敗した場合は全体がロールバックされ、
	// 孤児注文や未クリアカートといった部分失敗状態は残らない。
	PlaceOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error

	// ListByUserID はユーザーの注文履歴を明細付き・作成日時降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]model.OrderWithItems, error)

	// ListAll は全注文を明細付きで返す（管理者用スナップショット）。
	ListAll(ctx context.Context) ([]model.OrderWithItems, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
