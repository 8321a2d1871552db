// Package model はドメインモデルを定義する。
package model

import "time"

// Category は商品カテゴリを表す。
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Product はカタログ上の商品を表す。
// 価格は最小通貨単位の整数で保持する（浮動小数点の誤差を避けるため）。
// stock以外のフィールドは本コアからは不変として扱う。
type Product struct {
	ID            string    `json:"id"`
	CategoryID    string    `json:"category_id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	OriginalPrice *int64    `json:"original_price,omitempty"`
	Stock         int       `json:"stock"`
	Featured      bool      `json:"featured"`
	Trending      bool      `json:"trending"`
	Images        []string  `json:"images"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductSort は商品一覧のソート順を表す。
type ProductSort string

const (
	// ProductSortFeatured は注目商品優先のデフォルト順。
	ProductSortFeatured ProductSort = "featured"
	// ProductSortPriceAsc は価格昇順。
	ProductSortPriceAsc ProductSort = "price_asc"
	// ProductSortPriceDesc は価格降順。
	ProductSortPriceDesc ProductSort = "price_desc"
)

// ProductFilter は商品一覧の絞り込み条件を表す。
// CategoryIDが空文字の場合は全カテゴリを対象とする。
type ProductFilter struct {
	CategoryID string
	Sort       ProductSort
}
