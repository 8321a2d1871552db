// Package model はドメインモデルを定義する。
package model

import "time"

// CartItem はカート行（購入意思を表す (user, product, quantity) レコード）を表す。
// (user_id, product_id) の組で一意。quantityは1以上。
type CartItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartLine はカート行と商品情報をJOINした読み取り結果を表す。
// 商品が解決できない場合（削除済み等）はProductがnilになる。
type CartLine struct {
	CartItem
	Product *Product `json:"product,omitempty"`
}

// Subtotal はこの行の小計を返す。商品が未解決の場合は0とする。
func (l CartLine) Subtotal() int64 {
	if l.Product == nil {
		return 0
	}
	return l.Product.Price * int64(l.Quantity)
}

// WishlistItem はウィッシュリストのメンバーシップ行を表す。
// (user_id, product_id) の組で一意。数量は持たず、行の有無のみが意味を持つ。
type WishlistItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WishlistEntry はウィッシュリスト行と商品情報をJOINした読み取り結果を表す。
type WishlistEntry struct {
	WishlistItem
	Product *Product `json:"product,omitempty"`
}
