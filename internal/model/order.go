// Package model はドメインモデルを定義する。
package model

import "time"

// ShippingAddress は注文の配送先住所を表す。
// 電話番号は10桁、郵便番号は6桁の数字であることをチェックアウト時に検証する。
type ShippingAddress struct {
	FullName     string `json:"full_name" validate:"required"`
	Phone        string `json:"phone" validate:"required,len=10,numeric"`
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	Pincode      string `json:"pincode" validate:"required,len=6,numeric"`
}

// OrderStatus は注文の状態を表す。
// チェックアウト時は常にpendingで作成され、以降の遷移は外部のフルフィルメントが行う。
type OrderStatus string

const (
	// OrderStatusPending は支払い・出荷待ちの初期状態。
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusShipped は出荷済み状態。
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered は配達完了状態。
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled はキャンセル状態。
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order は注文を表す。チェックアウト1回につき必ず1件だけ作成される。
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	TotalAmount     int64           `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
}

// OrderItem は注文明細を表す。
// Priceは注文時点の商品価格のスナップショットであり、以後カタログ価格が
// 変わっても注文合計が変動しないことを保証する。
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// OrderWithItems は注文と明細をまとめた読み取り結果を表す。
type OrderWithItems struct {
	Order
	Items []OrderItem `json:"items"`
}
