package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/lumina/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// PlaceOrder は注文・注文明細の作成とカートクリアを単一トランザクションで実行する。
// 各段階の失敗はErrOrderInsert / ErrOrderItemsInsert / ErrCartClearで
// ラップして返し、呼び出し側が段階を区別できるようにする。
// いずれの失敗でも全体がロールバックされるため、明細のない孤児注文や
// 注文済みなのにクリアされないカートといった部分失敗状態は残らない。
func (r *PostgresOrderRepo) PlaceOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderInsert, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total_amount, status, shipping_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, order.UserID, order.TotalAmount, order.Status, address, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderInsert, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO order_items (id, order_id, product_id, quantity, price)
		 VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderItemsInsert, err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price,
		); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderItemsInsert, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1`, order.UserID,
	); err != nil {
		return fmt.Errorf("%w: %v", ErrCartClear, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout transaction: %w", err)
	}
	return nil
}

// ListByUserID はユーザーの注文履歴を明細付き・作成日時降順で返す。
func (r *PostgresOrderRepo) ListByUserID(ctx context.Context, userID string) ([]model.OrderWithItems, error) {
	return r.queryOrders(ctx,
		`SELECT id, user_id, total_amount, status, shipping_address, created_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// ListAll は全注文を明細付き・作成日時降順で返す（管理者用スナップショット）。
func (r *PostgresOrderRepo) ListAll(ctx context.Context) ([]model.OrderWithItems, error) {
	return r.queryOrders(ctx,
		`SELECT id, user_id, total_amount, status, shipping_address, created_at
		 FROM orders ORDER BY created_at DESC`,
	)
}

func (r *PostgresOrderRepo) queryOrders(ctx context.Context, query string, args ...any) ([]model.OrderWithItems, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.OrderWithItems
	byID := map[string]int{}
	for rows.Next() {
		var o model.OrderWithItems
		var address []byte
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &address, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
		o.Items = []model.OrderItem{}
		byID[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for id := range byID {
		ids = append(ids, id)
	}

	itemRows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, price
		 FROM order_items WHERE order_id = ANY($1::uuid[])`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item model.OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if idx, ok := byID[item.OrderID]; ok {
			orders[idx].Items = append(orders[idx].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}

	return orders, nil
}

// compile-time interface check
var _ OrderRepository = (*PostgresOrderRepo)(nil)
