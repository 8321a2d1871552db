// Package checkout はカート内容を注文に変換するオーケストレーターを提供する。
//
// 前提条件（認証・非空カート・配送先の形式）をすべて検証してから、
// 注文作成・明細作成・カートクリアを単一トランザクションで実行する。
// どの段階で失敗しても部分的な状態は残らない。
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/lumina/internal/cache"
	"github.com/hitoshi/lumina/internal/cart"
	"github.com/hitoshi/lumina/internal/metrics"
	"github.com/hitoshi/lumina/internal/model"
	"github.com/hitoshi/lumina/internal/repository"
)

// Service はチェックアウトのビジネスロジックを提供する。
type Service struct {
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
	store     *cache.Store
	collector metrics.MetricsCollector
	validate  *validator.Validate
}

// NewService はServiceを生成する。
func NewService(
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	store *cache.Store,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		store:     store,
		collector: collector,
		validate:  validator.New(),
	}
}

// PlaceOrder はカート内容から注文を確定する。
// 合計金額は現在のカート内容から算出し、明細には注文時点の商品価格を
// スナップショットとして保存する。以後のカタログ価格変更は注文に影響しない。
// 成功時はカート関連キャッシュを無効化し、作成済みの注文を返す。
func (s *Service) PlaceOrder(ctx context.Context, userID string, address model.ShippingAddress) (*model.Order, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	if err := s.validateAddress(address); err != nil {
		return nil, err
	}

	lines, err := s.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, model.NewCartEmptyError()
	}

	order := &model.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		TotalAmount:     cart.Total(lines),
		Status:          model.OrderStatusPending,
		ShippingAddress: address,
		CreatedAt:       time.Now(),
	}

	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		// 商品未解決の行は価格0でスナップショットする（合計との整合を保つ）
		var price int64
		if line.Product != nil {
			price = line.Product.Price
		}
		items = append(items, model.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     price,
		})
	}

	start := time.Now()
	if err := s.orderRepo.PlaceOrder(ctx, order, items); err != nil {
		return nil, s.mapOrderError(userID, err)
	}
	s.collector.RecordCheckoutLatency(time.Since(start))

	s.store.Invalidate("cart:" + userID)
	s.store.Invalidate("cart_count:" + userID)
	s.collector.RecordOrderPlaced(order.TotalAmount)

	slog.Info("order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", userID),
		slog.Int64("total_amount", order.TotalAmount),
		slog.Int("item_count", len(items)),
	)

	return order, nil
}

// ListOrders はユーザーの注文履歴を明細付き・新しい順で返す。
func (s *Service) ListOrders(ctx context.Context, userID string) ([]model.OrderWithItems, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// validateAddress は配送先の形式を検証し、最初に違反が検出された
// フィールド名を含むValidationErrorを返す。
func (s *Service) validateAddress(address model.ShippingAddress) error {
	err := s.validate.Struct(address)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return model.NewValidationError(verrs[0].Field())
	}
	return model.NewValidationError("shipping_address")
}

// mapOrderError はトランザクションの失敗段階を段階別のAPIエラーに変換する。
// ユーザー向けメッセージはどの段階でも同一の汎用文言になる。
func (s *Service) mapOrderError(userID string, err error) error {
	var stage string
	var apiErr *model.APIError

	switch {
	case errors.Is(err, repository.ErrOrderInsert):
		stage = "order_insert"
		apiErr = model.NewOrderCreationFailedError()
	case errors.Is(err, repository.ErrOrderItemsInsert):
		stage = "order_items_insert"
		apiErr = model.NewOrderItemsFailedError()
	case errors.Is(err, repository.ErrCartClear):
		stage = "cart_clear"
		apiErr = model.NewCartClearFailedError()
	default:
		stage = "order_insert"
		apiErr = model.NewOrderCreationFailedError()
	}

	s.collector.RecordOrderFailure(stage)
	slog.Error("checkout failed",
		slog.String("error", err.Error()),
		slog.String("user_id", userID),
		slog.String("stage", stage),
	)

	return apiErr
}
