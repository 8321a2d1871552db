// Package cart はカート変更エンジンを提供する。
//
// すべての変更操作は認証済みセッションを要求し、未認証の場合は
// 書き込みを一切行わずにAuthenticationRequiredを返す。
// 在庫上限の切り詰めは呼び出し側の責務であり、エンジン自身は強制しない。
package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/lumina/internal/cache"
	"github.com/hitoshi/lumina/internal/metrics"
	"github.com/hitoshi/lumina/internal/model"
	"github.com/hitoshi/lumina/internal/repository"
)

// cartKey はユーザーのカート読み取りキャッシュのキー。
func cartKey(userID string) string {
	return "cart:" + userID
}

// cartCountKey はユーザーのカート点数キャッシュのキー。
func cartCountKey(userID string) string {
	return "cart_count:" + userID
}

// Service はカートに関するビジネスロジックを提供する。
type Service struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	store       *cache.Store
	collector   metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	store *cache.Store,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		store:       store,
		collector:   collector,
	}
}

// AddToCart は商品をカートに1点追加する。
// 既に同じ商品の行がある場合は数量を+1し、なければ数量1で行を作成する。
// 追加はアトミックなUPSERTで行い、同時追加でも行が重複しない。
func (s *Service) AddToCart(ctx context.Context, userID, productID string) (*model.CartItem, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productID)
	}

	item, err := s.cartRepo.AddOne(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	s.invalidate(userID)
	s.collector.RecordCartMutation("add")

	slog.Info("cart item added",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Int("quantity", item.Quantity),
	)

	return item, nil
}

// UpdateQuantity はカート行の数量を更新する。
// quantityが1未満の場合は何もしない（行の削除はRemoveItemのみが行う）。
// 他ユーザーの行を指定した場合は存在を秘匿するためNotFoundを返す。
func (s *Service) UpdateQuantity(ctx context.Context, userID, cartItemID string, quantity int) error {
	if userID == "" {
		return model.NewAuthenticationRequiredError()
	}

	// 1未満は黙って無視する。削除の意味に転化させない。
	if quantity < 1 {
		return nil
	}

	item, err := s.cartRepo.FindByID(ctx, cartItemID)
	if err != nil {
		return fmt.Errorf("failed to find cart item: %w", err)
	}
	if item == nil || item.UserID != userID {
		return model.NewCartItemNotFoundError(cartItemID)
	}

	if err := s.cartRepo.UpdateQuantity(ctx, cartItemID, quantity); err != nil {
		return fmt.Errorf("failed to update cart quantity: %w", err)
	}

	s.invalidate(userID)
	s.collector.RecordCartMutation("update_quantity")

	return nil
}

// RemoveItem はカート行を数量に関わらず無条件に削除する。
func (s *Service) RemoveItem(ctx context.Context, userID, cartItemID string) error {
	if userID == "" {
		return model.NewAuthenticationRequiredError()
	}

	item, err := s.cartRepo.FindByID(ctx, cartItemID)
	if err != nil {
		return fmt.Errorf("failed to find cart item: %w", err)
	}
	if item == nil || item.UserID != userID {
		return model.NewCartItemNotFoundError(cartItemID)
	}

	if err := s.cartRepo.Delete(ctx, cartItemID); err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	s.invalidate(userID)
	s.collector.RecordCartMutation("remove")

	return nil
}

// ListCart はユーザーのカート行一覧を商品情報付きで返す。
// 読み取りはキャッシュを経由し、変更操作が無効化するまで再取得しない。
func (s *Service) ListCart(ctx context.Context, userID string) ([]model.CartLine, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	v, err := s.store.Do(ctx, cartKey(userID), func(ctx context.Context) (any, error) {
		return s.cartRepo.ListByUserID(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}

	lines, ok := v.([]model.CartLine)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value type for cart")
	}
	return lines, nil
}

// Count はユーザーのカート内商品点数（quantity合計）を返す。
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}

	v, err := s.store.Do(ctx, cartCountKey(userID), func(ctx context.Context) (any, error) {
		return s.cartRepo.CountByUserID(ctx, userID)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count cart: %w", err)
	}

	count, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("unexpected cache value type for cart count")
	}
	return count, nil
}

// Total はカート行の合計金額を返す純粋な畳み込み。
// 商品が解決できない行は0として扱い、エラーにはしない。
func Total(lines []model.CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Subtotal()
	}
	return total
}

// invalidate はユーザーのカート関連キャッシュを破棄する。
func (s *Service) invalidate(userID string) {
	s.store.Invalidate(cartKey(userID))
	s.store.Invalidate(cartCountKey(userID))
}
