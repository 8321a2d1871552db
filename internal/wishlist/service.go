// Package wishlist はウィッシュリストのトグルエンジンを提供する。
//
// トグルは「メンバーなら削除、非メンバーなら追加」の反転操作で、
// 同一 (user, product) ペアの操作はプロセス内のキー付きミューテックスで
// 直列化する。2回の逐次トグルは必ず元のメンバーシップに戻る。
package wishlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lumina/internal/metrics"
	"github.com/hitoshi/lumina/internal/model"
	"github.com/hitoshi/lumina/internal/repository"
)

// keyedMutex は文字列キーごとのミューテックスを提供する。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock は指定キーのミューテックスを取得してロックし、解放関数を返す。
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Service はウィッシュリストに関するビジネスロジックを提供する。
type Service struct {
	wishlistRepo repository.WishlistRepository
	productRepo  repository.ProductRepository
	collector    metrics.MetricsCollector
	toggles      *keyedMutex
}

// NewService はServiceを生成する。
func NewService(
	wishlistRepo repository.WishlistRepository,
	productRepo repository.ProductRepository,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		wishlistRepo: wishlistRepo,
		productRepo:  productRepo,
		collector:    collector,
		toggles:      newKeyedMutex(),
	}
}

// Toggle は商品のウィッシュリストメンバーシップを反転する。
// 戻り値は反転後のメンバーシップ（true=追加された）。
// 未認証の場合は書き込みを行わずAuthenticationRequiredを返す。
func (s *Service) Toggle(ctx context.Context, userID, productID string) (bool, error) {
	if userID == "" {
		return false, model.NewAuthenticationRequiredError()
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return false, model.NewProductNotFoundError(productID)
	}

	// 同一ペアの同時トグルを直列化する
	unlock := s.toggles.lock(userID + ":" + productID)
	defer unlock()

	exists, err := s.wishlistRepo.Exists(ctx, userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist membership: %w", err)
	}

	if exists {
		if _, err := s.wishlistRepo.DeleteByUserAndProduct(ctx, userID, productID); err != nil {
			return false, fmt.Errorf("failed to remove wishlist item: %w", err)
		}
		s.collector.RecordWishlistToggle(false)
		return false, nil
	}

	item := &model.WishlistItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: time.Now(),
	}
	if err := s.wishlistRepo.Create(ctx, item); err != nil {
		return false, fmt.Errorf("failed to add wishlist item: %w", err)
	}
	s.collector.RecordWishlistToggle(true)
	return true, nil
}

// List はユーザーのウィッシュリストを商品情報付きで返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.WishlistEntry, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	entries, err := s.wishlistRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist: %w", err)
	}
	return entries, nil
}

// Contains は商品がウィッシュリストに含まれるかを返す。
// 匿名ユーザーは常にfalse。
func (s *Service) Contains(ctx context.Context, userID, productID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	exists, err := s.wishlistRepo.Exists(ctx, userID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist membership: %w", err)
	}
	return exists, nil
}
