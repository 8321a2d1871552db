// Package catalog は商品・カテゴリの読み取りと管理者向けの管理操作を提供する。
//
// 一覧系の読み取りはテーブル単位のキャッシュキーを経由し、リアルタイム
// 同期マネージャーがテーブル変更通知を受けて無効化するまで再取得しない。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/hitoshi/lumina/internal/cache"
	"github.com/hitoshi/lumina/internal/model"
	"github.com/hitoshi/lumina/internal/repository"
	"github.com/hitoshi/lumina/internal/security"
)

// キャッシュキー。リアルタイム同期マネージャーの無効化対象と対応する。
const (
	KeyProducts         = "products"
	KeyProductsFeatured = "products:featured"
	KeyProductsTrending = "products:trending"
	KeyCategories       = "categories"
)

// Service はカタログに関するビジネスロジックを提供する。
type Service struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	store        *cache.Store
	sanitizer    security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	store *cache.Store,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		store:        store,
		sanitizer:    sanitizer,
	}
}

// GetProduct は商品IDで商品を取得する。見つからない場合はNotFound。
func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(id)
	}
	return product, nil
}

// GetProductBySlug はスラッグで商品を取得する。見つからない場合はNotFound。
func (s *Service) GetProductBySlug(ctx context.Context, productSlug string) (*model.Product, error) {
	product, err := s.productRepo.FindBySlug(ctx, productSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productSlug)
	}
	return product, nil
}

// ListProducts はフィルタ条件に合致する商品一覧を返す。
// 無条件・デフォルトソートの場合のみキャッシュを経由する。
func (s *Service) ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	if filter.CategoryID == "" && (filter.Sort == "" || filter.Sort == model.ProductSortFeatured) {
		v, err := s.store.Do(ctx, KeyProducts, func(ctx context.Context) (any, error) {
			return s.productRepo.List(ctx, filter)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		products, ok := v.([]*model.Product)
		if !ok {
			return nil, fmt.Errorf("unexpected cache value type for products")
		}
		return products, nil
	}

	products, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ListFeatured は注目フラグ付き商品をキャッシュ経由で返す。
func (s *Service) ListFeatured(ctx context.Context) ([]*model.Product, error) {
	return s.cachedProducts(ctx, KeyProductsFeatured, s.productRepo.ListFeatured)
}

// ListTrending はトレンドフラグ付き商品をキャッシュ経由で返す。
func (s *Service) ListTrending(ctx context.Context) ([]*model.Product, error) {
	return s.cachedProducts(ctx, KeyProductsTrending, s.productRepo.ListTrending)
}

// ListCategories は全カテゴリをキャッシュ経由で返す。
func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	v, err := s.store.Do(ctx, KeyCategories, func(ctx context.Context) (any, error) {
		return s.categoryRepo.List(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories, ok := v.([]*model.Category)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value type for categories")
	}
	return categories, nil
}

// CreateProduct は商品を作成する（管理者用）。
// スラッグは商品名から生成し、説明はHTMLサニタイズしてから保存する。
func (s *Service) CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error) {
	if product.CategoryID != "" {
		category, err := s.categoryRepo.FindByID(ctx, product.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to find category: %w", err)
		}
		if category == nil {
			return nil, model.NewCategoryNotFoundError(product.CategoryID)
		}
	}

	now := time.Now()
	product.ID = uuid.New().String()
	product.Slug = slug.Make(product.Name)
	product.Description = s.sanitizer.Sanitize(product.Description)
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	slog.Info("product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// UpdateProduct は商品情報を更新する（管理者用）。
// 名前が変わった場合はスラッグを再生成する。説明は常に再サニタイズする。
func (s *Service) UpdateProduct(ctx context.Context, product *model.Product) (*model.Product, error) {
	existing, err := s.productRepo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if existing == nil {
		return nil, model.NewProductNotFoundError(product.ID)
	}

	if product.Name != existing.Name {
		product.Slug = slug.Make(product.Name)
	} else {
		product.Slug = existing.Slug
	}
	product.Description = s.sanitizer.Sanitize(product.Description)
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	slog.Info("product updated",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// CreateCategory はカテゴリを作成する（管理者用）。
func (s *Service) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	category := &model.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug.Make(name),
		CreatedAt: time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	slog.Info("category created",
		slog.String("category_id", category.ID),
		slog.String("slug", category.Slug),
	)

	return category, nil
}

// cachedProducts はキーに対応する商品一覧をキャッシュ経由で取得する。
func (s *Service) cachedProducts(ctx context.Context, key string, loader func(context.Context) ([]*model.Product, error)) ([]*model.Product, error) {
	v, err := s.store.Do(ctx, key, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	products, ok := v.([]*model.Product)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value type for %s", key)
	}
	return products, nil
}
