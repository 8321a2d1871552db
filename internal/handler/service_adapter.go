package handler

import (
	"context"

	"github.com/hitoshi/lumina/internal/model"
	"github.com/hitoshi/lumina/internal/repository"
)

// AdminSnapshotAdapter はリポジトリ群をAdminSnapshotSourceに適合させる。
// 管理画面のスナップショットはサービス層のキャッシュを経由せず、
// 専用のadmin:*キーでキャッシュするためリポジトリを直接参照する。
type AdminSnapshotAdapter struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	orderRepo    repository.OrderRepository
	profileRepo  repository.ProfileRepository
}

// NewAdminSnapshotAdapter はAdminSnapshotAdapterを生成する。
func NewAdminSnapshotAdapter(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	orderRepo repository.OrderRepository,
	profileRepo repository.ProfileRepository,
) *AdminSnapshotAdapter {
	return &AdminSnapshotAdapter{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		orderRepo:    orderRepo,
		profileRepo:  profileRepo,
	}
}

// ListProducts は全商品を返す。
func (a *AdminSnapshotAdapter) ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error) {
	return a.productRepo.List(ctx, filter)
}

// ListCategories は全カテゴリを返す。
func (a *AdminSnapshotAdapter) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return a.categoryRepo.List(ctx)
}

// ListAllOrders は全注文を明細付きで返す。
func (a *AdminSnapshotAdapter) ListAllOrders(ctx context.Context) ([]model.OrderWithItems, error) {
	return a.orderRepo.ListAll(ctx)
}

// ListProfiles は全プロフィールを返す。
func (a *AdminSnapshotAdapter) ListProfiles(ctx context.Context) ([]*model.Profile, error) {
	return a.profileRepo.List(ctx)
}

var _ AdminSnapshotSource = (*AdminSnapshotAdapter)(nil)
