package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lumina/internal/cache"
	"github.com/hitoshi/lumina/internal/model"
)

// 管理画面スナップショットのキャッシュキー。
// リアルタイム同期マネージャーの無効化対象と対応する。
const (
	KeyAdminProducts   = "admin:products"
	KeyAdminCategories = "admin:categories"
	KeyAdminOrders     = "admin:orders"
	KeyAdminProfiles   = "admin:profiles"
)

// AdminCatalogService は管理者のカタログ書き込み操作インターフェース。
type AdminCatalogService interface {
	CreateProduct(ctx context.Context, product *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, product *model.Product) (*model.Product, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
}

// AdminSnapshotSource は管理画面スナップショットのデータソース。
type AdminSnapshotSource interface {
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
	ListAllOrders(ctx context.Context) ([]model.OrderWithItems, error)
	ListProfiles(ctx context.Context) ([]*model.Profile, error)
}

// RealtimeStarter はリアルタイム同期の遅延起動インターフェース。
// 管理画面への最初の認可済みアクセスで起動され、以降は冪等。
type RealtimeStarter interface {
	EnsureStarted(ctx context.Context) error
}

// AdminHandler は管理画面のHTTPハンドラー。
// 読み取りはテーブル単位のキャッシュキーを経由するスナップショットで、
// リアルタイム同期がDB変更通知を受けて無効化するまで再取得しない。
type AdminHandler struct {
	catalog  AdminCatalogService
	source   AdminSnapshotSource
	store    *cache.Store
	realtime RealtimeStarter
}

// NewAdminHandler はAdminHandlerを生成する。realtimeはnil可。
func NewAdminHandler(
	catalog AdminCatalogService,
	source AdminSnapshotSource,
	store *cache.Store,
	realtime RealtimeStarter,
) *AdminHandler {
	return &AdminHandler{
		catalog:  catalog,
		source:   source,
		store:    store,
		realtime: realtime,
	}
}

// createProductRequest は商品作成・更新リクエストのボディ。
type createProductRequest struct {
	CategoryID    string   `json:"category_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         int64    `json:"price"`
	OriginalPrice *int64   `json:"original_price"`
	Stock         int      `json:"stock"`
	Featured      bool     `json:"featured"`
	Trending      bool     `json:"trending"`
	Images        []string `json:"images"`
}

// createCategoryRequest はカテゴリ作成リクエストのボディ。
type createCategoryRequest struct {
	Name string `json:"name"`
}

// EnsureRealtimeMiddleware は認可済みの管理画面リクエストでリアルタイム
// 同期を遅延起動するミドルウェアを返す。起動失敗はログに残すのみで、
// リクエスト自体は通す（スナップショットは古くなるが閲覧は可能）。
func (h *AdminHandler) EnsureRealtimeMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.realtime != nil {
				if err := h.realtime.EnsureStarted(r.Context()); err != nil {
					slog.Error("failed to start realtime sync",
						slog.String("error", err.Error()),
					)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ListProducts は全商品のスナップショットを返す。
// GET /api/admin/products
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	v, err := h.store.Do(r.Context(), KeyAdminProducts, func(ctx context.Context) (any, error) {
		return h.source.ListProducts(ctx, model.ProductFilter{})
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	products, ok := v.([]*model.Product)
	if !ok {
		handleServiceError(w, fmt.Errorf("unexpected cache value type for %s", KeyAdminProducts))
		return
	}

	writeJSON(w, http.StatusOK, productsResponse{Products: products})
}

// ListCategories は全カテゴリのスナップショットを返す。
// GET /api/admin/categories
func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	v, err := h.store.Do(r.Context(), KeyAdminCategories, func(ctx context.Context) (any, error) {
		return h.source.ListCategories(ctx)
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	categories, ok := v.([]*model.Category)
	if !ok {
		handleServiceError(w, fmt.Errorf("unexpected cache value type for %s", KeyAdminCategories))
		return
	}

	writeJSON(w, http.StatusOK, map[string][]*model.Category{
		"categories": categories,
	})
}

// ListOrders は全注文のスナップショットを明細付きで返す。
// GET /api/admin/orders
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	v, err := h.store.Do(r.Context(), KeyAdminOrders, func(ctx context.Context) (any, error) {
		return h.source.ListAllOrders(ctx)
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	orders, ok := v.([]model.OrderWithItems)
	if !ok {
		handleServiceError(w, fmt.Errorf("unexpected cache value type for %s", KeyAdminOrders))
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.OrderWithItems{
		"orders": orders,
	})
}

// ListProfiles は全プロフィールのスナップショットを返す。
// パスワードハッシュはmodel側のタグ指定で応答から除外される。
// GET /api/admin/profiles
func (h *AdminHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	v, err := h.store.Do(r.Context(), KeyAdminProfiles, func(ctx context.Context) (any, error) {
		return h.source.ListProfiles(ctx)
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	profiles, ok := v.([]*model.Profile)
	if !ok {
		handleServiceError(w, fmt.Errorf("unexpected cache value type for %s", KeyAdminProfiles))
		return
	}

	writeJSON(w, http.StatusOK, map[string][]*model.Profile{
		"profiles": profiles,
	})
}

// CreateProduct は商品を作成する。
// POST /api/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("name"))
		return
	}
	if req.Price <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("price"))
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), toProduct(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// UpdateProduct は商品情報を更新する。
// PUT /api/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("name"))
		return
	}
	if req.Price <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("price"))
		return
	}

	product := toProduct(req)
	product.ID = chi.URLParam(r, "id")

	updated, err := h.catalog.UpdateProduct(r.Context(), product)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// CreateCategory はカテゴリを作成する。
// POST /api/admin/categories
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("name"))
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

// toProduct はリクエストボディからモデルに変換する。
func toProduct(req createProductRequest) *model.Product {
	return &model.Product{
		CategoryID:    req.CategoryID,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Stock:         req.Stock,
		Featured:      req.Featured,
		Trending:      req.Trending,
		Images:        req.Images,
	}
}
