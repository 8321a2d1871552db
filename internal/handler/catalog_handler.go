package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lumina/internal/model"
)

// CatalogServiceInterface はカタログハンドラーが必要とするサービスインターフェース。
type CatalogServiceInterface interface {
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]*model.Product, error)
	ListFeatured(ctx context.Context) ([]*model.Product, error)
	ListTrending(ctx context.Context) ([]*model.Product, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

// CatalogHandler は商品カタログの公開HTTPハンドラー。
// 読み取り専用で、認証は不要。
type CatalogHandler struct {
	service CatalogServiceInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// productsResponse は商品一覧のAPIレスポンス。
type productsResponse struct {
	Products []*model.Product `json:"products"`
}

// ListProducts は商品一覧を返す。
// GET /api/products?category=xxx&sort=price_asc
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := model.ProductFilter{
		CategoryID: r.URL.Query().Get("category"),
		Sort:       model.ProductSort(r.URL.Query().Get("sort")),
	}

	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productsResponse{Products: products})
}

// ListFeatured は注目商品一覧を返す。
// GET /api/products/featured
func (h *CatalogHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListFeatured(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productsResponse{Products: products})
}

// ListTrending はトレンド商品一覧を返す。
// GET /api/products/trending
func (h *CatalogHandler) ListTrending(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListTrending(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, productsResponse{Products: products})
}

// GetProduct はスラッグで商品詳細を返す。
// GET /api/products/{slug}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	product, err := h.service.GetProductBySlug(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]*model.Category{
		"categories": categories,
	})
}
