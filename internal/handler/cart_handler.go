package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lumina/internal/cart"
	"github.com/hitoshi/lumina/internal/middleware"
	"github.com/hitoshi/lumina/internal/model"
)

// CartServiceInterface はカートハンドラーが必要とするサービスインターフェース。
type CartServiceInterface interface {
	AddToCart(ctx context.Context, userID, productID string) (*model.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, cartItemID string, quantity int) error
	RemoveItem(ctx context.Context, userID, cartItemID string) error
	ListCart(ctx context.Context, userID string) ([]model.CartLine, error)
	Count(ctx context.Context, userID string) (int, error)
}

// CartHandler はカート操作のHTTPハンドラー。
type CartHandler struct {
	service CartServiceInterface
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(service CartServiceInterface) *CartHandler {
	return &CartHandler{service: service}
}

// addToCartRequest はカート追加リクエストのボディ。
type addToCartRequest struct {
	ProductID string `json:"product_id"`
}

// updateQuantityRequest は数量更新リクエストのボディ。
type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// cartResponse はカート内容のAPIレスポンス。
// Totalは現在のカート内容から算出した合計金額（最小通貨単位）。
type cartResponse struct {
	Items []model.CartLine `json:"items"`
	Total int64            `json:"total"`
}

// ListCart はカート内容と合計金額を返す。
// GET /api/cart
func (h *CartHandler) ListCart(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	lines, err := h.service.ListCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cartResponse{
		Items: lines,
		Total: cart.Total(lines),
	})
}

// Count はカート内商品点数を返す。バッジ表示用の軽量エンドポイント。
// GET /api/cart/count
func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	count, err := h.service.Count(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// AddToCart は商品をカートに1点追加する。
// POST /api/cart
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if req.ProductID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("product_id"))
		return
	}

	item, err := h.service.AddToCart(r.Context(), userID, req.ProductID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// UpdateQuantity はカート行の数量を更新する。
// 1未満の数量は黙って無視される（操作全体が no-op になる）。
// PATCH /api/cart/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	cartItemID := chi.URLParam(r, "id")
	if err := h.service.UpdateQuantity(r.Context(), userID, cartItemID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveItem はカート行を削除する。
// DELETE /api/cart/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	cartItemID := chi.URLParam(r, "id")
	if err := h.service.RemoveItem(r.Context(), userID, cartItemID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
