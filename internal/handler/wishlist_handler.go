package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/lumina/internal/middleware"
	"github.com/hitoshi/lumina/internal/model"
)

// WishlistServiceInterface はウィッシュリストハンドラーが必要とするサービスインターフェース。
type WishlistServiceInterface interface {
	Toggle(ctx context.Context, userID, productID string) (bool, error)
	List(ctx context.Context, userID string) ([]model.WishlistEntry, error)
	Contains(ctx context.Context, userID, productID string) (bool, error)
}

// WishlistHandler はウィッシュリスト操作のHTTPハンドラー。
type WishlistHandler struct {
	service WishlistServiceInterface
}

// NewWishlistHandler はWishlistHandlerを生成する。
func NewWishlistHandler(service WishlistServiceInterface) *WishlistHandler {
	return &WishlistHandler{service: service}
}

// toggleRequest はトグルリクエストのボディ。
type toggleRequest struct {
	ProductID string `json:"product_id"`
}

// List はウィッシュリストを返す。
// GET /api/wishlist
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	entries, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.WishlistEntry{
		"items": entries,
	})
}

// Toggle は商品のウィッシュリストメンバーシップを反転する。
// レスポンスのwishlistedは反転後のメンバーシップを表す。
// POST /api/wishlist/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	if req.ProductID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("product_id"))
		return
	}

	wishlisted, err := h.service.Toggle(r.Context(), userID, req.ProductID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"wishlisted": wishlisted})
}
