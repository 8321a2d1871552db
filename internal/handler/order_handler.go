package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/lumina/internal/middleware"
	"github.com/hitoshi/lumina/internal/model"
)

// CheckoutServiceInterface はチェックアウトハンドラーが必要とするサービスインターフェース。
type CheckoutServiceInterface interface {
	PlaceOrder(ctx context.Context, userID string, address model.ShippingAddress) (*model.Order, error)
	ListOrders(ctx context.Context, userID string) ([]model.OrderWithItems, error)
}

// OrderHandler はチェックアウトと注文履歴のHTTPハンドラー。
type OrderHandler struct {
	service CheckoutServiceInterface
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(service CheckoutServiceInterface) *OrderHandler {
	return &OrderHandler{service: service}
}

// checkoutRequest はチェックアウトリクエストのボディ。
type checkoutRequest struct {
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
}

// Checkout はカート内容から注文を確定する。
// POST /api/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), userID, req.ShippingAddress)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// ListOrders は注文履歴を明細付き・作成日時降順で返す。
// GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	orders, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.OrderWithItems{
		"orders": orders,
	})
}
