package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/lumina/internal/model"
)

type mockWishlistService struct {
	toggleFn   func(ctx context.Context, userID, productID string) (bool, error)
	listFn     func(ctx context.Context, userID string) ([]model.WishlistEntry, error)
	containsFn func(ctx context.Context, userID, productID string) (bool, error)
}

func (m *mockWishlistService) Toggle(ctx context.Context, userID, productID string) (bool, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, productID)
	}
	return false, nil
}

func (m *mockWishlistService) List(ctx context.Context, userID string) ([]model.WishlistEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockWishlistService) Contains(ctx context.Context, userID, productID string) (bool, error) {
	if m.containsFn != nil {
		return m.containsFn(ctx, userID, productID)
	}
	return false, nil
}

var _ WishlistServiceInterface = (*mockWishlistService)(nil)

func TestWishlistHandler_Toggle_ReturnsMembership(t *testing.T) {
	tests := []struct {
		name       string
		wishlisted bool
	}{
		{"追加された", true},
		{"削除された", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWishlistService{
				toggleFn: func(ctx context.Context, userID, productID string) (bool, error) {
					return tt.wishlisted, nil
				},
			}
			h := NewWishlistHandler(svc)

			w := httptest.NewRecorder()
			h.Toggle(w, authedRequest(http.MethodPost, "/api/wishlist/toggle", `{"product_id":"p1"}`, "user-1"))

			resp := w.Result()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}

			var got map[string]bool
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if got["wishlisted"] != tt.wishlisted {
				t.Errorf("wishlisted = %v, want %v", got["wishlisted"], tt.wishlisted)
			}
		})
	}
}

func TestWishlistHandler_Toggle_MissingProductID_Returns400(t *testing.T) {
	h := NewWishlistHandler(&mockWishlistService{})

	w := httptest.NewRecorder()
	h.Toggle(w, authedRequest(http.MethodPost, "/api/wishlist/toggle", `{}`, "user-1"))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestWishlistHandler_Toggle_NoSession_Returns401(t *testing.T) {
	h := NewWishlistHandler(&mockWishlistService{})

	req := httptest.NewRequest(http.MethodPost, "/api/wishlist/toggle", nil)
	w := httptest.NewRecorder()

	h.Toggle(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestWishlistHandler_List_ReturnsEntries(t *testing.T) {
	svc := &mockWishlistService{
		listFn: func(ctx context.Context, userID string) ([]model.WishlistEntry, error) {
			return []model.WishlistEntry{
				{
					WishlistItem: model.WishlistItem{ID: "w1", ProductID: "p1"},
					Product:      &model.Product{ID: "p1", Name: "シルクスカーフ"},
				},
			}, nil
		},
	}
	h := NewWishlistHandler(svc)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/api/wishlist", "", "user-1"))

	var got map[string][]model.WishlistEntry
	if err := json.NewDecoder(w.Result().Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got["items"]) != 1 {
		t.Fatalf("items = %d, want 1", len(got["items"]))
	}
	if got["items"][0].Product.Name != "シルクスカーフ" {
		t.Errorf("product name = %q", got["items"][0].Product.Name)
	}
}
