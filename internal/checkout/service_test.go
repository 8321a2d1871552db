package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/lumina/internal/cache"
	"github.com/hitoshi/lumina/internal/metrics"
	"github.com/hitoshi/lumina/internal/model"
	"github.com/hitoshi/lumina/internal/repository"
)

// --- モック定義 ---

type mockCartRepo struct {
	listByUserIDFn func(ctx context.Context, userID string) ([]model.CartLine, error)
}

func (m *mockCartRepo) ListByUserID(ctx context.Context, userID string) ([]model.CartLine, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockCartRepo) FindByID(_ context.Context, _ string) (*model.CartItem, error) {
	return nil, nil
}

func (m *mockCartRepo) AddOne(_ context.Context, _, _ string) (*model.CartItem, error) {
	return nil, nil
}

func (m *mockCartRepo) UpdateQuantity(_ context.Context, _ string, _ int) error { return nil }
func (m *mockCartRepo) Delete(_ context.Context, _ string) error                { return nil }
func (m *mockCartRepo) DeleteByUserID(_ context.Context, _ string) error        { return nil }
func (m *mockCartRepo) CountByUserID(_ context.Context, _ string) (int, error)  { return 0, nil }

type mockOrderRepo struct {
	placeOrderFn   func(ctx context.Context, order *model.Order, items []model.OrderItem) error
	listByUserIDFn func(ctx context.Context, userID string) ([]model.OrderWithItems, error)
}

func (m *mockOrderRepo) PlaceOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	if m.placeOrderFn != nil {
		return m.placeOrderFn(ctx, order, items)
	}
	return nil
}

func (m *mockOrderRepo) ListByUserID(ctx context.Context, userID string) ([]model.OrderWithItems, error) {
	if m.listByUserIDFn != nil {
		return m.listByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]model.OrderWithItems, error) {
	return nil, nil
}

type recordingCollector struct {
	placed   int
	failures []string
}

func (r *recordingCollector) RecordOrderPlaced(_ int64)             { r.placed++ }
func (r *recordingCollector) RecordOrderFailure(stage string)       { r.failures = append(r.failures, stage) }
func (r *recordingCollector) RecordCartMutation(_ string)           {}
func (r *recordingCollector) RecordWishlistToggle(_ bool)           {}
func (r *recordingCollector) RecordCacheInvalidation(_ string)      {}
func (r *recordingCollector) RecordCheckoutLatency(_ time.Duration) {}
func (r *recordingCollector) RecordOrphanedOrdersSwept(_ int)       {}
func (r *recordingCollector) ObserveHTTPStatus(_ int)               {}

// --- compile-time interface checks ---
var _ repository.CartRepository = (*mockCartRepo)(nil)
var _ repository.OrderRepository = (*mockOrderRepo)(nil)
var _ metrics.MetricsCollector = (*recordingCollector)(nil)

func validAddress() model.ShippingAddress {
	return model.ShippingAddress{
		FullName:     "山田太郎",
		Phone:        "0312345678",
		AddressLine1: "1-2-3 テスト町",
		City:         "テスト市",
		State:        "東京都",
		Pincode:      "123456",
	}
}

func singleLineCart(price int64, quantity int) []model.CartLine {
	return []model.CartLine{
		{
			CartItem: model.CartItem{ID: "line-1", UserID: "user-1", ProductID: "product-1", Quantity: quantity},
			Product:  &model.Product{ID: "product-1", Name: "テスト商品", Price: price},
		},
	}
}

func newTestService(cartRepo *mockCartRepo, orderRepo *mockOrderRepo) (*Service, *recordingCollector) {
	collector := &recordingCollector{}
	return NewService(cartRepo, orderRepo, cache.NewStore(), collector), collector
}

// --- テスト ---

func TestPlaceOrder_SingleLine_ComputesTotalAndSnapshot(t *testing.T) {
	// 価格5000×数量2の1行 → 注文合計10000、明細1件 {数量2, 価格5000}
	cartRepo := &mockCartRepo{
		listByUserIDFn: func(_ context.Context, _ string) ([]model.CartLine, error) {
			return singleLineCart(5000, 2), nil
		},
	}

	var gotOrder *model.Order
	var gotItems []model.OrderItem
	orderRepo := &mockOrderRepo{
		placeOrderFn: func(_ context.Context, order *model.Order, items []model.OrderItem) error {
			gotOrder = order
			gotItems = items
			return nil
		},
	}
	svc, collector := newTestService(cartRepo, orderRepo)

	order, err := svc.PlaceOrder(context.Background(), "user-1", validAddress())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotOrder.TotalAmount != 10000 {
		t.Errorf("TotalAmount = %d, want 10000", gotOrder.TotalAmount)
	}
	if gotOrder.Status != model.OrderStatusPending {
		t.Errorf("Status = %q, want %q", gotOrder.Status, model.OrderStatusPending)
	}
	if len(gotItems) != 1 {
		t.Fatalf("items = %d, want 1", len(gotItems))
	}
	if gotItems[0].Quantity != 2 {
		t.Errorf("item Quantity = %d, want 2", gotItems[0].Quantity)
	}
	if gotItems[0].Price != 5000 {
		t.Errorf("item Price = %d, want 5000", gotItems[0].Price)
	}
	if order.ID != gotOrder.ID {
		t.Error("returned order should be the persisted one")
	}
	if collector.placed != 1 {
		t.Errorf("orders placed = %d, want 1", collector.placed)
	}
}

func TestPlaceOrder_TotalMatchesItemSnapshots(t *testing.T) {
	// 注文合計は明細の price×quantity の総和と一致する
	cartRepo := &mockCartRepo{
		listByUserIDFn: func(_ context.Context, _ string) ([]model.CartLine, error) {
			return []model.CartLine{
				{
					CartItem: model.CartItem{ID: "l1", ProductID: "p1", Quantity: 2},
					Product:  &model.Product{ID: "p1", Price: 5000},
				},
				{
					CartItem: model.CartItem{ID: "l2", ProductID: "p2", Quantity: 3},
					Product:  &model.Product{ID: "p2", Price: 1200},
				},
			}, nil
		},
	}

	var gotOrder *model.Order
	var gotItems []model.OrderItem
	orderRepo := &mockOrderRepo{
		placeOrderFn: func(_ context.Context, order *model.Order, items []model.OrderItem) error {
			gotOrder = order
			gotItems = items
			return nil
		},
	}
	svc, _ := newTestService(cartRepo, orderRepo)

	if _, err := svc.PlaceOrder(context.Background(), "user-1", validAddress()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var sum int64
	for _, item := range gotItems {
		sum += item.Price * int64(item.Quantity)
	}
	if gotOrder.TotalAmount != sum {
		t.Errorf("TotalAmount = %d, want %d (sum of item snapshots)", gotOrder.TotalAmount, sum)
	}
}

func TestPlaceOrder_Unauthenticated_ReturnsAuthError(t *testing.T) {
	svc, _ := newTestService(&mockCartRepo{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), "", validAddress())
	assertAPIErrorCode(t, err, model.ErrCodeAuthenticationRequired)
}

func TestPlaceOrder_EmptyCart_ReturnsCartEmpty(t *testing.T) {
	svc, _ := newTestService(&mockCartRepo{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), "user-1", validAddress())
	assertAPIErrorCode(t, err, model.ErrCodeCartEmpty)
}

func TestPlaceOrder_InvalidPhone_ReturnsValidationError(t *testing.T) {
	svc, _ := newTestService(&mockCartRepo{}, &mockOrderRepo{})

	for _, phone := range []string{"", "123", "12345678901", "03-1234-567"} {
		addr := validAddress()
		addr.Phone = phone

		_, err := svc.PlaceOrder(context.Background(), "user-1", addr)
		assertAPIErrorCode(t, err, model.ErrCodeValidation)
	}
}

func TestPlaceOrder_InvalidPincode_ReturnsValidationError(t *testing.T) {
	svc, _ := newTestService(&mockCartRepo{}, &mockOrderRepo{})

	for _, pincode := range []string{"", "12345", "1234567", "12a456"} {
		addr := validAddress()
		addr.Pincode = pincode

		_, err := svc.PlaceOrder(context.Background(), "user-1", addr)
		assertAPIErrorCode(t, err, model.ErrCodeValidation)
	}
}

func TestPlaceOrder_ExactLengths_Accepted(t *testing.T) {
	cartRepo := &mockCartRepo{
		listByUserIDFn: func(_ context.Context, _ string) ([]model.CartLine, error) {
			return singleLineCart(1000, 1), nil
		},
	}
	svc, _ := newTestService(cartRepo, &mockOrderRepo{})

	// 電話10桁・郵便番号6桁ちょうどは通る
	if _, err := svc.PlaceOrder(context.Background(), "user-1", validAddress()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestPlaceOrder_MissingRequiredField_NamesFirstViolation(t *testing.T) {
	svc, _ := newTestService(&mockCartRepo{}, &mockOrderRepo{})

	addr := validAddress()
	addr.FullName = ""

	_, err := svc.PlaceOrder(context.Background(), "user-1", addr)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeValidation {
		t.Fatalf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
	}
	// 最初に違反したフィールド名がメッセージに含まれる
	if want := "FullName"; !strings.Contains(apiErr.Message, want) {
		t.Errorf("Message %q should name field %q", apiErr.Message, want)
	}
}

func TestPlaceOrder_OptionalAddressLine2_NotRequired(t *testing.T) {
	cartRepo := &mockCartRepo{
		listByUserIDFn: func(_ context.Context, _ string) ([]model.CartLine, error) {
			return singleLineCart(1000, 1), nil
		},
	}
	svc, _ := newTestService(cartRepo, &mockOrderRepo{})

	addr := validAddress()
	addr.AddressLine2 = ""

	if _, err := svc.PlaceOrder(context.Background(), "user-1", addr); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestPlaceOrder_StageFailures_MapToDistinctCodes(t *testing.T) {
	tests := []struct {
		sentinel  error
		wantCode  string
		wantStage string
	}{
		{repository.ErrOrderInsert, model.ErrCodeOrderCreationFailed, "order_insert"},
		{repository.ErrOrderItemsInsert, model.ErrCodeOrderItemsFailed, "order_items_insert"},
		{repository.ErrCartClear, model.ErrCodeCartClearFailed, "cart_clear"},
	}

	for _, tt := range tests {
		cartRepo := &mockCartRepo{
			listByUserIDFn: func(_ context.Context, _ string) ([]model.CartLine, error) {
				return singleLineCart(1000, 1), nil
			},
		}
		orderRepo := &mockOrderRepo{
			placeOrderFn: func(_ context.Context, _ *model.Order, _ []model.OrderItem) error {
				return fmt.Errorf("%w: boom", tt.sentinel)
			},
		}
		svc, collector := newTestService(cartRepo, orderRepo)

		_, err := svc.PlaceOrder(context.Background(), "user-1", validAddress())
		assertAPIErrorCode(t, err, tt.wantCode)

		if len(collector.failures) != 1 || collector.failures[0] != tt.wantStage {
			t.Errorf("failures = %v, want [%s]", collector.failures, tt.wantStage)
		}
	}
}

func TestPlaceOrder_StageFailures_ShareGenericUserMessage(t *testing.T) {
	// 段階はコードでのみ区別され、ユーザー向けメッセージは同一
	messages := make(map[string]bool)
	for _, sentinel := range []error{repository.ErrOrderInsert, repository.ErrOrderItemsInsert, repository.ErrCartClear} {
		cartRepo := &mockCartRepo{
			listByUserIDFn: func(_ context.Context, _ string) ([]model.CartLine, error) {
				return singleLineCart(1000, 1), nil
			},
		}
		orderRepo := &mockOrderRepo{
			placeOrderFn: func(_ context.Context, _ *model.Order, _ []model.OrderItem) error {
				return fmt.Errorf("%w: boom", sentinel)
			},
		}
		svc, _ := newTestService(cartRepo, orderRepo)

		_, err := svc.PlaceOrder(context.Background(), "user-1", validAddress())
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %T", err)
		}
		messages[apiErr.Message] = true
	}

	if len(messages) != 1 {
		t.Errorf("expected one shared user message, got %d distinct: %v", len(messages), messages)
	}
}

func TestListOrders_ReturnsHistory(t *testing.T) {
	orderRepo := &mockOrderRepo{
		listByUserIDFn: func(_ context.Context, userID string) ([]model.OrderWithItems, error) {
			return []model.OrderWithItems{
				{Order: model.Order{ID: "order-1", UserID: userID, TotalAmount: 10000}},
			}, nil
		},
	}
	svc, _ := newTestService(&mockCartRepo{}, orderRepo)

	orders, err := svc.ListOrders(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "order-1" {
		t.Errorf("unexpected orders: %+v", orders)
	}
}

// --- ヘルパー ---

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("Code = %q, want %q", apiErr.Code, wantCode)
	}
}
