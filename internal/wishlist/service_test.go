package wishlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/lumina/internal/metrics"
	"github.com/hitoshi/lumina/internal/model"
	"github.com/hitoshi/lumina/internal/repository"
)

// --- モック定義 ---

// memoryWishlistRepo はメンバーシップをメモリ上で管理するテスト用リポジトリ。
type memoryWishlistRepo struct {
	mu      sync.Mutex
	members map[string]bool // "userID:productID" → membership
}

func newMemoryWishlistRepo() *memoryWishlistRepo {
	return &memoryWishlistRepo{members: make(map[string]bool)}
}

func (m *memoryWishlistRepo) key(userID, productID string) string {
	return userID + ":" + productID
}

func (m *memoryWishlistRepo) ListByUserID(_ context.Context, _ string) ([]model.WishlistEntry, error) {
	return nil, nil
}

func (m *memoryWishlistRepo) Exists(_ context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[m.key(userID, productID)], nil
}

func (m *memoryWishlistRepo) Create(_ context.Context, item *model.WishlistItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[m.key(item.UserID, item.ProductID)] = true
	return nil
}

func (m *memoryWishlistRepo) DeleteByUserAndProduct(_ context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(userID, productID)
	existed := m.members[k]
	delete(m.members, k)
	return existed, nil
}

type mockProductRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Product, error)
}

func (m *mockProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.Product{ID: id, Name: "テスト商品", Price: 1000}, nil
}

func (m *mockProductRepo) FindBySlug(_ context.Context, _ string) (*model.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) List(_ context.Context, _ model.ProductFilter) ([]*model.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) ListFeatured(_ context.Context) ([]*model.Product, error) { return nil, nil }
func (m *mockProductRepo) ListTrending(_ context.Context) ([]*model.Product, error) { return nil, nil }
func (m *mockProductRepo) Create(_ context.Context, _ *model.Product) error         { return nil }
func (m *mockProductRepo) Update(_ context.Context, _ *model.Product) error         { return nil }

type nopCollector struct{}

func (nopCollector) RecordOrderPlaced(_ int64)             {}
func (nopCollector) RecordOrderFailure(_ string)           {}
func (nopCollector) RecordCartMutation(_ string)           {}
func (nopCollector) RecordWishlistToggle(_ bool)           {}
func (nopCollector) RecordCacheInvalidation(_ string)      {}
func (nopCollector) RecordCheckoutLatency(_ time.Duration) {}
func (nopCollector) RecordOrphanedOrdersSwept(_ int)       {}
func (nopCollector) ObserveHTTPStatus(_ int)               {}

// --- compile-time interface checks ---
var _ repository.WishlistRepository = (*memoryWishlistRepo)(nil)
var _ repository.ProductRepository = (*mockProductRepo)(nil)
var _ metrics.MetricsCollector = nopCollector{}

// --- テスト ---

func TestToggle_NonMember_Adds(t *testing.T) {
	repo := newMemoryWishlistRepo()
	svc := NewService(repo, &mockProductRepo{}, nopCollector{})

	added, err := svc.Toggle(context.Background(), "user-1", "product-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !added {
		t.Error("toggle of non-member should add")
	}

	exists, _ := repo.Exists(context.Background(), "user-1", "product-1")
	if !exists {
		t.Error("membership should be persisted")
	}
}

func TestToggle_Member_Removes(t *testing.T) {
	repo := newMemoryWishlistRepo()
	repo.members["user-1:product-1"] = true
	svc := NewService(repo, &mockProductRepo{}, nopCollector{})

	added, err := svc.Toggle(context.Background(), "user-1", "product-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if added {
		t.Error("toggle of member should remove")
	}

	exists, _ := repo.Exists(context.Background(), "user-1", "product-1")
	if exists {
		t.Error("membership should be removed")
	}
}

func TestToggle_Twice_RestoresOriginalMembership(t *testing.T) {
	// 2回の逐次トグルは元のメンバーシップに戻る
	repo := newMemoryWishlistRepo()
	svc := NewService(repo, &mockProductRepo{}, nopCollector{})

	// 非メンバーから開始
	svc.Toggle(context.Background(), "user-1", "product-1")
	svc.Toggle(context.Background(), "user-1", "product-1")

	exists, _ := repo.Exists(context.Background(), "user-1", "product-1")
	if exists {
		t.Error("double toggle from non-member should end as non-member")
	}

	// メンバーから開始
	repo.members["user-1:product-2"] = true
	svc.Toggle(context.Background(), "user-1", "product-2")
	svc.Toggle(context.Background(), "user-1", "product-2")

	exists, _ = repo.Exists(context.Background(), "user-1", "product-2")
	if !exists {
		t.Error("double toggle from member should end as member")
	}
}

func TestToggle_ConcurrentSamePair_Serialized(t *testing.T) {
	// 同一ペアの同時トグルは直列化され、偶数回で必ず元に戻る
	repo := newMemoryWishlistRepo()
	svc := NewService(repo, &mockProductRepo{}, nopCollector{})

	const rounds = 10 // 偶数
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Toggle(context.Background(), "user-1", "product-1"); err != nil {
				t.Errorf("toggle failed: %v", err)
			}
		}()
	}
	wg.Wait()

	exists, _ := repo.Exists(context.Background(), "user-1", "product-1")
	if exists {
		t.Error("even number of serialized toggles should restore non-membership")
	}
}

func TestToggle_Unauthenticated_ReturnsAuthError(t *testing.T) {
	svc := NewService(newMemoryWishlistRepo(), &mockProductRepo{}, nopCollector{})

	_, err := svc.Toggle(context.Background(), "", "product-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeAuthenticationRequired {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeAuthenticationRequired)
	}
}

func TestToggle_UnknownProduct_ReturnsProductNotFound(t *testing.T) {
	productRepo := &mockProductRepo{
		findByIDFn: func(_ context.Context, _ string) (*model.Product, error) {
			return nil, nil
		},
	}
	svc := NewService(newMemoryWishlistRepo(), productRepo, nopCollector{})

	_, err := svc.Toggle(context.Background(), "user-1", "no-such-product")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeProductNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeProductNotFound)
	}
}

func TestContains_AnonymousUser_ReturnsFalse(t *testing.T) {
	svc := NewService(newMemoryWishlistRepo(), &mockProductRepo{}, nopCollector{})

	exists, err := svc.Contains(context.Background(), "", "product-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if exists {
		t.Error("anonymous user should never be a member")
	}
}
