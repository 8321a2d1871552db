package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/lumina/internal/cache"
	"github.com/hitoshi/lumina/internal/metrics"
	"github.com/hitoshi/lumina/internal/middleware"
)

// HealthChecker はDB接続の死活確認インターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	StatusObserver    middleware.StatusObserver
	Gatherer          prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	Override    OverrideTokenIssuer
	AuthConfig  AuthHandlerConfig

	// カタログ
	CatalogService CatalogServiceInterface

	// カート・ウィッシュリスト・チェックアウト
	CartService     CartServiceInterface
	WishlistService WishlistServiceInterface
	CheckoutService CheckoutServiceInterface

	// 管理画面
	GuardResolver    middleware.GuardResolver
	AdminGuardConfig middleware.AdminGuardConfig
	AdminCatalog     AdminCatalogService
	AdminSnapshots   AdminSnapshotSource
	Store            *cache.Store
	Realtime         RealtimeStarter
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → CSRF
//	→ (認証ルート) Session → RateLimit(General)
//	→ (管理ルート) AdminGuard → EnsureRealtime
//
// 認証ルート（/auth/*）と公開カタログはセッション必須チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default(), deps.StatusObserver))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.Override, deps.AuthConfig)
	catalogHandler := NewCatalogHandler(deps.CatalogService)
	cartHandler := NewCartHandler(deps.CartService)
	wishlistHandler := NewWishlistHandler(deps.WishlistService)
	orderHandler := NewOrderHandler(deps.CheckoutService)
	adminHandler := NewAdminHandler(deps.AdminCatalog, deps.AdminSnapshots, deps.Store, deps.Realtime)

	adminGuard := middleware.NewAdminGuardMiddleware(deps.GuardResolver, deps.AdminGuardConfig)

	// --- 運用エンドポイント ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.Gatherer))
	}

	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証ルート ---

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/signout", authHandler.SignOut)
		r.Get("/me", authHandler.Me)
	})

	// --- 公開カタログルート ---
	// セッションがあればユーザーIDを注入するが、匿名でも閲覧できる。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))

		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Get("/featured", catalogHandler.ListFeatured)
			r.Get("/trending", catalogHandler.ListTrending)
			r.Get("/{slug}", catalogHandler.GetProduct)
		})

		r.Get("/api/categories", catalogHandler.ListCategories)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// カート
		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", cartHandler.ListCart)
			r.Get("/count", cartHandler.Count)
			r.Post("/", cartHandler.AddToCart)
			r.Patch("/{id}", cartHandler.UpdateQuantity)
			r.Delete("/{id}", cartHandler.RemoveItem)
		})

		// ウィッシュリスト
		r.Route("/api/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.List)
			r.Post("/toggle", wishlistHandler.Toggle)
		})

		// チェックアウト（専用レート制限を追加）
		r.With(deps.RateLimiter.CheckoutMiddleware()).Post("/api/checkout", orderHandler.Checkout)

		// 注文履歴
		r.Get("/api/orders", orderHandler.ListOrders)
	})

	// --- 管理ルート ---
	// ミドルウェアスタック: AdminGuard → EnsureRealtime
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminGuard)
		r.Use(adminHandler.EnsureRealtimeMiddleware())

		r.Get("/products", adminHandler.ListProducts)
		r.Post("/products", adminHandler.CreateProduct)
		r.Put("/products/{id}", adminHandler.UpdateProduct)
		r.Get("/categories", adminHandler.ListCategories)
		r.Post("/categories", adminHandler.CreateCategory)
		r.Get("/orders", adminHandler.ListOrders)
		r.Get("/profiles", adminHandler.ListProfiles)
	})

	// 未登録パスのうち管理画面配下のものはガードを通してから404にする。
	// 深い管理パスが判定なしの素通し404にならないようにする。
	r.NotFound(middleware.NewAdminPathFallback(adminGuard(http.NotFoundHandler())))

	return r
}

// newHealthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
				})
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
