// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/lumina/internal/auth"
	"github.com/hitoshi/lumina/internal/cache"
	"github.com/hitoshi/lumina/internal/cart"
	"github.com/hitoshi/lumina/internal/catalog"
	"github.com/hitoshi/lumina/internal/checkout"
	"github.com/hitoshi/lumina/internal/config"
	"github.com/hitoshi/lumina/internal/database"
	"github.com/hitoshi/lumina/internal/handler"
	"github.com/hitoshi/lumina/internal/logger"
	"github.com/hitoshi/lumina/internal/metrics"
	"github.com/hitoshi/lumina/internal/middleware"
	"github.com/hitoshi/lumina/internal/realtime"
	"github.com/hitoshi/lumina/internal/repository"
	"github.com/hitoshi/lumina/internal/security"
	"github.com/hitoshi/lumina/internal/wishlist"
	"github.com/hitoshi/lumina/internal/worker/cleanup"
)

// watchedTables はリアルタイム同期が監視するテーブルと、変更時に
// 無効化するキャッシュキーの対応。
var watchedTables = map[string][]string{
	"products": {
		catalog.KeyProducts,
		catalog.KeyProductsFeatured,
		catalog.KeyProductsTrending,
		handler.KeyAdminProducts,
	},
	"categories": {
		catalog.KeyCategories,
		handler.KeyAdminCategories,
	},
	"orders": {
		handler.KeyAdminOrders,
	},
	"profiles": {
		handler.KeyAdminProfiles,
	},
}

// Init はアプリケーションの初期化を行う。
// .envファイル（存在する場合）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envファイルは任意。なければ環境変数のみで動く。
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env file")
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// realtimeStarter はリアルタイム同期マネージャーをアプリケーション寿命の
// コンテキストで起動するアダプタ。リクエストコンテキストで起動すると
// リクエスト完了と同時に購読が破棄されてしまうため、ここで差し替える。
type realtimeStarter struct {
	ctx     context.Context
	manager *realtime.Manager
}

func (s *realtimeStarter) EnsureStarted(context.Context) error {
	return s.manager.EnsureStarted(s.ctx)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	cartRepo := repository.NewPostgresCartRepo(db)
	wishlistRepo := repository.NewPostgresWishlistRepo(db)
	orderRepo := repository.NewPostgresOrderRepo(db)

	// 3. キャッシュとメトリクス
	store := cache.NewStore()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(profileRepo, sessionRepo, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})

	sanitizer := security.NewContentSanitizer()
	catalogService := catalog.NewService(productRepo, categoryRepo, store, sanitizer)
	cartService := cart.NewService(cartRepo, productRepo, store, collector)
	wishlistService := wishlist.NewService(wishlistRepo, productRepo, collector)
	checkoutService := checkout.NewService(cartRepo, orderRepo, store, collector)

	// 5. 管理者ガードとオーバーライド発行者
	// オーバーライドはスイッチが有効な場合のみ構築する。発行者が存在
	// しなければバイパス経路全体が無効になる。
	var overrideIssuer *auth.OverrideIssuer
	if cfg.AdminOverrideEnabled {
		overrideIssuer = auth.NewOverrideIssuer(cfg.AdminOverrideSecret, cfg.AdminOverrideTTL)
		slog.Warn("admin override bypass is enabled; do not use in production")
	}
	guard := auth.NewGuard(authService, overrideIssuer)

	// 6. リアルタイム同期（管理画面への最初のアクセスで遅延起動）
	realtimeCtx, cancelRealtime := context.WithCancel(context.Background())
	defer cancelRealtime()

	tables := make([]string, 0, len(watchedTables))
	for table := range watchedTables {
		tables = append(tables, table)
	}
	source := realtime.NewPostgresSource(cfg.DatabaseURL, tables)
	manager := realtime.NewManager(source, store, collector, watchedTables)

	// 7. レート制限
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitCheckout),
	)
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionFinder:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		StatusObserver: collector,
		Gatherer:       registry,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		CatalogService:  catalogService,
		CartService:     cartService,
		WishlistService: wishlistService,
		CheckoutService: checkoutService,

		GuardResolver: guard,
		AdminGuardConfig: middleware.AdminGuardConfig{
			SignInURL:  cfg.BaseURL + "/signin",
			LandingURL: cfg.BaseURL + "/",
		},
		AdminCatalog:   catalogService,
		AdminSnapshots: handler.NewAdminSnapshotAdapter(productRepo, categoryRepo, orderRepo, profileRepo),
		Store:          store,
		Realtime:       &realtimeStarter{ctx: realtimeCtx, manager: manager},
	}

	if overrideIssuer != nil {
		deps.Override = overrideIssuer
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// リアルタイム同期が動いていれば購読を破棄して停止を待つ
	cancelRealtime()
	if manager.Running() {
		manager.Wait()
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、クリーンアップジョブを日次で実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. メトリクスとクリーンアップジョブの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), collector)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("orphan_retention", cleanupJob.OrphanRetention),
	)

	// 起動直後に1回実行し、以降は日次で実行する
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
