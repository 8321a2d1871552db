// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ワーカー・リアルタイム同期マネージャーから利用する。
type MetricsCollector interface {
	RecordOrderPlaced(totalAmount int64)
	RecordOrderFailure(stage string)
	RecordCartMutation(op string)
	RecordWishlistToggle(added bool)
	RecordCacheInvalidation(table string)
	RecordCheckoutLatency(duration time.Duration)
	RecordOrphanedOrdersSwept(count int)
	ObserveHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ordersPlaced       prometheus.Counter
	orderAmount        prometheus.Counter
	orderFailures      *prometheus.CounterVec
	cartMutations      *prometheus.CounterVec
	wishlistToggles    *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	checkoutLatency    prometheus.Histogram
	orphansSwept       prometheus.Counter
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumina_orders_placed_total",
			Help: "確定した注文の合計数",
		}),
		orderAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumina_order_amount_total",
			Help: "確定した注文金額の合計（最小通貨単位）",
		}),
		orderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumina_order_failures_total",
			Help: "チェックアウト失敗の段階別合計数",
		}, []string{"stage"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumina_cart_mutations_total",
			Help: "カート変更操作の種類別合計数",
		}, []string{"op"}),
		wishlistToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumina_wishlist_toggles_total",
			Help: "ウィッシュリストトグルの方向別合計数",
		}, []string{"direction"}),
		cacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumina_cache_invalidations_total",
			Help: "変更通知によるキャッシュ無効化のテーブル別合計数",
		}, []string{"table"}),
		checkoutLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lumina_checkout_latency_seconds",
			Help:    "チェックアウトトランザクションのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		orphansSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lumina_orphaned_orders_swept_total",
			Help: "掃除された明細なし注文の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lumina_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.ordersPlaced,
		c.orderAmount,
		c.orderFailures,
		c.cartMutations,
		c.wishlistToggles,
		c.cacheInvalidations,
		c.checkoutLatency,
		c.orphansSwept,
		c.httpStatus,
	)

	return c
}

// RecordOrderPlaced は注文確定を記録する。
func (c *Collector) RecordOrderPlaced(totalAmount int64) {
	c.ordersPlaced.Inc()
	c.orderAmount.Add(float64(totalAmount))
}

// RecordOrderFailure はチェックアウト失敗を段階別に記録する。
// stageは"order_insert"、"order_items_insert"、"cart_clear"のいずれか。
func (c *Collector) RecordOrderFailure(stage string) {
	c.orderFailures.WithLabelValues(stage).Inc()
}

// RecordCartMutation はカート変更操作を記録する。
// opは"add"、"update_quantity"、"remove"のいずれか。
func (c *Collector) RecordCartMutation(op string) {
	c.cartMutations.WithLabelValues(op).Inc()
}

// RecordWishlistToggle はウィッシュリストトグルを方向別に記録する。
func (c *Collector) RecordWishlistToggle(added bool) {
	direction := "removed"
	if added {
		direction = "added"
	}
	c.wishlistToggles.WithLabelValues(direction).Inc()
}

// RecordCacheInvalidation は変更通知によるキャッシュ無効化を記録する。
func (c *Collector) RecordCacheInvalidation(table string) {
	c.cacheInvalidations.WithLabelValues(table).Inc()
}

// RecordCheckoutLatency はチェックアウトのレイテンシを記録する。
func (c *Collector) RecordCheckoutLatency(duration time.Duration) {
	c.checkoutLatency.Observe(duration.Seconds())
}

// RecordOrphanedOrdersSwept は掃除された明細なし注文数を記録する。
func (c *Collector) RecordOrphanedOrdersSwept(count int) {
	c.orphansSwept.Add(float64(count))
}

// ObserveHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) ObserveHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
