// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッションと、明細を持たないまま残った古い注文レコードを
// 日次バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/lumina/internal/metrics"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
//
// 注文作成は単一トランザクションで行われるため明細なしの注文は通常
// 発生しないが、障害時の残骸を掃き出す安全網として孤児注文の掃除も行う。
type CleanupJob struct {
	db        Executor
	logger    *slog.Logger
	collector metrics.MetricsCollector

	// OrphanRetention は明細なし注文を孤児とみなすまでの猶予（デフォルト: 24時間）。
	// 作成直後の注文を誤って消さないための猶予であり、短くしすぎないこと。
	OrphanRetention time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger, collector metrics.MetricsCollector) *CleanupJob {
	return &CleanupJob{
		db:              db,
		logger:          logger,
		collector:       collector,
		OrphanRetention: 24 * time.Hour,
	}
}

// Run は期限切れセッションと孤児注文を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	expiredSessions, err := j.deleteExpiredSessions(ctx)
	if err != nil {
		return err
	}

	orphanedOrders, err := j.deleteOrphanedOrders(ctx)
	if err != nil {
		return err
	}

	if j.collector != nil && orphanedOrders > 0 {
		j.collector.RecordOrphanedOrdersSwept(int(orphanedOrders))
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("expired_sessions", expiredSessions),
		slog.Int64("orphaned_orders", orphanedOrders),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// deleteExpiredSessions は有効期限を過ぎたセッションを削除する。
func (j *CleanupJob) deleteExpiredSessions(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return deleted, nil
}

// deleteOrphanedOrders は猶予期間を過ぎても明細を持たない注文を削除する。
func (j *CleanupJob) deleteOrphanedOrders(ctx context.Context) (int64, error) {
	interval := fmt.Sprintf("%d hours", int(j.OrphanRetention.Hours()))

	query := `DELETE FROM orders
		WHERE created_at < now() - $1::interval
		AND NOT EXISTS (
			SELECT 1 FROM order_items WHERE order_items.order_id = orders.id
		)`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("孤児注文の削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("孤児注文の削除に失敗: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	if deleted > 0 {
		j.logger.Warn("明細なしの注文を削除しました",
			slog.Int64("count", deleted),
		)
	}
	return deleted, nil
}
