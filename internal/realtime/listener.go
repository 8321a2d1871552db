// Package realtime はテーブル変更通知をキャッシュ無効化に変換する
// リアルタイム同期マネージャーを提供する。
//
// 変更の検知にはPostgresのLISTEN/NOTIFYを使う。各監視テーブルには
// AFTERトリガーが張られており、行の変更があると `<table>_changed`
// チャンネルに空ペイロードの通知が飛ぶ。ペイロードの差分は扱わず、
// 通知は常に該当テーブルの読み取りキャッシュの全再取得を強制する。
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
)

// channelSuffix は通知チャンネル名のサフィックス。
// マイグレーションのnotify_table_changed()トリガー関数と対応する。
const channelSuffix = "_changed"

// EventSource はテーブル変更イベントの供給源。
type EventSource interface {
	// Start は購読を開始する。二重開始はエラー。
	Start(ctx context.Context) error
	// Events は変更のあったテーブル名を届けるチャンネルを返す。
	Events() <-chan string
	// Close は購読を終了しEventsチャンネルを閉じる。
	Close() error
}

// PostgresSource はpq.Listenerを使ったEventSourceの実装。
// 接続断は pq.Listener が自動で再接続する。
type PostgresSource struct {
	dsn    string
	tables []string

	mu       sync.Mutex
	listener *pq.Listener
	events   chan string
	started  bool
}

// NewPostgresSource はPostgresSourceを生成する。
// tablesには監視対象のテーブル名を指定する。
func NewPostgresSource(dsn string, tables []string) *PostgresSource {
	return &PostgresSource{
		dsn:    dsn,
		tables: tables,
		events: make(chan string, 16),
	}
}

// Start は各テーブルの通知チャンネルをLISTENし、中継を開始する。
func (p *PostgresSource) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("postgres source already started")
	}

	listener := pq.NewListener(p.dsn, 10*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			slog.Error("postgres listener event",
				slog.Int("event", int(event)),
				slog.String("error", err.Error()),
			)
		}
	})

	for _, table := range p.tables {
		if err := listener.Listen(table + channelSuffix); err != nil {
			listener.Close()
			return fmt.Errorf("failed to listen on %s%s: %w", table, channelSuffix, err)
		}
	}

	p.listener = listener
	p.started = true

	go p.relay(ctx)

	slog.Info("realtime listener started",
		slog.Int("table_count", len(p.tables)),
	)
	return nil
}

// Events は変更テーブル名のチャンネルを返す。
func (p *PostgresSource) Events() <-chan string {
	return p.events
}

// Close は購読を終了する。relayゴルーチンがEventsチャンネルを閉じる。
func (p *PostgresSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return nil
	}
	return p.listener.Close()
}

// relay は通知をテーブル名に変換してEventsへ中継する。
// コンテキストのキャンセルまたはリスナーの終了で停止する。
func (p *PostgresSource) relay(ctx context.Context) {
	defer close(p.events)

	// 長時間通知がない場合の接続確認
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Close()
			return
		case n, ok := <-p.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// 再接続直後はnilが届く。見逃した変更があり得るため全テーブル分流す。
				for _, table := range p.tables {
					p.send(ctx, table)
				}
				continue
			}
			p.send(ctx, strings.TrimSuffix(n.Channel, channelSuffix))
		case <-ping.C:
			if err := p.listener.Ping(); err != nil {
				slog.Error("realtime listener ping failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (p *PostgresSource) send(ctx context.Context, table string) {
	select {
	case p.events <- table:
	case <-ctx.Done():
	}
}
