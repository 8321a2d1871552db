package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/lumina/internal/cache"
	"github.com/hitoshi/lumina/internal/metrics"
)

// Manager はテーブル変更イベントを対応するキャッシュキーの無効化に変換する。
//
// 購読のライフサイクルは開始時に渡されたコンテキストが所有する。
// EnsureStartedは冪等で、再入しても購読が重複して蓄積することはない。
// コンテキストのキャンセルで購読は必ず解放される。
type Manager struct {
	source    EventSource
	store     *cache.Store
	collector metrics.MetricsCollector
	keys      map[string][]string // テーブル名 → 無効化するキャッシュキー

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewManager はManagerを生成する。
// keysはテーブル名から無効化対象キャッシュキーへの対応表。
func NewManager(source EventSource, store *cache.Store, collector metrics.MetricsCollector, keys map[string][]string) *Manager {
	return &Manager{
		source:    source,
		store:     store,
		collector: collector,
		keys:      keys,
	}
}

// EnsureStarted は購読を開始する。既に稼働中なら何もしない。
// ctxのキャンセルで購読は終了し、以後のEnsureStartedは再び開始できる。
func (m *Manager) EnsureStarted(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	if err := m.source.Start(ctx); err != nil {
		return err
	}

	m.running = true
	m.done = make(chan struct{})
	go m.loop(ctx)

	return nil
}

// Running は購読が稼働中かを返す。
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Wait は購読ループの終了を待つ。稼働していない場合は即座に返る。
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// loop はイベントを消費してキャッシュを無効化する。
// コンテキストのキャンセルまたはイベント供給の終了で停止し、
// 購読の解放を保証する。
func (m *Manager) loop(ctx context.Context) {
	defer func() {
		m.source.Close()
		m.mu.Lock()
		m.running = false
		close(m.done)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("realtime sync stopped")
			return
		case table, ok := <-m.source.Events():
			if !ok {
				slog.Info("realtime sync source closed")
				return
			}
			m.invalidate(table)
		}
	}
}

// invalidate はテーブルに対応するキャッシュキーをすべて破棄する。
// 対応表にないテーブルの通知は無視する。
func (m *Manager) invalidate(table string) {
	keys, ok := m.keys[table]
	if !ok {
		return
	}

	for _, key := range keys {
		m.store.Invalidate(key)
	}
	m.collector.RecordCacheInvalidation(table)

	slog.Debug("cache invalidated by change notification",
		slog.String("table", table),
		slog.Int("key_count", len(keys)),
	)
}
