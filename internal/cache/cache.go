// Package cache はキー単位で無効化できる読み取りキャッシュを提供する。
//
// リアルタイム同期マネージャーがテーブル単位の変更通知を受けてInvalidateを
// 呼び、各サービスのキャッシュ経由読み取り（Do）が次回アクセス時に再取得する。
// ペイロードの差分は扱わず、無効化は常に全再取得を強制する。
package cache

import (
	"context"
	"sync"
)

// entry はキャッシュ済みの値を保持する。
type entry struct {
	value any
}

// Store はキー単位の世代管理付きキャッシュ。
// Invalidateはキーの世代を進めるだけで、読み込み中の古い結果は
// 世代不一致により破棄される（stale-write discard）。
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	gens    map[string]uint64
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		gens:    make(map[string]uint64),
	}
}

// Get はキャッシュ済みの値を返す。キャッシュがない場合は (nil, false)。
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Invalidate は指定キーのキャッシュを破棄し、世代を進める。
// 進んだ世代より前に開始された読み込みの完了報告は以後無視される。
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	s.gens[key]++
}

// generation は現在の世代を返す。
func (s *Store) generation(key string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gens[key]
}

// complete は読み込み完了を報告する。開始時の世代が現在と一致する場合のみ
// 値を格納し、無効化をまたいだ古い結果は黙って破棄する。
func (s *Store) complete(key string, gen uint64, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key] != gen {
		return
	}
	s.entries[key] = &entry{value: value}
}

// Do はキャッシュ済みの値があればそれを返し、なければloaderで取得して
// キャッシュする。loader実行中にInvalidateが走った場合、取得結果は
// 呼び出し元には返すがキャッシュには格納しない。
// コンテキストが既にキャンセルされている場合も格納しない
// （ビュー破棄後に到着した遅延レスポンスはエラーではなくno-opとして扱う）。
func (s *Store) Do(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	gen := s.generation(key)
	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	if ctx.Err() == nil {
		s.complete(key, gen, v)
	}
	return v, nil
}
