// Package storetest はstoreパッケージを使うテストのためのヘルパーを提供する。
package storetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nao1215/overlay/pkg/store"
	_ "modernc.org/sqlite"
)

// SQLiteSchema はテスト用のSQLiteスキーマ。本番のPostgreSQLと同じ列構成を持つ。
// ttl_days の既定値は30日とする。
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS memory_tiers (
    entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
    memory_hash TEXT NOT NULL,
    tier TEXT NOT NULL CHECK (tier IN ('Q', 'W', 'S')),
    ttl_days INTEGER DEFAULT 30,
    content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cc_evidence (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
);
`

// DefaultTTLDays は SQLiteSchema における ttl_days の既定値。
const DefaultTTLDays = 30

// NewSQLite は一時ディレクトリにSQLiteデータベースを作成し、そのDSNを返す。
// 接続ごとに別のデータベースになるインメモリではなくファイルを使う。
func NewSQLite(t *testing.T) string {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "overlay.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("SQLiteの接続に失敗: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(SQLiteSchema); err != nil {
		t.Fatalf("スキーマの適用に失敗: %v", err)
	}
	return dsn
}

// NewGateway はSQLiteを使うstore.Gatewayを生成する。
func NewGateway(t *testing.T) (*store.Gateway, string) {
	t.Helper()
	dsn := NewSQLite(t)
	return store.NewGateway(store.NewSQLProvider("sqlite", dsn)), dsn
}

// Stub は呼び出し回数を記録するストアのスタブ。
// 各フィールドの関数が未設定の場合はゼロ値を返す。
type Stub struct {
	LookupByHashFunc       func(ctx context.Context, memoryHash string) (*store.MemoryTierEntry, error)
	ListEvidenceByTaskFunc func(ctx context.Context, taskID string, limit int) ([]store.EvidenceRecord, error)
	InsertMemoryTierFunc   func(ctx context.Context, in store.MemoryTierInput) (string, error)
	AppendEvidenceFunc     func(ctx context.Context, in store.EvidenceInput) (string, error)

	mu    sync.Mutex
	calls int
	// LastLimit は最後に ListEvidenceByTask に渡されたlimit。
	LastLimit int
	// LastMemoryTier は最後に InsertMemoryTier に渡された入力。
	LastMemoryTier store.MemoryTierInput
	// LastEvidence は最後に AppendEvidence に渡された入力。
	LastEvidence store.EvidenceInput
}

// Calls はいずれかの操作が呼ばれた合計回数を返す。
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Stub) record(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	fn()
}

// LookupByHash は reader.Store を実装する。
func (s *Stub) LookupByHash(ctx context.Context, memoryHash string) (*store.MemoryTierEntry, error) {
	s.record(func() {})
	if s.LookupByHashFunc == nil {
		return nil, nil
	}
	return s.LookupByHashFunc(ctx, memoryHash)
}

// ListEvidenceByTask は reader.Store を実装する。
func (s *Stub) ListEvidenceByTask(ctx context.Context, taskID string, limit int) ([]store.EvidenceRecord, error) {
	s.record(func() { s.LastLimit = limit })
	if s.ListEvidenceByTaskFunc == nil {
		return []store.EvidenceRecord{}, nil
	}
	return s.ListEvidenceByTaskFunc(ctx, taskID, limit)
}

// InsertMemoryTier は writer.Store を実装する。
func (s *Stub) InsertMemoryTier(ctx context.Context, in store.MemoryTierInput) (string, error) {
	s.record(func() { s.LastMemoryTier = in })
	if s.InsertMemoryTierFunc == nil {
		return "stub-entry", nil
	}
	return s.InsertMemoryTierFunc(ctx, in)
}

// AppendEvidence は writer.Store を実装する。
func (s *Stub) AppendEvidence(ctx context.Context, in store.EvidenceInput) (string, error) {
	s.record(func() { s.LastEvidence = in })
	if s.AppendEvidenceFunc == nil {
		return "stub-evidence", nil
	}
	return s.AppendEvidenceFunc(ctx, in)
}
