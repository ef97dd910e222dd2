package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoRows は単一行の取得で行が見つからなかったことを表す。
var ErrNoRows = errors.New("no rows in result set")

// Row は単一行の取得結果。
type Row interface {
	Scan(dest ...any) error
}

// Rows は複数行の取得結果。Closeは何度呼んでもよい。
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier は1本の接続上でSQL文を実行する。
type Querier interface {
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Provider はリクエストにスコープされた接続を提供する。
// WithConnはfnの実行中だけ接続を保持し、fnがエラーを返した場合や
// パニックした場合も含めて、戻る前に必ず接続を解放する。
type Provider interface {
	WithConn(ctx context.Context, fn func(ctx context.Context, q Querier) error) error
}

// NewProvider はドライバ名に対応するProviderを生成する。
//   - "pgx":      jackc/pgx で操作ごとに接続する（既定）
//   - "postgres": database/sql + lib/pq
//   - "sqlite":   database/sql + modernc.org/sqlite
func NewProvider(driver, dsn string) (Provider, error) {
	if dsn == "" {
		return nil, errors.New("接続文字列が空です")
	}
	switch driver {
	case "", "pgx":
		return NewPgxProvider(dsn), nil
	case "postgres", "sqlite":
		return NewSQLProvider(driver, dsn), nil
	default:
		return nil, fmt.Errorf("未対応のデータベースドライバです: %q", driver)
	}
}
