package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/lib/pq"  // "postgres" ドライバ
	_ "modernc.org/sqlite" // "sqlite" ドライバ
)

// SQLProvider は database/sql のドライバで操作ごとに接続を張るProvider。
// sql.DBのプールは1回の操作の間だけ存在し、操作の終了時に閉じる。
type SQLProvider struct {
	// driver は database/sql に登録されたドライバ名。
	driver string
	// dsn はドライバに渡す接続文字列。
	dsn string
}

// NewSQLProvider は新しいSQLProviderを生成する。
func NewSQLProvider(driver, dsn string) *SQLProvider {
	return &SQLProvider{driver: driver, dsn: dsn}
}

// WithConn は接続を開いてfnを実行し、必ず接続を閉じる。
func (p *SQLProvider) WithConn(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	db, err := sql.Open(p.driver, p.dsn)
	if err != nil {
		return fmt.Errorf("データベース接続に失敗: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("データベース切断エラー: %v", err)
		}
	}()

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("データベース接続に失敗: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return fn(ctx, sqlQuerier{conn: conn})
}

// sqlQuerier は *sql.Conn を Querier に適合させる。
type sqlQuerier struct {
	conn *sql.Conn
}

func (q sqlQuerier) QueryRow(ctx context.Context, query string, args ...any) Row {
	return sqlRow{row: q.conn.QueryRowContext(ctx, query, args...)}
}

func (q sqlQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := q.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{Rows: rows}, nil
}

type sqlRow struct {
	row *sql.Row
}

func (r sqlRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	_ = r.Rows.Close()
}
