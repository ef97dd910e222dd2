package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
)

// PgxProvider は操作ごとにPostgreSQLへ新しい接続を張るProvider。
// 接続の再利用は行わない。
type PgxProvider struct {
	// dsn はPostgreSQLの接続文字列。
	dsn string
}

// NewPgxProvider は新しいPgxProviderを生成する。
func NewPgxProvider(dsn string) *PgxProvider {
	return &PgxProvider{dsn: dsn}
}

// WithConn は接続を開いてfnを実行し、必ず接続を閉じる。
func (p *PgxProvider) WithConn(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	conn, err := pgx.Connect(ctx, p.dsn)
	if err != nil {
		return fmt.Errorf("データベース接続に失敗: %w", err)
	}
	defer func() {
		// リクエストがキャンセルされていても切断処理は最後まで行う
		if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
			log.Printf("データベース切断エラー: %v", err)
		}
	}()

	return fn(ctx, pgxQuerier{conn: conn})
}

// pgxQuerier は *pgx.Conn を Querier に適合させる。
type pgxQuerier struct {
	conn *pgx.Conn
}

func (q pgxQuerier) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgxRow{row: q.conn.QueryRow(ctx, query, args...)}
}

func (q pgxQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// pgxRow は pgx.ErrNoRows を ErrNoRows に置き換える。
type pgxRow struct {
	row pgx.Row
}

func (r pgxRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}
