// Package store はmemory_tiersテーブルとcc_evidenceテーブルへのデータアクセスを提供する。
//
// Gatewayは1回の操作ごとにProviderから接続を1本取得し、パラメータ化された
// SQL文を1つだけ実行して、成功・失敗にかかわらず接続を解放する。
// 値は常にバインドパラメータとして渡し、SQL文字列に埋め込むことはない。
//
// Providerはリクエスト単位の接続取得と確実な解放を抽象化する。既定の
// PgxProviderは操作ごとに接続を開いて閉じる。プール付きの実装に差し替えても
// 呼び出し側は変わらない。
package store
