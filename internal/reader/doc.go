// Package reader は読み取り専用サービス overlay-reader のHTTPサーバーを提供する。
//
// memory_tiers のハッシュ検索と cc_evidence のタスク別一覧だけを公開し、
// データベースに対してはSELECT文のみを発行する。/health 以外のルートは
// Bearer認証を通過したリクエストだけを処理する。
package reader
