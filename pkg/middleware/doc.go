// Package middleware はoverlayサービスのGinルーターで使用する共通ミドルウェアを提供する。
//
// Bearerトークンによるアクセス制御、リクエストIDの付与、ボディサイズの制限、
// パニックリカバリなど、読み取り・書き込みの両サービスで共通して使用する。
package middleware
