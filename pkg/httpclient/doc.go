// Package httpclient はoverlay-readerとoverlay-writerを呼び出すHTTPクライアントを提供する。
//
// Bearerトークンの付与と {"ok": ..., "error": ...} 形式のレスポンスの解釈を
// 一箇所にまとめ、呼び出し側には型付きの結果とエラーを返す。
package httpclient
