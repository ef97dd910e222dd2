// Package envconfig はoverlayサービスの設定ファイル解決と読み込みを提供する。
//
// 設定ファイルは key=value 形式（dotenv）で、次の順に探索する。
//   - 上書き用の環境変数（または --env-path フラグ）で指定されたパス。存在しなければ即座に失敗する
//   - ホームディレクトリ配下の正規パス（~/.openclaw/<service>.env）
//   - 実行ファイルと同じディレクトリに置かれたローカルファイル
//
// 正規パスが存在せずローカルファイルだけがある場合は、一度だけローカルファイルを
// 正規パスへコピーする。コピーは一時ファイルへの書き込みとリネームで行うため、
// 途中でクラッシュしても書きかけの正規ファイルは残らない。既存の正規ファイルを
// 上書きすることはない。
package envconfig
