// Package writer は書き込み専用サービス overlay-writer のHTTPサーバーを提供する。
//
// memory_tiers への挿入と cc_evidence への追記だけを公開し、データベースに対しては
// INSERT文のみを発行する。更新と削除の経路は持たない。
package writer
