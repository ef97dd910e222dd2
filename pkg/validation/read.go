package validation

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// EvidenceQuery は記録一覧の検証済みパラメータ。
type EvidenceQuery struct {
	// TaskID は対象タスク。
	TaskID string
	// Limit は [MinLimit, MaxLimit] に収めた取得件数。
	Limit int
}

// requireQuery は前後の空白を除いたクエリパラメータを返す。空なら検証失敗。
func requireQuery(q url.Values, name string) (string, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return "", missingQuery(name)
	}
	return v, nil
}

// LookupByHash はハッシュ検索のクエリを検証し、memory_hashを返す。
func LookupByHash(q url.Values) (string, error) {
	hash, err := requireQuery(q, "memory_hash")
	if err != nil {
		return "", err
	}
	if !IsMemoryHash(hash) {
		return "", invalidMemoryHash()
	}
	return hash, nil
}

// EvidenceByTask は記録一覧のクエリを検証する。
func EvidenceByTask(q url.Values) (EvidenceQuery, error) {
	taskID, err := requireQuery(q, "task_id")
	if err != nil {
		return EvidenceQuery{}, err
	}

	raw, present := "", false
	if vs, ok := q["limit"]; ok && len(vs) > 0 {
		raw, present = vs[0], true
	}
	limit, err := ParseLimit(raw, present)
	if err != nil {
		return EvidenceQuery{}, err
	}
	return EvidenceQuery{TaskID: taskID, Limit: limit}, nil
}

// ParseLimit はlimitを解釈する。省略時はDefaultLimit、数値なら
// [MinLimit, MaxLimit] に収め、小数部は切り捨てる。数値でなければ検証失敗。
// 空文字列（空白のみを含む）は0として扱い、MinLimitに丸める。
func ParseLimit(raw string, present bool) (int, error) {
	if !present {
		return DefaultLimit, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MinLimit, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	// 桁あふれは±Infとして扱い、範囲内に丸める
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(n) {
		return 0, &Error{Field: "limit", Message: "limit must be a number"}
	}
	n = math.Max(MinLimit, math.Min(MaxLimit, n))
	return int(math.Floor(n)), nil
}
