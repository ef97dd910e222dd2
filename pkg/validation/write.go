package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nao1215/overlay/pkg/store"
)

// ErrInvalidBody はボディを読み込めないかJSONオブジェクトとして解釈できない場合の検証失敗。
var ErrInvalidBody = &Error{Message: "invalid JSON body"}

// memoryTierFields はmemory_tiers挿入で検証するフィールド。
type memoryTierFields struct {
	MemoryHash string `json:"memory_hash" validate:"required,memhash"`
	Content    string `json:"content" validate:"required"`
	Tier       string `json:"tier" validate:"required,oneof=Q W S"`
}

// evidenceFields はcc_evidence追記で検証するフィールド。
type evidenceFields struct {
	TaskID string `json:"task_id" validate:"required"`
	Kind   string `json:"kind" validate:"required"`
}

// MemoryTierInsert はmemory_tiers挿入のボディを検証する。
// ttl_days は有限の数値に変換できない場合は省略として扱う。
func MemoryTierInsert(body []byte) (store.MemoryTierInput, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return store.MemoryTierInput{}, err
	}

	values, err := requireScalars(obj, "memory_hash", "content", "tier")
	if err != nil {
		return store.MemoryTierInput{}, err
	}
	fields := memoryTierFields{
		MemoryHash: values[0],
		Content:    values[1],
		Tier:       values[2],
	}
	if err := validate.Struct(fields); err != nil {
		return store.MemoryTierInput{}, toError(err)
	}

	ttl, err := parseTTLDays(obj["ttl_days"])
	if err != nil {
		return store.MemoryTierInput{}, err
	}

	return store.MemoryTierInput{
		MemoryHash: fields.MemoryHash,
		Content:    fields.Content,
		Tier:       fields.Tier,
		TTLDays:    ttl,
	}, nil
}

// EvidenceAppend はcc_evidence追記のボディを検証する。
// payload はnull以外の任意のJSON値を受け付け、0やfalseも有効とする。
func EvidenceAppend(body []byte) (store.EvidenceInput, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return store.EvidenceInput{}, err
	}

	values, err := requireScalars(obj, "task_id", "kind")
	if err != nil {
		return store.EvidenceInput{}, err
	}
	fields := evidenceFields{TaskID: values[0], Kind: values[1]}
	if err := validate.Struct(fields); err != nil {
		return store.EvidenceInput{}, toError(err)
	}

	raw := bytes.TrimSpace(obj["payload"])
	if isMissing(raw) {
		return store.EvidenceInput{}, missingField("payload")
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return store.EvidenceInput{}, ErrInvalidBody
	}

	return store.EvidenceInput{
		TaskID:  fields.TaskID,
		Kind:    fields.Kind,
		Payload: json.RawMessage(compact.Bytes()),
	}, nil
}

// decodeObject はボディをJSONオブジェクトとして読み込む。空のボディは空のオブジェクトとみなす。
func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) == 0 {
		return obj, nil
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, ErrInvalidBody
	}
	if obj == nil {
		obj = map[string]json.RawMessage{}
	}
	return obj, nil
}

// isMissing は値が省略・null・空文字列のいずれかかどうかを返す。
func isMissing(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`))
}

// requireScalars は指定したフィールドを順に文字列として取り出す。
// 最初に欠けていたフィールドを検証失敗として返す。
func requireScalars(obj map[string]json.RawMessage, names ...string) ([]string, error) {
	for _, name := range names {
		if isMissing(obj[name]) {
			return nil, missingField(name)
		}
	}
	values := make([]string, 0, len(names))
	for _, name := range names {
		s, err := scalarString(name, obj[name])
		if err != nil {
			return nil, err
		}
		values = append(values, s)
	}
	return values, nil
}

// scalarString は文字列・数値・真偽値を文字列に変換する。オブジェクトと配列は受け付けない。
// 数値は元の表記ではなく numberText の正規化した表記になる。
func scalarString(name string, raw json.RawMessage) (string, error) {
	v, err := decodeValue(raw)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return numberText(x.String()), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", &Error{Field: name, Message: fmt.Sprintf("%s must be a string", name)}
	}
}

// parseTTLDays はttl_daysを数値に変換する。省略時と、変換結果が非有限の場合はnilを返す。
// null・空文字列・空配列は0になる。有限だが負または整数でない値は検証失敗とする。
func parseTTLDays(raw json.RawMessage) (*int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	v, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}

	f := toNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil, &Error{Field: "ttl_days", Message: "ttl_days must be a non-negative integer"}
	}
	n := int64(f)
	return &n, nil
}

// decodeValue は数値を json.Number のまま保持してJSONの値を読み込む。
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, ErrInvalidBody
	}
	return v, nil
}

// toNumber はJSONの値を数値に変換する。変換できない値はNaNになる。
// 配列は要素をカンマで連結した文字列として解釈する。
func toNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case json.Number:
		return textToNumber(x.String())
	case string:
		return textToNumber(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case []any:
		return textToNumber(arrayText(x))
	default:
		return math.NaN()
	}
}

// textToNumber は文字列を数値に変換する。空白のみの文字列は0、桁あふれは±Inf。
func textToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

// arrayText は配列の要素を文字列にしてカンマで連結する。nullは空文字列になる。
func arrayText(items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		switch x := item.(type) {
		case nil:
		case string:
			parts[i] = x
		case json.Number:
			parts[i] = numberText(x.String())
		case bool:
			parts[i] = strconv.FormatBool(x)
		case []any:
			parts[i] = arrayText(x)
		default:
			parts[i] = "[object Object]"
		}
	}
	return strings.Join(parts, ",")
}

// numberText はJSONの数値を最短の10進表記に正規化する。
// 絶対値が1e21以上または1e-6未満の場合は 1.5e+21 の形の指数表記にする。
func numberText(s string) string {
	f := textToNumber(s)
	switch {
	case math.IsNaN(f):
		return s
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mant + "e" + exp[:1] + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
