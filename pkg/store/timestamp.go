package store

import (
	"fmt"
	"time"
)

// timestampLayouts はテキストで保存された日時の解釈に使うレイアウト。
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// timestamp はドライバがtime.Timeと文字列のどちらを返しても受け取れる日時。
// PostgreSQLはtime.Timeを、SQLiteのTEXT列は文字列を返す。
type timestamp struct {
	time.Time
}

// Scan は sql.Scanner を実装する。
func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("日時として解釈できない型です: %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("日時として解釈できない値です: %q", s)
}
