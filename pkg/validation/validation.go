// Package validation はoverlayサービスに届く信頼できない入力を検証し、
// storeパッケージのパラメータに整形する。
//
// 検証に失敗した入力は *Error として返され、データベースには到達しない。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultLimit はlimitが省略された場合の取得件数。
	DefaultLimit = 50
	// MinLimit はlimitの下限。
	MinLimit = 1
	// MaxLimit はlimitの上限。
	MaxLimit = 200
)

// memoryHashPattern はmemory_hashの形式。大文字小文字を問わない64文字の16進数。
var memoryHashPattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

// Tiers はtierとして受け付ける値。
var Tiers = []string{"Q", "W", "S"}

// Error は検証失敗を表す。Messageはそのままクライアントに返される。
type Error struct {
	// Field は問題のあったフィールド名。
	Field string
	// Message は人が読める失敗理由。
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsValidationError はerrが検証失敗かどうかを返す。
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

func missingField(field string) *Error {
	return &Error{Field: field, Message: fmt.Sprintf("Missing required field: %s", field)}
}

func missingQuery(name string) *Error {
	return &Error{Field: name, Message: fmt.Sprintf("Missing required query param: %s", name)}
}

func invalidMemoryHash() *Error {
	return &Error{Field: "memory_hash", Message: "memory_hash must be 64 hex chars"}
}

// validate はパッケージ共通のバリデータ。登録後は並行に使ってよい。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// エラーメッセージにはJSONのフィールド名を使う
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("memhash", func(fl validator.FieldLevel) bool {
		return memoryHashPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// IsMemoryHash はsが64文字の16進数かどうかを返す。
func IsMemoryHash(s string) bool {
	return validate.Var(s, "memhash") == nil
}

// toError はvalidatorのエラーをフィールド単位の *Error に変換する。
// 最初に失敗したフィールドだけを報告する。
func toError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return missingField(field)
	case "memhash":
		return invalidMemoryHash()
	case "oneof":
		return &Error{Field: field, Message: fmt.Sprintf("%s must be one of Q, W, S", field)}
	default:
		return &Error{Field: field, Message: fmt.Sprintf("%s is invalid", field)}
	}
}
