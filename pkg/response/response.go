// Package response はoverlayサービスの全ルートで共通のレスポンス形式を提供する。
//
// 成功時は {"ok": true, ...結果} を200で、検証エラーとストアのエラーは
// {"ok": false, "error": メッセージ} を400で返す。認証エラー（401）は
// middleware.BearerAuth が扱い、ここには到達しない。
package response

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/overlay/pkg/middleware"
	"github.com/nao1215/overlay/pkg/validation"
)

// HandlerFunc は結果のフィールドとエラーを返すルートの処理本体。
type HandlerFunc func(c *gin.Context) (gin.H, error)

// Handle はHandlerFuncの結果をエンベロープに変換するGinハンドラを返す。
func Handle(fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := fn(c)
		Write(c, result, err)
	}
}

// Write は結果またはエラーをエンベロープとして書き込む。
// エラーメッセージは加工せずにそのまま返す。
func Write(c *gin.Context, result gin.H, err error) {
	if err != nil {
		if !validation.IsValidationError(err) {
			log.Printf("リクエスト処理エラー: %s %s request_id=%s: %v",
				c.Request.Method, c.Request.URL.Path, middleware.GetRequestID(c), err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	body := gin.H{"ok": true}
	for k, v := range result {
		if k == "ok" {
			continue
		}
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
