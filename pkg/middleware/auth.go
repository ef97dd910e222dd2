package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// bearerPrefix はAuthorizationヘッダーのスキーム部分。大文字小文字を区別する。
const bearerPrefix = "Bearer "

// unauthorizedMessage は認証失敗時に返す汎用メッセージ。失敗理由は含めない。
const unauthorizedMessage = "unauthorized"

// BearerAuth は Authorization: Bearer <token> のtokenが共有シークレットと
// 完全に一致する場合だけ後続のハンドラに進めるGinミドルウェアを返す。
// それ以外はすべて401で打ち切る。secretが空の場合はすべてのリクエストを拒否する。
func BearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Authorized(c.GetHeader("Authorization"), secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"error": unauthorizedMessage,
			})
			return
		}
		c.Next()
	}
}

// Authorized はAuthorizationヘッダーの値がsecretと一致するBearerトークンかどうかを返す。
func Authorized(header, secret string) bool {
	if secret == "" {
		return false
	}
	token, found := strings.CutPrefix(header, bearerPrefix)
	return found && subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
