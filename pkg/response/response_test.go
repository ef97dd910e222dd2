package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/overlay/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// serve はHandleで包んだハンドラに1回リクエストを送る。
func serve(t *testing.T, fn HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	router := gin.New()
	router.GET("/test", Handle(fn))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v", err)
	}
	return w, body
}

// TestHandle はエンベロープへの変換を検証する。
func TestHandle(t *testing.T) {
	t.Parallel()

	t.Run("成功時はok=trueと結果を200で返すこと", func(t *testing.T) {
		t.Parallel()

		w, body := serve(t, func(*gin.Context) (gin.H, error) {
			return gin.H{"id": "42", "ok": "ignored"}, nil
		})

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if body["ok"] != true {
			t.Errorf("ok = %v, want true", body["ok"])
		}
		if body["id"] != "42" {
			t.Errorf("id = %v, want %q", body["id"], "42")
		}
	})

	t.Run("nilの結果はnullとして返すこと", func(t *testing.T) {
		t.Parallel()

		_, body := serve(t, func(*gin.Context) (gin.H, error) {
			return gin.H{"row": nil}, nil
		})

		v, ok := body["row"]
		if !ok || v != nil {
			t.Errorf("row = %v (present=%v), want null", v, ok)
		}
	})

	t.Run("検証エラーは400とメッセージを返すこと", func(t *testing.T) {
		t.Parallel()

		w, body := serve(t, func(*gin.Context) (gin.H, error) {
			return nil, &validation.Error{Field: "tier", Message: "tier must be one of Q, W, S"}
		})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if body["ok"] != false {
			t.Errorf("ok = %v, want false", body["ok"])
		}
		if body["error"] != "tier must be one of Q, W, S" {
			t.Errorf("error = %v", body["error"])
		}
	})

	t.Run("ストアのエラーは本文をそのまま400で返すこと", func(t *testing.T) {
		t.Parallel()

		w, body := serve(t, func(*gin.Context) (gin.H, error) {
			return nil, errors.New(`duplicate key value violates unique constraint "memory_tiers_pkey"`)
		})

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if body["error"] != `duplicate key value violates unique constraint "memory_tiers_pkey"` {
			t.Errorf("error = %v", body["error"])
		}
	})
}
