package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testSecret はテスト用の共有シークレット。
const testSecret = "test-secret-token"

// newAuthRouter はBearerAuthを適用したテスト用ルーターと、保護されたハンドラの呼び出し回数を返す。
func newAuthRouter() (*gin.Engine, *int) {
	reached := 0
	router := gin.New()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	protected := router.Group("/")
	protected.Use(BearerAuth(testSecret))
	protected.GET("/protected", func(c *gin.Context) {
		reached++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router, &reached
}

// TestBearerAuth はBearerAuthミドルウェアを検証する。
func TestBearerAuth(t *testing.T) {
	t.Parallel()

	t.Run("正しいトークンの場合は後続のハンドラに進むこと", func(t *testing.T) {
		t.Parallel()

		router, reached := newAuthRouter()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+testSecret)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if *reached != 1 {
			t.Errorf("ハンドラの呼び出し回数 = %d, want 1", *reached)
		}
	})

	rejected := []struct {
		name   string
		header string
	}{
		{name: "Authorizationヘッダーなし", header: ""},
		{name: "Basicスキーム", header: "Basic " + testSecret},
		{name: "小文字のbearer", header: "bearer " + testSecret},
		{name: "スキームのみ", header: "Bearer "},
		{name: "トークンの不一致", header: "Bearer wrong-token"},
		{name: "トークンの前方一致", header: "Bearer " + testSecret[:5]},
		{name: "トークンの後ろに余分な文字", header: "Bearer " + testSecret + "x"},
		{name: "大文字小文字の違い", header: "Bearer TEST-SECRET-TOKEN"},
		{name: "区切りの空白が2つ", header: "Bearer  " + testSecret},
		{name: "トークンのみ", header: testSecret},
	}
	for _, tt := range rejected {
		t.Run(tt.name+"は401になること", func(t *testing.T) {
			t.Parallel()

			router, reached := newAuthRouter()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if *reached != 0 {
				t.Errorf("ハンドラが呼び出された: %d回", *reached)
			}

			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if body["ok"] != false || body["error"] != "unauthorized" {
				t.Errorf("body = %v, want ok=false error=unauthorized", body)
			}
		})
	}

	t.Run("ヘルスチェックは認証なしで成功すること", func(t *testing.T) {
		t.Parallel()

		router, _ := newAuthRouter()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})
}

// TestAuthorized はAuthorized関数を検証する。
func TestAuthorized(t *testing.T) {
	t.Parallel()

	t.Run("シークレットが空の場合は常に拒否すること", func(t *testing.T) {
		t.Parallel()

		if Authorized("Bearer ", "") {
			t.Error("空のシークレットで認証が成功した")
		}
	})

	t.Run("一致するトークンを受け付けること", func(t *testing.T) {
		t.Parallel()

		if !Authorized("Bearer s3cret", "s3cret") {
			t.Error("一致するトークンが拒否された")
		}
	})
}
