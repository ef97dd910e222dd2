package writer

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/overlay/pkg/envconfig"
	"github.com/nao1215/overlay/pkg/middleware"
	"github.com/nao1215/overlay/pkg/response"
	"github.com/nao1215/overlay/pkg/store"
	"github.com/nao1215/overlay/pkg/validation"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// Store は書き込みサービスが使うデータアクセス操作。
type Store interface {
	// InsertMemoryTier はmemory_tiersに1行挿入し、採番されたentry_idを返す。
	InsertMemoryTier(ctx context.Context, in store.MemoryTierInput) (string, error)
	// AppendEvidence はcc_evidenceに1行追記し、採番されたidを返す。
	AppendEvidence(ctx context.Context, in store.EvidenceInput) (string, error)
}

// Server は書き込みサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に読み込んだ設定。
	cfg *envconfig.Config
	// store はデータベースへの書き込み操作。
	store Store
}

// NewServer は新しい書き込みサーバーを生成する。
func NewServer(cfg *envconfig.Config, st Store) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(gin.Logger())
	router.Use(middleware.BodyLimit(maxBodyBytes))

	s := &Server{
		router: router,
		cfg:    cfg,
		store:  st,
	}
	s.setupRoutes()

	return s
}

// Handler はルーティング済みのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run は設定されたアドレスでHTTPサーバーを起動する。
// リッスンに失敗した場合はエラーを返す。
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("リッスンに失敗: %w", err)
	}
	log.Printf("[%s] listening on http://%s", s.cfg.Service, s.cfg.Addr())
	return s.router.RunListener(ln)
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())

	// 未登録のパスも認証を通過した後で404を返す
	s.router.NoRoute(middleware.BearerAuth(s.cfg.Token), handleNotFound())

	write := s.router.Group("/write")
	write.Use(middleware.BearerAuth(s.cfg.Token))
	{
		// memory_tiersへの挿入
		write.POST("/memory_tiers/insert", response.Handle(s.handleInsertMemoryTier))
		// cc_evidenceへの追記
		write.POST("/evidence/append", response.Handle(s.handleAppendEvidence))
	}
}

// handleNotFound は未登録のパスに対するハンドラを返す。
func handleNotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not found"})
	}
}

// handleHealth はプロセスの識別情報と設定の読み込み元を返すハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"service":    s.cfg.Service,
			"pid":        os.Getpid(),
			"env_source": s.cfg.Source,
			"bind":       s.cfg.Bind,
			"port":       s.cfg.Port,
		})
	}
}

// readBody はリクエストボディを読み込む。上限超過などの読み込み失敗は不正なボディとして扱う。
func readBody(c *gin.Context) ([]byte, error) {
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("リクエストボディの読み込みに失敗: request_id=%s: %v", middleware.GetRequestID(c), err)
		return nil, validation.ErrInvalidBody
	}
	return body, nil
}

// handleInsertMemoryTier はmemory_tiersに1行挿入し、entry_idを返す。
func (s *Server) handleInsertMemoryTier(c *gin.Context) (gin.H, error) {
	body, err := readBody(c)
	if err != nil {
		return nil, err
	}
	in, err := validation.MemoryTierInsert(body)
	if err != nil {
		return nil, err
	}

	entryID, err := s.store.InsertMemoryTier(c.Request.Context(), in)
	if err != nil {
		return nil, err
	}
	return gin.H{"entry_id": entryID}, nil
}

// handleAppendEvidence はcc_evidenceに1行追記し、idを返す。
func (s *Server) handleAppendEvidence(c *gin.Context) (gin.H, error) {
	body, err := readBody(c)
	if err != nil {
		return nil, err
	}
	in, err := validation.EvidenceAppend(body)
	if err != nil {
		return nil, err
	}

	id, err := s.store.AppendEvidence(c.Request.Context(), in)
	if err != nil {
		return nil, err
	}
	return gin.H{"id": id}, nil
}
