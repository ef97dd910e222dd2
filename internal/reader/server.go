package reader

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

// Store は読み取りサービスが使うデータアクセス操作。
type Store interface {
	// LookupByHash はmemory_hashに一致する行を返す。見つからない場合は(nil, nil)。
	LookupByHash(ctx context.Context, memoryHash string) (*store.MemoryTierEntry, error)
	// ListEvidenceByTask はtask_idの記録を新しい順に最大limit件返す。
	ListEvidenceByTask(ctx context.Context, taskID string, limit int) ([]store.EvidenceRecord, error)
}

// Server は読み取りサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に読み込んだ設定。
	cfg *envconfig.Config
	// store はデータベースへの読み取り操作。
	store Store
}

// NewServer は新しい読み取りサーバーを生成する。
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

	read := s.router.Group("/read")
	read.Use(middleware.BearerAuth(s.cfg.Token))
	{
		// ハッシュによるmemory_tiersの取得
		read.GET("/memory_tiers/by_hash", response.Handle(s.handleLookupByHash))
		// タスク別のcc_evidence一覧
		read.GET("/evidence/by_task", response.Handle(s.handleEvidenceByTask))
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

// handleLookupByHash はmemory_hashで1行を検索する。該当がなければrowはnull。
func (s *Server) handleLookupByHash(c *gin.Context) (gin.H, error) {
	hash, err := validation.LookupByHash(c.Request.URL.Query())
	if err != nil {
		return nil, err
	}

	row, err := s.store.LookupByHash(c.Request.Context(), hash)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return gin.H{"row": nil}, nil
	}
	return gin.H{"row": row}, nil
}

// handleEvidenceByTask はtask_idの記録を新しい順に返す。
func (s *Server) handleEvidenceByTask(c *gin.Context) (gin.H, error) {
	q, err := validation.EvidenceByTask(c.Request.URL.Query())
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListEvidenceByTask(c.Request.Context(), q.TaskID, q.Limit)
	if err != nil {
		return nil, err
	}
	return gin.H{"rows": rows}, nil
}
