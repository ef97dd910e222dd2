package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nao1215/overlay/pkg/store"
)

// Client はoverlayサービス用のHTTPクライアント。
// 1つのクライアントは1つのサービスと1つのトークンに対応する。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サービスのベースURL。
	baseURL string
	// token はAuthorizationヘッダーに付与する共有シークレット。
	token string
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先サービスのベースURL（例: "http://127.0.0.1:18795"）を指定する。
func New(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		token:   token,
	}
}

// APIError はサービスが ok=false を返した場合のエラー。
type APIError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Message はサービスが返したエラーメッセージ。
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, error=%s", e.StatusCode, e.Message)
}

// Health はヘルスチェックの結果。
type Health struct {
	OK        bool   `json:"ok"`
	Service   string `json:"service"`
	PID       int    `json:"pid"`
	EnvSource string `json:"env_source"`
	Bind      string `json:"bind"`
	Port      int    `json:"port"`
}

// Health はサービスのヘルスチェックを行う。認証は不要。
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// LookupByHash はmemory_hashに一致する行を取得する。該当がなければnilを返す。
func (c *Client) LookupByHash(ctx context.Context, memoryHash string) (*store.MemoryTierEntry, error) {
	q := url.Values{"memory_hash": {memoryHash}}
	var resp struct {
		Row *store.MemoryTierEntry `json:"row"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/read/memory_tiers/by_hash?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Row, nil
}

// ListEvidenceByTask はtask_idの記録を新しい順に取得する。
// limitが0以下の場合はサービスの既定値を使う。
func (c *Client) ListEvidenceByTask(ctx context.Context, taskID string, limit int) ([]store.EvidenceRecord, error) {
	q := url.Values{"task_id": {taskID}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Rows []store.EvidenceRecord `json:"rows"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/read/evidence/by_task?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// memoryTierRequest はmemory_tiers挿入リクエストのJSON構造。
type memoryTierRequest struct {
	MemoryHash string `json:"memory_hash"`
	Content    string `json:"content"`
	Tier       string `json:"tier"`
	TTLDays    *int64 `json:"ttl_days,omitempty"`
}

// InsertMemoryTier はmemory_tiersに1行挿入し、entry_idを返す。
func (c *Client) InsertMemoryTier(ctx context.Context, in store.MemoryTierInput) (string, error) {
	body := memoryTierRequest{
		MemoryHash: in.MemoryHash,
		Content:    in.Content,
		Tier:       in.Tier,
		TTLDays:    in.TTLDays,
	}
	var resp struct {
		EntryID string `json:"entry_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/write/memory_tiers/insert", body, &resp); err != nil {
		return "", err
	}
	return resp.EntryID, nil
}

// evidenceRequest はcc_evidence追記リクエストのJSON構造。
type evidenceRequest struct {
	TaskID  string          `json:"task_id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// AppendEvidence はcc_evidenceに1行追記し、idを返す。
func (c *Client) AppendEvidence(ctx context.Context, in store.EvidenceInput) (string, error) {
	body := evidenceRequest{TaskID: in.TaskID, Kind: in.Kind, Payload: in.Payload}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/write/evidence/append", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// envelope はサービスのレスポンスに共通するフィールド。
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
// ok=falseのレスポンスは *APIError として返す。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// コンテキストからリクエストIDを伝播する
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み込みに失敗: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if !env.OK || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Error}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
const contextKeyRequestID contextKey = "request_id"

// WithRequestID はコンテキストにリクエストIDを設定する。
// 設定した値はX-Request-IDヘッダーとして送信される。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
