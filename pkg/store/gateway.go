package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// MemoryTierEntry はmemory_tiersテーブルの1行。
type MemoryTierEntry struct {
	// EntryID はストアが採番する識別子。
	EntryID string `json:"entry_id"`
	// MemoryHash は64文字の16進数で表される内容のハッシュ。
	MemoryHash string `json:"memory_hash"`
	// Tier はQ, W, Sのいずれか。
	Tier string `json:"tier"`
	// TTLDays は保持日数。NULLの場合はnil。
	TTLDays *int64 `json:"ttl_days"`
	// Content は本文。
	Content string `json:"content"`
}

// EvidenceRecord はcc_evidenceテーブルの1行。
type EvidenceRecord struct {
	// ID はストアが採番する識別子。
	ID string `json:"id"`
	// TaskID は記録が属するタスク。
	TaskID string `json:"task_id"`
	// Kind は記録の種類。
	Kind string `json:"kind"`
	// Payload は任意のJSON値。
	Payload json.RawMessage `json:"payload"`
	// CreatedAt はストアが付与した作成日時。
	CreatedAt time.Time `json:"created_at"`
}

// MemoryTierInput はmemory_tiersへの挿入パラメータ。
type MemoryTierInput struct {
	MemoryHash string
	Content    string
	Tier       string
	// TTLDays がnilの場合、列の既定値が使われる。
	TTLDays *int64
}

// EvidenceInput はcc_evidenceへの追記パラメータ。
type EvidenceInput struct {
	TaskID string
	Kind   string
	// Payload はJSONテキストとしてバインドされる。
	Payload json.RawMessage
}

const (
	queryLookupByHash = `
SELECT CAST(entry_id AS TEXT) AS entry_id,
       memory_hash,
       tier,
       ttl_days,
       content
FROM memory_tiers
WHERE memory_hash = $1
LIMIT 1`

	queryListEvidenceByTask = `
SELECT CAST(id AS TEXT) AS id,
       task_id,
       kind,
       CAST(payload AS TEXT) AS payload,
       created_at
FROM cc_evidence
WHERE task_id = $1
ORDER BY cc_evidence.created_at DESC, cc_evidence.id DESC
LIMIT $2`

	queryInsertMemoryTier = `
INSERT INTO memory_tiers (memory_hash, content, tier, ttl_days)
VALUES ($1, $2, $3, $4)
RETURNING CAST(entry_id AS TEXT) AS entry_id`

	// ttl_days を列挙しないことで列の既定値を保つ
	queryInsertMemoryTierDefaultTTL = `
INSERT INTO memory_tiers (memory_hash, content, tier)
VALUES ($1, $2, $3)
RETURNING CAST(entry_id AS TEXT) AS entry_id`

	queryAppendEvidence = `
INSERT INTO cc_evidence (task_id, kind, payload)
VALUES ($1, $2, $3)
RETURNING CAST(id AS TEXT) AS id`
)

// Gateway は検証済みのパラメータで1操作につき1つのSQL文を実行する。
// リトライは行わず、エラーはそのまま呼び出し側に返す。
type Gateway struct {
	provider Provider
}

// NewGateway は新しいGatewayを生成する。
func NewGateway(provider Provider) *Gateway {
	return &Gateway{provider: provider}
}

// LookupByHash はmemory_hashに一致する行を1件返す。見つからない場合は(nil, nil)。
func (g *Gateway) LookupByHash(ctx context.Context, memoryHash string) (*MemoryTierEntry, error) {
	var entry *MemoryTierEntry
	err := g.provider.WithConn(ctx, func(ctx context.Context, q Querier) error {
		var (
			e   MemoryTierEntry
			ttl sql.NullInt64
		)
		err := q.QueryRow(ctx, queryLookupByHash, memoryHash).
			Scan(&e.EntryID, &e.MemoryHash, &e.Tier, &ttl, &e.Content)
		if errors.Is(err, ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if ttl.Valid {
			e.TTLDays = &ttl.Int64
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListEvidenceByTask はtask_idの記録を新しい順に最大limit件返す。
func (g *Gateway) ListEvidenceByTask(ctx context.Context, taskID string, limit int) ([]EvidenceRecord, error) {
	records := []EvidenceRecord{}
	err := g.provider.WithConn(ctx, func(ctx context.Context, q Querier) error {
		rows, err := q.Query(ctx, queryListEvidenceByTask, taskID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				r         EvidenceRecord
				payload   string
				createdAt timestamp
			)
			if err := rows.Scan(&r.ID, &r.TaskID, &r.Kind, &payload, &createdAt); err != nil {
				return err
			}
			r.Payload = json.RawMessage(payload)
			r.CreatedAt = createdAt.Time
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// InsertMemoryTier はmemory_tiersに1行挿入し、採番されたentry_idを返す。
func (g *Gateway) InsertMemoryTier(ctx context.Context, in MemoryTierInput) (string, error) {
	query := queryInsertMemoryTierDefaultTTL
	args := []any{in.MemoryHash, in.Content, in.Tier}
	if in.TTLDays != nil {
		query = queryInsertMemoryTier
		args = append(args, *in.TTLDays)
	}

	var entryID string
	err := g.provider.WithConn(ctx, func(ctx context.Context, q Querier) error {
		return q.QueryRow(ctx, query, args...).Scan(&entryID)
	})
	if err != nil {
		return "", err
	}
	return entryID, nil
}

// AppendEvidence はcc_evidenceに1行追記し、採番されたidを返す。
func (g *Gateway) AppendEvidence(ctx context.Context, in EvidenceInput) (string, error) {
	if !json.Valid(in.Payload) {
		return "", errors.New("payloadが正しいJSONではありません")
	}

	var id string
	err := g.provider.WithConn(ctx, func(ctx context.Context, q Querier) error {
		return q.QueryRow(ctx, queryAppendEvidence, in.TaskID, in.Kind, string(in.Payload)).Scan(&id)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
