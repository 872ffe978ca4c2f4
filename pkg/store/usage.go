package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tracelens/tracelens/pkg/errors"
)

// Usage record statuses.
const (
	UsageStatusOK    = "ok"
	UsageStatusError = "error"
)

// UsageRecord is one observed LLM request.
type UsageRecord struct {
	ID               string    `json:"id"`
	AgentID          string    `json:"agent_id,omitempty"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	Cost             float64   `json:"cost"`
	Status           string    `json:"status"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// UsageWindow bounds aggregate queries. Zero times leave the bound open.
type UsageWindow struct {
	Since time.Time
	Until time.Time
}

// UsageTotals is the aggregate over a window.
type UsageTotals struct {
	Total            int64   `json:"total"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	Cost             float64 `json:"cost"`
	Errors           int64   `json:"errors"`
}

// UsageGroup is an aggregate bucket keyed by provider or model.
type UsageGroup struct {
	Key string `json:"key"`
	UsageTotals
}

// UsageStore persists usage records in SQLite.
type UsageStore struct {
	db *sql.DB
}

// NewUsageStore creates a usage store and ensures schema.
func NewUsageStore(db *sql.DB) (*UsageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &UsageStore{db: db}, nil
}

// Insert records one request. A zero RecordedAt is stamped with the
// current time; an empty status defaults to ok.
func (s *UsageStore) Insert(ctx context.Context, record UsageRecord) (*UsageRecord, error) {
	if record.Provider == "" || record.Model == "" {
		return nil, errors.InvalidInput("usage provider and model are required")
	}
	switch record.Status {
	case "":
		record.Status = UsageStatusOK
	case UsageStatusOK, UsageStatusError:
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown usage status %q", record.Status))
	}
	record.ID = uuid.NewString()
	if record.RecordedAt.IsZero() {
		record.RecordedAt = fromMilli(nowMilli())
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, agent_id, provider, model, prompt_tokens, completion_tokens, cost, status, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", usageTable),
		record.ID, record.AgentID, record.Provider, record.Model,
		record.PromptTokens, record.CompletionTokens, record.Cost, record.Status,
		record.RecordedAt.UTC().UnixMilli())
	if err != nil {
		return nil, errors.WrapStorage("usage.insert", err)
	}
	return &record, nil
}

// Totals aggregates all records inside the window.
func (s *UsageStore) Totals(ctx context.Context, window UsageWindow) (*UsageTotals, error) {
	where, args := buildUsageWindow(window)
	query := fmt.Sprintf(`SELECT COUNT(*),
		COALESCE(SUM(prompt_tokens), 0),
		COALESCE(SUM(completion_tokens), 0),
		COALESCE(SUM(cost), 0),
		COALESCE(SUM(CASE WHEN status = '%s' THEN 1 ELSE 0 END), 0)
		FROM %s%s`, UsageStatusError, usageTable, where)

	var t UsageTotals
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&t.Total, &t.PromptTokens, &t.CompletionTokens, &t.Cost, &t.Errors); err != nil {
		return nil, errors.WrapStorage("usage.totals", err)
	}
	return &t, nil
}

// ByProvider aggregates the window grouped by provider.
func (s *UsageStore) ByProvider(ctx context.Context, window UsageWindow) ([]UsageGroup, error) {
	return s.grouped(ctx, "provider", window)
}

// ByModel aggregates the window grouped by model.
func (s *UsageStore) ByModel(ctx context.Context, window UsageWindow) ([]UsageGroup, error) {
	return s.grouped(ctx, "model", window)
}

func (s *UsageStore) grouped(ctx context.Context, column string, window UsageWindow) ([]UsageGroup, error) {
	where, args := buildUsageWindow(window)
	query := fmt.Sprintf(`SELECT %s, COUNT(*),
		COALESCE(SUM(prompt_tokens), 0),
		COALESCE(SUM(completion_tokens), 0),
		COALESCE(SUM(cost), 0),
		COALESCE(SUM(CASE WHEN status = '%s' THEN 1 ELSE 0 END), 0)
		FROM %s%s GROUP BY %s ORDER BY COUNT(*) DESC, %s ASC`,
		column, UsageStatusError, usageTable, where, column, column)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStorage("usage.grouped", err)
	}
	defer rows.Close()

	var out []UsageGroup
	for rows.Next() {
		var g UsageGroup
		if err := rows.Scan(&g.Key, &g.Total, &g.PromptTokens, &g.CompletionTokens, &g.Cost, &g.Errors); err != nil {
			return nil, errors.WrapStorage("usage.grouped", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStorage("usage.grouped", err)
	}
	return out, nil
}

func buildUsageWindow(window UsageWindow) (string, []any) {
	var clauses []string
	var args []any
	if !window.Since.IsZero() {
		clauses = append(clauses, "recorded_at >= ?")
		args = append(args, window.Since.UTC().UnixMilli())
	}
	if !window.Until.IsZero() {
		clauses = append(clauses, "recorded_at < ?")
		args = append(args, window.Until.UTC().UnixMilli())
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
