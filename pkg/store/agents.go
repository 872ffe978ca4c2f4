package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tracelens/tracelens/pkg/errors"
)

// Agent is a registered evaluation agent.
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AgentUpdate is a partial agent change. Empty string fields and a nil
// Enabled keep the stored value.
type AgentUpdate struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
	Enabled  *bool  `json:"enabled"`
}

// AgentFilter narrows List results.
type AgentFilter struct {
	Provider  string
	Enabled   *bool
	PageSize  int32
	PageToken string
}

// AgentStore persists agents in SQLite.
type AgentStore struct {
	db *sql.DB
}

// NewAgentStore creates an agent store and ensures schema.
func NewAgentStore(db *sql.DB) (*AgentStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &AgentStore{db: db}, nil
}

// Create registers a new agent. The name must be unique.
func (s *AgentStore) Create(ctx context.Context, agent Agent) (*Agent, error) {
	if agent.Name == "" {
		return nil, errors.InvalidInput("agent name is required")
	}
	if agent.Provider == "" || agent.Model == "" {
		return nil, errors.InvalidInput("agent provider and model are required")
	}
	agent.ID = uuid.NewString()
	now := nowMilli()
	agent.CreatedAt = fromMilli(now)
	agent.UpdatedAt = agent.CreatedAt

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, name, provider, model, endpoint, enabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", agentTable),
		agent.ID, agent.Name, agent.Provider, agent.Model, agent.Endpoint, boolToInt(agent.Enabled), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflict(fmt.Sprintf("agent %q already exists", agent.Name))
		}
		return nil, errors.WrapStorage("agent.create", err)
	}
	return &agent, nil
}

// Get returns the agent with the given id.
func (s *AgentStore) Get(ctx context.Context, id string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, name, provider, model, endpoint, enabled, created_at, updated_at FROM %s WHERE id = ?", agentTable), id)
	agent, err := scanAgent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("agent", id)
		}
		return nil, errors.WrapStorage("agent.get", err)
	}
	return agent, nil
}

// Update modifies mutable agent fields. Unset fields keep their value.
func (s *AgentStore) Update(ctx context.Context, id string, update AgentUpdate) (*Agent, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Name != "" {
		current.Name = update.Name
	}
	if update.Provider != "" {
		current.Provider = update.Provider
	}
	if update.Model != "" {
		current.Model = update.Model
	}
	if update.Endpoint != "" {
		current.Endpoint = update.Endpoint
	}
	if update.Enabled != nil {
		current.Enabled = *update.Enabled
	}
	now := nowMilli()
	current.UpdatedAt = fromMilli(now)

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET name = ?, provider = ?, model = ?, endpoint = ?, enabled = ?, updated_at = ? WHERE id = ?", agentTable),
		current.Name, current.Provider, current.Model, current.Endpoint, boolToInt(current.Enabled), now, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflict(fmt.Sprintf("agent %q already exists", current.Name))
		}
		return nil, errors.WrapStorage("agent.update", err)
	}
	return current, nil
}

// Delete removes the agent with the given id.
func (s *AgentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", agentTable), id)
	if err != nil {
		return errors.WrapStorage("agent.delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WrapStorage("agent.delete", err)
	}
	if affected == 0 {
		return errors.NotFound("agent", id)
	}
	return nil
}

// List returns agents matching the filter, newest first, with the total
// match count and the token for the next page.
func (s *AgentStore) List(ctx context.Context, filter AgentFilter) ([]Agent, int, string, error) {
	pageSize := int(filter.PageSize)
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	offset := 0
	if filter.PageToken != "" {
		parsed, err := parsePageToken(filter.PageToken)
		if err != nil {
			return nil, 0, "", errors.InvalidInput("invalid page token")
		}
		offset = parsed
	}

	where, args := buildAgentFilter(filter)
	var total int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", agentTable, where), args...).Scan(&total); err != nil {
		return nil, 0, "", errors.WrapStorage("agent.list", err)
	}
	if offset >= total {
		return []Agent{}, total, "", nil
	}

	query := fmt.Sprintf("SELECT id, name, provider, model, endpoint, enabled, created_at, updated_at FROM %s%s ORDER BY updated_at DESC, id ASC LIMIT ? OFFSET ?", agentTable, where)
	args = append(args, pageSize, offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, "", errors.WrapStorage("agent.list", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, 0, "", errors.WrapStorage("agent.list", err)
		}
		out = append(out, *agent)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, "", errors.WrapStorage("agent.list", err)
	}
	return out, total, nextPageToken(offset, pageSize, total), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*Agent, error) {
	var a Agent
	var enabled int
	var created, updated int64
	if err := row.Scan(&a.ID, &a.Name, &a.Provider, &a.Model, &a.Endpoint, &enabled, &created, &updated); err != nil {
		return nil, err
	}
	a.Enabled = enabled != 0
	a.CreatedAt = fromMilli(created)
	a.UpdatedAt = fromMilli(updated)
	return &a, nil
}

func buildAgentFilter(filter AgentFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Provider != "" {
		clauses = append(clauses, "provider = ?")
		args = append(args, filter.Provider)
	}
	if filter.Enabled != nil {
		clauses = append(clauses, "enabled = ?")
		args = append(args, boolToInt(*filter.Enabled))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

type seedFile struct {
	Agents []struct {
		Name     string `yaml:"name"`
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		Endpoint string `yaml:"endpoint"`
		Enabled  *bool  `yaml:"enabled"`
	} `yaml:"agents"`
}

// SeedFromFile registers agents listed in a YAML seed file. Agents whose
// name already exists are skipped. Returns how many agents were created.
func (s *AgentStore) SeedFromFile(ctx context.Context, path string) (int, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var seed seedFile
	if err := yaml.Unmarshal(payload, &seed); err != nil {
		return 0, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	created := 0
	for _, entry := range seed.Agents {
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		_, err := s.Create(ctx, Agent{
			Name:     entry.Name,
			Provider: entry.Provider,
			Model:    entry.Model,
			Endpoint: entry.Endpoint,
			Enabled:  enabled,
		})
		if err != nil {
			if errors.AsServiceError(err).Code == errors.CodeConflict {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
