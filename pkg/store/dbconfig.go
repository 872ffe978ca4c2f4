package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tracelens/tracelens/pkg/errors"
)

// DBConfig is a stored database connection configuration. At most one
// config is current at any time.
type DBConfig struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Engine    string    `json:"engine"`
	DSN       string    `json:"dsn"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DBConfigStore persists database configs in SQLite.
type DBConfigStore struct {
	db *sql.DB
}

// NewDBConfigStore creates a config store and ensures schema.
func NewDBConfigStore(db *sql.DB) (*DBConfigStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &DBConfigStore{db: db}, nil
}

// Create stores a new database config. The first config ever created
// becomes current automatically.
func (s *DBConfigStore) Create(ctx context.Context, cfg DBConfig) (*DBConfig, error) {
	if cfg.Name == "" {
		return nil, errors.InvalidInput("config name is required")
	}
	if cfg.Engine == "" || cfg.DSN == "" {
		return nil, errors.InvalidInput("config engine and dsn are required")
	}
	cfg.ID = uuid.NewString()
	now := nowMilli()
	cfg.CreatedAt = fromMilli(now)
	cfg.UpdatedAt = cfg.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WrapStorage("dbconfig.create", err)
	}
	var count int
	if err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", dbConfigTable)).Scan(&count); err != nil {
		_ = tx.Rollback()
		return nil, errors.WrapStorage("dbconfig.create", err)
	}
	cfg.Current = count == 0

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, name, engine, dsn, is_current, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)", dbConfigTable),
		cfg.ID, cfg.Name, cfg.Engine, cfg.DSN, boolToInt(cfg.Current), now, now)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return nil, errors.Conflict(fmt.Sprintf("database config %q already exists", cfg.Name))
		}
		return nil, errors.WrapStorage("dbconfig.create", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.WrapStorage("dbconfig.create", err)
	}
	return &cfg, nil
}

// Get returns the config with the given id.
func (s *DBConfigStore) Get(ctx context.Context, id string) (*DBConfig, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, name, engine, dsn, is_current, created_at, updated_at FROM %s WHERE id = ?", dbConfigTable), id)
	cfg, err := scanDBConfig(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("database config", id)
		}
		return nil, errors.WrapStorage("dbconfig.get", err)
	}
	return cfg, nil
}

// Current returns the currently selected config, or NOT_FOUND when no
// config is current.
func (s *DBConfigStore) Current(ctx context.Context) (*DBConfig, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, name, engine, dsn, is_current, created_at, updated_at FROM %s WHERE is_current = 1", dbConfigTable))
	cfg, err := scanDBConfig(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("database config", "current")
		}
		return nil, errors.WrapStorage("dbconfig.current", err)
	}
	return cfg, nil
}

// SetCurrent marks the config with the given id as current and clears the
// flag on every other config in the same transaction.
func (s *DBConfigStore) SetCurrent(ctx context.Context, id string) (*DBConfig, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WrapStorage("dbconfig.setcurrent", err)
	}
	res, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET is_current = 1, updated_at = ? WHERE id = ?", dbConfigTable), nowMilli(), id)
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.WrapStorage("dbconfig.setcurrent", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return nil, errors.WrapStorage("dbconfig.setcurrent", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return nil, errors.NotFound("database config", id)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET is_current = 0 WHERE id != ?", dbConfigTable), id); err != nil {
		_ = tx.Rollback()
		return nil, errors.WrapStorage("dbconfig.setcurrent", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.WrapStorage("dbconfig.setcurrent", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a config. Deleting the current config leaves no config
// current; a successor must be elected explicitly.
func (s *DBConfigStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", dbConfigTable), id)
	if err != nil {
		return errors.WrapStorage("dbconfig.delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WrapStorage("dbconfig.delete", err)
	}
	if affected == 0 {
		return errors.NotFound("database config", id)
	}
	return nil
}

// List returns all configs ordered by creation time.
func (s *DBConfigStore) List(ctx context.Context) ([]DBConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, name, engine, dsn, is_current, created_at, updated_at FROM %s ORDER BY created_at ASC, id ASC", dbConfigTable))
	if err != nil {
		return nil, errors.WrapStorage("dbconfig.list", err)
	}
	defer rows.Close()

	var out []DBConfig
	for rows.Next() {
		cfg, err := scanDBConfig(rows)
		if err != nil {
			return nil, errors.WrapStorage("dbconfig.list", err)
		}
		out = append(out, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStorage("dbconfig.list", err)
	}
	return out, nil
}

func scanDBConfig(row rowScanner) (*DBConfig, error) {
	var c DBConfig
	var current int
	var created, updated int64
	if err := row.Scan(&c.ID, &c.Name, &c.Engine, &c.DSN, &current, &created, &updated); err != nil {
		return nil, err
	}
	c.Current = current != 0
	c.CreatedAt = fromMilli(created)
	c.UpdatedAt = fromMilli(updated)
	return &c, nil
}
