package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tracelens/tracelens/pkg/errors"
	"github.com/tracelens/tracelens/pkg/vault"
)

// SecretStore persists vault secrets in SQLite.
type SecretStore struct {
	db *sql.DB
}

// NewSecretStore creates a secret store and ensures schema.
func NewSecretStore(db *sql.DB) (*SecretStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &SecretStore{db: db}, nil
}

// Upsert stores a secret, replacing the value when the name already exists.
func (s *SecretStore) Upsert(ctx context.Context, secret vault.Secret) (*vault.Secret, error) {
	if secret.Name == "" {
		return nil, errors.InvalidInput("secret name is required")
	}
	if secret.Value == "" {
		return nil, errors.InvalidInput("secret value is required")
	}
	now := nowMilli()
	if secret.ID == "" {
		secret.ID = uuid.NewString()
	}
	secret.CreatedAt = fromMilli(now)
	secret.UpdatedAt = secret.CreatedAt

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, name, provider, value, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET provider = excluded.provider, value = excluded.value, updated_at = excluded.updated_at`, secretTable),
		secret.ID, secret.Name, secret.Provider, secret.Value, now, now)
	if err != nil {
		return nil, errors.WrapStorage("secret.upsert", err)
	}
	// The upsert may have kept the original row's id and created_at.
	return s.GetByName(ctx, secret.Name)
}

// Get returns the secret with the given id, plaintext value included.
func (s *SecretStore) Get(ctx context.Context, id string) (*vault.Secret, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, name, provider, value, created_at, updated_at FROM %s WHERE id = ?", secretTable), id)
	secret, err := scanSecret(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("secret", id)
		}
		return nil, errors.WrapStorage("secret.get", err)
	}
	return secret, nil
}

// GetByName returns the secret with the given name.
func (s *SecretStore) GetByName(ctx context.Context, name string) (*vault.Secret, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, name, provider, value, created_at, updated_at FROM %s WHERE name = ?", secretTable), name)
	secret, err := scanSecret(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("secret", name)
		}
		return nil, errors.WrapStorage("secret.get", err)
	}
	return secret, nil
}

// Delete removes the secret with the given id.
func (s *SecretStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", secretTable), id)
	if err != nil {
		return errors.WrapStorage("secret.delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WrapStorage("secret.delete", err)
	}
	if affected == 0 {
		return errors.NotFound("secret", id)
	}
	return nil
}

// List returns all secrets ordered by name, plaintext values included.
// Callers are responsible for masking before serialization.
func (s *SecretStore) List(ctx context.Context) ([]vault.Secret, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, name, provider, value, created_at, updated_at FROM %s ORDER BY name ASC", secretTable))
	if err != nil {
		return nil, errors.WrapStorage("secret.list", err)
	}
	defer rows.Close()

	var out []vault.Secret
	for rows.Next() {
		secret, err := scanSecret(rows)
		if err != nil {
			return nil, errors.WrapStorage("secret.list", err)
		}
		out = append(out, *secret)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStorage("secret.list", err)
	}
	return out, nil
}

func scanSecret(row rowScanner) (*vault.Secret, error) {
	var v vault.Secret
	var created, updated int64
	if err := row.Scan(&v.ID, &v.Name, &v.Provider, &v.Value, &created, &updated); err != nil {
		return nil, err
	}
	v.CreatedAt = fromMilli(created)
	v.UpdatedAt = fromMilli(updated)
	return &v, nil
}
