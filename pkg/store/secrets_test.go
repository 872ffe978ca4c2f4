package store

import (
	"context"
	"testing"

	"github.com/tracelens/tracelens/pkg/errors"
	"github.com/tracelens/tracelens/pkg/vault"
)

func newTestSecretStore(t *testing.T) *SecretStore {
	t.Helper()
	s, err := NewSecretStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewSecretStore failed: %v", err)
	}
	return s
}

func TestSecretUpsertAndGet(t *testing.T) {
	s := newTestSecretStore(t)
	ctx := context.Background()

	created, err := s.Upsert(ctx, vault.Secret{Name: "openai-prod", Provider: "openai", Value: "sk-abcdef0123456789"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Value != "sk-abcdef0123456789" {
		t.Errorf("plaintext must round-trip, got %q", got.Value)
	}

	byName, err := s.GetByName(ctx, "openai-prod")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("name lookup id = %s, want %s", byName.ID, created.ID)
	}
}

func TestSecretUpsertReplacesValue(t *testing.T) {
	s := newTestSecretStore(t)
	ctx := context.Background()

	first, _ := s.Upsert(ctx, vault.Secret{Name: "key", Provider: "openai", Value: "sk-old0000000000"})
	second, err := s.Upsert(ctx, vault.Secret{Name: "key", Provider: "openai", Value: "sk-new1111111111"})
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert must keep the original id, got %s vs %s", second.ID, first.ID)
	}
	if second.Value != "sk-new1111111111" {
		t.Errorf("value not replaced: %q", second.Value)
	}
}

func TestSecretValidation(t *testing.T) {
	s := newTestSecretStore(t)
	ctx := context.Background()

	if _, err := s.Upsert(ctx, vault.Secret{Provider: "p", Value: "v"}); err == nil {
		t.Error("missing name must fail")
	}
	if _, err := s.Upsert(ctx, vault.Secret{Name: "n", Provider: "p"}); err == nil {
		t.Error("missing value must fail")
	}
}

func TestSecretDelete(t *testing.T) {
	s := newTestSecretStore(t)
	ctx := context.Background()

	created, _ := s.Upsert(ctx, vault.Secret{Name: "k", Provider: "p", Value: "v-123456"})
	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, created.ID); errors.AsServiceError(err).Code != errors.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSecretListOrdering(t *testing.T) {
	s := newTestSecretStore(t)
	ctx := context.Background()

	s.Upsert(ctx, vault.Secret{Name: "zeta", Provider: "p", Value: "v-1"})
	s.Upsert(ctx, vault.Secret{Name: "alpha", Provider: "p", Value: "v-2"})

	secrets, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(secrets) != 2 || secrets[0].Name != "alpha" || secrets[1].Name != "zeta" {
		t.Errorf("unexpected order: %+v", secrets)
	}
}
