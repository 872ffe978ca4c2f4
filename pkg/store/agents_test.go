package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/tracelens/tracelens/pkg/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAgentStore(t *testing.T) *AgentStore {
	t.Helper()
	s, err := NewAgentStore(openTestDB(t))
	if err != nil {
		t.Fatalf("NewAgentStore failed: %v", err)
	}
	return s
}

func TestAgentCreateAndGet(t *testing.T) {
	s := newTestAgentStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, Agent{Name: "eval-gpt", Provider: "openai", Model: "gpt-4o", Enabled: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "eval-gpt" || got.Provider != "openai" || !got.Enabled {
		t.Errorf("unexpected agent %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps must be set")
	}
}

func TestAgentCreateValidation(t *testing.T) {
	s := newTestAgentStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, Agent{Provider: "openai", Model: "gpt-4o"}); err == nil {
		t.Error("missing name must fail")
	}
	if _, err := s.Create(ctx, Agent{Name: "x"}); err == nil {
		t.Error("missing provider/model must fail")
	}
}

func TestAgentDuplicateName(t *testing.T) {
	s := newTestAgentStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, Agent{Name: "dup", Provider: "p", Model: "m"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := s.Create(ctx, Agent{Name: "dup", Provider: "p", Model: "m"})
	if err == nil {
		t.Fatal("duplicate name must fail")
	}
	if errors.AsServiceError(err).Code != errors.CodeConflict {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestAgentUpdate(t *testing.T) {
	s := newTestAgentStore(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, Agent{Name: "a", Provider: "p", Model: "m", Enabled: true})

	// A change that leaves enabled unset must not flip the flag.
	updated, err := s.Update(ctx, created.ID, AgentUpdate{Model: "m2"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Model != "m2" {
		t.Errorf("model = %s, want m2", updated.Model)
	}
	if updated.Name != "a" || updated.Provider != "p" {
		t.Errorf("unset fields must keep values: %+v", updated)
	}
	if !updated.Enabled {
		t.Error("enabled must survive an update that does not set it")
	}

	disabled := false
	updated, err = s.Update(ctx, created.ID, AgentUpdate{Enabled: &disabled})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Enabled {
		t.Error("enabled must be updatable to false")
	}
	if updated.Model != "m2" {
		t.Errorf("model must keep its value, got %s", updated.Model)
	}

	if _, err := s.Update(ctx, "missing", AgentUpdate{}); err == nil {
		t.Error("update of missing agent must fail")
	}
}

func TestAgentDelete(t *testing.T) {
	s := newTestAgentStore(t)
	ctx := context.Background()

	created, _ := s.Create(ctx, Agent{Name: "a", Provider: "p", Model: "m"})
	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, created.ID); errors.AsServiceError(err).Code != errors.CodeNotFound {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := s.Delete(ctx, created.ID); errors.AsServiceError(err).Code != errors.CodeNotFound {
		t.Errorf("double delete must be not found, got %v", err)
	}
}

func TestAgentListFilterAndPaging(t *testing.T) {
	s := newTestAgentStore(t)
	ctx := context.Background()

	enabled := true
	for _, a := range []Agent{
		{Name: "a1", Provider: "openai", Model: "m", Enabled: true},
		{Name: "a2", Provider: "openai", Model: "m", Enabled: false},
		{Name: "a3", Provider: "anthropic", Model: "m", Enabled: true},
	} {
		if _, err := s.Create(ctx, a); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	all, total, next, err := s.List(ctx, AgentFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 3 || len(all) != 3 || next != "" {
		t.Errorf("all: len=%d total=%d next=%q", len(all), total, next)
	}

	byProvider, total, _, err := s.List(ctx, AgentFilter{Provider: "openai"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(byProvider) != 2 {
		t.Errorf("provider filter: len=%d total=%d", len(byProvider), total)
	}

	onlyEnabled, total, _, err := s.List(ctx, AgentFilter{Enabled: &enabled})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(onlyEnabled) != 2 {
		t.Errorf("enabled filter: len=%d total=%d", len(onlyEnabled), total)
	}

	page1, total, next, err := s.List(ctx, AgentFilter{PageSize: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page1) != 2 || total != 3 || next == "" {
		t.Fatalf("page1: len=%d total=%d next=%q", len(page1), total, next)
	}
	page2, _, next2, err := s.List(ctx, AgentFilter{PageSize: 2, PageToken: next})
	if err != nil {
		t.Fatalf("List page2 failed: %v", err)
	}
	if len(page2) != 1 || next2 != "" {
		t.Errorf("page2: len=%d next=%q", len(page2), next2)
	}

	if _, _, _, err := s.List(ctx, AgentFilter{PageToken: "garbage"}); err == nil {
		t.Error("invalid page token must fail")
	}
}

func TestAgentSeedFromFile(t *testing.T) {
	s := newTestAgentStore(t)
	ctx := context.Background()

	seed := `
agents:
  - name: eval-gpt
    provider: openai
    model: gpt-4o
  - name: eval-claude
    provider: anthropic
    model: claude-sonnet
    enabled: false
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seed), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	created, err := s.SeedFromFile(ctx, path)
	if err != nil {
		t.Fatalf("SeedFromFile failed: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}

	// Idempotent: existing names are skipped.
	created, err = s.SeedFromFile(ctx, path)
	if err != nil {
		t.Fatalf("second SeedFromFile failed: %v", err)
	}
	if created != 0 {
		t.Errorf("second seed created = %d, want 0", created)
	}

	_, total, _, _ := s.List(ctx, AgentFilter{})
	if total != 2 {
		t.Errorf("total after reseed = %d, want 2", total)
	}
}
