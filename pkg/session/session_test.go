package session

import (
	"testing"
	"time"

	"github.com/tracelens/tracelens/pkg/errors"
)

func TestBeginAndLookup(t *testing.T) {
	r := NewRegistry(time.Hour)
	s, err := r.Begin("ana")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if s.Token == "" {
		t.Fatal("expected a token")
	}
	got, err := r.Lookup(s.Token)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.User != "ana" {
		t.Errorf("user = %q, want ana", got.User)
	}
	if got.ExpiresAt.Sub(got.CreatedAt) != time.Hour {
		t.Errorf("unexpected expiry window %s", got.ExpiresAt.Sub(got.CreatedAt))
	}
}

func TestBeginRequiresUser(t *testing.T) {
	r := NewRegistry(time.Hour)
	_, err := r.Begin("")
	if err == nil {
		t.Fatal("expected error for empty user")
	}
	if errors.AsServiceError(err).Code != errors.CodeInvalidInput {
		t.Errorf("unexpected code: %v", err)
	}
}

func TestLookupUnknownToken(t *testing.T) {
	r := NewRegistry(time.Hour)
	_, err := r.Lookup("nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.AsServiceError(err).Code != errors.CodeUnauthorized {
		t.Errorf("unexpected code: %v", err)
	}
}

func TestEnd(t *testing.T) {
	r := NewRegistry(time.Hour)
	s, _ := r.Begin("ana")
	if err := r.End(s.Token); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if _, err := r.Lookup(s.Token); err == nil {
		t.Error("ended session must not resolve")
	}
	if err := r.End(s.Token); err == nil {
		t.Error("double End must fail")
	}
}

func TestReset(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Begin("ana")
	r.Begin("bo")
	if r.Count() != 2 {
		t.Fatalf("count = %d, want 2", r.Count())
	}
	r.Reset()
	if r.Count() != 0 {
		t.Errorf("count after reset = %d", r.Count())
	}
}

func TestExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	r := NewRegistry(time.Minute, WithClock(func() time.Time { return clock() }))

	s, _ := r.Begin("ana")
	if _, err := r.Lookup(s.Token); err != nil {
		t.Fatalf("fresh session must resolve: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := r.Lookup(s.Token); err == nil {
		t.Error("expired session must not resolve")
	}
	if r.Count() != 0 {
		t.Errorf("expired session must be removed on lookup, count = %d", r.Count())
	}
}

func TestSweep(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	r := NewRegistry(time.Minute, WithClock(func() time.Time { return clock() }))

	r.Begin("ana")
	r.Begin("bo")
	now = now.Add(time.Hour)
	r.Begin("cy")

	if dropped := r.Sweep(); dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

func TestNoTTLNeverExpires(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	r := NewRegistry(0, WithClock(func() time.Time { return clock() }))
	s, _ := r.Begin("ana")
	now = now.Add(1000 * time.Hour)
	if _, err := r.Lookup(s.Token); err != nil {
		t.Errorf("zero-ttl session must persist: %v", err)
	}
}
