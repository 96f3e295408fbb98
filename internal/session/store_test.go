// internal/session/store_test.go
package session

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/btdesk/internal/core"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	id, v := store.Create()
	if id == "" {
		t.Error("expected session ID")
	}
	if v.Result != nil {
		t.Error("expected empty view")
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Form.Strategy() != core.StrategyThresholdCross {
		t.Errorf("expected default strategy, got %s", got.Form.Strategy())
	}
}

func TestStore_Put(t *testing.T) {
	store := NewStore(100, time.Hour)
	id, v := store.Create()

	v.Result = &core.Result{Symbol: "AAPL"}
	if err := store.Put(id, v); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, _ := store.Get(id)
	if got.Result == nil || got.Result.Symbol != "AAPL" {
		t.Error("expected stored result")
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	store := NewStore(100, time.Hour)
	id, v := store.Create()

	first := v
	first.Result = &core.Result{Symbol: "FIRST"}
	second := v
	second.Result = &core.Result{Symbol: "SECOND"}

	store.Put(id, second)
	store.Put(id, first)

	got, _ := store.Get(id)
	if got.Result.Symbol != "FIRST" {
		t.Errorf("expected last write to win, got %s", got.Result.Symbol)
	}
}

func TestStore_MaxSize(t *testing.T) {
	store := NewStore(2, time.Hour)

	id1, _ := store.Create()
	store.Create()
	store.Create() // Should evict id1

	if _, err := store.Get(id1); err == nil {
		t.Error("expected first session to be evicted")
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", store.Len())
	}
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(100, time.Hour)

	_, err := store.Get("nonexistent")
	if !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := store.Put("nonexistent", NewView()); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestStore_TTL(t *testing.T) {
	store := NewStore(100, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	stale, _ := store.Create()
	now = now.Add(30 * time.Second)
	fresh, _ := store.Create()

	now = now.Add(45 * time.Second)
	if _, err := store.Get(stale); err == nil {
		t.Error("expected stale session to expire")
	}
	if _, err := store.Get(fresh); err != nil {
		t.Errorf("expected fresh session to survive: %v", err)
	}

	if remaining := store.Sweep(); remaining != 1 {
		t.Errorf("expected 1 session after sweep, got %d", remaining)
	}
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	id, _ := store.Create()

	wantErr := errors.New("rejected")
	err := store.Update(id, func(v View) (View, error) {
		v.Notice = &Notice{Kind: NoticeValidation, Message: "kept"}
		return v, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected fn error, got %v", err)
	}

	got, _ := store.Get(id)
	if got.Notice == nil || got.Notice.Message != "kept" {
		t.Error("expected view to be stored despite error")
	}

	if err := store.Update("missing", func(v View) (View, error) { return v, nil }); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}
