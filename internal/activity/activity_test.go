package activity

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"
)

func seedEntries(t *testing.T, store Store, n int) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		err := store.Append(context.Background(), &Entry{
			ID:        fmt.Sprintf("act_%03d", i),
			UserID:    fmt.Sprintf("usr_%d", i%2),
			Kind:      "mission_completed",
			Message:   fmt.Sprintf("entry %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func TestMemoryStoreList(t *testing.T) {
	store := NewMemoryStore()
	seedEntries(t, store, 5)

	entries, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	if entries[0].ID != "act_004" || entries[4].ID != "act_000" {
		t.Errorf("feed should be newest first: %s .. %s", entries[0].ID, entries[4].ID)
	}

	mine, err := store.List(context.Background(), 10, WithUser("usr_0"))
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 3 {
		t.Errorf("usr_0 entries = %d, want 3", len(mine))
	}
	for _, e := range mine {
		if e.UserID != "usr_0" {
			t.Errorf("user filter leaked entry for %s", e.UserID)
		}
	}
}

func TestServicePagination(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, slog.Default())
	seedEntries(t, store, 7)

	page, err := svc.Feed(context.Background(), 3)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(page.Entries) != 3 || !page.HasMore || page.NextCursor == "" {
		t.Fatalf("first page = %d entries, hasMore=%v", len(page.Entries), page.HasMore)
	}

	seen := map[string]bool{}
	for _, e := range page.Entries {
		seen[e.ID] = true
	}

	page2, err := svc.Feed(context.Background(), 3, WithCursor(page.NextCursor))
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(page2.Entries) != 3 || !page2.HasMore {
		t.Fatalf("second page = %d entries, hasMore=%v", len(page2.Entries), page2.HasMore)
	}
	for _, e := range page2.Entries {
		if seen[e.ID] {
			t.Errorf("entry %s appeared on both pages", e.ID)
		}
		seen[e.ID] = true
	}

	page3, err := svc.Feed(context.Background(), 3, WithCursor(page2.NextCursor))
	if err != nil {
		t.Fatalf("third page: %v", err)
	}
	if len(page3.Entries) != 1 || page3.HasMore {
		t.Errorf("third page = %d entries, hasMore=%v, want 1/false",
			len(page3.Entries), page3.HasMore)
	}
}

type capturedEvent struct {
	Type    string
	Payload any
}

type stubPublisher struct {
	events []capturedEvent
}

func (p *stubPublisher) Publish(eventType string, payload any) {
	p.events = append(p.events, capturedEvent{Type: eventType, Payload: payload})
}

func TestRecordBroadcasts(t *testing.T) {
	store := NewMemoryStore()
	events := &stubPublisher{}
	svc := NewService(store, events, slog.Default())

	svc.Record(context.Background(), "usr_1", "tokens_staked", "Staked 100 tokens")

	entries, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Kind != "tokens_staked" {
		t.Errorf("kind = %q, want tokens_staked", entries[0].Kind)
	}

	if len(events.events) != 1 || events.events[0].Type != "activity" {
		t.Fatalf("expected one activity broadcast, got %+v", events.events)
	}
}
