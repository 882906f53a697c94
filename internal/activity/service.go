package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/portale-hq/portale/internal/idgen"
	"github.com/portale-hq/portale/internal/pagination"
)

// EventPublisher broadcasts platform events to live subscribers.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// Service writes and reads the activity feed. Record is fire-and-forget:
// feed failures are logged, never surfaced to the calling workflow.
type Service struct {
	store  Store
	events EventPublisher
	logger *slog.Logger
}

// NewService creates an activity service. events may be nil.
func NewService(store Store, events EventPublisher, logger *slog.Logger) *Service {
	return &Service{store: store, events: events, logger: logger}
}

// Record appends a feed entry and broadcasts it.
func (s *Service) Record(ctx context.Context, userID, kind, message string) {
	entry := &Entry{
		ID:        idgen.WithPrefix("act_"),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.Error("WARNING: activity feed write failed",
			"user_id", userID, "kind", kind, "error", err)
		return
	}
	if s.events != nil {
		s.events.Publish("activity", entry)
	}
}

// Page is one page of the feed.
type Page struct {
	Entries    []*Entry `json:"entries"`
	NextCursor string   `json:"next_cursor,omitempty"`
	HasMore    bool     `json:"has_more"`
}

// Feed returns one page of entries, newest first.
func (s *Service) Feed(ctx context.Context, limit int, opts ...ListOption) (*Page, error) {
	entries, err := s.store.List(ctx, limit+1, opts...)
	if err != nil {
		return nil, err
	}

	entries, next, hasMore := pagination.ComputePage(entries, limit, func(e *Entry) (time.Time, string) {
		return e.CreatedAt, e.ID
	})
	return &Page{Entries: entries, NextCursor: next, HasMore: hasMore}, nil
}
