// Package activity maintains the append-only platform activity feed.
package activity

import (
	"context"
	"time"

	"github.com/portale-hq/portale/internal/pagination"
)

// Entry is one row in the activity feed.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOption configures optional parameters for feed queries.
type ListOption func(*listOpts)

type listOpts struct {
	cursor *pagination.Cursor
	userID string
	kind   string
}

func applyListOpts(opts []ListOption) listOpts {
	var o listOpts
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithCursor filters results to entries after the given cursor position.
func WithCursor(cursor string) ListOption {
	return func(o *listOpts) {
		c, err := pagination.Decode(cursor)
		if err == nil {
			o.cursor = c
		}
	}
}

// WithUser restricts the feed to one user's entries.
func WithUser(userID string) ListOption {
	return func(o *listOpts) {
		o.userID = userID
	}
}

// WithKind restricts the feed to one entry kind.
func WithKind(kind string) ListOption {
	return func(o *listOpts) {
		o.kind = kind
	}
}

// Store persists the activity feed.
type Store interface {
	// Append writes a feed entry.
	Append(ctx context.Context, e *Entry) error
	// List returns entries newest first. The caller fetches limit+1 rows to
	// detect further pages.
	List(ctx context.Context, limit int, opts ...ListOption) ([]*Entry, error)
}
