package db

import (
	"context"
	"fmt"

	"github.com/solatis/canvasagent/internal/types"
)

// DefaultJournalLimit bounds journal listings when no limit is given.
const DefaultJournalLimit = 50

// JournalStore persists command journal entries.
type JournalStore struct {
	queries *Queries
}

// NewJournalStore creates a store over queries.
func NewJournalStore(queries *Queries) *JournalStore {
	return &JournalStore{queries: queries}
}

// Record inserts entry.
func (s *JournalStore) Record(ctx context.Context, entry types.JournalEntry) error {
	_, err := s.queries.Exec(ctx, "insert-journal-entry",
		entry.JournalID,
		entry.RequestID,
		entry.Identity,
		entry.Command,
		entry.Status,
		entry.StopReason,
		entry.OperationCount,
		entry.Iterations,
		entry.HasMore,
		entry.ElapsedMs,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// List returns the newest entries, optionally restricted to identity.
func (s *JournalStore) List(ctx context.Context, identity string, limit int) ([]types.JournalEntry, error) {
	if limit <= 0 {
		limit = DefaultJournalLimit
	}

	var entries []types.JournalEntry
	var err error
	if identity == "" {
		err = s.queries.Select(ctx, "list-journal", &entries, limit)
	} else {
		err = s.queries.Select(ctx, "list-journal-by-identity", &entries, identity, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return entries, nil
}
