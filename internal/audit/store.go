package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/valinor-ai/slackgate/internal/platform/database"
)

// Store handles audit event persistence.
type Store struct{}

// NewStore creates an audit Store.
func NewStore() *Store {
	return &Store{}
}

// InsertBatch writes a batch of events to the database.
func (s *Store) InsertBatch(ctx context.Context, db database.Querier, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	sql, args, err := buildBatchInsert(events)
	if err != nil {
		return fmt.Errorf("building batch insert: %w", err)
	}
	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("inserting verification events: %w", err)
	}
	return nil
}

// buildBatchInsert constructs a multi-row INSERT statement. Events without
// an ID get a fresh one.
func buildBatchInsert(events []Event) (string, []any, error) {
	const cols = "(id, request_id, action, outcome, metadata, source)"
	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events)*6)

	for i, e := range events {
		base := i * 6
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))

		var metaJSON []byte
		if e.Metadata != nil {
			var err error
			metaJSON, err = json.Marshal(e.Metadata)
			if err != nil {
				return "", nil, fmt.Errorf("marshaling metadata: %w", err)
			}
		}

		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		args = append(args, id, e.RequestID, e.Action, e.Outcome, metaJSON, e.Source)
	}

	sql := fmt.Sprintf("INSERT INTO verification_events %s VALUES %s", cols, strings.Join(placeholders, ", "))
	return sql, args, nil
}
