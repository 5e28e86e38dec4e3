package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"arsflow/pkg/schema"
)

// AppendEvent appends an event with a monotonically increasing per-scenario sequence.
func (s *LibSQLStore) AppendEvent(ctx context.Context, event *Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM events WHERE scenario_id = ?`, event.ScenarioID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	event.Sequence = seq

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (scenario_id, node_id, event_type, payload, actor, timestamp, sequence)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ScenarioID, nullStr(event.NodeID), event.Type, nullRaw(event.Payload),
		nullStr(event.Actor), event.Timestamp, seq,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event: %w", err)
	}
	return nil
}

// GetEvents returns events for a scenario with sequence > since, ordered by sequence ASC.
func (s *LibSQLStore) GetEvents(ctx context.Context, scenarioID string, since int64) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scenario_id, node_id, event_type, payload, actor, timestamp, sequence
		 FROM events WHERE scenario_id = ? AND sequence > ? ORDER BY sequence ASC`,
		scenarioID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetEventsByType returns events of a specific type matching the filter.
func (s *LibSQLStore) GetEventsByType(ctx context.Context, eventType string, filter EventFilter) ([]*Event, error) {
	var where []string
	var args []any

	where = append(where, "event_type = ?")
	args = append(args, eventType)

	if filter.ScenarioID != "" {
		where = append(where, "scenario_id = ?")
		args = append(args, filter.ScenarioID)
	}
	if filter.NodeID != "" {
		where = append(where, "node_id = ?")
		args = append(args, filter.NodeID)
	}
	if filter.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, scenario_id, node_id, event_type, payload, actor, timestamp, sequence FROM events`
	query += " WHERE " + strings.Join(where, " AND ")
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	var events []*Event
	for rows.Next() {
		e := &Event{}
		var nodeID, actor, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.ScenarioID, &nodeID, &e.Type, &payload, &actor, &e.Timestamp, &e.Sequence); err != nil {
			return nil, err
		}
		e.NodeID = nodeID.String
		e.Actor = actor.String
		e.Payload = rawOrNil(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

// EventLog provides audit-trail operations on top of a LibSQLStore.
type EventLog struct {
	store *LibSQLStore
}

// NewEventLog wraps a LibSQLStore to provide audit-trail operations.
func NewEventLog(s *LibSQLStore) *EventLog {
	return &EventLog{store: s}
}

// AppendEvent records a change against a scenario.
func (el *EventLog) AppendEvent(ctx context.Context, event *Event) error {
	return el.store.AppendEvent(ctx, event)
}

// ChangeRecord is one entry of a scenario's audit timeline.
type ChangeRecord struct {
	Sequence  int64     `json:"sequence"`
	Type      string    `json:"event_type"`
	NodeID    string    `json:"node_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// History replays all events for a scenario into an ordered audit timeline.
// Returns an error if sequence gaps are detected.
func (el *EventLog) History(ctx context.Context, scenarioID string) ([]ChangeRecord, error) {
	events, err := el.store.GetEvents(ctx, scenarioID, 0)
	if err != nil {
		return nil, fmt.Errorf("get events for history: %w", err)
	}

	records := make([]ChangeRecord, 0, len(events))
	for i, e := range events {
		expected := int64(i + 1)
		if e.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in scenario %s: expected %d, got %d", scenarioID, expected, e.Sequence)
		}
		records = append(records, ChangeRecord{
			Sequence:  e.Sequence,
			Type:      e.Type,
			NodeID:    e.NodeID,
			Actor:     e.Actor,
			Timestamp: e.Timestamp,
		})
	}
	return records, nil
}
