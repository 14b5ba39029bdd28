package store

import (
	"context"
	"time"

	"wallet/internal/models"
)

// EventStore is the append-only log of domain events. Rows are never
// updated or deleted; per-aggregate versions form a contiguous sequence
// starting at 1, backed by a unique index on
// (aggregate_type, aggregate_id, version).
type EventStore struct {
	db DB
}

func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db}
}

const eventColumns = `id, aggregate_type, aggregate_id, event_type, event_data, metadata, version, occurred_at, created_at`

type EventInput struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	EventData     []byte
	Metadata      []byte
	Version       int64
	OccurredAt    time.Time
}

func (s *EventStore) Append(ctx context.Context, tx Execer, input EventInput) error {
	query := `
		INSERT INTO events (id, aggregate_type, aggregate_id, event_type, event_data, metadata, version, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.AggregateType, input.AggregateID, input.EventType,
		input.EventData, input.Metadata, input.Version, input.OccurredAt,
	)
	return err
}

// NextVersion computes max(version)+1 for an aggregate. This read and the
// subsequent Append are not atomic on their own; both must run inside the
// same transaction as the business mutation that produced the event.
func (s *EventStore) NextVersion(ctx context.Context, tx Getter, aggregateType, aggregateID string) (int64, error) {
	var next int64
	err := tx.GetContext(ctx, &next, `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM events
		WHERE aggregate_type = $1 AND aggregate_id = $2
	`, aggregateType, aggregateID)
	return next, err
}

// History returns the aggregate's full event stream in occurrence order.
func (s *EventStore) History(ctx context.Context, aggregateType, aggregateID string) ([]models.Event, error) {
	var rows []models.Event
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+eventColumns+`
		FROM events
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY occurred_at, version
	`, aggregateType, aggregateID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplayFrom returns the aggregate's events with version >= fromVersion.
func (s *EventStore) ReplayFrom(ctx context.Context, aggregateType, aggregateID string, fromVersion int64) ([]models.Event, error) {
	var rows []models.Event
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+eventColumns+`
		FROM events
		WHERE aggregate_type = $1 AND aggregate_id = $2 AND version >= $3
		ORDER BY occurred_at, version
	`, aggregateType, aggregateID, fromVersion)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *EventStore) ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]models.Event, error) {
	var rows []models.Event
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+eventColumns+`
		FROM events
		WHERE event_type = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`, eventType, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *EventStore) ListRecent(ctx context.Context, limit, offset int) ([]models.Event, error) {
	var rows []models.Event
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+eventColumns+`
		FROM events
		ORDER BY occurred_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
