package postgres

import (
	"context"
	"database/sql"
	"fmt"

	id "refledger/pkg/domain"
	audit "refledger/pkg/platform/audit"
	txcontext "refledger/pkg/platform/tx"

	"github.com/google/uuid"
)

// Store persists audit events in PostgreSQL. Appends join an in-flight
// ledger transaction when one is present on the context so events commit or
// roll back with the state change they describe.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const appendQuery = `
INSERT INTO audit_events (
	id, occurred_at, participant_id, action, counterparty_id,
	amount, level, parameter, reason, request_id, actor_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var counterparty any
	if !event.Counterparty.IsNil() {
		counterparty = event.Counterparty.String()
	}
	var participant any
	if !event.Participant.IsNil() {
		participant = event.Participant.String()
	}
	_, err := s.execer(ctx).ExecContext(ctx, appendQuery,
		uuid.New().String(),
		event.Timestamp,
		participant,
		event.Action,
		counterparty,
		event.Amount,
		event.Level,
		event.Parameter,
		event.Reason,
		event.RequestID,
		event.ActorID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

const listQuery = `
SELECT occurred_at, participant_id, action, counterparty_id,
	amount, level, parameter, reason, request_id, actor_id
FROM audit_events
WHERE participant_id = $1
ORDER BY occurred_at ASC`

func (s *Store) ListByParticipant(ctx context.Context, participant id.ParticipantID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, listQuery, participant.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event        audit.Event
			participant  sql.NullString
			counterparty sql.NullString
		)
		if err := rows.Scan(
			&event.Timestamp,
			&participant,
			&event.Action,
			&counterparty,
			&event.Amount,
			&event.Level,
			&event.Parameter,
			&event.Reason,
			&event.RequestID,
			&event.ActorID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		if participant.Valid {
			parsed, err := id.ParseParticipantID(participant.String)
			if err != nil {
				return nil, fmt.Errorf("scan audit participant: %w", err)
			}
			event.Participant = parsed
		}
		if counterparty.Valid {
			parsed, err := id.ParseParticipantID(counterparty.String)
			if err != nil {
				return nil, fmt.Errorf("scan audit counterparty: %w", err)
			}
			event.Counterparty = parsed
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Schema is the DDL for the audit table; applied by the platform migrator.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id UUID PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	participant_id UUID,
	action TEXT NOT NULL,
	counterparty_id UUID,
	amount BIGINT NOT NULL DEFAULT 0,
	level INT NOT NULL DEFAULT 0,
	parameter TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	actor_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_participant_idx
	ON audit_events (participant_id, occurred_at);`
