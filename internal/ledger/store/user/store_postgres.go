package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"refledger/internal/ledger/models"
	id "refledger/pkg/domain"
	"refledger/pkg/platform/sentinel"
	txcontext "refledger/pkg/platform/tx"
)

// PostgresUserStore persists the ledger in PostgreSQL. Mutations run inside
// the transaction found on the context when one is present, so the lifecycle
// service can group a registration's writes into one commit.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresUserStore) runner(ctx context.Context) dbRunner {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const getQuery = `
SELECT id, referrer, referral_count, total_rewards, registered, subscribed, credential_id
FROM ledger_users WHERE id = $1`

func (s *PostgresUserStore) Get(ctx context.Context, participant id.ParticipantID) (*models.UserRecord, error) {
	row := s.runner(ctx).QueryRowContext(ctx, getQuery, participant.String())
	record, err := scanUser(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return record, nil
}

const putQuery = `
INSERT INTO ledger_users (id, referrer, referral_count, total_rewards, registered, subscribed, credential_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	referrer = EXCLUDED.referrer,
	referral_count = EXCLUDED.referral_count,
	total_rewards = EXCLUDED.total_rewards,
	registered = EXCLUDED.registered,
	subscribed = EXCLUDED.subscribed,
	credential_id = EXCLUDED.credential_id
WHERE ledger_users.total_rewards <= EXCLUDED.total_rewards`

func (s *PostgresUserStore) Put(ctx context.Context, record *models.UserRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	var referrer any
	if record.HasReferrer() {
		referrer = record.Referrer.String()
	}
	result, err := s.runner(ctx).ExecContext(ctx, putQuery,
		record.ID.String(),
		referrer,
		record.ReferralCount,
		record.TotalRewards,
		record.Registered,
		record.Subscribed,
		uint64(record.CredentialID),
	)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	if affected == 0 {
		// The write would have decreased total_rewards.
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresUserStore) AddEdge(ctx context.Context, referrer, referee id.ParticipantID) error {
	if referrer == referee {
		return sentinel.ErrInvalidState
	}
	return s.inTx(ctx, func(ctx context.Context, run dbRunner) error {
		_, err := run.ExecContext(ctx,
			`INSERT INTO referral_edges (referrer, referee) VALUES ($1, $2)`,
			referrer.String(), referee.String())
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert edge: %w", err)
		}
		result, err := run.ExecContext(ctx,
			`UPDATE ledger_users SET referral_count = referral_count + 1 WHERE id = $1`,
			referrer.String())
		if err != nil {
			return fmt.Errorf("bump referral count: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("bump referral count: %w", err)
		}
		if affected == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

const edgesQuery = `
SELECT referee FROM referral_edges WHERE referrer = $1 ORDER BY position ASC`

func (s *PostgresUserStore) EdgesOf(ctx context.Context, participant id.ParticipantID) ([]id.ParticipantID, error) {
	rows, err := s.runner(ctx).QueryContext(ctx, edgesQuery, participant.String())
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	var edges []id.ParticipantID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		referee, err := id.ParseParticipantID(raw)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, referee)
	}
	return edges, rows.Err()
}

// Delete runs the relinking algorithm in one SQL transaction: remove the
// victim from its referrer's edge list, reattach the victim's children to
// that referrer, then erase the victim's row and edges.
func (s *PostgresUserStore) Delete(ctx context.Context, participant id.ParticipantID) error {
	return s.inTx(ctx, func(ctx context.Context, run dbRunner) error {
		row := run.QueryRowContext(ctx, getQuery+` FOR UPDATE`, participant.String())
		victim, err := scanUser(row.Scan)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("load victim: %w", err)
		}

		parent := victim.Referrer
		hasParent := victim.HasReferrer()
		if hasParent {
			// The parent may itself have been deleted already; relinking
			// then promotes the children to roots.
			var exists bool
			if err := run.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM ledger_users WHERE id = $1)`,
				parent.String()).Scan(&exists); err != nil {
				return fmt.Errorf("check parent: %w", err)
			}
			hasParent = exists
		}

		if hasParent {
			result, err := run.ExecContext(ctx,
				`DELETE FROM referral_edges WHERE referrer = $1 AND referee = $2`,
				parent.String(), participant.String())
			if err != nil {
				return fmt.Errorf("unlink victim: %w", err)
			}
			if affected, _ := result.RowsAffected(); affected > 0 {
				if _, err := run.ExecContext(ctx,
					`UPDATE ledger_users SET referral_count = GREATEST(referral_count - 1, 0) WHERE id = $1`,
					parent.String()); err != nil {
					return fmt.Errorf("drop referral count: %w", err)
				}
			}
		}

		childRows, err := run.QueryContext(ctx, edgesQuery, participant.String())
		if err != nil {
			return fmt.Errorf("load children: %w", err)
		}
		var children []string
		for childRows.Next() {
			var child string
			if err := childRows.Scan(&child); err != nil {
				childRows.Close()
				return fmt.Errorf("scan child: %w", err)
			}
			children = append(children, child)
		}
		childRows.Close()
		if err := childRows.Err(); err != nil {
			return fmt.Errorf("load children: %w", err)
		}

		for _, child := range children {
			var newReferrer any
			if hasParent {
				newReferrer = parent.String()
			}
			if _, err := run.ExecContext(ctx,
				`UPDATE ledger_users SET referrer = $1 WHERE id = $2`,
				newReferrer, child); err != nil {
				return fmt.Errorf("relink child: %w", err)
			}
			if hasParent {
				if _, err := run.ExecContext(ctx,
					`INSERT INTO referral_edges (referrer, referee) VALUES ($1, $2)`,
					parent.String(), child); err != nil {
					return fmt.Errorf("reattach child: %w", err)
				}
				if _, err := run.ExecContext(ctx,
					`UPDATE ledger_users SET referral_count = referral_count + 1 WHERE id = $1`,
					parent.String()); err != nil {
					return fmt.Errorf("bump referral count: %w", err)
				}
			}
		}

		if _, err := run.ExecContext(ctx,
			`DELETE FROM referral_edges WHERE referrer = $1`, participant.String()); err != nil {
			return fmt.Errorf("erase victim edges: %w", err)
		}
		if _, err := run.ExecContext(ctx,
			`DELETE FROM ledger_users WHERE id = $1`, participant.String()); err != nil {
			return fmt.Errorf("erase victim: %w", err)
		}
		return nil
	})
}

// inTx joins the context transaction when present, otherwise opens one.
func (s *PostgresUserStore) inTx(ctx context.Context, fn func(context.Context, dbRunner) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(ctx, tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanUser(scan func(dest ...any) error) (*models.UserRecord, error) {
	var (
		record     models.UserRecord
		rawID      string
		referrer   sql.NullString
		credential uint64
	)
	if err := scan(&rawID, &referrer, &record.ReferralCount, &record.TotalRewards,
		&record.Registered, &record.Subscribed, &credential); err != nil {
		return nil, err
	}
	parsed, err := id.ParseParticipantID(rawID)
	if err != nil {
		return nil, err
	}
	record.ID = parsed
	if referrer.Valid {
		parsedReferrer, err := id.ParseParticipantID(referrer.String)
		if err != nil {
			return nil, err
		}
		record.Referrer = parsedReferrer
	}
	record.CredentialID = id.CredentialID(credential)
	return &record, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Schema is the DDL for the ledger tables; applied by the platform migrator.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_users (
	id UUID PRIMARY KEY,
	referrer UUID,
	referral_count INT NOT NULL DEFAULT 0,
	total_rewards BIGINT NOT NULL DEFAULT 0,
	registered BOOLEAN NOT NULL DEFAULT TRUE,
	subscribed BOOLEAN NOT NULL DEFAULT FALSE,
	credential_id BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS referral_edges (
	referrer UUID NOT NULL,
	referee UUID NOT NULL,
	position BIGSERIAL,
	PRIMARY KEY (referrer, referee)
);
CREATE INDEX IF NOT EXISTS referral_edges_order_idx
	ON referral_edges (referrer, position);`
