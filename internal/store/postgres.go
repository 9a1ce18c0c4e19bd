package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pathlight/assessment-backend/internal/model"
)

// PostgresStore is the durable SessionStore backed by PostgreSQL. The
// version column carries the optimistic-concurrency counter; every write is
// conditioned on it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgresStore on the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sessionColumns = `id, test_id, owner_id, state, current_page, answers, started_at, deadline, demographics, result, version`

// Create persists a new session at version 1.
func (r *PostgresStore) Create(ctx context.Context, s *model.Session) error {
	answers, result, err := marshalSessionBlobs(s)
	if err != nil {
		return err
	}

	s.Version = 1
	_, err = r.pool.Exec(ctx,
		`INSERT INTO sessions (id, test_id, owner_id, state, current_page, answers, started_at, deadline, demographics, result, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.TestID, s.OwnerID, s.State, s.CurrentPage, answers,
		s.StartedAt, s.Deadline, s.Demographics, result, s.Version,
	)
	if err != nil {
		return unavailable("insert session", err)
	}
	return nil
}

// Get returns the session with the given id.
func (r *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetActiveByOwner returns the owner's Active session for a test definition.
func (r *PostgresStore) GetActiveByOwner(ctx context.Context, ownerID uuid.UUID, testID string) (*model.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE owner_id = $1 AND test_id = $2 AND state = $3
		 ORDER BY started_at DESC
		 LIMIT 1`,
		ownerID, testID, model.SessionStateActive)
	return scanSession(row)
}

// CompareAndSwap replaces the stored session iff the version still matches.
func (r *PostgresStore) CompareAndSwap(ctx context.Context, expectedVersion int64, s *model.Session) error {
	answers, result, err := marshalSessionBlobs(s)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET state = $1, current_page = $2, answers = $3, deadline = $4,
		     demographics = $5, result = $6, version = version + 1
		 WHERE id = $7 AND version = $8`,
		s.State, s.CurrentPage, answers, s.Deadline,
		s.Demographics, result, s.ID, expectedVersion,
	)
	if err != nil {
		return unavailable("update session", err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish a stale version from a missing row.
		var exists bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, s.ID,
		).Scan(&exists)
		if err != nil {
			return unavailable("check session", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	s.Version = expectedVersion + 1
	return nil
}

// ListUnsettled returns overdue Active sessions and claimed sessions that
// are still missing a result.
func (r *PostgresStore) ListUnsettled(ctx context.Context, now time.Time, limit int) ([]*model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE (state = $1 AND deadline IS NOT NULL AND deadline < $2)
		    OR (state IN ($3, $4) AND result IS NULL)
		 ORDER BY started_at ASC
		 LIMIT $5`,
		model.SessionStateActive, now,
		model.SessionStateAutoSubmitted, model.SessionStateManuallySubmitted, limit)
	if err != nil {
		return nil, unavailable("list unsettled sessions", err)
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list unsettled sessions", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var (
		s       model.Session
		answers []byte
		result  []byte
	)
	err := row.Scan(&s.ID, &s.TestID, &s.OwnerID, &s.State, &s.CurrentPage,
		&answers, &s.StartedAt, &s.Deadline, &s.Demographics, &result, &s.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, unavailable("scan session", err)
	}

	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if len(result) > 0 {
		s.Result = &model.ScoreResult{}
		if err := json.Unmarshal(result, s.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &s, nil
}

func marshalSessionBlobs(s *model.Session) (answers, result []byte, err error) {
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	answers, err = json.Marshal(s.Answers)
	if err != nil {
		return nil, nil, fmt.Errorf("encode answers: %w", err)
	}
	if s.Result != nil {
		result, err = json.Marshal(s.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("encode result: %w", err)
		}
	}
	return answers, result, nil
}

// unavailable tags an infrastructure failure so callers can match it with
// errors.Is(err, ErrUnavailable).
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
