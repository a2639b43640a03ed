package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/repository"

	"gopkg.in/guregu/null.v4"
)

const sessionColumns = `id, plate, "entry", "exit", amount, active`

type sqliteSessionRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewSqliteSessionRepository stores sessions in db. Timestamps read back are
// converted to loc (UTC when nil).
func NewSqliteSessionRepository(db *sql.DB, loc *time.Location) repository.OccupancyStore {
	if loc == nil {
		loc = time.UTC
	}
	return &sqliteSessionRepository{db: db, loc: loc}
}

func (r *sqliteSessionRepository) CreateActiveSession(ctx context.Context, plate string, entryTime time.Time) (int64, error) {
	// The partial unique index on (plate) WHERE active = 1 rejects a second active
	// session, so the insert itself is the existence check.
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (plate, "entry", active) VALUES (?, ?, 1)`,
		plate, entryTime.In(r.loc).Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", repository.ErrAlreadyActive, plate)
		}
		return 0, fmt.Errorf("SessionRepository.CreateActiveSession: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("SessionRepository.CreateActiveSession (last insert id): %w", err)
	}
	return id, nil
}

func (r *sqliteSessionRepository) FindActiveSession(ctx context.Context, plate string) (*domain.VehicleSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE plate = ? AND active = 1`, plate)
	session, err := r.scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoActiveSession
		}
		return nil, fmt.Errorf("SessionRepository.FindActiveSession: %w", err)
	}
	return session, nil
}

func (r *sqliteSessionRepository) CloseSession(ctx context.Context, id int64, exitTime time.Time, amountDue float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET "exit" = ?, amount = ?, active = 0 WHERE id = ? AND active = 1`,
		exitTime.In(r.loc).Format(time.RFC3339Nano), amountDue, id,
	)
	if err != nil {
		return fmt.Errorf("SessionRepository.CloseSession: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SessionRepository.CloseSession (rows affected): %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: sessão %d inexistente ou já encerrada", repository.ErrNotFound, id)
	}
	return nil
}

func (r *sqliteSessionRepository) ListActiveSessions(ctx context.Context) ([]domain.VehicleSession, error) {
	sessions, err := r.list(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.ListActiveSessions: %w", err)
	}
	// Entry times are stored as text with an offset; order on the parsed value.
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].EntryTime.Before(sessions[j].EntryTime)
	})
	return sessions, nil
}

func (r *sqliteSessionRepository) ListClosedSessions(ctx context.Context) ([]domain.VehicleSession, error) {
	sessions, err := r.list(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE active = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.ListClosedSessions: %w", err)
	}
	return sessions, nil
}

func (r *sqliteSessionRepository) ListSessions(ctx context.Context) ([]domain.VehicleSession, error) {
	sessions, err := r.list(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.ListSessions: %w", err)
	}
	return sessions, nil
}

func (r *sqliteSessionRepository) list(ctx context.Context, query string) ([]domain.VehicleSession, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.VehicleSession{}
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *sqliteSessionRepository) scanSession(row rowScanner) (*domain.VehicleSession, error) {
	var (
		session domain.VehicleSession
		entry   string
		exit    sql.NullString
		amount  sql.NullFloat64
	)
	if err := row.Scan(&session.ID, &session.Plate, &entry, &exit, &amount, &session.Active); err != nil {
		return nil, err
	}
	entryTime, err := time.Parse(time.RFC3339Nano, entry)
	if err != nil {
		return nil, fmt.Errorf("entrada inválida na sessão %d: %w", session.ID, err)
	}
	session.EntryTime = entryTime.In(r.loc)
	if exit.Valid {
		exitTime, err := time.Parse(time.RFC3339Nano, exit.String)
		if err != nil {
			return nil, fmt.Errorf("saída inválida na sessão %d: %w", session.ID, err)
		}
		session.ExitTime = null.TimeFrom(exitTime.In(r.loc))
	}
	if amount.Valid {
		session.AmountDue = null.FloatFrom(amount.Float64)
	}
	return &session, nil
}
