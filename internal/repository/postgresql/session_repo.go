package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"parking_ledger/internal/domain"
	"parking_ledger/internal/repository"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gopkg.in/guregu/null.v4"
)

const (
	uniqueViolationCode   = "23505"
	activePlateConstraint = "sessions_active_plate_key"
	sessionColumns        = `id, plate, "entry", "exit", amount, active`
)

type pgSessionRepository struct {
	db  *sql.DB
	loc *time.Location
}

func NewPgSessionRepository(db *sql.DB, loc *time.Location) repository.OccupancyStore {
	if loc == nil {
		loc = time.UTC
	}
	return &pgSessionRepository{db: db, loc: loc}
}

func (r *pgSessionRepository) CreateActiveSession(ctx context.Context, plate string, entryTime time.Time) (int64, error) {
	query := `INSERT INTO sessions (plate, "entry", active) VALUES ($1, $2, TRUE) RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, plate, entryTime).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, activePlateConstraint) {
			return 0, fmt.Errorf("%w: %s", repository.ErrAlreadyActive, plate)
		}
		return 0, fmt.Errorf("SessionRepository.CreateActiveSession: %w", err)
	}
	return id, nil
}

func (r *pgSessionRepository) FindActiveSession(ctx context.Context, plate string) (*domain.VehicleSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE plate = $1 AND active`

	session, err := r.scanSession(r.db.QueryRowContext(ctx, query, plate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoActiveSession
		}
		return nil, fmt.Errorf("SessionRepository.FindActiveSession: %w", err)
	}
	return session, nil
}

func (r *pgSessionRepository) CloseSession(ctx context.Context, id int64, exitTime time.Time, amountDue float64) error {
	query := `UPDATE sessions SET "exit" = $1, amount = $2, active = FALSE WHERE id = $3 AND active`

	res, err := r.db.ExecContext(ctx, query, exitTime, amountDue, id)
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

func (r *pgSessionRepository) ListActiveSessions(ctx context.Context) ([]domain.VehicleSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE active ORDER BY "entry" ASC, id ASC`
	sessions, err := r.list(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.ListActiveSessions: %w", err)
	}
	return sessions, nil
}

func (r *pgSessionRepository) ListClosedSessions(ctx context.Context) ([]domain.VehicleSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE NOT active ORDER BY id ASC`
	sessions, err := r.list(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.ListClosedSessions: %w", err)
	}
	return sessions, nil
}

func (r *pgSessionRepository) ListSessions(ctx context.Context) ([]domain.VehicleSession, error) {
	sessions, err := r.list(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.ListSessions: %w", err)
	}
	return sessions, nil
}

func (r *pgSessionRepository) list(ctx context.Context, query string) ([]domain.VehicleSession, error) {
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
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *pgSessionRepository) scanSession(row rowScanner) (*domain.VehicleSession, error) {
	session := &domain.VehicleSession{}
	var exitTime sql.NullTime
	var amount sql.NullFloat64
	if err := row.Scan(&session.ID, &session.Plate, &session.EntryTime, &exitTime, &amount, &session.Active); err != nil {
		return nil, err
	}
	session.EntryTime = session.EntryTime.In(r.loc)
	if exitTime.Valid {
		session.ExitTime = null.TimeFrom(exitTime.Time.In(r.loc))
	}
	if amount.Valid {
		session.AmountDue = null.FloatFrom(amount.Float64)
	}
	return session, nil
}

// isUniqueViolation reports whether err is a unique_violation on constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == constraint
	}
	return false
}
