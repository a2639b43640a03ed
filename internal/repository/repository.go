package repository

import (
	"context"
	"errors"
	"parking_ledger/internal/domain"
	"time"
)

var ErrNotFound = errors.New("registro não encontrado")
var ErrDuplicateEntry = errors.New("registro já existe")
var ErrAlreadyActive = errors.New("já existe uma sessão ativa para esta placa")
var ErrNoActiveSession = errors.New("nenhuma sessão ativa para esta placa")

// OccupancyStore is the only owner of vehicle sessions. CreateActiveSession and
// CloseSession are each a single atomic statement, so at most one active session
// per plate holds even with concurrent callers.
type OccupancyStore interface {
	CreateActiveSession(ctx context.Context, plate string, entryTime time.Time) (int64, error)
	FindActiveSession(ctx context.Context, plate string) (*domain.VehicleSession, error)
	CloseSession(ctx context.Context, id int64, exitTime time.Time, amountDue float64) error
	// ListActiveSessions is ordered by entry time, oldest first.
	ListActiveSessions(ctx context.Context) ([]domain.VehicleSession, error)
	// ListClosedSessions is ordered by id.
	ListClosedSessions(ctx context.Context) ([]domain.VehicleSession, error)
	// ListSessions returns active and closed sessions from one read, ordered by id.
	ListSessions(ctx context.Context) ([]domain.VehicleSession, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Count(ctx context.Context) (int, error)
}
