package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/repository"

	log "github.com/sirupsen/logrus"
)

var ErrInvalidPlate = domain.ErrInvalidPlate
var ErrAlreadyParked = errors.New("veículo já está no pátio")
var ErrNotParked = errors.New("veículo não encontrado no pátio")
var ErrStorage = errors.New("falha no armazenamento")

// OccupancyNotifier is told about every entry and exit once it is stored.
type OccupancyNotifier interface {
	NotifyOccupancy(n domain.OccupancyNotification)
}

type LedgerOption func(*ParkingLedger)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *ParkingLedger) { l.now = now }
}

func WithNotifier(n OccupancyNotifier) LedgerOption {
	return func(l *ParkingLedger) { l.notifier = n }
}

// ParkingLedger drives the per-plate lifecycle: absent, parked, absent again.
// All state lives in the OccupancyStore.
type ParkingLedger struct {
	store    repository.OccupancyStore
	fees     domain.FeePolicy
	loc      *time.Location
	now      func() time.Time
	notifier OccupancyNotifier
}

func NewParkingLedger(store repository.OccupancyStore, fees domain.FeePolicy, loc *time.Location, opts ...LedgerOption) *ParkingLedger {
	if loc == nil {
		loc = time.UTC
	}
	l := &ParkingLedger{
		store: store,
		fees:  fees,
		loc:   loc,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Location is the zone timestamps are recorded in.
func (l *ParkingLedger) Location() *time.Location {
	return l.loc
}

func (l *ParkingLedger) currentTime() time.Time {
	return l.now().In(l.loc)
}

func (l *ParkingLedger) RegisterEntry(ctx context.Context, rawPlate string) (*domain.EntryReceipt, error) {
	plate, err := domain.NormalizePlate(rawPlate)
	if err != nil {
		return nil, err
	}

	existing, err := l.store.FindActiveSession(ctx, plate)
	if err != nil && !errors.Is(err, repository.ErrNoActiveSession) {
		return nil, storageError(err)
	}
	if existing != nil {
		log.WithFields(log.Fields{"plate": plate, "session_id": existing.ID}).Info("entrada recusada: veículo já está no pátio")
		return nil, fmt.Errorf("%w: %s", ErrAlreadyParked, plate)
	}

	entryTime := l.currentTime()
	id, err := l.store.CreateActiveSession(ctx, plate, entryTime)
	if err != nil {
		// Another caller won the race between the lookup and the insert.
		if errors.Is(err, repository.ErrAlreadyActive) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyParked, plate)
		}
		return nil, storageError(err)
	}

	log.WithFields(log.Fields{"plate": plate, "session_id": id}).Info("entrada registrada")
	receipt := &domain.EntryReceipt{SessionID: id, Plate: plate, EntryTime: entryTime}
	l.notify(domain.OccupancyNotification{
		EventType: domain.OccupancyEventEntry,
		SessionID: id,
		Plate:     plate,
		Timestamp: entryTime,
	})
	return receipt, nil
}

func (l *ParkingLedger) RegisterExit(ctx context.Context, rawPlate string) (*domain.ExitReceipt, error) {
	plate, err := domain.NormalizePlate(rawPlate)
	if err != nil {
		return nil, err
	}

	session, err := l.store.FindActiveSession(ctx, plate)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveSession) {
			return nil, fmt.Errorf("%w: %s", ErrNotParked, plate)
		}
		return nil, storageError(err)
	}

	exitTime := l.currentTime()
	if exitTime.Before(session.EntryTime) {
		log.WithFields(log.Fields{"plate": plate, "session_id": session.ID}).
			Warnf("horário de saída %v anterior à entrada %v, usando a entrada", exitTime, session.EntryTime)
		exitTime = session.EntryTime
	}
	fee := l.fees.ComputeFee(session.EntryTime, exitTime)

	if err := l.store.CloseSession(ctx, session.ID, exitTime, fee); err != nil {
		// Closed by someone else after our lookup.
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotParked, plate)
		}
		return nil, storageError(err)
	}

	receipt := &domain.ExitReceipt{
		SessionID: session.ID,
		Plate:     plate,
		EntryTime: session.EntryTime,
		ExitTime:  exitTime,
		Duration:  exitTime.Sub(session.EntryTime),
		AmountDue: fee,
	}
	log.WithFields(log.Fields{
		"plate":      plate,
		"session_id": session.ID,
		"duration":   receipt.DurationLabel(),
		"amount_due": fee,
	}).Info("saída registrada")

	l.notify(domain.OccupancyNotification{
		EventType: domain.OccupancyEventExit,
		SessionID: session.ID,
		Plate:     plate,
		Timestamp: exitTime,
		AmountDue: &fee,
		Duration:  receipt.DurationLabel(),
	})
	return receipt, nil
}

// ListOccupancy returns the vehicles currently parked, oldest entry first.
func (l *ParkingLedger) ListOccupancy(ctx context.Context) (*domain.OccupancySnapshot, error) {
	sessions, err := l.store.ListActiveSessions(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return &domain.OccupancySnapshot{GeneratedAt: l.currentTime(), Sessions: sessions}, nil
}

func (l *ParkingLedger) notify(n domain.OccupancyNotification) {
	if l.notifier != nil {
		l.notifier.NotifyOccupancy(n)
	}
}

func storageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
