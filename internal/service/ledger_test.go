package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/repository"
	"parking_ledger/internal/repository/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.OccupancyNotification
}

func (n *recordingNotifier) NotifyOccupancy(event domain.OccupancyNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func newTestStore(t *testing.T, loc *time.Location) repository.OccupancyStore {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "patio.db"))
	require.NoError(t, err, "open db")
	t.Cleanup(func() { db.Close() })
	return sqlite.NewSqliteSessionRepository(db, loc)
}

func newTestLedger(t *testing.T, opts ...LedgerOption) (*ParkingLedger, repository.OccupancyStore, *fakeClock) {
	t.Helper()
	loc := time.FixedZone("BRT", -3*3600)
	clock := &fakeClock{now: time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC)}
	store := newTestStore(t, loc)
	opts = append([]LedgerOption{WithClock(clock.Now)}, opts...)
	return NewParkingLedger(store, domain.DefaultFeePolicy(), loc, opts...), store, clock
}

func TestRegisterEntryThenExitScenario(t *testing.T) {
	notifier := &recordingNotifier{}
	ledger, store, clock := newTestLedger(t, WithNotifier(notifier))
	ctx := context.Background()

	entry, err := ledger.RegisterEntry(ctx, "abc-1d23")
	require.NoError(t, err)
	assert.Equal(t, "ABC1D23", entry.Plate)
	assert.Same(t, ledger.Location(), entry.EntryTime.Location())
	assert.Equal(t, "08:00:00", entry.EntryTime.Format("15:04:05"))

	clock.Advance(65 * time.Minute)
	exit, err := ledger.RegisterExit(ctx, "ABC1D23")
	require.NoError(t, err)
	assert.Equal(t, 15.0, exit.AmountDue)
	assert.Equal(t, "1h 5min", exit.DurationLabel())
	assert.Equal(t, entry.SessionID, exit.SessionID)

	closed, err := store.ListClosedSessions(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	c := closed[0]
	assert.False(t, c.Active)
	require.True(t, c.ExitTime.Valid)
	require.True(t, c.AmountDue.Valid)
	assert.False(t, c.EntryTime.After(c.ExitTime.Time), "entry after exit")
	assert.Equal(t, domain.DefaultFeePolicy().ComputeFee(c.EntryTime, c.ExitTime.Time), c.AmountDue.Float64)

	snapshot, err := ledger.ListOccupancy(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Sessions)

	require.Len(t, notifier.events, 2)
	assert.Equal(t, domain.OccupancyEventEntry, notifier.events[0].EventType)
	assert.Equal(t, domain.OccupancyEventExit, notifier.events[1].EventType)
	require.NotNil(t, notifier.events[1].AmountDue)
	assert.Equal(t, 15.0, *notifier.events[1].AmountDue)
}

func TestRegisterEntryTwiceFailsAlreadyParked(t *testing.T) {
	ledger, store, clock := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.RegisterEntry(ctx, "ABC1234")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = ledger.RegisterEntry(ctx, "abc 1234")
	assert.ErrorIs(t, err, ErrAlreadyParked)

	active, err := store.ListActiveSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRegisterExitWithoutActiveSessionFailsNotParked(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.RegisterExit(ctx, "ABC1234")
	assert.ErrorIs(t, err, ErrNotParked)

	// A closed historical session does not count as parked.
	_, err = ledger.RegisterEntry(ctx, "ABC1234")
	require.NoError(t, err)
	clock.Advance(3 * time.Hour)
	exit, err := ledger.RegisterExit(ctx, "ABC1234")
	require.NoError(t, err)
	assert.Equal(t, 20.0, exit.AmountDue)

	_, err = ledger.RegisterExit(ctx, "ABC1234")
	assert.ErrorIs(t, err, ErrNotParked)
}

func TestInvalidPlateChangesNothing(t *testing.T) {
	ledger, store, _ := newTestLedger(t)
	ctx := context.Background()

	for _, raw := range []string{"AB1234", "ABC12345", "", "1BC1234"} {
		_, err := ledger.RegisterEntry(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidPlate, "RegisterEntry(%q)", raw)
		_, err = ledger.RegisterExit(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidPlate, "RegisterExit(%q)", raw)
	}
	active, err := store.ListActiveSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestTwoPlatesOneExitLeavesOneActive(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.RegisterEntry(ctx, "AAA1111")
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = ledger.RegisterEntry(ctx, "BBB2B22")
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	exit, err := ledger.RegisterExit(ctx, "AAA1111")
	require.NoError(t, err)
	assert.Equal(t, 10.0, exit.AmountDue)

	snapshot, err := ledger.ListOccupancy(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Sessions, 1)
	assert.Equal(t, "BBB2B22", snapshot.Sessions[0].Plate)
	assert.True(t, snapshot.GeneratedAt.Equal(clock.Now()), "snapshot time = %v, want %v", snapshot.GeneratedAt, clock.Now())
}

func TestRegisterExitClampsClockSkew(t *testing.T) {
	ledger, _, clock := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.RegisterEntry(ctx, "ABC1234")
	require.NoError(t, err)
	clock.Advance(-5 * time.Minute)
	exit, err := ledger.RegisterExit(ctx, "ABC1234")
	require.NoError(t, err)
	assert.False(t, exit.ExitTime.Before(exit.EntryTime), "exit %v before entry %v", exit.ExitTime, exit.EntryTime)
	assert.Equal(t, 10.0, exit.AmountDue)
}

func TestConcurrentEntriesAdmitOneSession(t *testing.T) {
	ledger, store, _ := newTestLedger(t)
	ctx := context.Background()

	const callers = 6
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RegisterEntry(ctx, "ABC1234")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, parked int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyParked):
			parked++
		default:
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, parked)

	active, err := store.ListActiveSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

type failingStore struct {
	repository.OccupancyStore
	err error
}

func (s failingStore) FindActiveSession(context.Context, string) (*domain.VehicleSession, error) {
	return nil, s.err
}

func (s failingStore) ListActiveSessions(context.Context) ([]domain.VehicleSession, error) {
	return nil, s.err
}

func (s failingStore) ListSessions(context.Context) ([]domain.VehicleSession, error) {
	return nil, s.err
}

func TestStorageFailuresAreWrapped(t *testing.T) {
	cause := errors.New("disk I/O error")
	ledger := NewParkingLedger(failingStore{err: cause}, domain.DefaultFeePolicy(), time.UTC)
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["entry"] = ledger.RegisterEntry(ctx, "ABC1234")
	_, checks["exit"] = ledger.RegisterExit(ctx, "ABC1234")
	_, checks["list"] = ledger.ListOccupancy(ctx)

	for op, err := range checks {
		assert.ErrorIs(t, err, ErrStorage, op)
		assert.ErrorIs(t, err, cause, op)
	}
}

type racingStore struct {
	repository.OccupancyStore
}

func (racingStore) FindActiveSession(context.Context, string) (*domain.VehicleSession, error) {
	return nil, repository.ErrNoActiveSession
}

func (racingStore) CreateActiveSession(context.Context, string, time.Time) (int64, error) {
	return 0, repository.ErrAlreadyActive
}

func TestStoreRaceMapsToAlreadyParked(t *testing.T) {
	ledger := NewParkingLedger(racingStore{}, domain.DefaultFeePolicy(), time.UTC)

	_, err := ledger.RegisterEntry(context.Background(), "ABC1234")
	assert.ErrorIs(t, err, ErrAlreadyParked)
	assert.NotErrorIs(t, err, ErrStorage, "race must not be reported as a storage failure")
}
