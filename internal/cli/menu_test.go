package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/repository/sqlite"
	"parking_ledger/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type steppingClock struct {
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func newTestLedger(t *testing.T, clock *steppingClock) *service.ParkingLedger {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "patio.db"))
	require.NoError(t, err, "open db")
	t.Cleanup(func() { db.Close() })
	loc := time.FixedZone("BRT", -3*3600)
	store := sqlite.NewSqliteSessionRepository(db, loc)
	return service.NewParkingLedger(store, domain.DefaultFeePolicy(), loc, service.WithClock(clock.Now))
}

func runMenu(t *testing.T, ledger Ledger, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, NewMenu(ledger, strings.NewReader(input), &out).Run(context.Background()))
	return out.String()
}

func TestMenuEntryListExit(t *testing.T) {
	clock := &steppingClock{now: time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC), step: 65 * time.Minute}
	ledger := newTestLedger(t, clock)

	out := runMenu(t, ledger, "1\nabc-1d23\n3\n2\nABC1D23\n3\n4\n")

	for _, want := range []string{
		"Entrada: ABC1D23 às 08:00:00",
		"PÁTIO - 02/03/2026 09:05",
		"ABC1D23 | Entrada: 08:00:00",
		"Saída: ABC1D23",
		"Permanência: 2h 10min",
		"Total: R$ 20.00",
		"Pátio vazio.",
	} {
		assert.Contains(t, out, want)
	}
}

func TestMenuReportsErrorsAndContinues(t *testing.T) {
	clock := &steppingClock{now: time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC), step: time.Minute}
	ledger := newTestLedger(t, clock)

	out := runMenu(t, ledger, "1\nXX\n2\nABC1234\n1\nABC1234\n1\nABC1234\n9\n4\n")

	for _, want := range []string{
		"Placa inválida",
		"veículo não encontrado no pátio",
		"Entrada: ABC1234",
		"veículo já está no pátio",
		"Opção inválida.",
	} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 6, strings.Count(out, menuLine), "menu shown")
}

func TestMenuEOFQuits(t *testing.T) {
	clock := &steppingClock{now: time.Now(), step: time.Minute}
	ledger := newTestLedger(t, clock)

	runMenu(t, ledger, "")
	runMenu(t, ledger, "1\n")
}

func TestMenuStopsWhenContextCancelled(t *testing.T) {
	clock := &steppingClock{now: time.Now(), step: time.Minute}
	ledger := newTestLedger(t, clock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, NewMenu(ledger, strings.NewReader("1\nABC1234\n4\n"), &out).Run(ctx))
	assert.Empty(t, out.String())
}

type brokenLedger struct{}

func (brokenLedger) RegisterEntry(context.Context, string) (*domain.EntryReceipt, error) {
	return nil, errors.Join(service.ErrStorage, errors.New("disk full"))
}

func (brokenLedger) RegisterExit(context.Context, string) (*domain.ExitReceipt, error) {
	return nil, service.ErrStorage
}

func (brokenLedger) ListOccupancy(context.Context) (*domain.OccupancySnapshot, error) {
	return nil, service.ErrStorage
}

func TestMenuSurvivesStorageFailures(t *testing.T) {
	out := runMenu(t, brokenLedger{}, "1\nABC1234\n3\n4\n")
	assert.Equal(t, 2, strings.Count(out, "ERRO: falha no armazenamento"), out)
}
