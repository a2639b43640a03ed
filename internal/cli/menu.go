package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/service"
)

const (
	menuLine  = "1. Entrada | 2. Saída | 3. Listar | 4. Sair"
	separator = "========================================"
)

// Ledger is what the menu needs from the parking ledger.
type Ledger interface {
	RegisterEntry(ctx context.Context, rawPlate string) (*domain.EntryReceipt, error)
	RegisterExit(ctx context.Context, rawPlate string) (*domain.ExitReceipt, error)
	ListOccupancy(ctx context.Context) (*domain.OccupancySnapshot, error)
}

// Menu is the operator's interactive terminal loop.
type Menu struct {
	ledger Ledger
	in     *bufio.Scanner
	out    io.Writer
}

func NewMenu(ledger Ledger, in io.Reader, out io.Writer) *Menu {
	return &Menu{ledger: ledger, in: bufio.NewScanner(in), out: out}
}

// Run shows the menu until the operator picks 4, the input ends or ctx is
// cancelled. Failed operations are reported and the menu comes back.
func (m *Menu) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		fmt.Fprintln(m.out, menuLine)
		option, ok := m.prompt("Escolha: ")
		if !ok {
			break
		}

		switch option {
		case "1":
			plate, ok := m.prompt("Placa: ")
			if !ok {
				return m.in.Err()
			}
			m.entry(ctx, plate)
		case "2":
			plate, ok := m.prompt("Placa: ")
			if !ok {
				return m.in.Err()
			}
			m.exit(ctx, plate)
		case "3":
			m.list(ctx)
		case "4":
			return nil
		default:
			fmt.Fprintln(m.out, "Opção inválida.")
		}
	}
	return m.in.Err()
}

func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		fmt.Fprintln(m.out)
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *Menu) entry(ctx context.Context, rawPlate string) {
	receipt, err := m.ledger.RegisterEntry(ctx, rawPlate)
	if err != nil {
		m.printError(err)
		return
	}
	fmt.Fprintf(m.out, "Entrada: %s às %s\n", receipt.Plate, receipt.EntryTime.Format("15:04:05"))
}

func (m *Menu) exit(ctx context.Context, rawPlate string) {
	receipt, err := m.ledger.RegisterExit(ctx, rawPlate)
	if err != nil {
		m.printError(err)
		return
	}
	fmt.Fprintf(m.out, "Saída: %s\n", receipt.Plate)
	fmt.Fprintf(m.out, "Permanência: %s\n", receipt.DurationLabel())
	fmt.Fprintf(m.out, "Total: R$ %.2f\n", receipt.AmountDue)
}

func (m *Menu) list(ctx context.Context) {
	snapshot, err := m.ledger.ListOccupancy(ctx)
	if err != nil {
		m.printError(err)
		return
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, separator)
	fmt.Fprintf(m.out, "PÁTIO - %s\n", snapshot.GeneratedAt.Format("02/01/2006 15:04"))
	fmt.Fprintln(m.out, separator)
	if len(snapshot.Sessions) == 0 {
		fmt.Fprintln(m.out, "Pátio vazio.")
	}
	for _, s := range snapshot.Sessions {
		fmt.Fprintf(m.out, "%s | Entrada: %s\n", s.Plate, s.EntryTime.In(snapshot.GeneratedAt.Location()).Format("15:04:05"))
	}
	fmt.Fprintln(m.out, separator)
	fmt.Fprintln(m.out)
}

func (m *Menu) printError(err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlate):
		fmt.Fprintln(m.out, "ERRO: Placa inválida! Use o padrão ABC1234 ou ABC1D23.")
	case errors.Is(err, service.ErrAlreadyParked):
		fmt.Fprintf(m.out, "AVISO: %v.\n", err)
	case errors.Is(err, service.ErrNotParked):
		fmt.Fprintf(m.out, "AVISO: %v.\n", err)
	default:
		fmt.Fprintf(m.out, "ERRO: %v\n", err)
	}
}
