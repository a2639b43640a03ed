package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/repository"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var ErrNoFinancialData = errors.New("nenhum dado financeiro encontrado")

const (
	RevenueFileName = "faturamento.json"
	sheetName       = "Movimentacao"
)

// ReportExporter summarizes the revenue of closed sessions. It only reads from the
// store.
type ReportExporter struct {
	store repository.OccupancyStore
	loc   *time.Location
	now   func() time.Time
}

func NewReportExporter(store repository.OccupancyStore, loc *time.Location) *ReportExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportExporter{store: store, loc: loc, now: time.Now}
}

// SpreadsheetName is the daily spreadsheet file name, relatorio_estacionamento_20260302.xlsx.
func SpreadsheetName(now time.Time) string {
	return fmt.Sprintf("relatorio_estacionamento_%s.xlsx", now.Format("20060102"))
}

func (r *ReportExporter) Summary(ctx context.Context) (*domain.RevenueSummary, error) {
	closed, err := r.store.ListClosedSessions(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	if len(closed) == 0 {
		return nil, ErrNoFinancialData
	}

	summary := &domain.RevenueSummary{
		GeneratedAt:  r.now().In(r.loc).Format(domain.ReportTimeLayout),
		VehicleCount: len(closed),
		Details:      make([]domain.RevenueDetail, 0, len(closed)),
	}
	var total float64
	for _, s := range closed {
		total += s.AmountDue.Float64
		summary.Details = append(summary.Details, domain.RevenueDetail{
			Plate:     s.Plate,
			EntryTime: s.EntryTime,
			ExitTime:  s.ExitTime.Time,
			AmountDue: s.AmountDue.Float64,
		})
	}
	summary.TotalRevenue = domain.RoundAmount(total)
	summary.AverageTicket = domain.RoundAmount(total / float64(len(closed)))
	return summary, nil
}

// WriteJSON writes the summary, indented, to path.
func (r *ReportExporter) WriteJSON(ctx context.Context, path string) (*domain.RevenueSummary, error) {
	summary, err := r.Summary(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(summary, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("ReportExporter.WriteJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("ReportExporter.WriteJSON: %w", err)
	}
	log.WithFields(log.Fields{"path": path, "vehicles": summary.VehicleCount}).Info("relatório financeiro gerado")
	return summary, nil
}

// ExportSpreadsheet writes every session, parked or not, ordered by id. It returns
// the number of rows written.
func (r *ReportExporter) ExportSpreadsheet(ctx context.Context, path string) (int, error) {
	sessions, err := r.store.ListSessions(ctx)
	if err != nil {
		return 0, storageError(err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return 0, fmt.Errorf("ReportExporter.ExportSpreadsheet: %w", err)
	}

	header := []interface{}{"id", "placa", "entrada", "saida", "valor", "ativo"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return 0, fmt.Errorf("ReportExporter.ExportSpreadsheet: %w", err)
	}
	for i, s := range sessions {
		row := []interface{}{s.ID, s.Plate, s.EntryTime.In(r.loc).Format(time.RFC3339), "", "", s.Active}
		if s.ExitTime.Valid {
			row[3] = s.ExitTime.Time.In(r.loc).Format(time.RFC3339)
		}
		if s.AmountDue.Valid {
			row[4] = s.AmountDue.Float64
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, fmt.Errorf("ReportExporter.ExportSpreadsheet: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return 0, fmt.Errorf("ReportExporter.ExportSpreadsheet: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("ReportExporter.ExportSpreadsheet: %w", err)
	}
	log.WithFields(log.Fields{"path": path, "rows": len(sessions)}).Info("planilha exportada")
	return len(sessions), nil
}
