package domain

import "time"

// ReportTimeLayout is how report generation times are printed (dd/mm/yyyy HH:MM:SS).
const ReportTimeLayout = "02/01/2006 15:04:05"

// RevenueSummary aggregates every closed session.
type RevenueSummary struct {
	GeneratedAt   string          `json:"data_geracao"`
	TotalRevenue  float64         `json:"total_arrecadado"`
	VehicleCount  int             `json:"quantidade_veiculos"`
	AverageTicket float64         `json:"ticket_medio"`
	Details       []RevenueDetail `json:"detalhes"`
}

type RevenueDetail struct {
	Plate     string    `json:"placa"`
	EntryTime time.Time `json:"entrada"`
	ExitTime  time.Time `json:"saida"`
	AmountDue float64   `json:"valor_pago"`
}
