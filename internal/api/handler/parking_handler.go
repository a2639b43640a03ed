package handler

import (
	"net/http"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type ParkingSessionHandler struct {
	ledger *service.ParkingLedger
}

func NewParkingSessionHandler(ledger *service.ParkingLedger) *ParkingSessionHandler {
	return &ParkingSessionHandler{ledger: ledger}
}

// POST /api/v1/sessions/entry
func (h *ParkingSessionHandler) VehicleEntry(c *gin.Context) {
	var dto domain.VehicleEntryDTO
	if !bindJSON(c, &dto) {
		return
	}

	receipt, err := h.ledger.RegisterEntry(c.Request.Context(), dto.Plate)
	if err != nil {
		writeServiceError(c, err, "não foi possível registrar a entrada")
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// POST /api/v1/sessions/exit
func (h *ParkingSessionHandler) VehicleExit(c *gin.Context) {
	var dto domain.VehicleExitDTO
	if !bindJSON(c, &dto) {
		return
	}

	receipt, err := h.ledger.RegisterExit(c.Request.Context(), dto.Plate)
	if err != nil {
		writeServiceError(c, err, "não foi possível registrar a saída")
		return
	}
	c.JSON(http.StatusOK, domain.ExitReceiptResponse{ExitReceipt: *receipt, DurationLabel: receipt.DurationLabel()})
}

// GET /api/v1/sessions/active
func (h *ParkingSessionHandler) ActiveSessions(c *gin.Context) {
	snapshot, err := h.ledger.ListOccupancy(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "não foi possível listar o pátio")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
