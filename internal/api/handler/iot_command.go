package handler

import (
	"net/http"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/service"

	"github.com/gin-gonic/gin"
)

type IoTCommandHandler struct {
	gateService *service.GateService
}

func NewIoTCommandHandler(gs *service.GateService) *IoTCommandHandler {
	return &IoTCommandHandler{gateService: gs}
}

// ControlBarrierRequest opens a barrier by hand, e.g. when the camera misreads a plate.
type ControlBarrierRequest struct {
	Direction domain.GateDirection `json:"direction" binding:"required,oneof=entry exit"`
	Plate     string               `json:"plate"`
}

// POST /api/v1/iot/commands/barrier
func (h *IoTCommandHandler) ControlBarrier(c *gin.Context) {
	var req ControlBarrierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID, err := h.gateService.OpenBarrier(c.Request.Context(), req.Direction, req.Plate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "não foi possível abrir a cancela", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comando de abertura enviado", "request_id": requestID})
}
