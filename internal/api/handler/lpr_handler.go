package handler

import (
	"encoding/base64"
	"errors"
	"net/http"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type LPRHandler struct {
	lprService service.PlateRecognizer
}

func NewLPRHandler(lprService service.PlateRecognizer) *LPRHandler {
	return &LPRHandler{lprService: lprService}
}

// POST /api/v1/lpr/process-image
func (h *LPRHandler) ProcessImage(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload inválido: " + err.Error()})
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imagem base64 inválida"})
		return
	}
	if len(imageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imagem vazia"})
		return
	}

	detectedPlate, confidence, err := h.lprService.ProcessImageForLPR(c.Request.Context(), imageBytes)
	if err != nil {
		if errors.Is(err, service.ErrPlateNotRecognized) {
			c.JSON(http.StatusOK, domain.LPRResponseDTO{ErrorMessage: err.Error()})
			return
		}
		log.WithError(err).Error("LPRHandler: falha no reconhecimento")
		c.JSON(http.StatusBadGateway, gin.H{"error": "erro no reconhecimento de placa", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, domain.LPRResponseDTO{
		DetectedPlate: detectedPlate,
		Confidence:    confidence,
	})
}
