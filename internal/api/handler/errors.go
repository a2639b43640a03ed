package handler

import (
	"errors"
	"net/http"

	"parking_ledger/internal/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// serviceErrorStatus maps the sentinel errors callers can act on. Anything else
// is a 500.
var serviceErrorStatus = []struct {
	err    error
	status int
}{
	{service.ErrInvalidPlate, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrAlreadyParked, http.StatusConflict},
	{service.ErrUserAlreadyExists, http.StatusConflict},
	{service.ErrNotParked, http.StatusNotFound},
	{service.ErrNoFinancialData, http.StatusNotFound},
}

func statusFor(err error) int {
	for _, m := range serviceErrorStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// writeServiceError answers with the status of a known service error, or with
// message and a 500 otherwise.
func writeServiceError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	if status != http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	log.WithFields(log.Fields{"path": c.FullPath(), "error": err}).Error(message)
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func bindJSON(c *gin.Context, dto any) bool {
	if err := c.ShouldBindJSON(dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dados inválidos: " + err.Error()})
		return false
	}
	return true
}
