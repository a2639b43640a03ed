package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOperatorResponse(t *testing.T) {
	created := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	resp := NewOperatorResponse(&User{ID: 3, Username: "gerente", Password: "$2a$hash", Role: RoleAdmin, CreatedAt: created})

	assert.Equal(t, OperatorResponseDTO{
		ID:        3,
		Username:  "gerente",
		Role:      RoleAdmin,
		IsAdmin:   true,
		CreatedAt: "02/03/2026 08:00:00",
	}, resp)
	assert.False(t, NewOperatorResponse(&User{Role: RoleOperator}).IsAdmin)
}
