package handler

import (
	"net/http"

	"parking_ledger/internal/domain"
	"parking_ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues operator accounts and tokens for the lot API.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var dto domain.RegisterUserDTO
	if !bindJSON(c, &dto) {
		return
	}
	operator, err := h.auth.Register(c.Request.Context(), dto)
	if err != nil {
		writeServiceError(c, err, "não foi possível cadastrar o operador")
		return
	}
	c.JSON(http.StatusCreated, domain.NewOperatorResponse(operator))
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var dto domain.LoginUserDTO
	if !bindJSON(c, &dto) {
		return
	}
	session, err := h.auth.Login(c.Request.Context(), dto)
	if err != nil {
		writeServiceError(c, err, "não foi possível autenticar o operador")
		return
	}
	c.JSON(http.StatusOK, session)
}
