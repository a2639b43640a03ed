package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"parking_ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	UserIDKey               = "userID"
	UserRoleKey             = "userRole"
	UsernameKey             = "username"
)

// TokenValidator checks a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Token, jwt.MapClaims, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate requires a valid JWT and stores the operator in the gin context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "cabeçalho Authorization ausente"})
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "formato do cabeçalho Authorization inválido"})
			return
		}

		_, claims, err := m.validator.ValidateToken(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": service.ErrTokenInvalid.Error(), "details": err.Error()})
			return
		}

		subject, okSubject := claims["sub"].(string)
		userRole, okRole := claims["role"].(string)
		username, okUsername := claims["username"].(string)
		userID, err := strconv.ParseInt(subject, 10, 64)
		if !okSubject || !okRole || !okUsername || err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "dados do usuário no token são inválidos"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UserRoleKey, userRole)
		c.Set(UsernameKey, username)
		c.Next()
	}
}

// AuthorizeRole lets the request through only for the given roles. It must run
// after Authenticate.
func (m *AuthMiddleware) AuthorizeRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString(UserRoleKey)
		if userRole == "" {
			log.Warn("AuthorizeRole: papel do usuário ausente no contexto")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "acesso negado"})
			return
		}
		if !slices.Contains(requiredRoles, userRole) {
			log.WithFields(log.Fields{"role": userRole, "required": requiredRoles, "username": c.GetString(UsernameKey)}).
				Info("AuthorizeRole: acesso negado")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "acesso negado para o papel " + userRole})
			return
		}
		c.Next()
	}
}
