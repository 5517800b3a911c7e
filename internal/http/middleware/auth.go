package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AccessTokenParser разбирает access токен в идентификатор и роль пользователя.
type AccessTokenParser interface {
	ParseAccess(token string) (uuid.UUID, valueobject.Role, error)
}

// AuthMiddleware проверяет JWT access токен.
func AuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "se requiere autenticación")
			c.Abort()
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		userID, role, err := tokens.ParseAccess(raw)
		if err != nil || userID == uuid.Nil || !role.IsValid() {
			response.Unauthorized(c, "token inválido")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// RequireRole пропускает только пользователей с одной из указанных ролей.
func RequireRole(roles ...valueobject.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.Get(ContextRoleKey)
		role, _ := raw.(valueobject.Role)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "permisos insuficientes")
		c.Abort()
	}
}
