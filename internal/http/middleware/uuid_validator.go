package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
)

// UUIDValidator проверяет, что параметр с указанным именем является валидным UUID.
// Использование: router.GET("/connections/:id", UUIDValidator("id"), handler.GetConnection)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			response.ValidationFailed(c, "el parámetro "+paramName+" es obligatorio")
			c.Abort()
			return
		}

		if _, err := uuid.Parse(idStr); err != nil {
			response.ValidationFailed(c, "el parámetro "+paramName+" debe ser un UUID válido")
			c.Abort()
			return
		}

		c.Next()
	}
}
