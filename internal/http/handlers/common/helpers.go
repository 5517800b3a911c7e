package common

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/http/middleware"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
	"github.com/conectacordoba/marketplace-backend/internal/validation"
)

var ErrInvalidUUID = apperror.New(apperror.ErrCodeValidation, "formato de UUID inválido")

// CurrentUserID извлекает userID, который положил AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// CurrentUserRole извлекает роль пользователя. Пустая роль означает анонимный запрос.
func CurrentUserRole(c *gin.Context) valueobject.Role {
	raw, _ := c.Get(middleware.ContextRoleKey)
	role, _ := raw.(valueobject.Role)
	return role
}

// CurrentUser возвращает userID и роль или отвечает 401.
func CurrentUser(c *gin.Context) (uuid.UUID, valueobject.Role, bool) {
	userID, err := CurrentUserID(c)
	if err != nil {
		RespondAppError(c, err)
		return uuid.Nil, "", false
	}
	return userID, CurrentUserRole(c), true
}

// ParseUUIDParam читает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("falta el parámetro %s", paramName))
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// BindJSON разбирает тело запроса и при ошибке сам отвечает 400 с понятным сообщением.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ValidationFailed(c, validation.Describe(err))
		return false
	}
	return true
}

// RespondAppError отдаёт ошибку в общем конверте ответа.
func RespondAppError(c *gin.Context, err error) {
	response.Error(c, err)
}

// ParseIntQuery читает целый query параметр, при ошибке возвращает fallback.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// ParseBoolQuery возвращает nil, если параметр не передан или не разобран.
func ParseBoolQuery(c *gin.Context, key string) *bool {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &parsed
}

func ParseFloatQuery(c *gin.Context, key string) *float64 {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// GetPage читает page и limit. Ограничения по limit применяют сервисы.
func GetPage(c *gin.Context) (page, limit int) {
	return ParseIntQuery(c, "page", 1), ParseIntQuery(c, "limit", 0)
}
