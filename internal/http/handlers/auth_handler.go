package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conectacordoba/marketplace-backend/internal/http/handlers/common"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/service"
)

// AuthHandler предоставляет HTTP слой для регистрации и логина.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type authResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func newAuthResponse(result *service.AuthResult) authResponse {
	return authResponse{
		User:      result.User,
		Token:     result.Token.Token,
		ExpiresAt: result.Token.ExpiresAt,
	}
}

// Register обрабатывает POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Role     string `json:"role" binding:"required,oneof=client professional"`
		Name     string `json:"name"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Name:     req.Name,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	response.Created(c, newAuthResponse(result))
}

// Login обрабатывает POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	response.SuccessMessage(c, "sesión iniciada", newAuthResponse(result))
}

// Me обрабатывает GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, user)
}

// VerifyEmail обрабатывает POST /api/auth/verify-email. Подтверждение имитируется.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	user, err := h.auth.VerifyEmail(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.SuccessMessage(c, "email confirmado", user)
}
