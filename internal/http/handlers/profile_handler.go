package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/conectacordoba/marketplace-backend/internal/http/handlers/common"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
	"github.com/conectacordoba/marketplace-backend/internal/service"
)

// PhotoFormField - имя поля multipart формы с фото профиля.
const PhotoFormField = "photo"

// ProfileHandler обслуживает /api/users, профиль текущего пользователя.
type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile GET /api/users/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	user, err := h.profiles.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateProfile PUT /api/users/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	var req struct {
		Name        *string  `json:"name" binding:"omitempty,min=2,max=50"`
		Phone       *string  `json:"phone"`
		Zone        *string  `json:"zone"`
		Description *string  `json:"description" binding:"omitempty,max=500"`
		Trades      []string `json:"trades" binding:"omitempty,max=10,dive,trade"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	user, err := h.profiles.UpdateProfile(c.Request.Context(), userID, service.ProfileInput{
		Name:        req.Name,
		Phone:       req.Phone,
		Zone:        req.Zone,
		Description: req.Description,
		Trades:      req.Trades,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.SuccessMessage(c, "perfil actualizado", user)
}

// UploadPhoto POST /api/users/upload-photo, multipart поле "photo".
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	file, err := c.FormFile(PhotoFormField)
	if err != nil {
		response.ValidationFailed(c, "el campo photo es obligatorio")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.ValidationFailed(c, "no se pudo leer el archivo")
		return
	}
	defer src.Close()

	url, err := h.profiles.UploadPhoto(c.Request.Context(), userID, src)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.SuccessMessage(c, "foto actualizada", gin.H{"photo_url": url})
}

// SetAvailability PUT /api/users/availability
func (h *ProfileHandler) SetAvailability(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	var req struct {
		Available *bool `json:"available" binding:"required"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	user, err := h.profiles.SetAvailability(c.Request.Context(), userID, *req.Available)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, gin.H{"available": user.Professional.Available})
}

// UpdateSettings PUT /api/users/settings
func (h *ProfileHandler) UpdateSettings(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	var req struct {
		Settings map[string]interface{} `json:"settings" binding:"required"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	settings, err := h.profiles.UpdateSettings(c.Request.Context(), userID, req.Settings)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, gin.H{"settings": settings})
}

// DeleteAccount DELETE /api/users/account
func (h *ProfileHandler) DeleteAccount(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	if err := h.profiles.DeleteAccount(c.Request.Context(), userID); err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.SuccessMessage(c, "cuenta eliminada", nil)
}
