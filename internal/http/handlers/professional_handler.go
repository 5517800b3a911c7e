package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/conectacordoba/marketplace-backend/internal/http/handlers/common"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
	"github.com/conectacordoba/marketplace-backend/internal/models"
	"github.com/conectacordoba/marketplace-backend/internal/service"
)

// ProfessionalHandler - публичный каталог профессионалов.
type ProfessionalHandler struct {
	professionals *service.ProfessionalService
}

func NewProfessionalHandler(professionals *service.ProfessionalService) *ProfessionalHandler {
	return &ProfessionalHandler{professionals: professionals}
}

// Search GET /api/professionals?search=&zone=&trade=&minRating=&available=&verified=&sortBy=&page=&limit=
func (h *ProfessionalHandler) Search(c *gin.Context) {
	page, limit := common.GetPage(c)

	result, err := h.professionals.Search(c.Request.Context(), models.ProfessionalSearch{
		Search:    c.Query("search"),
		Zone:      c.Query("zone"),
		Trade:     c.Query("trade"),
		MinRating: common.ParseFloatQuery(c, "minRating"),
		Available: common.ParseBoolQuery(c, "available"),
		Verified:  common.ParseBoolQuery(c, "verified"),
		SortBy:    c.Query("sortBy"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Paginated(c, result.Professionals, result.Total, result.Page, result.Limit)
}

// Featured GET /api/professionals/featured
func (h *ProfessionalHandler) Featured(c *gin.Context) {
	items, err := h.professionals.Featured(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, items)
}

// Stats GET /api/professionals/stats
func (h *ProfessionalHandler) Stats(c *gin.Context) {
	stats, err := h.professionals.Stats(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, stats)
}

// Get GET /api/professionals/:id
func (h *ProfessionalHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	detail, err := h.professionals.Get(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, detail)
}

// Reviews GET /api/professionals/:id/reviews
func (h *ProfessionalHandler) Reviews(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	page, limit := common.GetPage(c)

	result, err := h.professionals.Reviews(c.Request.Context(), id, page, limit)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, result)
}
