package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/http/handlers/common"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
	"github.com/conectacordoba/marketplace-backend/internal/service"
)

// ReviewHandler обслуживает /api/reviews.
type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type createReviewRequest struct {
	ConnectionID       string   `json:"connection_id" binding:"required,uuid"`
	Score              int      `json:"score" binding:"required,min=1,max=5"`
	Comment            string   `json:"comment" binding:"required"`
	Recommend          *bool    `json:"recommend"`
	WorkCompleted      *bool    `json:"work_completed"`
	PositiveAspects    []string `json:"positive_aspects"`
	ImprovementAspects []string `json:"improvement_aspects"`
}

type updateReviewRequest struct {
	Score              *int     `json:"score" binding:"omitempty,min=1,max=5"`
	Comment            *string  `json:"comment"`
	Recommend          *bool    `json:"recommend"`
	WorkCompleted      *bool    `json:"work_completed"`
	PositiveAspects    []string `json:"positive_aspects"`
	ImprovementAspects []string `json:"improvement_aspects"`
}

// Create POST /api/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	userID, role, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	var req createReviewRequest
	if !common.BindJSON(c, &req) {
		return
	}
	connectionID, err := uuid.Parse(req.ConnectionID)
	if err != nil {
		common.RespondAppError(c, common.ErrInvalidUUID)
		return
	}

	created, err := h.reviews.Create(c.Request.Context(), service.CreateReviewInput{
		ConnectionID:       connectionID,
		ClientID:           userID,
		Role:               role,
		Score:              req.Score,
		Comment:            req.Comment,
		Recommend:          req.Recommend,
		WorkCompleted:      req.WorkCompleted,
		PositiveAspects:    req.PositiveAspects,
		ImprovementAspects: req.ImprovementAspects,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Created(c, created)
}

// Mine GET /api/reviews/my-reviews
func (h *ReviewHandler) Mine(c *gin.Context) {
	userID, role, ok := common.CurrentUser(c)
	if !ok {
		return
	}
	page, limit := common.GetPage(c)

	result, err := h.reviews.Mine(c.Request.Context(), userID, role, page, limit)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Paginated(c, result.Reviews, result.Total, result.Page, result.Limit)
}

// Received GET /api/reviews/received
func (h *ReviewHandler) Received(c *gin.Context) {
	userID, role, ok := common.CurrentUser(c)
	if !ok {
		return
	}
	page, limit := common.GetPage(c)

	result, err := h.reviews.Received(c.Request.Context(), userID, role, page, limit)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, result)
}

// Pending GET /api/reviews/pending
func (h *ReviewHandler) Pending(c *gin.Context) {
	userID, role, ok := common.CurrentUser(c)
	if !ok {
		return
	}

	pending, err := h.reviews.Pending(c.Request.Context(), userID, role)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, pending)
}

// Update PUT /api/reviews/:id
func (h *ReviewHandler) Update(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}
	reviewID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	var req updateReviewRequest
	if !common.BindJSON(c, &req) {
		return
	}

	review, err := h.reviews.Update(c.Request.Context(), reviewID, userID, service.UpdateReviewInput{
		Score:              req.Score,
		Comment:            req.Comment,
		Recommend:          req.Recommend,
		WorkCompleted:      req.WorkCompleted,
		PositiveAspects:    req.PositiveAspects,
		ImprovementAspects: req.ImprovementAspects,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.SuccessMessage(c, "reseña actualizada", review)
}

// Delete DELETE /api/reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	userID, _, ok := common.CurrentUser(c)
	if !ok {
		return
	}
	reviewID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	if err := h.reviews.Delete(c.Request.Context(), reviewID, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.SuccessMessage(c, "reseña eliminada", nil)
}

// Recent GET /api/reviews/recent?limit=
func (h *ReviewHandler) Recent(c *gin.Context) {
	reviews, err := h.reviews.Recent(c.Request.Context(), common.ParseIntQuery(c, "limit", 0))
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, reviews)
}

// Stats GET /api/reviews/stats
func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, err := h.reviews.Stats(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	response.Success(c, stats)
}
