package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/interface/http/dto"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
	"github.com/conectacordoba/marketplace-backend/internal/usecase/connection"
)

type ConnectionHandler struct {
	createUC   *connection.CreateConnectionUseCase
	listUC     *connection.ListConnectionsUseCase
	getUC      *connection.GetConnectionUseCase
	statusUC   *connection.UpdateStatusUseCase
	messageUC  *connection.SendMessageUseCase
	markReadUC *connection.MarkReadUseCase
	paymentUC  *connection.RecordPaymentUseCase
	statsUC    *connection.StatsUseCase
}

func NewConnectionHandler(
	createUC *connection.CreateConnectionUseCase,
	listUC *connection.ListConnectionsUseCase,
	getUC *connection.GetConnectionUseCase,
	statusUC *connection.UpdateStatusUseCase,
	messageUC *connection.SendMessageUseCase,
	markReadUC *connection.MarkReadUseCase,
	paymentUC *connection.RecordPaymentUseCase,
	statsUC *connection.StatsUseCase,
) *ConnectionHandler {
	return &ConnectionHandler{
		createUC:   createUC,
		listUC:     listUC,
		getUC:      getUC,
		statusUC:   statusUC,
		messageUC:  messageUC,
		markReadUC: markReadUC,
		paymentUC:  paymentUC,
		statsUC:    statsUC,
	}
}

func (h *ConnectionHandler) CreateConnection(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "se requiere autenticación")
		return
	}

	var req dto.CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, "datos de la solicitud inválidos")
		return
	}

	professionalID, err := uuid.Parse(req.ProfessionalID)
	if err != nil {
		response.ValidationFailed(c, "ID de profesional inválido")
		return
	}

	budget, err := req.Budget.ToValueObject()
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.createUC.Execute(c.Request.Context(), connection.CreateConnectionInput{
		ClientID:       userID,
		Role:           getUserRole(c),
		ProfessionalID: professionalID,
		Description:    req.Description,
		Location:       req.Location.ToEntity(),
		Budget:         budget,
		Urgent:         req.Urgent,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToConnectionResponse(created, userID, false))
}

func (h *ConnectionHandler) ListConnections(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "se requiere autenticación")
		return
	}

	out, err := h.listUC.Execute(c.Request.Context(), connection.ListConnectionsInput{
		UserID: userID,
		Role:   getUserRole(c),
		Status: c.Query("status"),
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 10),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ConnectionResponse, 0, len(out.Items))
	for _, item := range out.Items {
		resp := dto.ToConnectionResponse(item.Connection, userID, false)
		resp.UnreadCount = item.UnreadCount
		items = append(items, resp)
	}

	response.Paginated(c, items, out.Total, out.Page, out.Limit)
}

func (h *ConnectionHandler) GetConnection(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "se requiere autenticación")
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationFailed(c, "ID de conexión inválido")
		return
	}

	conn, err := h.getUC.Execute(c.Request.Context(), connectionID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToConnectionResponse(conn, userID, true))
}

func (h *ConnectionHandler) UpdateStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "se requiere autenticación")
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationFailed(c, "ID de conexión inválido")
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, "datos de la solicitud inválidos")
		return
	}

	updated, err := h.statusUC.Execute(c.Request.Context(), connection.UpdateStatusInput{
		ConnectionID:   connectionID,
		UserID:         userID,
		Status:         req.Status,
		WorkStartedAt:  req.WorkStartedAt,
		WorkFinishedAt: req.WorkFinishedAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "estado de la conexión actualizado", dto.ToConnectionResponse(updated, userID, false))
}

func (h *ConnectionHandler) SendMessage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "se requiere autenticación")
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationFailed(c, "ID de conexión inválido")
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, "el mensaje no puede estar vacío")
		return
	}

	msg, err := h.messageUC.Execute(c.Request.Context(), connectionID, userID, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, msg)
}

func (h *ConnectionHandler) MarkRead(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "se requiere autenticación")
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationFailed(c, "ID de conexión inválido")
		return
	}

	marked, err := h.markReadUC.Execute(c.Request.Context(), connectionID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"marked": marked})
}

func (h *ConnectionHandler) RecordPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "se requiere autenticación")
		return
	}

	connectionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationFailed(c, "ID de conexión inválido")
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, "falta el método de pago")
		return
	}

	info, err := h.paymentUC.Execute(c.Request.Context(), connection.RecordPaymentInput{
		ConnectionID: connectionID,
		ClientID:     userID,
		Role:         getUserRole(c),
		Method:       req.Method,
		Details:      req.Details,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "pago registrado", dto.ToPaymentResponse(info))
}

func (h *ConnectionHandler) Stats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "se requiere autenticación")
		return
	}

	stats, err := h.statsUC.Execute(c.Request.Context(), userID, getUserRole(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToConnectionStatsResponse(stats))
}
