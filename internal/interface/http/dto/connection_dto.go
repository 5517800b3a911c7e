package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/repository"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
)

type CreateConnectionRequest struct {
	ProfessionalID string       `json:"professional_id" binding:"required,uuid"`
	Description    string       `json:"description" binding:"required"`
	Location       *LocationDTO `json:"location"`
	Budget         *BudgetDTO   `json:"budget"`
	Urgent         bool         `json:"urgent"`
}

type LocationDTO struct {
	Address string   `json:"address"`
	Zone    string   `json:"zone"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

type BudgetDTO struct {
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
	Currency string          `json:"currency"`
}

type UpdateStatusRequest struct {
	Status         string     `json:"status" binding:"required"`
	WorkStartedAt  *time.Time `json:"work_started_at"`
	WorkFinishedAt *time.Time `json:"work_finished_at"`
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

type PaymentRequest struct {
	Method  string                 `json:"method" binding:"required"`
	Details map[string]interface{} `json:"details"`
}

type ParticipantResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Zone     string    `json:"zone,omitempty"`
	PhotoURL string    `json:"photo_url,omitempty"`
	Trades   []string  `json:"trades,omitempty"`
}

type ConnectionResponse struct {
	ID               uuid.UUID            `json:"id"`
	ClientID         uuid.UUID            `json:"client_id"`
	ProfessionalID   uuid.UUID            `json:"professional_id"`
	ConnectionNumber int                  `json:"connection_number"`
	PaymentRequired  bool                 `json:"payment_required"`
	PaymentCompleted bool                 `json:"payment_completed"`
	RequiresPayment  bool                 `json:"requires_payment"`
	Commission       valueobject.Money    `json:"commission"`
	PaymentInfo      *entity.PaymentInfo  `json:"payment_info,omitempty"`
	Status           string               `json:"status"`
	Description      string               `json:"description"`
	WorkStartedAt    *time.Time           `json:"work_started_at"`
	WorkFinishedAt   *time.Time           `json:"work_finished_at"`
	WorkDurationDays *int                 `json:"work_duration_days"`
	Location         *entity.Location     `json:"location,omitempty"`
	Budget           *valueobject.Budget  `json:"budget,omitempty"`
	Urgent           bool                 `json:"urgent"`
	Messages         []entity.Message     `json:"messages,omitempty"`
	UnreadCount      int                  `json:"unread_count"`
	RatingPending    bool                 `json:"rating_pending"`
	Client           *ParticipantResponse `json:"client,omitempty"`
	Professional     *ParticipantResponse `json:"professional,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type PaymentResponse struct {
	TransactionID string            `json:"transaction_id"`
	Amount        valueobject.Money `json:"amount"`
	PaidAt        time.Time         `json:"paid_at"`
	Status        string            `json:"status"`
}

type ConnectionStatsResponse struct {
	Total             int            `json:"total"`
	ByStatus          map[string]int `json:"by_status"`
	PaymentsCompleted int            `json:"payments_completed"`
	RecentActivity    int            `json:"recent_activity"`
}

// ToConnectionResponse собирает ответ для пользователя viewerID. Журнал сообщений включается только в детали.
func ToConnectionResponse(conn *entity.Connection, viewerID uuid.UUID, withMessages bool) ConnectionResponse {
	resp := ConnectionResponse{
		ID:               conn.ID,
		ClientID:         conn.ClientID,
		ProfessionalID:   conn.ProfessionalID,
		ConnectionNumber: conn.Number,
		PaymentRequired:  conn.PaymentRequired,
		PaymentCompleted: conn.PaymentCompleted,
		RequiresPayment:  conn.RequiresPayment(),
		Commission:       conn.Commission,
		PaymentInfo:      conn.PaymentInfo,
		Status:           string(conn.Status),
		Description:      conn.Description,
		WorkStartedAt:    conn.WorkStartedAt,
		WorkFinishedAt:   conn.WorkFinishedAt,
		WorkDurationDays: conn.WorkDurationDays(),
		Location:         conn.Location,
		Budget:           conn.Budget,
		Urgent:           conn.Urgent,
		UnreadCount:      conn.UnreadCountFor(viewerID),
		RatingPending:    conn.RatingPending,
		Client:           toParticipant(conn.Client),
		Professional:     toParticipant(conn.Professional),
		CreatedAt:        conn.CreatedAt,
		UpdatedAt:        conn.UpdatedAt,
	}
	if withMessages {
		resp.Messages = conn.Messages
		if resp.Messages == nil {
			resp.Messages = []entity.Message{}
		}
	}
	return resp
}

func toParticipant(p *entity.Participant) *ParticipantResponse {
	if p == nil {
		return nil
	}
	return &ParticipantResponse{
		ID:       p.ID,
		Name:     p.Name,
		Email:    p.Email,
		Phone:    p.Phone,
		Zone:     p.Zone,
		PhotoURL: p.PhotoURL,
		Trades:   p.Trades,
	}
}

func ToPaymentResponse(info *entity.PaymentInfo) PaymentResponse {
	return PaymentResponse{
		TransactionID: info.TransactionID,
		Amount:        info.Amount,
		PaidAt:        info.PaidAt,
		Status:        "completed",
	}
}

func ToConnectionStatsResponse(stats *repository.ConnectionStats) ConnectionStatsResponse {
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return ConnectionStatsResponse{
		Total:             stats.Total,
		ByStatus:          byStatus,
		PaymentsCompleted: stats.PaymentsCompleted,
		RecentActivity:    stats.RecentActivity,
	}
}

func (l *LocationDTO) ToEntity() *entity.Location {
	if l == nil {
		return nil
	}
	return &entity.Location{Address: l.Address, Zone: l.Zone, Lat: l.Lat, Lng: l.Lng}
}

func (b *BudgetDTO) ToValueObject() (*valueobject.Budget, error) {
	if b == nil {
		return nil, nil
	}
	budget, err := valueobject.NewBudget(b.Min, b.Max, b.Currency)
	if err != nil {
		return nil, err
	}
	return &budget, nil
}
