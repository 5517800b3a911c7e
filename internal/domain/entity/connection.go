package entity

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

const (
	// PaidConnectionNumber - порядковый номер связи внутри пары, за который берётся комиссия.
	PaidConnectionNumber = 3

	MinDescriptionLength = 10
	MaxDescriptionLength = 1000
	MaxMessageLength     = 2000
)

// Connection - одна связь клиента с профессионалом.
type Connection struct {
	ID             uuid.UUID
	ClientID       uuid.UUID
	ProfessionalID uuid.UUID

	// Number присваивается при создании и больше не пересчитывается.
	Number           int
	PaymentRequired  bool
	PaymentCompleted bool
	Commission       valueobject.Money
	PaymentInfo      *PaymentInfo

	Status         valueobject.ConnectionStatus
	Description    string
	WorkStartedAt  *time.Time
	WorkFinishedAt *time.Time
	Location       *Location
	Budget         *valueobject.Budget
	Urgent         bool

	Messages      []Message
	RatingPending bool

	CreatedAt time.Time
	UpdatedAt time.Time

	// Заполняются репозиторием при чтении списков и деталей.
	Client       *Participant
	Professional *Participant
}

// Message - запись в журнале сообщений связи. После добавления меняется только Read.
type Message struct {
	SenderID uuid.UUID `json:"sender_id"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
	Read     bool      `json:"read"`
}

// PaymentInfo записывается один раз при оплате комиссии.
type PaymentInfo struct {
	Method        string                 `json:"method"`
	Details       map[string]interface{} `json:"details,omitempty"`
	PaidAt        time.Time              `json:"paid_at"`
	TransactionID string                 `json:"transaction_id"`
	Amount        valueobject.Money      `json:"amount"`
}

type Location struct {
	Address string   `json:"address,omitempty"`
	Zone    string   `json:"zone,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Participant - краткие сведения об участнике связи.
type Participant struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Phone    string
	Zone     string
	PhotoURL string
	Trades   []string
}

// ConnectionDetails - необязательные параметры работы при создании связи.
type ConnectionDetails struct {
	Location *Location
	Budget   *valueobject.Budget
	Urgent   bool
}

func NewConnection(clientID, professionalID uuid.UUID, description string, commission valueobject.Money, details ConnectionDetails) (*Connection, error) {
	if clientID == professionalID {
		return nil, apperror.New(apperror.ErrCodeValidation, "no puede crear una conexión consigo mismo")
	}

	description = strings.TrimSpace(description)
	length := utf8.RuneCountInString(description)
	if length < MinDescriptionLength || length > MaxDescriptionLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "la descripción del trabajo debe tener entre 10 y 1000 caracteres")
	}

	now := time.Now()
	return &Connection{
		ID:             uuid.New(),
		ClientID:       clientID,
		ProfessionalID: professionalID,
		Commission:     commission,
		Status:         valueobject.ConnectionStatusPending,
		Description:    description,
		Location:       details.Location,
		Budget:         details.Budget,
		Urgent:         details.Urgent,
		Messages:       []Message{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// AssignNumber фиксирует порядковый номер связи в паре и вытекающее из него требование оплаты.
func (c *Connection) AssignNumber(number int) {
	c.Number = number
	c.PaymentRequired = number == PaidConnectionNumber
}

func (c *Connection) IsParticipant(userID uuid.UUID) bool {
	return c.ClientID == userID || c.ProfessionalID == userID
}

// RoleOf возвращает роль участника в этой связи.
func (c *Connection) RoleOf(userID uuid.UUID) (valueobject.Role, bool) {
	switch userID {
	case c.ClientID:
		return valueobject.RoleClient, true
	case c.ProfessionalID:
		return valueobject.RoleProfessional, true
	}
	return "", false
}

// ChangeStatus переводит связь в новый статус от имени участника actorID.
// Переход в completed выставляет RatingPending и, если не задано, время окончания работы.
func (c *Connection) ChangeStatus(actorID uuid.UUID, to valueobject.ConnectionStatus, startedAt, finishedAt *time.Time, now time.Time) error {
	if !to.IsValid() {
		return apperror.New(apperror.ErrCodeValidation, "estado de conexión inválido")
	}

	role, ok := c.RoleOf(actorID)
	if !ok {
		return apperror.New(apperror.ErrCodeForbidden, "no participa en esta conexión")
	}

	if !to.CanBeSetBy(role) {
		return apperror.New(apperror.ErrCodeForbidden, "permisos insuficientes para establecer este estado")
	}

	if !c.Status.CanTransitionTo(to) {
		return apperror.New(apperror.ErrCodeConflict, "no se puede cambiar el estado de la conexión desde "+string(c.Status))
	}

	if startedAt != nil {
		c.WorkStartedAt = startedAt
	}
	if finishedAt != nil {
		c.WorkFinishedAt = finishedAt
	}

	c.Status = to
	if to == valueobject.ConnectionStatusCompleted {
		c.RatingPending = true
		if c.WorkFinishedAt == nil {
			finished := now
			c.WorkFinishedAt = &finished
		}
	}

	c.UpdatedAt = now
	return nil
}

// AppendMessage добавляет сообщение участника в конец журнала.
func (c *Connection) AppendMessage(senderID uuid.UUID, text string, now time.Time) (Message, error) {
	if !c.IsParticipant(senderID) {
		return Message{}, apperror.ErrConnectionNotFound
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, apperror.New(apperror.ErrCodeValidation, "el mensaje no puede estar vacío")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return Message{}, apperror.New(apperror.ErrCodeValidation, "el mensaje no puede superar los 2000 caracteres")
	}

	msg := Message{
		SenderID: senderID,
		Text:     text,
		SentAt:   now,
		Read:     false,
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = now
	return msg, nil
}

// MarkReadBy отмечает прочитанными все чужие сообщения и возвращает число изменённых.
func (c *Connection) MarkReadBy(readerID uuid.UUID) int {
	changed := 0
	for i := range c.Messages {
		if c.Messages[i].SenderID != readerID && !c.Messages[i].Read {
			c.Messages[i].Read = true
			changed++
		}
	}
	return changed
}

// UnreadCountFor считает непрочитанные сообщения, отправленные не userID.
func (c *Connection) UnreadCountFor(userID uuid.UUID) int {
	count := 0
	for _, m := range c.Messages {
		if !m.Read && m.SenderID != userID {
			count++
		}
	}
	return count
}

func (c *Connection) RequiresPayment() bool {
	return c.PaymentRequired && !c.PaymentCompleted
}

// CheckPayable проверяет, может ли клиент оплатить комиссию по связи.
func (c *Connection) CheckPayable(clientID uuid.UUID) error {
	if c.ClientID != clientID {
		return apperror.ErrConnectionNotFound
	}
	if !c.PaymentRequired {
		return apperror.ErrPaymentNotRequired
	}
	if c.PaymentCompleted {
		return apperror.ErrPaymentCompleted
	}
	return nil
}

// RecordPayment сохраняет сведения об оплате и закрывает требование оплаты.
func (c *Connection) RecordPayment(clientID uuid.UUID, info PaymentInfo, now time.Time) error {
	if err := c.CheckPayable(clientID); err != nil {
		return err
	}
	if info.TransactionID == "" {
		return apperror.New(apperror.ErrCodeInternal, "pago sin identificador de transacción")
	}

	c.PaymentInfo = &info
	c.PaymentCompleted = true
	c.UpdatedAt = now
	return nil
}

// WorkDurationDays возвращает длительность работы в днях с округлением вверх.
func (c *Connection) WorkDurationDays() *int {
	if c.WorkStartedAt == nil || c.WorkFinishedAt == nil {
		return nil
	}
	hours := math.Abs(c.WorkFinishedAt.Sub(*c.WorkStartedAt).Hours())
	days := int(math.Ceil(hours / 24))
	return &days
}
