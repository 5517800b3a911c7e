package connection

import (
	"context"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/repository"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

type ListConnectionsInput struct {
	UserID uuid.UUID
	Role   valueobject.Role
	Status string
	Page   int
	Limit  int
}

// ListItem - связь в списке с числом непрочитанных сообщений для текущего пользователя.
type ListItem struct {
	Connection  *entity.Connection
	UnreadCount int
}

type ListConnectionsOutput struct {
	Items []ListItem
	Total int
	Page  int
	Limit int
}

type ListConnectionsUseCase struct {
	connRepo repository.ConnectionRepository
}

func NewListConnectionsUseCase(connRepo repository.ConnectionRepository) *ListConnectionsUseCase {
	return &ListConnectionsUseCase{connRepo: connRepo}
}

func (uc *ListConnectionsUseCase) Execute(ctx context.Context, input ListConnectionsInput) (*ListConnectionsOutput, error) {
	if !input.Role.IsValid() {
		return nil, apperror.ErrForbidden
	}

	filter := repository.ConnectionFilter{
		UserID: input.UserID,
		Role:   input.Role,
	}

	if input.Status != "" {
		status, err := valueobject.NewConnectionStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit <= 0 || input.Limit > maxListLimit {
		input.Limit = defaultListLimit
	}
	filter.Limit = input.Limit
	filter.Offset = (input.Page - 1) * input.Limit

	conns, total, err := uc.connRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]ListItem, 0, len(conns))
	for _, conn := range conns {
		items = append(items, ListItem{
			Connection:  conn,
			UnreadCount: conn.UnreadCountFor(input.UserID),
		})
	}

	return &ListConnectionsOutput{
		Items: items,
		Total: total,
		Page:  input.Page,
		Limit: input.Limit,
	}, nil
}

type GetConnectionUseCase struct {
	connRepo repository.ConnectionRepository
}

func NewGetConnectionUseCase(connRepo repository.ConnectionRepository) *GetConnectionUseCase {
	return &GetConnectionUseCase{connRepo: connRepo}
}

// Execute отдаёт связь участнику и отмечает прочитанными адресованные ему сообщения.
func (uc *GetConnectionUseCase) Execute(ctx context.Context, connectionID, userID uuid.UUID) (*entity.Connection, error) {
	conn, err := uc.connRepo.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	if !conn.IsParticipant(userID) {
		return nil, apperror.ErrConnectionNotFound
	}

	if conn.UnreadCountFor(userID) == 0 {
		return conn, nil
	}

	updated, err := uc.connRepo.Update(ctx, connectionID, func(c *entity.Connection) error {
		c.MarkReadBy(userID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	conn.Messages = updated.Messages
	return conn, nil
}
