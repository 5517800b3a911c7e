package connection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/repository"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

type UpdateStatusInput struct {
	ConnectionID   uuid.UUID
	UserID         uuid.UUID
	Status         string
	WorkStartedAt  *time.Time
	WorkFinishedAt *time.Time
}

type UpdateStatusUseCase struct {
	connRepo repository.ConnectionRepository
}

func NewUpdateStatusUseCase(connRepo repository.ConnectionRepository) *UpdateStatusUseCase {
	return &UpdateStatusUseCase{connRepo: connRepo}
}

func (uc *UpdateStatusUseCase) Execute(ctx context.Context, input UpdateStatusInput) (*entity.Connection, error) {
	status, err := valueobject.NewConnectionStatus(input.Status)
	if err != nil {
		return nil, err
	}

	return uc.connRepo.Update(ctx, input.ConnectionID, func(c *entity.Connection) error {
		return c.ChangeStatus(input.UserID, status, input.WorkStartedAt, input.WorkFinishedAt, time.Now())
	})
}

type SendMessageUseCase struct {
	connRepo repository.ConnectionRepository
}

func NewSendMessageUseCase(connRepo repository.ConnectionRepository) *SendMessageUseCase {
	return &SendMessageUseCase{connRepo: connRepo}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, connectionID, senderID uuid.UUID, text string) (*entity.Message, error) {
	var sent entity.Message
	_, err := uc.connRepo.Update(ctx, connectionID, func(c *entity.Connection) error {
		msg, err := c.AppendMessage(senderID, text, time.Now())
		if err != nil {
			return err
		}
		sent = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sent, nil
}

type MarkReadUseCase struct {
	connRepo repository.ConnectionRepository
}

func NewMarkReadUseCase(connRepo repository.ConnectionRepository) *MarkReadUseCase {
	return &MarkReadUseCase{connRepo: connRepo}
}

// Execute возвращает число сообщений, отмеченных прочитанными.
func (uc *MarkReadUseCase) Execute(ctx context.Context, connectionID, readerID uuid.UUID) (int, error) {
	marked := 0
	_, err := uc.connRepo.Update(ctx, connectionID, func(c *entity.Connection) error {
		if !c.IsParticipant(readerID) {
			return apperror.ErrConnectionNotFound
		}
		marked = c.MarkReadBy(readerID)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}
