package connection

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/repository"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/metrics"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

type CreateConnectionInput struct {
	ClientID       uuid.UUID
	Role           valueobject.Role
	ProfessionalID uuid.UUID
	Description    string
	Location       *entity.Location
	Budget         *valueobject.Budget
	Urgent         bool
}

type CreateConnectionUseCase struct {
	connRepo   repository.ConnectionRepository
	directory  repository.ProfessionalDirectory
	commission valueobject.Money
}

func NewCreateConnectionUseCase(
	connRepo repository.ConnectionRepository,
	directory repository.ProfessionalDirectory,
	commission valueobject.Money,
) *CreateConnectionUseCase {
	return &CreateConnectionUseCase{
		connRepo:   connRepo,
		directory:  directory,
		commission: commission,
	}
}

func (uc *CreateConnectionUseCase) Execute(ctx context.Context, input CreateConnectionInput) (*entity.Connection, error) {
	if input.Role != valueobject.RoleClient {
		return nil, apperror.New(apperror.ErrCodeForbidden, "solo los clientes pueden crear conexiones")
	}

	conn, err := entity.NewConnection(
		input.ClientID,
		input.ProfessionalID,
		input.Description,
		uc.commission,
		entity.ConnectionDetails{
			Location: input.Location,
			Budget:   input.Budget,
			Urgent:   input.Urgent,
		},
	)
	if err != nil {
		return nil, err
	}

	available, err := uc.directory.IsAvailableProfessional(ctx, input.ProfessionalID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, apperror.ErrProfessionalUnavailable
	}

	if err := uc.connRepo.Create(ctx, conn); err != nil {
		return nil, err
	}

	metrics.ConnectionsCreated.WithLabelValues(strconv.FormatBool(conn.PaymentRequired)).Inc()
	return conn, nil
}
