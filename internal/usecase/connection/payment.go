package connection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/entity"
	"github.com/conectacordoba/marketplace-backend/internal/domain/repository"
	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
	"github.com/conectacordoba/marketplace-backend/internal/infrastructure/payment"
	"github.com/conectacordoba/marketplace-backend/internal/metrics"
	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

type RecordPaymentInput struct {
	ConnectionID uuid.UUID
	ClientID     uuid.UUID
	Role         valueobject.Role
	Method       string
	Details      map[string]interface{}
}

type RecordPaymentUseCase struct {
	connRepo  repository.ConnectionRepository
	processor payment.Processor
}

func NewRecordPaymentUseCase(connRepo repository.ConnectionRepository, processor payment.Processor) *RecordPaymentUseCase {
	return &RecordPaymentUseCase{connRepo: connRepo, processor: processor}
}

func (uc *RecordPaymentUseCase) Execute(ctx context.Context, input RecordPaymentInput) (*entity.PaymentInfo, error) {
	if input.Role != valueobject.RoleClient {
		return nil, apperror.New(apperror.ErrCodeForbidden, "solo los clientes pueden realizar pagos")
	}
	if input.Method == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "falta el método de pago")
	}

	// Проверка и списание выполняются под блокировкой строки связи: второй запрос увидит payment_completed.
	updated, err := uc.connRepo.Update(ctx, input.ConnectionID, func(c *entity.Connection) error {
		if err := c.CheckPayable(input.ClientID); err != nil {
			return err
		}

		receipt, err := uc.processor.Charge(ctx, payment.Charge{
			ConnectionID: c.ID,
			ClientID:     input.ClientID,
			Method:       input.Method,
			Details:      input.Details,
			Amount:       c.Commission,
		})
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeInternal, "no se pudo procesar el pago")
		}

		return c.RecordPayment(input.ClientID, entity.PaymentInfo{
			Method:        input.Method,
			Details:       input.Details,
			PaidAt:        receipt.PaidAt,
			TransactionID: receipt.TransactionID,
			Amount:        receipt.Amount,
		}, time.Now())
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.Inc()
	return updated.PaymentInfo, nil
}
