package payment

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/conectacordoba/marketplace-backend/internal/domain/valueobject"
)

// Charge - запрос на списание комиссии по связи.
type Charge struct {
	ConnectionID uuid.UUID
	ClientID     uuid.UUID
	Method       string
	Details      map[string]interface{}
	Amount       valueobject.Money
}

// Receipt - подтверждение проведённого платежа.
type Receipt struct {
	TransactionID string
	PaidAt        time.Time
	Amount        valueobject.Money
}

// Processor проводит оплату комиссии. Реальный платёжный шлюз подключается через этот интерфейс.
type Processor interface {
	Charge(ctx context.Context, charge Charge) (*Receipt, error)
}

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength   = 9
)

// SimulatedProcessor подтверждает любой платёж и выдаёт идентификатор вида TX_<unixms>_<9 символов base36>.
type SimulatedProcessor struct {
	now func() time.Time
}

func NewSimulatedProcessor() *SimulatedProcessor {
	return &SimulatedProcessor{now: time.Now}
}

func (p *SimulatedProcessor) Charge(ctx context.Context, charge Charge) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	suffix, err := randomBase36(suffixLength)
	if err != nil {
		return nil, fmt.Errorf("generate transaction id: %w", err)
	}

	paidAt := p.now()
	return &Receipt{
		TransactionID: fmt.Sprintf("TX_%d_%s", paidAt.UnixMilli(), suffix),
		PaidAt:        paidAt,
		Amount:        charge.Amount,
	}, nil
}

func randomBase36(n int) (string, error) {
	max := big.NewInt(int64(len(base36Alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = base36Alphabet[idx.Int64()]
	}
	return string(buf), nil
}
