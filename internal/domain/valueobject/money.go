package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/conectacordoba/marketplace-backend/internal/pkg/apperror"
)

const DefaultCurrency = "ARS"

// Money хранит сумму в точном десятичном представлении.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "el monto no puede ser negativo")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount.Round(2), Currency: currency}, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Amount.StringFixed(2))
}

// Budget - ориентировочный бюджет работы, указанный клиентом.
type Budget struct {
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
	Currency string          `json:"currency"`
}

func NewBudget(min, max decimal.Decimal, currency string) (Budget, error) {
	if min.IsNegative() || max.IsNegative() {
		return Budget{}, apperror.New(apperror.ErrCodeValidation, "el presupuesto no puede ser negativo")
	}
	if min.GreaterThan(max) {
		return Budget{}, apperror.New(apperror.ErrCodeValidation, "el presupuesto mínimo no puede superar al máximo")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Budget{Min: min, Max: max, Currency: currency}, nil
}

func (b Budget) IsInRange(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(b.Min) && amount.LessThanOrEqual(b.Max)
}

func (b Budget) String() string {
	return fmt.Sprintf("%s %s - %s", b.Currency, b.Min.StringFixed(2), b.Max.StringFixed(2))
}
