package processors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
)

var (
	ErrInvalidCommissionRate = errors.New("commission rate must be between 0 and 1")
	ErrNegativeFare          = errors.New("base fare must not be negative")
	ErrInvalidVATRate        = errors.New("vat rate must not be negative")
)

// SettlementProcessor splits a base fare into commission, VAT and total.
type SettlementProcessor interface {
	Calculate(baseFare, commissionRate decimal.Decimal) (models.Amounts, error)
	VATRate() decimal.Decimal
}

type settlementProcessorImpl struct {
	vatRate decimal.Decimal
}

// NewSettlementProcessor returns a calculator applying vatRate on fare plus commission.
func NewSettlementProcessor(vatRate decimal.Decimal) (SettlementProcessor, error) {
	if vatRate.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVATRate, vatRate)
	}
	return &settlementProcessorImpl{vatRate: vatRate}, nil
}

func (p *settlementProcessorImpl) VATRate() decimal.Decimal {
	return p.vatRate
}

// Calculate returns all four amounts together so no caller recomputes a subset
// with different rounding. Decimal arithmetic keeps the sum exact.
func (p *settlementProcessorImpl) Calculate(baseFare, commissionRate decimal.Decimal) (models.Amounts, error) {
	if baseFare.IsNegative() {
		return models.Amounts{}, fmt.Errorf("%w: %s", ErrNegativeFare, baseFare)
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return models.Amounts{}, fmt.Errorf("%w: %s", ErrInvalidCommissionRate, commissionRate)
	}

	commission := baseFare.Mul(commissionRate)
	vat := baseFare.Add(commission).Mul(p.vatRate)

	return models.Amounts{
		BaseFare:         baseFare,
		CommissionAmount: commission,
		VATAmount:        vat,
		TotalAmount:      baseFare.Add(commission).Add(vat),
	}, nil
}
