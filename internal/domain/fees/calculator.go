// Package fees provides the platform fee calculator. All computations are
// pure decimal arithmetic; the calculator holds no state beyond its
// configured rates and is safe for concurrent use.
package fees

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidRate      = errors.New("rate must satisfy 0 <= rate < 1")
	ErrFeeExceedsAmount = errors.New("fee cannot exceed amount")
)

// minorUnits maps a currency code to its minor-unit exponent. Currencies not
// listed settle to two decimal places.
var minorUnits = map[string]int32{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"JPY": 0,
	"KWD": 3,
	"BTC": 8,
	"ETH": 8,
}

// MinorUnitExponent returns the number of decimal places used for the given
// currency.
func MinorUnitExponent(currency string) int32 {
	if exp, ok := minorUnits[currency]; ok {
		return exp
	}
	return 2
}

// Calculator computes platform fees for wallet operations.
type Calculator struct {
	depositRate    decimal.Decimal
	withdrawalRate decimal.Decimal
}

// NewCalculator builds a Calculator from per-operation rates.
func NewCalculator(depositRate, withdrawalRate decimal.Decimal) (*Calculator, error) {
	for _, rate := range []decimal.Decimal{depositRate, withdrawalRate} {
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, ErrInvalidRate
		}
	}
	return &Calculator{
		depositRate:    depositRate,
		withdrawalRate: withdrawalRate,
	}, nil
}

// DepositFee returns the fee charged on a deposit of the given amount.
func (c *Calculator) DepositFee(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	return ComputeFee(amount, c.depositRate, currency)
}

// WithdrawalFee returns the fee charged on a withdrawal of the given amount.
func (c *Calculator) WithdrawalFee(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	return ComputeFee(amount, c.withdrawalRate, currency)
}

// ComputeFee calculates amount * rate rounded half-even to the currency's
// minor-unit precision.
func ComputeFee(amount, rate decimal.Decimal, currency string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, ErrInvalidRate
	}
	return amount.Mul(rate).RoundBank(MinorUnitExponent(currency)), nil
}

// NetAmount returns amount - fee.
func NetAmount(amount, fee decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if fee.GreaterThan(amount) {
		return decimal.Zero, ErrFeeExceedsAmount
	}
	return amount.Sub(fee), nil
}
