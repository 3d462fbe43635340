// Package funds handles the coins attached to a command by its caller.
//
// A command may carry several (denomination, amount) pairs; the ledger
// only ever reads the amount tagged with its configured stake
// denomination. Everything else is carried through untouched.
package funds

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultStakeDenom is the denomination the ledger accepts stakes in
// unless configured otherwise.
const DefaultStakeDenom = "uzig"

var (
	// ErrEmptyDenom is returned when a coin has no denomination.
	ErrEmptyDenom = errors.New("funds: coin denomination must not be empty")

	// ErrNegativeAmount is returned when a coin carries a negative amount.
	ErrNegativeAmount = errors.New("funds: coin amount must not be negative")
)

// Coin is a single (denomination, amount) pair attached to a command.
type Coin struct {
	Denom  string          `json:"denom"`
	Amount decimal.Decimal `json:"amount"`
}

// Validate checks that every coin is well formed: non-empty denomination
// and non-negative amount. Called at the transport boundary before any
// command logic runs.
func Validate(coins []Coin) error {
	for i, c := range coins {
		if c.Denom == "" {
			return fmt.Errorf("%w (coin %d)", ErrEmptyDenom, i)
		}
		if c.Amount.IsNegative() {
			return fmt.Errorf("%w (coin %d: %s)", ErrNegativeAmount, i, c.Amount)
		}
	}
	return nil
}

// AmountOf returns the total amount attached in the given denomination,
// or zero when no coin matches.
func AmountOf(coins []Coin, denom string) decimal.Decimal {
	total := decimal.Zero
	for _, c := range coins {
		if c.Denom == denom {
			total = total.Add(c.Amount)
		}
	}
	return total
}
