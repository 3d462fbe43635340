// Package pool implements the stake-pool accounting applied on every
// accepted bet, plus the invariant checks that keep event totals
// consistent with the sum of individual bets.
//
// All amounts use shopspring/decimal — never float64 for money.
package pool

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zigstake/event-ledger/internal/model"
)

var (
	// ErrInvalidOption is returned when a bet references an option index
	// outside the event's option list.
	ErrInvalidOption = errors.New("pool: option index out of range")

	// ErrNonPositiveStake is returned when a stake amount is zero or
	// negative. Stakes are financial quantities; the pools only ever grow.
	ErrNonPositiveStake = errors.New("pool: stake amount must be positive")
)

// ApplyStake credits amount to the option at optionIdx and to the event
// total, on the side selected by choice. The event is mutated in place;
// on error nothing is touched.
//
// Bounds are checked before any mutation so a bad index can never leave
// an event half-updated.
func ApplyStake(e *model.Event, optionIdx int, choice model.Choice, amount decimal.Decimal) error {
	if optionIdx < 0 || optionIdx >= len(e.Options) {
		return fmt.Errorf("%w: index %d, event %d has %d options",
			ErrInvalidOption, optionIdx, e.ID, len(e.Options))
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrNonPositiveStake, amount)
	}

	opt := &e.Options[optionIdx]
	opt.TotalPool = opt.TotalPool.Add(amount)
	switch choice {
	case model.ChoiceYes:
		opt.YesPool = opt.YesPool.Add(amount)
	default:
		opt.NoPool = opt.NoPool.Add(amount)
	}
	e.TotalPool = e.TotalPool.Add(amount)
	return nil
}

// CheckInvariants verifies that every option's total equals its Yes+No
// pools and that the event total equals the sum of option totals.
// Used by tests and available as a debugging aid.
func CheckInvariants(e *model.Event) error {
	sum := decimal.Zero
	for i, opt := range e.Options {
		if !opt.TotalPool.Equal(opt.YesPool.Add(opt.NoPool)) {
			return fmt.Errorf("pool: option %d of event %d: total %s != yes %s + no %s",
				i, e.ID, opt.TotalPool, opt.YesPool, opt.NoPool)
		}
		sum = sum.Add(opt.TotalPool)
	}
	if !e.TotalPool.Equal(sum) {
		return fmt.Errorf("pool: event %d: total %s != sum of option totals %s",
			e.ID, e.TotalPool, sum)
	}
	return nil
}
