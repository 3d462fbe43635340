// Package model defines the core domain types shared across the event ledger.
// All stake amounts use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Choice is a bettor's binary side on their selected option.
type Choice string

const (
	ChoiceYes Choice = "YES"
	ChoiceNo  Choice = "NO"
)

// Valid reports whether c is one of the two supported sides.
func (c Choice) Valid() bool {
	return c == ChoiceYes || c == ChoiceNo
}

// Config holds the ledger-wide administrative settings. One instance,
// created at startup, mutated only by the update-fee command.
type Config struct {
	Admin          string `json:"admin"`
	TreasuryFeeBps uint64 `json:"treasury_fee_bps"` // basis points, 1–10000
	Treasury       string `json:"treasury"`
}

// Option is one selectable outcome within an event, carrying its own
// Yes/No/total stake pools. Invariant: TotalPool == YesPool + NoPool.
type Option struct {
	Name      string          `json:"name"`
	TotalPool decimal.Decimal `json:"total_pool"`
	YesPool   decimal.Decimal `json:"yes_pool"`
	NoPool    decimal.Decimal `json:"no_pool"`
}

// NewOption returns an option with zeroed pools.
func NewOption(name string) Option {
	return Option{
		Name:      name,
		TotalPool: decimal.Zero,
		YesPool:   decimal.Zero,
		NoPool:    decimal.Zero,
	}
}

// Event is an administrator-defined proposition with multiple mutually
// exclusive options and a betting window.
//
// Lifecycle is linear: created → started (Executed flips true exactly
// once) → resolved (Resolved flips true exactly once, fixing Result).
// Events are never deleted. Invariant: TotalPool == Σ Options[i].TotalPool.
type Event struct {
	ID           uint64          `json:"event_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	Executed     bool            `json:"executed"`
	Resolved     bool            `json:"resolved"`
	Options      []Option        `json:"options"`
	TotalPool    decimal.Decimal `json:"total_pool"`
	Result       *Option         `json:"result,omitempty"`
	Participants []string        `json:"participants"`
}

// HasParticipant reports whether bettor has already placed a bet on e.
func (e *Event) HasParticipant(bettor string) bool {
	for _, p := range e.Participants {
		if p == bettor {
			return true
		}
	}
	return false
}

// Bet is a bettor's single stake record for one event: a snapshot of the
// chosen option's pools at placement time, the binary choice, and the
// staked amount. Bets are creation-only — never mutated or deleted.
type Bet struct {
	ID       string          `json:"id"`
	EventID  uint64          `json:"event_id"`
	Bettor   string          `json:"bettor"`
	Option   Option          `json:"option"`
	Choice   Choice          `json:"choice"`
	Amount   decimal.Decimal `json:"amount"`
	PlacedAt time.Time       `json:"placed_at"`
}
