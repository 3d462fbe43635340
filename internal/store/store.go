// Package store defines the persistence interface for the event ledger.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"

	"github.com/zigstake/event-ledger/internal/model"
)

// Store is the persistence interface. The keyed event map is canonical;
// ListEvents is a materialized view over it, maintained transactionally
// with every event write.
//
// Implementations return model.ErrNotFound for absent records and
// model.ErrEventExists for duplicate event ids. RecordBet must commit
// the updated event, the bet record, and the bettor's history entry as
// one unit — either all persist or none do.
type Store interface {
	// --- Config singleton ---

	// SaveConfig persists the ledger configuration, overwriting any
	// previous value.
	SaveConfig(ctx context.Context, cfg *model.Config) error

	// GetConfig retrieves the ledger configuration.
	GetConfig(ctx context.Context) (*model.Config, error)

	// --- Events ---

	// CreateEvent persists a new event keyed by its id.
	CreateEvent(ctx context.Context, e *model.Event) error

	// UpdateEvent overwrites an existing event record.
	UpdateEvent(ctx context.Context, e *model.Event) error

	// GetEvent retrieves an event by id.
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)

	// ListEvents returns all events in creation order. Empty slice when
	// none exist.
	ListEvents(ctx context.Context) ([]model.Event, error)

	// --- Bets ---

	// RecordBet atomically commits the mutated event together with the
	// bet record and the bettor's history append.
	RecordBet(ctx context.Context, e *model.Event, bet *model.Bet) error

	// GetBet retrieves the single bet a bettor holds on an event.
	GetBet(ctx context.Context, bettor string, eventID uint64) (*model.Bet, error)

	// GetUserBets returns a bettor's full history in placement order.
	// Returns model.ErrNotFound when the bettor has no history record at
	// all, as opposed to an empty slice.
	GetUserBets(ctx context.Context, bettor string) ([]model.Bet, error)
}
