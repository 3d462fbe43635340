// Package ledger implements the prediction-market command engine: event
// lifecycle (add → start → resolve), bet placement with pool accounting,
// and the read-only query surface, plus the HTTP handlers exposing them.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zigstake/event-ledger/internal/funds"
	"github.com/zigstake/event-ledger/internal/metrics"
	"github.com/zigstake/event-ledger/internal/model"
	"github.com/zigstake/event-ledger/internal/pool"
	"github.com/zigstake/event-ledger/internal/store"
)

// Engine executes ledger commands. Commands are serialized with a mutex
// (single-instance), matching the one-command-at-a-time execution model;
// queries run without it and observe committed state only.
type Engine struct {
	store store.Store
	denom string // stake denomination accepted from attached funds
	mu    sync.Mutex
	hub   *Hub // optional WebSocket hub for real-time broadcasts
}

// NewEngine creates an engine over the given store. Pass nil for hub if
// WebSocket broadcasting is not needed.
func NewEngine(st store.Store, denom string, hub *Hub) *Engine {
	if denom == "" {
		denom = funds.DefaultStakeDenom
	}
	return &Engine{
		store: st,
		denom: denom,
		hub:   hub,
	}
}

// StakeDenom returns the denomination the engine reads stakes in.
func (g *Engine) StakeDenom() string { return g.denom }

// Initialize stores the ledger configuration. Fails with ErrIncorrectFee
// when feeBps is zero or above 10000 basis points.
func (g *Engine) Initialize(ctx context.Context, admin string, feeBps uint64, treasury string) (*model.Config, error) {
	if feeBps == 0 || feeBps > 10_000 {
		return nil, model.ErrIncorrectFee
	}

	cfg := &model.Config{
		Admin:          admin,
		TreasuryFeeBps: feeBps,
		Treasury:       treasury,
	}
	if err := g.store.SaveConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	slog.Info("ledger initialized", "admin", admin, "treasury_fee_bps", feeBps)
	return cfg, nil
}

// requireAdmin is the shared authorization guard run at the top of every
// admin command.
func (g *Engine) requireAdmin(ctx context.Context, caller string) error {
	cfg, err := g.store.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if caller != cfg.Admin {
		return model.ErrUnauthorized
	}
	return nil
}

// UpdateFee overwrites the treasury fee. Admin only; the [1,10000] basis
// point range check matches Initialize.
func (g *Engine) UpdateFee(ctx context.Context, caller string, newFeeBps uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if newFeeBps == 0 || newFeeBps > 10_000 {
		return model.ErrIncorrectFee
	}

	cfg, err := g.store.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.TreasuryFeeBps = newFeeBps
	if err := g.store.SaveConfig(ctx, cfg); err != nil {
		return fmt.Errorf("update fee: %w", err)
	}

	slog.Info("treasury fee updated", "caller", caller, "new_fee_bps", newFeeBps)
	return nil
}

// AddEvent creates a new event with zeroed pools. Admin only. Duplicate
// event ids are rejected rather than overwritten.
func (g *Engine) AddEvent(ctx context.Context, caller string, id uint64, name, category string,
	optionNames []string, startTime, endTime time.Time) (*model.Event, error) {

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}

	options := make([]model.Option, 0, len(optionNames))
	for _, n := range optionNames {
		options = append(options, model.NewOption(n))
	}

	event := &model.Event{
		ID:           id,
		Name:         name,
		Category:     category,
		StartTime:    startTime,
		EndTime:      endTime,
		Executed:     false,
		Resolved:     false,
		Options:      options,
		TotalPool:    decimal.Zero,
		Participants: []string{},
	}

	// The keyed record and the listing view commit together inside the
	// store.
	if err := g.store.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	metrics.EventsCreated.Inc()
	slog.Info("event created", "event_id", id, "name", name, "category", category)
	return event, nil
}

// StartEvent flips an event to executed. Admin only. The combined-state
// check runs before the single-state check so a started-and-resolved
// event reports ErrEventEndedAndResolved, not ErrEventExecuted.
func (g *Engine) StartEvent(ctx context.Context, caller string, id uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireAdmin(ctx, caller); err != nil {
		return err
	}

	event, err := g.store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if event.Executed && event.Resolved {
		return fmt.Errorf("%w: event %d", model.ErrEventEndedAndResolved, id)
	}
	if event.Executed {
		return fmt.Errorf("%w: event %d", model.ErrEventExecuted, id)
	}

	event.Executed = true
	if err := g.store.UpdateEvent(ctx, event); err != nil {
		return err
	}

	metrics.EventsStarted.Inc()
	slog.Info("event started", "event_id", id)
	g.broadcast(WSMessage{Type: "event_started", EventID: id, Name: event.Name})
	return nil
}

// EndEvent resolves an event, fixing the winning option. Admin only.
// Settlement of winnings is out of scope — resolution only marks the
// result.
func (g *Engine) EndEvent(ctx context.Context, caller string, id uint64, resultIdx int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireAdmin(ctx, caller); err != nil {
		return err
	}

	event, err := g.store.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if !event.Executed {
		return fmt.Errorf("%w: event %d", model.ErrEventNotStarted, id)
	}
	if event.Resolved {
		return fmt.Errorf("%w: event %d", model.ErrEventEnded, id)
	}
	if resultIdx < 0 || resultIdx >= len(event.Options) {
		return fmt.Errorf("%w: result index %d, event %d has %d options",
			pool.ErrInvalidOption, resultIdx, id, len(event.Options))
	}

	result := event.Options[resultIdx]
	event.Resolved = true
	event.Result = &result
	if err := g.store.UpdateEvent(ctx, event); err != nil {
		return err
	}

	metrics.EventsResolved.Inc()
	slog.Info("event resolved", "event_id", id, "result", result.Name)
	g.broadcast(WSMessage{Type: "event_resolved", EventID: id, Name: event.Name, Result: result.Name})
	return nil
}

// PlaceBet records a bettor's single stake on one event option.
//
// Validation order: event existence, started, not-yet-participating,
// qualifying stake attached, option index in range. Only then is state
// touched, and the event update, bet record, and history append commit
// as one unit. A resolved event that is still executed remains bettable;
// closing it to bets is the resolve caller's responsibility via timing.
func (g *Engine) PlaceBet(ctx context.Context, caller string, eventID uint64,
	choice model.Choice, optionIdx int, attached []funds.Coin) (*model.Bet, error) {

	g.mu.Lock()
	defer g.mu.Unlock()

	event, err := g.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Executed {
		return nil, fmt.Errorf("%w: event %d", model.ErrEventNotStarted, eventID)
	}
	if event.HasParticipant(caller) {
		return nil, fmt.Errorf("%w: event %d, bettor %s", model.ErrCannotPredictTwice, eventID, caller)
	}

	amount := funds.AmountOf(attached, g.denom)
	if !amount.IsPositive() {
		return nil, model.ErrNoBetFound
	}
	if optionIdx < 0 || optionIdx >= len(event.Options) {
		return nil, fmt.Errorf("%w: index %d, event %d has %d options",
			pool.ErrInvalidOption, optionIdx, eventID, len(event.Options))
	}

	// Snapshot the chosen option before pools move.
	bet := &model.Bet{
		ID:       uuid.New().String(),
		EventID:  eventID,
		Bettor:   caller,
		Option:   event.Options[optionIdx],
		Choice:   choice,
		Amount:   amount,
		PlacedAt: time.Now().UTC(),
	}

	event.Participants = append(event.Participants, caller)
	if err := pool.ApplyStake(event, optionIdx, choice, amount); err != nil {
		return nil, err
	}

	if err := g.store.RecordBet(ctx, event, bet); err != nil {
		return nil, err
	}

	metrics.BetsTotal.WithLabelValues(string(choice)).Inc()
	metrics.StakeVolume.WithLabelValues(event.Options[optionIdx].Name).Add(amount.InexactFloat64())
	slog.Info("bet placed",
		"bet_id", bet.ID,
		"event_id", eventID,
		"bettor", caller,
		"option", bet.Option.Name,
		"choice", string(choice),
		"amount", amount.String(),
	)
	g.broadcast(WSMessage{
		Type:    "bet_placed",
		EventID: eventID,
		Option:  event.Options[optionIdx].Name,
		Choice:  string(choice),
		Amount:  amount.String(),
	})
	return bet, nil
}

// --- Queries (read-only, no authorization) ---

// GetEvent returns one event by id.
func (g *Engine) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	return g.store.GetEvent(ctx, id)
}

// ListEvents returns all events in creation order.
func (g *Engine) ListEvents(ctx context.Context) ([]model.Event, error) {
	return g.store.ListEvents(ctx)
}

// GetBet returns the single bet a user holds on an event.
func (g *Engine) GetBet(ctx context.Context, user string, eventID uint64) (*model.Bet, error) {
	return g.store.GetBet(ctx, user, eventID)
}

// GetUserBets returns a user's full bet history. A user with no history
// record at all gets ErrNotFound, not an empty slice.
func (g *Engine) GetUserBets(ctx context.Context, user string) ([]model.Bet, error) {
	return g.store.GetUserBets(ctx, user)
}

func (g *Engine) broadcast(msg WSMessage) {
	if g.hub != nil {
		g.hub.Broadcast(msg)
	}
}
