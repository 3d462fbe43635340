package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zigstake/event-ledger/internal/funds"
	"github.com/zigstake/event-ledger/internal/ledger"
	"github.com/zigstake/event-ledger/internal/model"
	"github.com/zigstake/event-ledger/internal/pool"
	"github.com/zigstake/event-ledger/internal/store"
)

const (
	admin    = "zig1admin"
	treasury = "zig1treasury"
	bettor   = "zig1user"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func stake(f float64) []funds.Coin {
	return []funds.Coin{{Denom: "uzig", Amount: d(f)}}
}

// newTestEngine creates an initialized engine over an in-memory store.
func newTestEngine(t *testing.T) (*ledger.Engine, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	eng := ledger.NewEngine(ms, "uzig", nil)
	if _, err := eng.Initialize(context.Background(), admin, 250, treasury); err != nil {
		t.Fatalf("failed to initialize ledger: %v", err)
	}
	return eng, ms
}

// addEvent creates an event with the given options as the admin.
func addEvent(t *testing.T, eng *ledger.Engine, id uint64, options ...string) *model.Event {
	t.Helper()
	now := time.Now().UTC()
	e, err := eng.AddEvent(context.Background(), admin, id, "test event", "sports",
		options, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("failed to add event %d: %v", id, err)
	}
	return e
}

func startEvent(t *testing.T, eng *ledger.Engine, id uint64) {
	t.Helper()
	if err := eng.StartEvent(context.Background(), admin, id); err != nil {
		t.Fatalf("failed to start event %d: %v", id, err)
	}
}

// --- Initialization and fee tests ---

func TestInitialize_FeeRange(t *testing.T) {
	for _, fee := range []uint64{0, 10_001, 50_000} {
		eng := ledger.NewEngine(store.NewMemoryStore(), "uzig", nil)
		if _, err := eng.Initialize(context.Background(), admin, fee, treasury); !errors.Is(err, model.ErrIncorrectFee) {
			t.Errorf("fee %d: expected ErrIncorrectFee, got %v", fee, err)
		}
	}

	for _, fee := range []uint64{1, 250, 10_000} {
		eng := ledger.NewEngine(store.NewMemoryStore(), "uzig", nil)
		cfg, err := eng.Initialize(context.Background(), admin, fee, treasury)
		if err != nil {
			t.Fatalf("fee %d: unexpected error: %v", fee, err)
		}
		if cfg.TreasuryFeeBps != fee {
			t.Errorf("expected fee %d, got %d", fee, cfg.TreasuryFeeBps)
		}
	}
}

func TestUpdateFee(t *testing.T) {
	eng, ms := newTestEngine(t)
	ctx := context.Background()

	if err := eng.UpdateFee(ctx, admin, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, _ := ms.GetConfig(ctx)
	if cfg.TreasuryFeeBps != 500 {
		t.Errorf("expected fee 500, got %d", cfg.TreasuryFeeBps)
	}

	// Out-of-range updates fail and leave the stored fee untouched.
	for _, fee := range []uint64{0, 10_001} {
		if err := eng.UpdateFee(ctx, admin, fee); !errors.Is(err, model.ErrIncorrectFee) {
			t.Errorf("fee %d: expected ErrIncorrectFee, got %v", fee, err)
		}
	}
	cfg, _ = ms.GetConfig(ctx)
	if cfg.TreasuryFeeBps != 500 {
		t.Errorf("fee should still be 500 after rejections, got %d", cfg.TreasuryFeeBps)
	}
}

func TestUpdateFee_NonAdmin(t *testing.T) {
	eng, _ := newTestEngine(t)

	err := eng.UpdateFee(context.Background(), "zig1stranger", 500)
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

// --- Event lifecycle tests ---

func TestAddEvent_NonAdmin(t *testing.T) {
	eng, ms := newTestEngine(t)
	now := time.Now().UTC()

	_, err := eng.AddEvent(context.Background(), "zig1stranger", 1, "x", "sports",
		[]string{"X"}, now, now.Add(time.Hour))
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	events, _ := ms.ListEvents(context.Background())
	if len(events) != 0 {
		t.Errorf("no event should be stored, got %d", len(events))
	}
}

func TestAddEvent_InitialState(t *testing.T) {
	eng, _ := newTestEngine(t)

	e := addEvent(t, eng, 7, "Alpha", "Beta")
	if e.Executed || e.Resolved {
		t.Error("new event must be neither executed nor resolved")
	}
	if len(e.Participants) != 0 {
		t.Errorf("new event must have no participants, got %d", len(e.Participants))
	}
	if !e.TotalPool.IsZero() {
		t.Errorf("new event pool must be zero, got %s", e.TotalPool)
	}
	for i, opt := range e.Options {
		if !opt.TotalPool.IsZero() || !opt.YesPool.IsZero() || !opt.NoPool.IsZero() {
			t.Errorf("option %d pools must start at zero", i)
		}
	}
}

func TestAddEvent_DuplicateID(t *testing.T) {
	eng, _ := newTestEngine(t)
	addEvent(t, eng, 1, "X")

	now := time.Now().UTC()
	_, err := eng.AddEvent(context.Background(), admin, 1, "other", "sports",
		[]string{"Y"}, now, now.Add(time.Hour))
	if !errors.Is(err, model.ErrEventExists) {
		t.Errorf("expected ErrEventExists, got %v", err)
	}

	// The original event is untouched.
	e, _ := eng.GetEvent(context.Background(), 1)
	if e.Name != "test event" {
		t.Errorf("original event should survive, got name %q", e.Name)
	}
}

func TestStartEvent_Lifecycle(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X")

	if err := eng.StartEvent(ctx, admin, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, _ := eng.GetEvent(ctx, 1)
	if !e.Executed {
		t.Error("event should be executed")
	}

	// Second start fails with the single-state error.
	if err := eng.StartEvent(ctx, admin, 1); !errors.Is(err, model.ErrEventExecuted) {
		t.Errorf("expected ErrEventExecuted, got %v", err)
	}

	// After resolution the combined-state error takes precedence.
	if err := eng.EndEvent(ctx, admin, 1, 0); err != nil {
		t.Fatalf("unexpected error resolving: %v", err)
	}
	if err := eng.StartEvent(ctx, admin, 1); !errors.Is(err, model.ErrEventEndedAndResolved) {
		t.Errorf("expected ErrEventEndedAndResolved, got %v", err)
	}
}

func TestStartEvent_Errors(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X")

	if err := eng.StartEvent(ctx, "zig1stranger", 1); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := eng.StartEvent(ctx, admin, 99); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEndEvent_Lifecycle(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X", "Y")

	// Resolving before start fails.
	if err := eng.EndEvent(ctx, admin, 1, 0); !errors.Is(err, model.ErrEventNotStarted) {
		t.Errorf("expected ErrEventNotStarted, got %v", err)
	}

	startEvent(t, eng, 1)
	if err := eng.EndEvent(ctx, admin, 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, _ := eng.GetEvent(ctx, 1)
	if !e.Resolved {
		t.Error("event should be resolved")
	}
	if e.Result == nil || e.Result.Name != "Y" {
		t.Errorf("expected result option Y, got %+v", e.Result)
	}

	// Double resolution fails.
	if err := eng.EndEvent(ctx, admin, 1, 0); !errors.Is(err, model.ErrEventEnded) {
		t.Errorf("expected ErrEventEnded, got %v", err)
	}
}

func TestEndEvent_Errors(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X")
	startEvent(t, eng, 1)

	if err := eng.EndEvent(ctx, "zig1stranger", 1, 0); !errors.Is(err, model.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := eng.EndEvent(ctx, admin, 99, 0); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := eng.EndEvent(ctx, admin, 1, 5); !errors.Is(err, pool.ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}
}

// --- Bet placement tests ---

func TestPlaceBet_Success(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X")
	startEvent(t, eng, 1)

	bet, err := eng.PlaceBet(ctx, bettor, 1, model.ChoiceYes, 0, stake(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bet.ID == "" {
		t.Error("expected non-empty bet id")
	}
	if !bet.Amount.Equal(d(100)) {
		t.Errorf("expected amount 100, got %s", bet.Amount)
	}
	// The bet snapshots the option before pools move.
	if !bet.Option.TotalPool.IsZero() {
		t.Errorf("bet option snapshot should be pre-update, got pool %s", bet.Option.TotalPool)
	}

	e, _ := eng.GetEvent(ctx, 1)
	if !e.TotalPool.Equal(d(100)) {
		t.Errorf("expected event total 100, got %s", e.TotalPool)
	}
	opt := e.Options[0]
	if !opt.TotalPool.Equal(d(100)) || !opt.YesPool.Equal(d(100)) || !opt.NoPool.IsZero() {
		t.Errorf("expected option pools {100,100,0}, got {%s,%s,%s}",
			opt.TotalPool, opt.YesPool, opt.NoPool)
	}
	if !e.HasParticipant(bettor) {
		t.Error("bettor should be recorded as participant")
	}
	if err := pool.CheckInvariants(e); err != nil {
		t.Errorf("invariants violated: %v", err)
	}
}

func TestPlaceBet_EventNotFound(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.PlaceBet(context.Background(), bettor, 42, model.ChoiceYes, 0, stake(10))
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaceBet_NotStarted(t *testing.T) {
	eng, _ := newTestEngine(t)
	addEvent(t, eng, 1, "X")

	_, err := eng.PlaceBet(context.Background(), bettor, 1, model.ChoiceYes, 0, stake(10))
	if !errors.Is(err, model.ErrEventNotStarted) {
		t.Errorf("expected ErrEventNotStarted, got %v", err)
	}
}

func TestPlaceBet_CannotPredictTwice(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X", "Y")
	startEvent(t, eng, 1)

	if _, err := eng.PlaceBet(ctx, bettor, 1, model.ChoiceYes, 0, stake(10)); err != nil {
		t.Fatalf("first bet failed: %v", err)
	}

	// A second bet fails regardless of choice, option, or amount.
	_, err := eng.PlaceBet(ctx, bettor, 1, model.ChoiceNo, 1, stake(999))
	if !errors.Is(err, model.ErrCannotPredictTwice) {
		t.Errorf("expected ErrCannotPredictTwice, got %v", err)
	}

	e, _ := eng.GetEvent(ctx, 1)
	if !e.TotalPool.Equal(d(10)) {
		t.Errorf("rejected bet must not move pools, got total %s", e.TotalPool)
	}
}

func TestPlaceBet_NoQualifyingFunds(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X")
	startEvent(t, eng, 1)

	cases := [][]funds.Coin{
		nil,
		{{Denom: "uzig", Amount: decimal.Zero}},
		{{Denom: "uatom", Amount: d(100)}}, // wrong denomination
	}
	for i, attached := range cases {
		_, err := eng.PlaceBet(ctx, bettor, 1, model.ChoiceYes, 0, attached)
		if !errors.Is(err, model.ErrNoBetFound) {
			t.Errorf("case %d: expected ErrNoBetFound, got %v", i, err)
		}
	}

	e, _ := eng.GetEvent(ctx, 1)
	if !e.TotalPool.IsZero() {
		t.Errorf("pools must stay zero, got %s", e.TotalPool)
	}
	if len(e.Participants) != 0 {
		t.Errorf("participants must stay empty, got %d", len(e.Participants))
	}
}

func TestPlaceBet_InvalidOption(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X")
	startEvent(t, eng, 1)

	_, err := eng.PlaceBet(ctx, bettor, 1, model.ChoiceYes, 3, stake(10))
	if !errors.Is(err, pool.ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption, got %v", err)
	}

	// The bettor is not burned as a participant by the failed attempt.
	if _, err := eng.PlaceBet(ctx, bettor, 1, model.ChoiceYes, 0, stake(10)); err != nil {
		t.Errorf("retry with valid option should succeed, got %v", err)
	}
}

func TestPlaceBet_ResolvedButExecutedStillBettable(t *testing.T) {
	// Resolution does not close bet placement; only the executed flag
	// gates it.
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X")
	startEvent(t, eng, 1)
	if err := eng.EndEvent(ctx, admin, 1, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := eng.PlaceBet(ctx, bettor, 1, model.ChoiceNo, 0, stake(5)); err != nil {
		t.Errorf("bet on resolved-but-executed event should pass, got %v", err)
	}
}

func TestPlaceBet_PoolInvariantsAcrossBettors(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X", "Y", "Z")
	startEvent(t, eng, 1)

	bets := []struct {
		bettor string
		choice model.Choice
		option int
		amount float64
	}{
		{"zig1u1", model.ChoiceYes, 0, 100},
		{"zig1u2", model.ChoiceNo, 0, 30},
		{"zig1u3", model.ChoiceYes, 1, 55.5},
		{"zig1u4", model.ChoiceNo, 2, 0.25},
	}
	for _, b := range bets {
		if _, err := eng.PlaceBet(ctx, b.bettor, 1, b.choice, b.option, stake(b.amount)); err != nil {
			t.Fatalf("bet by %s failed: %v", b.bettor, err)
		}
		e, _ := eng.GetEvent(ctx, 1)
		if err := pool.CheckInvariants(e); err != nil {
			t.Fatalf("invariants violated after bet by %s: %v", b.bettor, err)
		}
	}

	e, _ := eng.GetEvent(ctx, 1)
	if !e.TotalPool.Equal(d(185.75)) {
		t.Errorf("expected event total 185.75, got %s", e.TotalPool)
	}
}

// --- Query tests ---

func TestGetBet(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X")
	startEvent(t, eng, 1)
	eng.PlaceBet(ctx, bettor, 1, model.ChoiceYes, 0, stake(10))

	bet, err := eng.GetBet(ctx, bettor, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bet.Bettor != bettor || bet.EventID != 1 {
		t.Errorf("unexpected bet keys: %s / %d", bet.Bettor, bet.EventID)
	}

	if _, err := eng.GetBet(ctx, "zig1nobody", 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserBets_History(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	addEvent(t, eng, 1, "X")
	addEvent(t, eng, 2, "Y")
	startEvent(t, eng, 1)
	startEvent(t, eng, 2)

	eng.PlaceBet(ctx, bettor, 1, model.ChoiceYes, 0, stake(10))
	eng.PlaceBet(ctx, bettor, 2, model.ChoiceNo, 0, stake(20))

	bets, err := eng.GetUserBets(ctx, bettor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bets) != 2 {
		t.Fatalf("expected 2 bets, got %d", len(bets))
	}
	if bets[0].EventID != 1 || bets[1].EventID != 2 {
		t.Errorf("history should preserve placement order, got %d then %d",
			bets[0].EventID, bets[1].EventID)
	}
}

func TestGetUserBets_NoHistoryIsError(t *testing.T) {
	// A user with zero bets gets a typed failure, not an empty slice.
	eng, _ := newTestEngine(t)

	_, err := eng.GetUserBets(context.Background(), "zig1nobody")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListEvents(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	events, err := eng.ListEvents(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}

	addEvent(t, eng, 3, "X")
	addEvent(t, eng, 1, "Y")
	startEvent(t, eng, 3)

	events, _ = eng.ListEvents(ctx)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	// Creation order, and the view reflects lifecycle updates.
	if events[0].ID != 3 || events[1].ID != 1 {
		t.Errorf("expected creation order [3 1], got [%d %d]", events[0].ID, events[1].ID)
	}
	if !events[0].Executed {
		t.Error("listing should reflect the started event")
	}
}

// --- End-to-end scenario ---

func TestScenario_FullLifecycle(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	addEvent(t, eng, 1, "X")
	startEvent(t, eng, 1)

	if _, err := eng.PlaceBet(ctx, bettor, 1, model.ChoiceYes, 0, stake(100)); err != nil {
		t.Fatalf("bet failed: %v", err)
	}

	e, _ := eng.GetEvent(ctx, 1)
	if !e.TotalPool.Equal(d(100)) {
		t.Errorf("expected total pool 100, got %s", e.TotalPool)
	}
	opt := e.Options[0]
	if !opt.TotalPool.Equal(d(100)) || !opt.YesPool.Equal(d(100)) || !opt.NoPool.IsZero() {
		t.Errorf("expected option pools {100,100,0}, got {%s,%s,%s}",
			opt.TotalPool, opt.YesPool, opt.NoPool)
	}

	if err := eng.EndEvent(ctx, admin, 1, 0); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	e, _ = eng.GetEvent(ctx, 1)
	if !e.Resolved {
		t.Error("event should be resolved")
	}
	if e.Result == nil || e.Result.Name != "X" {
		t.Errorf("expected result X, got %+v", e.Result)
	}
}
