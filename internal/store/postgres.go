package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/zigstake/event-ledger/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Stake amounts are stored as NUMERIC for exact decimal precision; the
// option list, participants, and result are stored as JSONB documents.
//
// Expected tables:
//
//	ledger_config (id INT PRIMARY KEY CHECK (id = 1), admin TEXT,
//	               treasury_fee_bps BIGINT, treasury TEXT)
//	events        (event_id BIGINT PRIMARY KEY, name TEXT, category TEXT,
//	               start_time TIMESTAMPTZ, end_time TIMESTAMPTZ,
//	               executed BOOLEAN, resolved BOOLEAN, options JSONB,
//	               total_pool NUMERIC, result JSONB, participants JSONB,
//	               created_at TIMESTAMPTZ NOT NULL DEFAULT now())
//	bets          (id TEXT NOT NULL, event_id BIGINT, bettor TEXT,
//	               option JSONB, choice TEXT, amount NUMERIC,
//	               placed_at TIMESTAMPTZ, PRIMARY KEY (event_id, bettor))
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveConfig(ctx context.Context, cfg *model.Config) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_config (id, admin, treasury_fee_bps, treasury)
		 VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET admin = $1, treasury_fee_bps = $2, treasury = $3`,
		cfg.Admin, int64(cfg.TreasuryFeeBps), cfg.Treasury,
	)
	return err
}

func (s *PostgresStore) GetConfig(ctx context.Context) (*model.Config, error) {
	var cfg model.Config
	var fee int64

	err := s.pool.QueryRow(ctx,
		`SELECT admin, treasury_fee_bps, treasury FROM ledger_config WHERE id = 1`).
		Scan(&cfg.Admin, &fee, &cfg.Treasury)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	cfg.TreasuryFeeBps = uint64(fee)
	return &cfg, nil
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	options, participants, result, err := marshalEventDocs(e)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO events (event_id, name, category, start_time, end_time,
		                     executed, resolved, options, total_pool, result, participants)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::NUMERIC, $10, $11)
		 ON CONFLICT (event_id) DO NOTHING`,
		int64(e.ID), e.Name, e.Category, e.StartTime, e.EndTime,
		e.Executed, e.Resolved, options, e.TotalPool.String(), result, participants,
	)
	if err != nil {
		return fmt.Errorf("create event %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrEventExists
	}
	return nil
}

func (s *PostgresStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := s.updateEvent(ctx, s.pool, e)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// pgxExecutor covers both the pool and a transaction, so the event update
// can run standalone or inside RecordBet's transaction.
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore) updateEvent(ctx context.Context, ex pgxExecutor, e *model.Event) (pgconn.CommandTag, error) {
	options, participants, result, err := marshalEventDocs(e)
	if err != nil {
		return pgconn.CommandTag{}, err
	}

	tag, err := ex.Exec(ctx,
		`UPDATE events
		 SET name = $2, category = $3, start_time = $4, end_time = $5,
		     executed = $6, resolved = $7, options = $8,
		     total_pool = $9::NUMERIC, result = $10, participants = $11
		 WHERE event_id = $1`,
		int64(e.ID), e.Name, e.Category, e.StartTime, e.EndTime,
		e.Executed, e.Resolved, options, e.TotalPool.String(), result, participants,
	)
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("update event %d: %w", e.ID, err)
	}
	return tag, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT event_id, name, category, start_time, end_time,
		        executed, resolved, options, total_pool::TEXT, result, participants
		 FROM events WHERE event_id = $1`, int64(id))

	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_id, name, category, start_time, end_time,
		        executed, resolved, options, total_pool::TEXT, result, participants
		 FROM events ORDER BY created_at, event_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// RecordBet commits the event update and the bet insert in a single
// transaction. The history view is derived from the bets table, so no
// separate write is needed for it.
func (s *PostgresStore) RecordBet(ctx context.Context, e *model.Event, bet *model.Bet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("record bet: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := s.updateEvent(ctx, tx, e)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	option, err := json.Marshal(bet.Option)
	if err != nil {
		return fmt.Errorf("record bet: marshal option: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO bets (id, event_id, bettor, option, choice, amount, placed_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7)`,
		bet.ID, int64(bet.EventID), bet.Bettor, option,
		string(bet.Choice), bet.Amount.String(), bet.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("record bet %s: %w", bet.ID, err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetBet(ctx context.Context, bettor string, eventID uint64) (*model.Bet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, event_id, bettor, option, choice, amount::TEXT, placed_at
		 FROM bets WHERE event_id = $1 AND bettor = $2`, int64(eventID), bettor)

	b, err := scanBet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bet (%d, %s): %w", eventID, bettor, err)
	}
	return b, nil
}

func (s *PostgresStore) GetUserBets(ctx context.Context, bettor string) ([]model.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, bettor, option, choice, amount::TEXT, placed_at
		 FROM bets WHERE bettor = $1 ORDER BY placed_at, event_id`, bettor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []model.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// A bettor with no history at all is a typed miss, not an empty list.
	if len(bets) == 0 {
		return nil, model.ErrNotFound
	}
	return bets, nil
}

// --- Row scanning helpers ---

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var id int64
	var totalPool string
	var options, participants []byte
	var result []byte

	if err := row.Scan(&id, &e.Name, &e.Category, &e.StartTime, &e.EndTime,
		&e.Executed, &e.Resolved, &options, &totalPool, &result, &participants); err != nil {
		return nil, err
	}

	e.ID = uint64(id)
	var err error
	e.TotalPool, err = decimal.NewFromString(totalPool)
	if err != nil {
		return nil, fmt.Errorf("scan event %d: total_pool: %w", id, err)
	}
	if err := json.Unmarshal(options, &e.Options); err != nil {
		return nil, fmt.Errorf("scan event %d: options: %w", id, err)
	}
	if err := json.Unmarshal(participants, &e.Participants); err != nil {
		return nil, fmt.Errorf("scan event %d: participants: %w", id, err)
	}
	if len(result) > 0 {
		var r model.Option
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("scan event %d: result: %w", id, err)
		}
		e.Result = &r
	}
	return &e, nil
}

func scanBet(row rowScanner) (*model.Bet, error) {
	var b model.Bet
	var eventID int64
	var choice, amount string
	var option []byte

	if err := row.Scan(&b.ID, &eventID, &b.Bettor, &option, &choice, &amount, &b.PlacedAt); err != nil {
		return nil, err
	}

	b.EventID = uint64(eventID)
	b.Choice = model.Choice(choice)
	var err error
	b.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("scan bet %s: amount: %w", b.ID, err)
	}
	if err := json.Unmarshal(option, &b.Option); err != nil {
		return nil, fmt.Errorf("scan bet %s: option: %w", b.ID, err)
	}
	return &b, nil
}

// marshalEventDocs encodes the JSONB columns of an event row. A nil
// result stays NULL in the database.
func marshalEventDocs(e *model.Event) (options, participants, result []byte, err error) {
	options, err = json.Marshal(e.Options)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal options: %w", err)
	}
	parts := e.Participants
	if parts == nil {
		parts = []string{}
	}
	participants, err = json.Marshal(parts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal participants: %w", err)
	}
	if e.Result != nil {
		result, err = json.Marshal(e.Result)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal result: %w", err)
		}
	}
	return options, participants, result, nil
}
