package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zigstake/event-ledger/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) SaveConfig(ctx context.Context, cfg *model.Config) error {
	if err := s.primary.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	s.rdb.Del(ctx, configKey())
	return nil
}

func (s *CachedStore) CreateEvent(ctx context.Context, e *model.Event) error {
	if err := s.primary.CreateEvent(ctx, e); err != nil {
		return err
	}
	s.cacheEvent(ctx, e)
	return nil
}

func (s *CachedStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	if err := s.primary.UpdateEvent(ctx, e); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, eventKey(e.ID))
	return nil
}

func (s *CachedStore) RecordBet(ctx context.Context, e *model.Event, bet *model.Bet) error {
	if err := s.primary.RecordBet(ctx, e, bet); err != nil {
		return err
	}
	s.rdb.Del(ctx, eventKey(e.ID), historyKey(bet.Bettor))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetConfig(ctx context.Context) (*model.Config, error) {
	data, err := s.rdb.Get(ctx, configKey()).Bytes()
	if err == nil {
		var cfg model.Config
		if json.Unmarshal(data, &cfg) == nil {
			return &cfg, nil
		}
	}

	cfg, err := s.primary.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(cfg); err == nil {
		s.rdb.Set(ctx, configKey(), data, s.ttl)
	}
	return cfg, nil
}

func (s *CachedStore) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	data, err := s.rdb.Get(ctx, eventKey(id)).Bytes()
	if err == nil {
		var e model.Event
		if json.Unmarshal(data, &e) == nil {
			return &e, nil
		}
	}

	// Cache miss: read from primary.
	e, err := s.primary.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheEvent(ctx, e)
	return e, nil
}

func (s *CachedStore) GetUserBets(ctx context.Context, bettor string) ([]model.Bet, error) {
	data, err := s.rdb.Get(ctx, historyKey(bettor)).Bytes()
	if err == nil {
		var bets []model.Bet
		if json.Unmarshal(data, &bets) == nil {
			return bets, nil
		}
	}

	// Cache miss. A typed miss (no history) is not cached: the first bet
	// must become visible immediately.
	bets, err := s.primary.GetUserBets(ctx, bettor)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(bets); err == nil {
		s.rdb.Set(ctx, historyKey(bettor), data, s.ttl)
	}
	return bets, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.primary.ListEvents(ctx)
}

func (s *CachedStore) GetBet(ctx context.Context, bettor string, eventID uint64) (*model.Bet, error) {
	return s.primary.GetBet(ctx, bettor, eventID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheEvent(ctx context.Context, e *model.Event) {
	if data, err := json.Marshal(e); err == nil {
		s.rdb.Set(ctx, eventKey(e.ID), data, s.ttl)
	}
}

func configKey() string               { return "ledger:config" }
func eventKey(id uint64) string       { return fmt.Sprintf("ledger:event:%d", id) }
func historyKey(bettor string) string { return fmt.Sprintf("ledger:history:%s", bettor) }
