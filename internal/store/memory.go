package store

import (
	"context"
	"sync"

	"github.com/zigstake/event-ledger/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	config  *model.Config
	events  map[uint64]*model.Event
	order   []uint64 // creation order, backs the ListEvents view
	bets    map[betKey]*model.Bet
	history map[string][]model.Bet
}

type betKey struct {
	eventID uint64
	bettor  string
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:  make(map[uint64]*model.Event),
		bets:    make(map[betKey]*model.Bet),
		history: make(map[string][]model.Bet),
	}
}

func (s *MemoryStore) SaveConfig(_ context.Context, cfg *model.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cfg
	s.config = &c
	return nil
}

func (s *MemoryStore) GetConfig(_ context.Context) (*model.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, model.ErrNotFound
	}
	c := *s.config
	return &c, nil
}

func (s *MemoryStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; ok {
		return model.ErrEventExists
	}
	s.events[e.ID] = cloneEvent(e)
	s.order = append(s.order, e.ID)
	return nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return model.ErrNotFound
	}
	s.events[e.ID] = cloneEvent(e)
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (s *MemoryStore) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.Event, 0, len(s.order))
	for _, id := range s.order {
		events = append(events, *cloneEvent(s.events[id]))
	}
	return events, nil
}

// RecordBet applies the event update, the bet record, and the history
// append under one lock acquisition, so readers never observe a partial
// bet placement.
func (s *MemoryStore) RecordBet(_ context.Context, e *model.Event, bet *model.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return model.ErrNotFound
	}
	s.events[e.ID] = cloneEvent(e)
	b := *bet
	s.bets[betKey{bet.EventID, bet.Bettor}] = &b
	s.history[bet.Bettor] = append(s.history[bet.Bettor], b)
	return nil
}

func (s *MemoryStore) GetBet(_ context.Context, bettor string, eventID uint64) (*model.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bets[betKey{eventID, bettor}]
	if !ok {
		return nil, model.ErrNotFound
	}
	bet := *b
	return &bet, nil
}

func (s *MemoryStore) GetUserBets(_ context.Context, bettor string) ([]model.Bet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist, ok := s.history[bettor]
	if !ok {
		return nil, model.ErrNotFound
	}
	bets := make([]model.Bet, len(hist))
	copy(bets, hist)
	return bets, nil
}

// cloneEvent deep-copies an event so callers can never mutate stored
// state through shared slices.
func cloneEvent(e *model.Event) *model.Event {
	c := *e
	c.Options = make([]model.Option, len(e.Options))
	copy(c.Options, e.Options)
	c.Participants = make([]string, len(e.Participants))
	copy(c.Participants, e.Participants)
	if e.Result != nil {
		r := *e.Result
		c.Result = &r
	}
	return &c
}
