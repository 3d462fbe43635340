package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zigstake/event-ledger/internal/funds"
	"github.com/zigstake/event-ledger/internal/model"
	"github.com/zigstake/event-ledger/internal/pool"
)

// --- Request types ---

// AddEventRequest is the JSON body for POST /api/v1/events.
// Caller identity rides in the body; upstream auth is out of scope here.
type AddEventRequest struct {
	Caller    string    `json:"caller"`
	EventID   uint64    `json:"event_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Options   []string  `json:"options"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// LifecycleRequest is the JSON body for start/resolve commands.
type LifecycleRequest struct {
	Caller    string `json:"caller"`
	ResultIdx int    `json:"result_option,omitempty"` // resolve only
}

// UpdateFeeRequest is the JSON body for POST /api/v1/config/fee.
type UpdateFeeRequest struct {
	Caller    string `json:"caller"`
	NewFeeBps uint64 `json:"new_fee_bps"`
}

// PlaceBetRequest is the JSON body for POST /api/v1/bets. Funds carries
// the coins the caller attached; only the ledger's stake denomination
// counts toward the bet.
type PlaceBetRequest struct {
	Caller    string       `json:"caller"`
	EventID   uint64       `json:"event_id"`
	Choice    model.Choice `json:"choice"`
	OptionIdx int          `json:"option"`
	Funds     []funds.Coin `json:"funds"`
}

// --- Command handlers ---

// HandleAddEvent handles POST /api/v1/events
func (g *Engine) HandleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req AddEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		writeError(w, "caller is required", http.StatusBadRequest)
		return
	}
	if len(req.Options) == 0 {
		writeError(w, "at least one option is required", http.StatusBadRequest)
		return
	}

	event, err := g.AddEvent(r.Context(), req.Caller, req.EventID, req.Name,
		req.Category, req.Options, req.StartTime, req.EndTime)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// HandleStartEvent handles POST /api/v1/events/{eventID}/start
func (g *Engine) HandleStartEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	var req LifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := g.StartEvent(r.Context(), req.Caller, id); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_id": id, "executed": true})
}

// HandleEndEvent handles POST /api/v1/events/{eventID}/resolve
func (g *Engine) HandleEndEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	var req LifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := g.EndEvent(r.Context(), req.Caller, id, req.ResultIdx); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_id": id, "resolved": true})
}

// HandleUpdateFee handles POST /api/v1/config/fee
func (g *Engine) HandleUpdateFee(w http.ResponseWriter, r *http.Request) {
	var req UpdateFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := g.UpdateFee(r.Context(), req.Caller, req.NewFeeBps); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"treasury_fee_bps": req.NewFeeBps})
}

// HandlePlaceBet handles POST /api/v1/bets
func (g *Engine) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Caller == "" {
		writeError(w, "caller is required", http.StatusBadRequest)
		return
	}
	if !req.Choice.Valid() {
		writeError(w, "choice must be YES or NO", http.StatusBadRequest)
		return
	}
	if err := funds.Validate(req.Funds); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	bet, err := g.PlaceBet(r.Context(), req.Caller, req.EventID, req.Choice, req.OptionIdx, req.Funds)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bet)
}

// --- Query handlers ---

// HandleGetEvent handles GET /api/v1/events/{eventID}
func (g *Engine) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}

	event, err := g.GetEvent(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// HandleListEvents handles GET /api/v1/events
func (g *Engine) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := g.ListEvents(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGetBet handles GET /api/v1/events/{eventID}/bets/{user}
func (g *Engine) HandleGetBet(w http.ResponseWriter, r *http.Request) {
	id, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	user := chi.URLParam(r, "user")

	bet, err := g.GetBet(r.Context(), user, id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

// HandleGetUserBets handles GET /api/v1/users/{user}/bets
func (g *Engine) HandleGetUserBets(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	bets, err := g.GetUserBets(r.Context(), user)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

// --- Helpers ---

func eventIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		writeError(w, "invalid event id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// writeLedgerError maps the typed command errors onto HTTP statuses.
func writeLedgerError(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), statusForError(err))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrEventExists),
		errors.Is(err, model.ErrEventNotStarted),
		errors.Is(err, model.ErrEventExecuted),
		errors.Is(err, model.ErrEventEnded),
		errors.Is(err, model.ErrEventEndedAndResolved),
		errors.Is(err, model.ErrCannotPredictTwice):
		return http.StatusConflict
	case errors.Is(err, model.ErrIncorrectFee),
		errors.Is(err, model.ErrNoBetFound),
		errors.Is(err, pool.ErrInvalidOption):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
