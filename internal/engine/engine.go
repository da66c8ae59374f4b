// Package engine owns the book for a single instrument, serializes
// Create/Cancel/Modify commands against it, assigns arrival sequence
// numbers, and runs expiration-driven cancellation.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"

	"repello/internal/book"
	"repello/internal/matching"
	"repello/internal/metrics"
	"repello/internal/types"
)

// OrderSpec is the transport-neutral command payload for Create and Modify,
// already parsed to ticks by the price package and to a uuid.UUID by the
// caller.
type OrderSpec struct {
	ID              uuid.UUID
	Side            types.Side
	Kind            types.Kind
	Price           int64
	Quantity        uint64
	MinimumQuantity uint64
	Expiration      *time.Time
}

// CreateResult is the response to a Create command.
type CreateResult struct {
	OrderID     uuid.UUID
	Trades      []types.Trade
	Disposition types.Disposition
}

// ModifyResult is the response to a Modify command.
type ModifyResult struct {
	Trades      []types.Trade
	Disposition types.Disposition
}

type orderRecord struct {
	order *types.Order
	state types.OrderState
}

// Engine is the single-writer command surface for one instrument's book.
type Engine struct {
	mu sync.Mutex

	book    *book.Book
	orders  map[uuid.UUID]*orderRecord
	expiry  *expiryQueue
	nextSeq uint64

	invertModifyGate bool
	tickInterval     time.Duration
	clock            func() time.Time
	log              zerolog.Logger
	metrics          *metrics.Metrics

	t tomb.Tomb
}

// New creates an Engine ready to accept commands. Call Start to launch the
// background expiration ticker, and Stop to tear it down.
func New(opts ...Option) *Engine {
	e := &Engine{
		book:         book.New(),
		orders:       make(map[uuid.UUID]*orderRecord),
		expiry:       newExpiryQueue(),
		tickInterval: defaultTickInterval,
		clock:        time.Now,
		log:          zerolog.Nop(),
		metrics:      metrics.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the expiration ticker goroutine, supervised by a
// tomb.Tomb so Stop can wait for a clean exit.
func (e *Engine) Start() {
	e.t.Go(e.tickLoop)
}

// Stop signals the ticker goroutine to exit and waits for it.
func (e *Engine) Stop() error {
	e.t.Kill(nil)
	return e.t.Wait()
}

func (e *Engine) tickLoop() error {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.t.Dying():
			return nil
		case <-ticker.C:
			e.sweepExpired(e.clock())
		}
	}
}

// sweepExpired removes every resting order whose scheduled expiration has
// arrived. This is the authoritative expiration path; the matcher's lazy
// check during Match is a secondary safety net.
func (e *Engine) sweepExpired(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sweepExpiredLocked(now)
}

func (e *Engine) sweepExpiredLocked(now time.Time) {
	for _, id := range e.expiry.Due(now) {
		if _, ok := e.book.RemoveIfPresent(id); ok {
			if rec, exists := e.orders[id]; exists {
				rec.state = types.StateExpired
			}
			e.metrics.IncOrdersExpired()
			e.metrics.DecOrdersInBook()
			e.log.Info().Str("order_id", id.String()).Msg("order expired")
		}
	}
}

// applyLazyExpirations updates the registry for makers the matcher swept
// mid-match, and tombstones their heap entries.
func (e *Engine) applyLazyExpirations(ids []uuid.UUID) {
	for _, id := range ids {
		if rec, exists := e.orders[id]; exists {
			rec.state = types.StateExpired
		}
		e.expiry.Cancel(id)
		e.metrics.IncOrdersExpired()
		e.metrics.DecOrdersInBook()
	}
}

func (e *Engine) isLive(id uuid.UUID) bool {
	rec, ok := e.orders[id]
	return ok && !rec.state.Terminal()
}

func validateSpec(spec OrderSpec, now time.Time) *types.EngineError {
	if spec.Quantity == 0 {
		return types.NewEngineError(types.Malformed, "quantity must be positive")
	}
	if spec.MinimumQuantity > spec.Quantity {
		return types.NewEngineError(types.Malformed, "minimum_quantity %d exceeds quantity %d", spec.MinimumQuantity, spec.Quantity)
	}
	if spec.Price <= 0 {
		return types.NewEngineError(types.Malformed, "price must be positive")
	}
	if spec.Expiration != nil && !spec.Expiration.After(now) {
		return types.NewEngineError(types.Malformed, "expiration %s is not in the future", spec.Expiration)
	}
	return nil
}

// Create admits a new order, validates it, assigns its arrival sequence,
// and hands it to the matcher.
func (e *Engine) Create(spec OrderSpec) (*CreateResult, error) {
	start := time.Now()
	defer func() { e.metrics.AddLatency(time.Since(start).Microseconds()) }()
	e.metrics.IncOrdersReceived()

	now := e.clock()
	if err := validateSpec(spec, now); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isLive(spec.ID) {
		return nil, types.NewEngineError(types.DuplicateID, "order id %s is already live", spec.ID)
	}

	order := &types.Order{
		ID:               spec.ID,
		Side:             spec.Side,
		Kind:             spec.Kind,
		Price:            spec.Price,
		OriginalQuantity: spec.Quantity,
		Remaining:        spec.Quantity,
		MinimumQuantity:  spec.MinimumQuantity,
		Expiration:       spec.Expiration,
		ArrivalSequence:  e.nextSeq,
		CreatedAt:        now,
	}
	e.nextSeq++

	result := matching.Match(order, e.book, now)
	e.applyLazyExpirations(result.ExpiredRemoved)
	e.commitOutcome(order, result)

	e.log.Info().
		Str("order_id", order.ID.String()).
		Str("disposition", result.Disposition.String()).
		Int("trades", len(result.Trades)).
		Msg("order created")

	return &CreateResult{OrderID: order.ID, Trades: result.Trades, Disposition: result.Disposition}, nil
}

// commitOutcome records order+disposition in the registry, the expiration
// heap, and metrics. Caller must hold e.mu.
func (e *Engine) commitOutcome(order *types.Order, result matching.Result) {
	state := types.StateFromDisposition(result.Disposition)
	e.orders[order.ID] = &orderRecord{order: order, state: state}
	e.metrics.RecordDisposition(result.Disposition.String())
	e.metrics.IncTradesExecuted(int64(len(result.Trades)))

	if result.Disposition == types.Rested {
		e.metrics.IncOrdersInBook()
		if order.Expiration != nil {
			e.expiry.Schedule(order.ID, *order.Expiration)
		}
	}

	e.reconcileFilledMakers(result.FilledMakers)
}

// reconcileFilledMakers transitions every resting order the match consumed
// down to zero remaining quantity to StateFilled. Match removes these from
// the book itself; without this, their registry record would stay
// StateResting forever with a zero-Remaining order, corrupting every later
// Cancel/Modify/GetOrder against that id. Caller must hold e.mu.
func (e *Engine) reconcileFilledMakers(ids []uuid.UUID) {
	for _, id := range ids {
		if rec, exists := e.orders[id]; exists {
			rec.state = types.StateFilled
		}
		e.expiry.Cancel(id)
		e.metrics.DecOrdersInBook()
		e.metrics.RecordDisposition(types.FullyFilled.String())
	}
}

// Cancel removes a resting order from the book. NotFound if the id is
// unknown; AlreadyTerminal if it is known but no longer resting.
func (e *Engine) Cancel(id uuid.UUID) (types.Disposition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.orders[id]
	if !ok {
		return 0, types.NewEngineError(types.NotFound, "order %s not found", id)
	}
	if rec.state.Terminal() {
		return 0, types.NewEngineError(types.AlreadyTerminal, "order %s is already %s", id, rec.state)
	}

	e.book.Remove(id)
	rec.state = types.StateCancelled
	e.expiry.Cancel(id)
	e.metrics.IncOrdersCancelled()
	e.metrics.DecOrdersInBook()

	e.log.Info().Str("order_id", id.String()).Msg("order cancelled")
	return types.Cancelled, nil
}

// Modify atomically cancels the existing live order and, unless the
// minimum-quantity gate suppresses it, submits the new spec through the
// same path Create uses.
func (e *Engine) Modify(spec OrderSpec) (*ModifyResult, error) {
	now := e.clock()
	if err := validateSpec(spec, now); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.orders[spec.ID]
	if !ok || rec.state.Terminal() {
		return nil, types.NewEngineError(types.NotFound, "order %s not found", spec.ID)
	}
	existing := rec.order
	if spec.Side != existing.Side || spec.Kind != existing.Kind {
		return nil, types.NewEngineError(types.CannotChangeSideOrKind, "modify cannot change side or kind for order %s", spec.ID)
	}

	suppress := existing.Remaining >= spec.MinimumQuantity
	if e.invertModifyGate {
		suppress = existing.Remaining < spec.MinimumQuantity
	}

	e.book.Remove(existing.ID)
	rec.state = types.StateCancelled
	e.expiry.Cancel(existing.ID)
	e.metrics.DecOrdersInBook()

	if suppress {
		e.metrics.IncModifySuppressed()
		e.log.Info().Str("order_id", spec.ID.String()).Msg("modify suppressed")
		return &ModifyResult{Disposition: types.ModifySuppressed}, nil
	}

	newOrder := &types.Order{
		ID:               spec.ID,
		Side:             spec.Side,
		Kind:             spec.Kind,
		Price:            spec.Price,
		OriginalQuantity: spec.Quantity,
		Remaining:        spec.Quantity,
		MinimumQuantity:  spec.MinimumQuantity,
		Expiration:       spec.Expiration,
		ArrivalSequence:  e.nextSeq,
		CreatedAt:        now,
	}
	e.nextSeq++

	result := matching.Match(newOrder, e.book, now)
	e.applyLazyExpirations(result.ExpiredRemoved)
	e.commitOutcome(newOrder, result)

	e.log.Info().
		Str("order_id", newOrder.ID.String()).
		Str("disposition", result.Disposition.String()).
		Msg("order modified")

	return &ModifyResult{Trades: result.Trades, Disposition: result.Disposition}, nil
}

// GetOrder returns a snapshot of the order named by id and its current
// lifecycle state.
func (e *Engine) GetOrder(id uuid.UUID) (*types.Order, types.OrderState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.orders[id]
	if !ok {
		return nil, 0, types.NewEngineError(types.NotFound, "order %s not found", id)
	}
	snapshot := rec.order.Clone()
	return snapshot, rec.state, nil
}

// Depth returns an aggregated snapshot of both sides of the book, best
// price first, each optionally capped to limit levels (0 = unlimited).
func (e *Engine) Depth(limit int) (bids, asks []book.DepthLevel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Depth(types.Buy, limit), e.book.Depth(types.Sell, limit)
}

// Metrics exposes the engine's metrics sink for the HTTP /metrics handler.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}
