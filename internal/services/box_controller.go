package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cashbox/internal/cache"
	"cashbox/internal/core"
	"cashbox/internal/log"
	"cashbox/internal/records"
)

// DefaultConfirmationTTL bounds how long an untouched confirmation dialog stays open.
const DefaultConfirmationTTL = 10 * time.Minute

const maxPendingConfirmations = 1024

// Prompt describes the confirmation dialog of a box.
type Prompt struct {
	BoxID   string
	Title   string
	Step    int
	Steps   int
	Message string
}

// Final reports whether confirming this prompt commits the cash-out.
func (p Prompt) Final() bool { return p.Step >= p.Steps }

// Outcome is the result of advancing a confirmation. Exactly one of Prompt
// (more confirmation needed) or Committed (cash-out written) is set.
type Outcome struct {
	Prompt    *Prompt
	Committed bool
	Box       core.Box
}

type confirmation struct {
	step int
}

// BoxController owns the box list and drives each box through
// Active -> ConfirmPending(1..K) -> CashedOut.
type BoxController struct {
	store       records.Store
	gen         *core.Generator
	strategy    ConfirmationStrategy
	logger      *log.Logger
	events      *log.StructuredLogger
	now         func() time.Time
	loc         *time.Location
	historyDays int
	ttl         time.Duration

	mu       sync.RWMutex
	order    []string
	records  map[string]core.CurrencyRecord
	loaded   bool
	loadErr  error
	pending  *cache.LRUCache[confirmation]
	inflight map[string]bool
}

// ControllerOption configures a BoxController.
type ControllerOption func(*BoxController)

func WithClock(now func() time.Time) ControllerOption {
	return func(c *BoxController) { c.now = now }
}

// WithLocation sets the time zone that decides which calendar day is "today".
func WithLocation(loc *time.Location) ControllerOption {
	return func(c *BoxController) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithHistoryDays(days int) ControllerOption {
	return func(c *BoxController) {
		if days > 0 {
			c.historyDays = days
		}
	}
}

func WithConfirmationTTL(ttl time.Duration) ControllerOption {
	return func(c *BoxController) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger *log.Logger) ControllerOption {
	return func(c *BoxController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewBoxController wires the controller. A nil strategy means a single confirmation step.
func NewBoxController(store records.Store, gen *core.Generator, strategy ConfirmationStrategy, opts ...ControllerOption) *BoxController {
	if gen == nil {
		gen = core.NewGenerator(core.RangeTable{})
	}
	if strategy == nil {
		strategy = SingleStepConfirmation{}
	}
	c := &BoxController{
		store:       store,
		gen:         gen,
		strategy:    strategy,
		logger:      log.New(log.DefaultConfig()),
		now:         time.Now,
		loc:         time.Local,
		historyDays: core.DefaultHistoryDays,
		ttl:         DefaultConfirmationTTL,
		records:     make(map[string]core.CurrencyRecord),
		inflight:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentBoxes)
	c.events = log.NewStructuredLogger(c.logger)
	c.pending = cache.NewLRUCache[confirmation](maxPendingConfirmations, c.ttl, cache.WithClock(c.now))
	return c
}

// PendingCache exposes the confirmation cache so it can be registered for periodic cleanup.
func (c *BoxController) PendingCache() cache.Cleaner {
	return c.pending
}

// PendingConfirmations returns the number of open confirmation dialogs.
func (c *BoxController) PendingConfirmations() int {
	return c.pending.Size()
}

// Today returns the current calendar day in the controller's location.
func (c *BoxController) Today() time.Time {
	return c.now().In(c.loc)
}

// Steps returns the number of confirmations a cash-out needs.
func (c *BoxController) Steps() int {
	if k := c.strategy.Steps(); k > 0 {
		return k
	}
	return 1
}

// Load replaces the box list with the store contents. On failure the list
// is emptied and the error wraps core.ErrFetchFailed.
func (c *BoxController) Load(ctx context.Context) error {
	recs, err := c.store.ListCurrencies(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.order = nil
		c.records = make(map[string]core.CurrencyRecord)
		c.loaded = false
		c.loadErr = err
		c.logger.ErrorContext(ctx, "Failed to load currencies",
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		return fmt.Errorf("%w: %w", core.ErrFetchFailed, err)
	}

	order := make([]string, 0, len(recs))
	byID := make(map[string]core.CurrencyRecord, len(recs))
	for _, r := range recs {
		if err := r.Validate(); err != nil {
			c.logger.WarnContext(ctx, "Skipping malformed currency record",
				log.FieldError, err,
				"name", r.Name)
			continue
		}
		if _, dup := byID[r.ID]; dup {
			c.logger.WarnContext(ctx, "Skipping duplicate currency record", log.FieldBoxID, r.ID)
			continue
		}
		if !r.CashedOut && r.FinalAmount != nil {
			c.logger.WarnContext(ctx, "Ignoring final amount on active currency", log.FieldBoxID, r.ID)
		}
		order = append(order, r.ID)
		byID[r.ID] = r
	}

	for _, id := range c.order {
		if r, ok := byID[id]; !ok || r.CashedOut {
			c.pending.Delete(id)
		}
	}

	c.order = order
	c.records = byID
	c.loaded = true
	c.loadErr = nil
	c.logger.DebugContext(ctx, "Currencies loaded", log.FieldCount, len(order))
	return nil
}

// Ready reports whether the last Load succeeded.
func (c *BoxController) Ready() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded, c.loadErr
}

// Boxes returns the box view models for today, in store order.
func (c *BoxController) Boxes() []core.Box {
	today := c.Today()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Box, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, core.NewBox(c.records[id], c.gen, today, c.historyDays))
	}
	return out
}

func (c *BoxController) Box(id string) (core.Box, error) {
	today := c.Today()
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	if !ok {
		return core.Box{}, fmt.Errorf("%w: %s", core.ErrBoxNotFound, id)
	}
	return core.NewBox(r, c.gen, today, c.historyDays), nil
}

// ViewHistory returns the price history of a box, most recent day first.
func (c *BoxController) ViewHistory(id string) ([]core.HistoryEntry, error) {
	c.mu.RLock()
	_, ok := c.records[id]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrBoxNotFound, id)
	}
	return c.gen.History(id, c.Today(), c.historyDays), nil
}

// RequestCashOut opens the confirmation dialog of an active box at step 1.
// Requesting again restarts the confirmation.
func (c *BoxController) RequestCashOut(id string) (Prompt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.activeRecord(id)
	if err != nil {
		return Prompt{}, err
	}
	c.pending.Set(id, confirmation{step: 1})
	c.logger.Debug("Cash-out requested", log.NewFields().WithBox(id, r.Title()).WithConfirmation(1, c.Steps()).ToSlice()...)
	return c.prompt(r, 1), nil
}

// Confirmation returns the open prompt of a box, if any.
func (c *BoxController) Confirmation(id string) (Prompt, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	if !ok || r.CashedOut {
		return Prompt{}, false
	}
	conf, ok := c.pending.Get(id)
	if !ok {
		return Prompt{}, false
	}
	return c.prompt(r, conf.step), true
}

// AdvanceConfirmation moves a pending confirmation one step forward. Below
// the last step it returns the next prompt; at the last step it commits the
// cash-out at the price of this instant.
//
// A failed commit leaves the box active with the confirmation still on its
// last step, so the user can retry; the error wraps core.ErrCommitFailed.
func (c *BoxController) AdvanceConfirmation(ctx context.Context, id string) (Outcome, error) {
	c.mu.Lock()
	r, err := c.activeRecord(id)
	if err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}
	conf, ok := c.pending.Get(id)
	if !ok {
		c.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: %s", core.ErrNoConfirmation, id)
	}

	steps := c.Steps()
	if conf.step < steps {
		conf.step++
		c.pending.Set(id, conf)
		p := c.prompt(r, conf.step)
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "Cash-out confirmation advanced",
			log.NewFields().WithBox(id, r.Title()).WithConfirmation(conf.step, steps).ToSlice()...)
		return Outcome{Prompt: &p}, nil
	}

	today := c.Today()
	price := c.gen.Price(id, today)
	c.inflight[id] = true
	c.mu.Unlock()

	err = c.store.UpdateCurrency(ctx, id, core.CashOut(price))

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)

	if err != nil {
		c.pending.Set(id, confirmation{step: steps})
		c.logger.ErrorContext(ctx, "Cash-out commit failed",
			log.NewFields().WithBox(id, r.Title()).WithOperation(log.OpCommit).WithError(err).ToSlice()...)
		p := c.prompt(r, steps)
		return Outcome{Prompt: &p}, fmt.Errorf("%w: %s: %w", core.ErrCommitFailed, id, err)
	}

	current, ok := c.records[id]
	if !ok {
		current = r
	}
	current = core.CashOut(price).Apply(current)
	if _, ok := c.records[id]; ok {
		c.records[id] = current
	}
	c.pending.Delete(id)
	c.events.LogCashOut(ctx, id, current.Title(), price.StringFixed(2))

	return Outcome{Committed: true, Box: core.NewBox(current, c.gen, today, c.historyDays)}, nil
}

// CancelConfirmation closes the dialog; the next request starts at step 1 again.
func (c *BoxController) CancelConfirmation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrBoxNotFound, id)
	}
	if c.inflight[id] {
		return fmt.Errorf("%w: %s", core.ErrCommitInProgress, id)
	}
	c.pending.Delete(id)
	return nil
}

// activeRecord returns the record of a box that may still be cashed out.
// Callers hold c.mu.
func (c *BoxController) activeRecord(id string) (core.CurrencyRecord, error) {
	r, ok := c.records[id]
	if !ok {
		return core.CurrencyRecord{}, fmt.Errorf("%w: %s", core.ErrBoxNotFound, id)
	}
	if r.CashedOut {
		c.pending.Delete(id)
		return core.CurrencyRecord{}, fmt.Errorf("%w: %s", core.ErrAlreadyCashedOut, id)
	}
	if c.inflight[id] {
		return core.CurrencyRecord{}, fmt.Errorf("%w: %s", core.ErrCommitInProgress, id)
	}
	return r, nil
}

func (c *BoxController) prompt(r core.CurrencyRecord, step int) Prompt {
	return Prompt{
		BoxID:   r.ID,
		Title:   r.Title(),
		Step:    step,
		Steps:   c.Steps(),
		Message: c.strategy.Message(step),
	}
}
