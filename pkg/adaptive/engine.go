package adaptive

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/logging"
	"github.com/QuadDarv1ne/MTProxy-sub000/pkg/protocol"
)

// Engine is the adaptive protocol selection and switching engine. It consumes
// pushed condition samples and per-protocol performance reports, evaluates
// candidates against the active protocol, and produces switch decisions for a
// transport-adapter collaborator to execute. The engine performs no network
// or disk I/O and every call completes in time proportional to the fixed
// number of known protocols.
//
// All mutating entry points run under one mutex so that decisions are always
// computed from a consistent snapshot of ledger and conditions. Listener
// callbacks are delivered after the mutex is released: this trades strict
// in-section consistency for freedom from callback re-entrancy deadlocks, so
// a listener may observe engine state newer than the event it is handling.
//
// The engine is an explicit handle owned by the host application; there is
// no process-wide instance. Construct with New, tear down with Close.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	model  *scoreModel
	clock  clockwork.Clock
	log    *slog.Logger
	closed bool

	conditions NetworkConditions
	ledger     *ledger
	supported  map[protocol.ID]bool

	current         protocol.ID
	state           State
	activeSince     time.Time
	lastSwitchAt    time.Time
	lastEmergencyAt time.Time
	switchTimes     []time.Time

	ctr  *counters
	hist *history

	switchSubs *switchSubscribers
	perfSubs   *perfSubscribers
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock injects the clock used for cooldown and duration accounting.
// Tests inject a fake clock to make timing deterministic.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the operational logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New constructs an engine from cfg. Invalid configurations are rejected
// with an error wrapping ErrInvalidConfig and no engine is constructed.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model, err := newScoreModel(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		model:      model,
		clock:      clockwork.NewRealClock(),
		log:        logging.Nop(),
		ledger:     newLedger(),
		supported:  make(map[protocol.ID]bool, protocol.Count()),
		current:    cfg.InitialProtocol,
		state:      StateStable,
		ctr:        newCounters(),
		hist:       newHistory(cfg.HistorySize),
		switchSubs: newSwitchSubscribers(),
		perfSubs:   newPerfSubscribers(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, id := range cfg.Supported {
		e.supported[id] = true
	}
	// The active protocol is supported by construction.
	e.supported[cfg.InitialProtocol] = true

	now := e.clock.Now()
	e.activeSince = now
	e.lastSwitchAt = now

	return e, nil
}

// Current returns the active protocol.
func (e *Engine) Current() protocol.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// UpdateConditions replaces the conditions snapshot wholesale and applies
// expectation decay to every active ledger record.
func (e *Engine) UpdateConditions(cond NetworkConditions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if cond.CapturedAt.IsZero() {
		cond.CapturedAt = e.clock.Now()
	}
	e.conditions = cond
	e.ledger.drift(cond, e.cfg.Weights)
	return nil
}

// UpdatePerformance replaces the performance record for a protocol, marks it
// active and recomputes its cached efficiency score. Performance listeners
// receive the stored record after the engine lock is released.
func (e *Engine) UpdatePerformance(id protocol.ID, rec PerformanceRecord) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if !id.Valid() {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownProtocol, int(id))
	}

	e.ledger.update(id, rec, e.cfg.Weights, e.clock.Now())
	stored := e.ledger.record(id)
	listeners := e.perfSubs.snapshot()
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(id, stored)
	}
	return nil
}

// SetSupport marks a single protocol as supported or unsupported by the peer.
func (e *Engine) SetSupport(id protocol.ID, supported bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownProtocol, int(id))
	}
	e.supported[id] = supported
	return nil
}

// SetSupportTable replaces the client-capability table wholesale. The active
// protocol remains supported regardless of the new table.
func (e *Engine) SetSupportTable(table map[protocol.ID]bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	for id := range table {
		if !id.Valid() {
			return fmt.Errorf("%w: %d", ErrUnknownProtocol, int(id))
		}
	}
	e.supported = make(map[protocol.ID]bool, protocol.Count())
	for id, ok := range table {
		e.supported[id] = ok
	}
	e.supported[e.current] = true
	return nil
}

// Supports reports whether the peer supports the given protocol.
func (e *Engine) Supports(id protocol.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.supported[id]
}

// Evaluate scores every eligible candidate against the active protocol and
// returns a switch decision. The result is a no-op decision (To == From) with
// an explanatory reason when the engine should stay put: no candidate
// outscores the current protocol, or the switch cooldown has not elapsed.
//
// Evaluate is idempotent: with no intervening data change two calls produce
// identical decisions. It returns ErrNoViableProtocol when no eligible
// candidate reaches the minimum threshold, so callers can distinguish
// sustained degradation from ordinary stability.
func (e *Engine) Evaluate() (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Decision{}, ErrClosed
	}

	e.ctr.evaluations++
	e.state = StateEvaluating

	now := e.clock.Now()
	d := Decision{
		From:        e.current,
		To:          e.current,
		At:          now,
		Confidence:  confidenceNormal,
		Conditions:  e.conditions,
		Performance: e.ledger.record(e.current),
	}

	best, bestScore, found := e.bestCandidateLocked(protocol.ID(-1))
	curScore := e.model.score(e.current, e.ledger.score(e.current), e.conditions)

	switch {
	case !found:
		e.state = StateStable
		d.Reason = "no eligible candidate above minimum threshold"
		return d, ErrNoViableProtocol

	case best == e.current:
		e.state = StateStable
		d.Reason = "current protocol is the best eligible candidate"
		return d, nil

	case bestScore <= curScore:
		e.state = StateStable
		d.Reason = fmt.Sprintf("no candidate outscores %s", e.current)
		return d, nil

	case now.Sub(e.lastSwitchAt) < e.cfg.SwitchCooldown:
		e.state = StateCooldownBlocked
		d.Reason = fmt.Sprintf("%s scores higher but switch cooldown has not elapsed", best)
		return d, nil

	case e.switchBudgetExhaustedLocked(now):
		e.state = StateCooldownBlocked
		d.Reason = fmt.Sprintf("%s scores higher but the per-minute switch budget is exhausted", best)
		return d, nil
	}

	e.state = StateStable
	d.To = best
	d.Performance = e.ledger.record(best)
	d.ExpectedImprovementPct = improvementPct(curScore, bestScore)
	d.Reason = fmt.Sprintf("%s outscores %s (%.2f vs %.2f)", best, e.current, bestScore, curScore)
	return d, nil
}

// Execute applies a switch decision. No-op decisions return nil without side
// effects. Every decision is re-checked even when Execute is called directly,
// so a caller cannot bypass the coordinator by skipping Evaluate: the decision
// must have been produced against the active protocol, the target must be
// peer-supported (emergencies included), and non-emergency decisions must
// clear the cooldown and the per-minute switch budget. Switch listeners
// receive the decision after the engine lock is released.
func (e *Engine) Execute(d Decision) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if !d.From.Valid() || !d.To.Valid() {
		e.mu.Unlock()
		return fmt.Errorf("%w: decision %s -> %s", ErrUnknownProtocol, d.From, d.To)
	}
	if d.NoOp() {
		e.mu.Unlock()
		return nil
	}
	if d.From != e.current {
		e.ctr.failedSwitches++
		e.mu.Unlock()
		return fmt.Errorf("%w: decision is from %s but %s is active", ErrStaleDecision, d.From, e.current)
	}
	if !e.supported[d.To] {
		e.ctr.failedSwitches++
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnsupportedProtocol, d.To)
	}

	now := e.clock.Now()
	if !d.Emergency {
		if elapsed := now.Sub(e.lastSwitchAt); elapsed < e.cfg.SwitchCooldown {
			e.ctr.failedSwitches++
			e.state = StateCooldownBlocked
			e.mu.Unlock()
			return fmt.Errorf("%w: %s remaining", ErrCooldownActive, e.cfg.SwitchCooldown-elapsed)
		}
		if e.switchBudgetExhaustedLocked(now) {
			e.ctr.failedSwitches++
			e.state = StateCooldownBlocked
			e.mu.Unlock()
			return fmt.Errorf("%w: per-minute switch budget exhausted", ErrCooldownActive)
		}
	}

	e.commitLocked(d, now)
	listeners := e.switchSubs.snapshot()
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(d)
	}
	return nil
}

// ReportFailure handles an explicit failure signal from the transport error
// path. Signals for protocols other than the active one are ignored and
// reported as a no-op decision. For the active protocol the engine selects
// the best supported alternative, bypassing the ordinary cooldown but still
// honoring eligibility filtering, and commits the switch immediately.
//
// Emergency transitions have their own stricter rate limit: inside the limit
// window the failure is not silently dropped — ErrEmergencySuppressed is
// returned and the engine remains on the failing protocol.
func (e *Engine) ReportFailure(failing protocol.ID, reason string) (Decision, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Decision{}, ErrClosed
	}
	if !failing.Valid() {
		e.mu.Unlock()
		return Decision{}, fmt.Errorf("%w: %d", ErrUnknownProtocol, int(failing))
	}

	now := e.clock.Now()
	d := Decision{
		From:        e.current,
		To:          e.current,
		At:          now,
		Confidence:  confidenceEmergency,
		Conditions:  e.conditions,
		Performance: e.ledger.record(e.current),
	}

	if failing != e.current {
		d.Reason = fmt.Sprintf("failure on inactive protocol %s ignored", failing)
		e.mu.Unlock()
		return d, nil
	}

	if !e.lastEmergencyAt.IsZero() && now.Sub(e.lastEmergencyAt) < e.cfg.EmergencyMinInterval {
		e.ctr.suppressedEmergencies++
		d.Reason = fmt.Sprintf("emergency switch suppressed, still on %s: %s", failing, reason)
		e.log.Warn("emergency switch suppressed by rate limit",
			"protocol", failing.String(), "reason", reason)
		e.mu.Unlock()
		return d, ErrEmergencySuppressed
	}

	e.state = StateEmergency
	best, bestScore, found := e.bestCandidateLocked(failing)
	if !found {
		e.state = StateStable
		d.Reason = fmt.Sprintf("no eligible alternative to failing protocol %s", failing)
		e.mu.Unlock()
		return d, ErrNoViableProtocol
	}

	curScore := e.model.score(failing, e.ledger.score(failing), e.conditions)
	d.To = best
	d.Emergency = true
	d.Performance = e.ledger.record(best)
	d.ExpectedImprovementPct = improvementPct(curScore, bestScore)
	d.Reason = fmt.Sprintf("emergency switch from %s: %s", failing, reason)

	e.commitLocked(d, now)
	listeners := e.switchSubs.snapshot()
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(d)
	}
	return d, nil
}

// Stats returns an internally consistent snapshot of adaptation statistics,
// per-protocol efficiency scores and the recent-decision buffer.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	usage := make(map[protocol.ID]time.Duration, len(e.ctr.usage))
	for id, dur := range e.ctr.usage {
		usage[id] = dur
	}
	if !e.closed {
		usage[e.current] += e.clock.Now().Sub(e.activeSince)
	}

	scores := make(map[protocol.ID]float64, protocol.Count())
	for _, id := range protocol.All() {
		scores[id] = e.ledger.score(id)
	}

	return Stats{
		TotalSwitches:         e.ctr.totalSwitches,
		SuccessfulSwitches:    e.ctr.successfulSwitches,
		FailedSwitches:        e.ctr.failedSwitches,
		EmergencySwitches:     e.ctr.emergencySwitches,
		SuppressedEmergencies: e.ctr.suppressedEmergencies,
		Evaluations:           e.ctr.evaluations,
		AvgImprovementPct:     e.ctr.avgImprovement(),
		AvgSwitchLatency:      e.ctr.avgLatency(),
		Usage:                 usage,
		LastSwitchAt:          e.lastSwitchAt,
		Current:               e.current,
		State:                 e.state,
		Scores:                scores,
		Recent:                e.hist.snapshot(),
	}
}

// Characteristics returns the effective characteristics table: the built-in
// defaults with any configuration overrides applied. The table is immutable
// after construction, so no lock is taken.
func (e *Engine) Characteristics() map[protocol.ID]protocol.Characteristics {
	out := make(map[protocol.ID]protocol.Characteristics, len(e.model.chars))
	for id, c := range e.model.chars {
		out[id] = c
	}
	return out
}

// Performance returns a copy of the ledger.
func (e *Engine) Performance() map[protocol.ID]PerformanceRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.snapshot()
}

// SubscribeSwitches registers a listener for executed switch decisions.
// Multiple listeners may be registered; each receives every decision.
func (e *Engine) SubscribeSwitches(fn SwitchListener) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.switchSubs.add(fn)
	return &subscription{id: id, cancel: func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.switchSubs.remove(id)
	}}
}

// SubscribePerformance registers a listener for accepted performance updates.
func (e *Engine) SubscribePerformance(fn PerformanceListener) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.perfSubs.add(fn)
	return &subscription{id: id, cancel: func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.perfSubs.remove(id)
	}}
}

// Close tears the engine down. The current protocol's active duration is
// accrued a final time, listener registrations are dropped and all further
// mutating operations return ErrClosed. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	now := e.clock.Now()
	e.ctr.usage[e.current] += now.Sub(e.activeSince)
	e.activeSince = now
	e.switchSubs = newSwitchSubscribers()
	e.perfSubs = newPerfSubscribers()
	e.switchTimes = nil
	e.closed = true
	return nil
}

// commitLocked applies an accepted switch atomically. Callers hold the lock.
func (e *Engine) commitLocked(d Decision, now time.Time) {
	prev := e.current
	e.ctr.usage[prev] += now.Sub(e.activeSince)

	e.current = d.To
	e.activeSince = now
	e.lastSwitchAt = now

	e.ctr.totalSwitches++
	e.ctr.successfulSwitches++
	e.ctr.improvementSum += d.ExpectedImprovementPct
	e.ctr.latencySum += now.Sub(d.At)
	if d.Emergency {
		e.ctr.emergencySwitches++
		e.lastEmergencyAt = now
	} else {
		e.recordSwitchTimeLocked(now)
	}

	e.hist.push(d)
	e.state = StateStable

	e.log.Info("protocol switch committed",
		"from", d.From.String(),
		"to", d.To.String(),
		"emergency", d.Emergency,
		"expectedImprovementPct", d.ExpectedImprovementPct,
		"reason", d.Reason)
}

// bestCandidateLocked returns the highest-scoring eligible candidate,
// excluding the given protocol (pass an invalid ID to exclude nothing).
// Ties are broken by the lower protocol ordinal: candidates are visited in
// ordinal order and only a strictly greater score displaces the leader.
func (e *Engine) bestCandidateLocked(exclude protocol.ID) (protocol.ID, float64, bool) {
	var (
		best      protocol.ID
		bestScore float64
		found     bool
	)
	for _, id := range protocol.All() {
		if id == exclude || !e.supported[id] {
			continue
		}
		rec := e.ledger.record(id)
		if !e.model.eligible(id, rec, e.conditions) {
			continue
		}
		s := e.model.score(id, rec.Score, e.conditions)
		if s < e.cfg.MinPerformanceThreshold {
			continue
		}
		if !found || s > bestScore {
			best, bestScore, found = id, s, true
		}
	}
	return best, bestScore, found
}

// switchBudgetExhaustedLocked reports whether the per-minute ordinary-switch
// budget is used up. A zero MaxSwitchFrequency disables the budget.
func (e *Engine) switchBudgetExhaustedLocked(now time.Time) bool {
	if e.cfg.MaxSwitchFrequency <= 0 {
		return false
	}
	cutoff := now.Add(-time.Minute)
	kept := e.switchTimes[:0]
	for _, t := range e.switchTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.switchTimes = kept
	return len(e.switchTimes) >= e.cfg.MaxSwitchFrequency
}

func (e *Engine) recordSwitchTimeLocked(now time.Time) {
	if e.cfg.MaxSwitchFrequency <= 0 {
		return
	}
	e.switchTimes = append(e.switchTimes, now)
}

// improvementPct computes the relative improvement of next over cur in
// percent. A non-positive current score counts as a full improvement rather
// than dividing by zero.
func improvementPct(cur, next float64) float64 {
	if cur <= 0 {
		return 100
	}
	return (next - cur) / cur * 100
}
