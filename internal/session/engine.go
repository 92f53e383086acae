package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// State is a position in the session lifecycle
type State string

const (
	StateIdle               State = "idle"
	StateBaselineInProgress State = "baseline_in_progress"
	StateBaselineComplete   State = "baseline_complete"
	StateHatInProgress      State = "hat_in_progress"
	StateHatComplete        State = "hat_complete"
	StateFinalized          State = "finalized"
)

// ErrSuperseded is returned to callers holding a Phase from a session that
// was reset or replaced since
var ErrSuperseded = fmt.Errorf("%w: session was reset", models.ErrInvalidState)

// Notifier receives engine events. Publish must not block.
type Notifier interface {
	Publish(event models.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(models.Event) {}

type nopCache struct{}

func (nopCache) Store(context.Context, models.MeasurementKind, models.Frequency, float64) error {
	return nil
}

func (nopCache) FetchAll(context.Context, models.MeasurementKind) (map[models.Frequency]float64, error) {
	return map[models.Frequency]float64{}, nil
}

func (nopCache) Clear(context.Context) error { return nil }

// Phase identifies one in-progress measurement phase. Sweeps hold on to it
// so a reset in the middle of a sweep turns its remaining records into
// ErrSuperseded instead of writing into the next session.
type Phase struct {
	SessionID  string
	Kind       models.MeasurementKind
	Generation uint64
	Active     bool
}

// Snapshot is a read-only view of the engine
type Snapshot struct {
	SessionID       string             `json:"session_id,omitempty" doc:"Current session identifier"`
	State           State              `json:"state" doc:"Lifecycle state"`
	PlanSize        int                `json:"plan_size" doc:"Number of planned frequencies"`
	BaselineCount   int                `json:"baseline_count" doc:"Baseline readings recorded"`
	HatCount        int                `json:"hat_count" doc:"Hat readings recorded"`
	Attempted       int                `json:"attempted" doc:"Frequencies attempted in the active phase"`
	MissingBaseline []models.Frequency `json:"missing_baseline,omitempty" doc:"Baseline frequencies with no reading"`
	MissingHat      []models.Frequency `json:"missing_hat,omitempty" doc:"Hat frequencies with no reading"`
	StartedAt       *time.Time         `json:"started_at,omitempty" doc:"When the session started"`
}

// Engine owns the measurement session lifecycle for one device. All
// methods are safe for concurrent use; Reset always wins against in-flight
// work.
type Engine struct {
	cache    repository.MeasurementCache
	results  repository.ResultRepository
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time

	mu         sync.Mutex
	plan       models.FrequencyPlan
	state      State
	sessionID  string
	startedAt  time.Time
	generation uint64
	baseline   *models.MeasurementSet
	hat        *models.MeasurementSet
	attempted  map[models.Frequency]bool
	missing    map[models.MeasurementKind]map[models.Frequency]bool
}

// Option configures an Engine
type Option func(e *Engine)

// WithNotifier sets the event sink
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithLogger sets the logger for the engine
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "session").Logger()
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an idle engine measuring plan. A nil cache keeps
// readings in memory only.
func NewEngine(plan models.FrequencyPlan, cache repository.MeasurementCache, results repository.ResultRepository, opts ...Option) (*Engine, error) {
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: plan is empty", models.ErrInvalidPlan)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if results == nil {
		return nil, errors.New("result repository is required")
	}
	if cache == nil {
		cache = nopCache{}
	}

	e := &Engine{
		cache:    cache,
		results:  results,
		notifier: nopNotifier{},
		logger:   log.Logger.With().Str("component", "session").Logger(),
		now:      time.Now,
		plan:     append(models.FrequencyPlan(nil), plan...),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.clearLocked()
	return e, nil
}

// Plan returns a copy of the frequency plan
func (e *Engine) Plan() models.FrequencyPlan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append(models.FrequencyPlan(nil), e.plan...)
}

// SetPlan replaces the frequency plan. Only legal while idle.
func (e *Engine) SetPlan(plan models.FrequencyPlan) error {
	if len(plan) == 0 {
		return fmt.Errorf("%w: plan is empty", models.ErrInvalidPlan)
	}
	if err := plan.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return fmt.Errorf("%w: plan can only change while idle, state is %s", models.ErrSessionBusy, e.state)
	}
	e.plan = append(models.FrequencyPlan(nil), plan...)
	e.logger.Info().Int("planSize", len(plan)).Msg("Frequency plan replaced")
	return nil
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Phase returns a token for the active phase. Active is false when no
// phase is in progress.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := Phase{SessionID: e.sessionID, Generation: e.generation}
	switch e.state {
	case StateBaselineInProgress:
		p.Kind, p.Active = models.KindBaseline, true
	case StateHatInProgress:
		p.Kind, p.Active = models.KindHat, true
	}
	return p
}

// Snapshot returns the current session status
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		SessionID:       e.sessionID,
		State:           e.state,
		PlanSize:        len(e.plan),
		BaselineCount:   e.baseline.Len(),
		HatCount:        e.hat.Len(),
		Attempted:       len(e.attempted),
		MissingBaseline: sortedKeys(e.missing[models.KindBaseline]),
		MissingHat:      sortedKeys(e.missing[models.KindHat]),
	}
	if !e.startedAt.IsZero() {
		t := e.startedAt
		s.StartedAt = &t
	}
	return s
}

// StartBaseline begins a new session. Only one session may run at a time,
// so any state other than idle is rejected.
func (e *Engine) StartBaseline(ctx context.Context) (Phase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return Phase{}, fmt.Errorf("%w: state is %s", models.ErrSessionBusy, e.state)
	}
	if err := e.cache.Clear(ctx); err != nil {
		return Phase{}, fmt.Errorf("failed to clear measurement cache: %w", err)
	}

	e.clearLocked()
	e.generation++
	e.sessionID = uuid.New().String()
	e.startedAt = e.now()
	e.state = StateBaselineInProgress

	e.logger.Info().
		Str("sessionId", e.sessionID).
		Int("planSize", len(e.plan)).
		Msg("Baseline measurement started")
	e.publishLocked(models.Event{Type: models.EventSessionStarted, Phase: models.KindBaseline})
	return e.phaseLocked(models.KindBaseline), nil
}

// StartHat begins the hat phase of the current session
func (e *Engine) StartHat(ctx context.Context) (Phase, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateBaselineComplete {
		return Phase{}, fmt.Errorf("%w: hat measurement requires a completed baseline, state is %s", models.ErrInvalidState, e.state)
	}

	e.attempted = make(map[models.Frequency]bool)
	e.state = StateHatInProgress

	e.logger.Info().
		Str("sessionId", e.sessionID).
		Int("baselineCount", e.baseline.Len()).
		Msg("Hat measurement started")
	e.publishLocked(models.Event{Type: models.EventSessionStarted, Phase: models.KindHat})
	return e.phaseLocked(models.KindHat), nil
}

// Record upserts one reading into the active phase. The returned event is
// the one published to subscribers.
func (e *Engine) Record(ctx context.Context, kind models.MeasurementKind, f models.Frequency, power float64) (*models.MeasurementEvent, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordLocked(ctx, kind, f, power)
}

// RecordPhase is Record bound to a phase token. It fails with
// ErrSuperseded once the session the token came from is gone.
func (e *Engine) RecordPhase(ctx context.Context, p Phase, f models.Frequency, power float64) (*models.MeasurementEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.Generation != e.generation {
		return nil, ErrSuperseded
	}
	return e.recordLocked(ctx, p.Kind, f, power)
}

func (e *Engine) recordLocked(ctx context.Context, kind models.MeasurementKind, f models.Frequency, power float64) (*models.MeasurementEvent, error) {
	f, err := e.checkRecordableLocked(kind, f)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Store(ctx, kind, f, power); err != nil {
		e.logger.Warn().Err(err).
			Str("kind", string(kind)).
			Int64("frequencyHz", int64(f)).
			Msg("Failed to cache measurement")
	}

	set := e.setLocked(kind)
	set.Put(f, power)
	e.attempted[f] = true
	delete(e.missing[kind], f)

	ev := &models.MeasurementEvent{Frequency: f, Kind: kind, Power: power}
	if kind == models.KindHat {
		if b, ok := e.baseline.Get(f); ok {
			att := b - power
			ev.Attenuation = &att
			ev.BaselinePower = &b
		}
	}

	e.publishLocked(models.Event{Type: models.EventMeasurementRecorded, Phase: kind, Measurement: ev})
	e.advanceLocked(kind)
	return ev, nil
}

// MarkMissing records that an attempt at f produced no reading. An
// existing reading for f is kept.
func (e *Engine) MarkMissing(kind models.MeasurementKind, f models.Frequency) error {
	if err := kind.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.markMissingLocked(kind, f)
}

// MarkMissingPhase is MarkMissing bound to a phase token
func (e *Engine) MarkMissingPhase(p Phase, f models.Frequency) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.Generation != e.generation {
		return ErrSuperseded
	}
	return e.markMissingLocked(p.Kind, f)
}

func (e *Engine) markMissingLocked(kind models.MeasurementKind, f models.Frequency) error {
	f, err := e.checkRecordableLocked(kind, f)
	if err != nil {
		return err
	}

	e.attempted[f] = true
	if _, ok := e.setLocked(kind).Get(f); !ok {
		e.missing[kind][f] = true
		e.logger.Warn().
			Str("kind", string(kind)).
			Int64("frequencyHz", int64(f)).
			Msg("No reading for frequency")
	}
	e.advanceLocked(kind)
	return nil
}

// CompleteKind ends the active phase early. Frequencies never attempted
// are counted as missing.
func (e *Engine) CompleteKind(kind models.MeasurementKind) error {
	if err := kind.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkPhaseLocked(kind); err != nil {
		return err
	}
	set := e.setLocked(kind)
	for _, pt := range e.plan {
		if _, ok := set.Get(pt.Frequency); !ok {
			e.missing[kind][pt.Frequency] = true
		}
		e.attempted[pt.Frequency] = true
	}
	e.advanceLocked(kind)
	return nil
}

// Finalize computes the session result, records it as the contestant's
// best when it beats their previous best for hatType, and persists it.
// In-memory and cached readings are cleared whether or not persisting
// succeeds.
func (e *Engine) Finalize(ctx context.Context, contestantID int64, hatType models.HatType) (*models.SessionResult, error) {
	if err := hatType.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.state != StateHatComplete {
		state := e.state
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: finalize requires completed hat measurements, state is %s", models.ErrInvalidState, state)
	}

	result := Compute(e.plan, e.baseline, e.hat)
	result.ID = uuid.New().String()
	result.SessionID = e.sessionID
	result.ContestantID = contestantID
	result.HatType = hatType
	result.CreatedAt = e.now()

	// From here on the session's data is gone. The generation bump
	// invalidates any phase tokens still held by sweeps. The cache is
	// cleared under the lock so a session started while this one persists
	// keeps its cached readings.
	e.clearLocked()
	if err := e.cache.Clear(context.WithoutCancel(ctx)); err != nil {
		e.logger.Error().Err(err).Msg("Failed to clear measurement cache after finalize")
	}
	e.generation++
	e.state = StateFinalized
	gen := e.generation
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.generation == gen && e.state == StateFinalized {
			e.state = StateIdle
			e.sessionID = ""
			e.startedAt = time.Time{}
		}
		e.mu.Unlock()
	}()

	prev, err := e.results.BestScore(ctx, contestantID, hatType)
	if err != nil {
		return nil, fmt.Errorf("failed to look up previous best: %w", err)
	}
	result.PreviousBest = prev
	result.IsBestScore = prev == nil || result.AverageAttenuation > *prev

	if err := e.results.PersistResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to persist result: %w", err)
	}

	e.logger.Info().
		Str("resultId", result.ID).
		Str("sessionId", result.SessionID).
		Int64("contestantId", contestantID).
		Str("hatType", string(hatType)).
		Float64("averageAttenuation", result.AverageAttenuation).
		Int("validFrequencies", result.ValidCount).
		Bool("isBestScore", result.IsBestScore).
		Msg("Session finalized")

	e.mu.Lock()
	e.publishSessionLocked(result.SessionID, models.Event{Type: models.EventSessionFinalized, Result: result})
	e.mu.Unlock()
	return result, nil
}

// Reset discards all in-progress data and returns to idle. It always
// succeeds; cache failures are logged.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sessionID := e.sessionID
	e.clearLocked()
	e.generation++
	e.state = StateIdle
	e.sessionID = ""
	e.startedAt = time.Time{}

	if err := e.cache.Clear(context.WithoutCancel(ctx)); err != nil {
		e.logger.Error().Err(err).Msg("Failed to clear measurement cache on reset")
	}

	e.logger.Info().Str("sessionId", sessionID).Msg("Session reset")
	e.publishSessionLocked(sessionID, models.Event{Type: models.EventSessionReset})
}

// Restore rebuilds an interrupted session from the measurement cache. It
// is a no-op unless the engine is idle and the cache holds readings for
// planned frequencies.
func (e *Engine) Restore(ctx context.Context) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return e.state, nil
	}

	baseline, err := e.cache.FetchAll(ctx, models.KindBaseline)
	if err != nil {
		return e.state, fmt.Errorf("failed to fetch cached baseline: %w", err)
	}
	hat, err := e.cache.FetchAll(ctx, models.KindHat)
	if err != nil {
		return e.state, fmt.Errorf("failed to fetch cached hat readings: %w", err)
	}

	e.clearLocked()
	e.restoreSetLocked(e.baseline, baseline)
	e.restoreSetLocked(e.hat, hat)

	switch {
	case e.hat.Len() > 0:
		e.state = StateHatInProgress
		e.markAttemptedLocked(e.hat)
		e.advanceLocked(models.KindHat)
	case e.baseline.Len() > 0:
		e.state = StateBaselineInProgress
		e.markAttemptedLocked(e.baseline)
		e.advanceLocked(models.KindBaseline)
	default:
		return e.state, nil
	}

	e.generation++
	e.sessionID = uuid.New().String()
	e.startedAt = e.now()
	e.logger.Info().
		Str("sessionId", e.sessionID).
		Str("state", string(e.state)).
		Int("baselineCount", e.baseline.Len()).
		Int("hatCount", e.hat.Len()).
		Msg("Session restored from cache")
	return e.state, nil
}

func (e *Engine) restoreSetLocked(set *models.MeasurementSet, cached map[models.Frequency]float64) {
	for f, p := range cached {
		if i, ok := e.plan.Index(f); ok {
			set.Put(e.plan[i].Frequency, p)
		}
	}
}

func (e *Engine) markAttemptedLocked(set *models.MeasurementSet) {
	for f := range set.Readings {
		e.attempted[f] = true
	}
}

// checkRecordableLocked validates a record against the active phase and
// returns the canonical plan frequency
func (e *Engine) checkRecordableLocked(kind models.MeasurementKind, f models.Frequency) (models.Frequency, error) {
	if err := e.checkPhaseLocked(kind); err != nil {
		return 0, err
	}
	i, ok := e.plan.Index(f)
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrUnknownFrequency, f)
	}
	return e.plan[i].Frequency, nil
}

func (e *Engine) checkPhaseLocked(kind models.MeasurementKind) error {
	switch {
	case kind == models.KindBaseline && e.state == StateBaselineInProgress,
		kind == models.KindHat && e.state == StateHatInProgress:
		return nil
	case kind == models.KindHat && e.state == StateBaselineInProgress,
		kind == models.KindBaseline && e.state == StateHatInProgress:
		return fmt.Errorf("%w: cannot record %s during %s", models.ErrWrongKind, kind, e.state)
	default:
		return fmt.Errorf("%w: cannot record %s while %s", models.ErrInvalidState, kind, e.state)
	}
}

// advanceLocked completes the phase once every planned frequency was
// attempted
func (e *Engine) advanceLocked(kind models.MeasurementKind) {
	if len(e.attempted) < len(e.plan) {
		return
	}
	next := StateBaselineComplete
	if kind == models.KindHat {
		next = StateHatComplete
	}
	e.state = next
	e.logger.Info().
		Str("sessionId", e.sessionID).
		Str("kind", string(kind)).
		Int("recorded", e.setLocked(kind).Len()).
		Int("missing", len(e.missing[kind])).
		Msg("Measurement phase complete")
}

func (e *Engine) setLocked(kind models.MeasurementKind) *models.MeasurementSet {
	if kind == models.KindHat {
		return e.hat
	}
	return e.baseline
}

func (e *Engine) phaseLocked(kind models.MeasurementKind) Phase {
	return Phase{SessionID: e.sessionID, Kind: kind, Generation: e.generation, Active: true}
}

func (e *Engine) clearLocked() {
	e.baseline = models.NewMeasurementSet(models.KindBaseline)
	e.hat = models.NewMeasurementSet(models.KindHat)
	e.attempted = make(map[models.Frequency]bool)
	e.missing = map[models.MeasurementKind]map[models.Frequency]bool{
		models.KindBaseline: {},
		models.KindHat:      {},
	}
}

func (e *Engine) publishLocked(ev models.Event) {
	e.publishSessionLocked(e.sessionID, ev)
}

func (e *Engine) publishSessionLocked(sessionID string, ev models.Event) {
	ev.ID = uuid.New().String()
	ev.SessionID = sessionID
	ev.Timestamp = e.now()
	e.notifier.Publish(ev)
}

func sortedKeys(m map[models.Frequency]bool) []models.Frequency {
	if len(m) == 0 {
		return nil
	}
	out := make([]models.Frequency, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
