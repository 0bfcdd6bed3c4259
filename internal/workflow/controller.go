// Package workflow implements the transfer safety-check state machine.
//
// A Controller owns one transfer attempt. It runs the local amount guard,
// the ML fraud heuristic and, when the user supplies context, the LLM scam
// analysis, then hands the unchanged intent to the confirmation step or back
// to the transfer form. Nothing is retried automatically; every re-entry is
// an explicit user action.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/vigil/internal/bankapi"
	"github.com/Veraticus/vigil/internal/common"
	"github.com/Veraticus/vigil/internal/guard"
	"github.com/Veraticus/vigil/internal/model"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// DefaultSafeDelay is the pause between a safe verdict and navigation.
const DefaultSafeDelay = 1500 * time.Millisecond

// Workflow errors.
var (
	ErrInvalidTransition  = errors.New("action not allowed in current state")
	ErrEmptyContext       = errors.New("additional context cannot be empty")
	ErrWorkflowClosed     = errors.New("workflow closed")
	ErrAlreadyStarted     = errors.New("workflow already started")
	ErrMissingCredentials = errors.New("missing credentials")
)

// Config holds tunables for the controller.
type Config struct {
	ThresholdPercent float64
	SafeDelay        time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ThresholdPercent: guard.DefaultThresholdPercent,
		SafeDelay:        DefaultSafeDelay,
	}
}

// Option configures optional controller collaborators.
type Option func(*Controller)

// WithConfig overrides the default configuration.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.guard = guard.NewAmountThreshold(cfg.ThresholdPercent)
		if cfg.SafeDelay > 0 {
			c.safeDelay = cfg.SafeDelay
		}
	}
}

// WithNotifier sets where user-facing messages go.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithObservers registers run observers.
func WithObservers(observers ...Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, observers...)
	}
}

// WithScheduler replaces the timer used for the safe-state delay.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithClock replaces the time source used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithCredentials makes Start verify a token can be obtained before any
// check runs.
func WithCredentials(tokens oauth2.TokenSource) Option {
	return func(c *Controller) {
		c.tokens = tokens
	}
}

// Snapshot is a consistent view of the controller's state.
type Snapshot struct {
	LastError         error
	Exit              *model.Exit
	HighAmountMessage string
	MLMessage         string
	LLMVerdict        string
	Context           string
	Status            model.CheckStatus
	Intent            model.TransferIntent
	RunID             uuid.UUID
}

// Done reports whether the workflow has exited.
func (s Snapshot) Done() bool {
	return s.Exit != nil
}

// AwaitingUser reports whether the workflow is blocked on a user decision.
func (s Snapshot) AwaitingUser() bool {
	if s.Done() {
		return false
	}
	switch s.Status {
	case model.StatusHighAmount, model.StatusMLWarning, model.StatusLLMWarning, model.StatusError:
		return true
	default:
		return false
	}
}

// Controller drives one transfer attempt through the safety checks.
type Controller struct {
	ml        bankapi.SafetyChecker
	llm       bankapi.ScamChecker
	navigator Navigator
	notifier  Notifier
	scheduler Scheduler
	tokens    oauth2.TokenSource
	guard     *guard.AmountThreshold
	logger    *slog.Logger
	now       func() time.Time
	observers []Observer

	ctx       context.Context
	cancel    context.CancelFunc
	timer     Timer
	lastErr   error
	exit      *model.Exit
	run       *model.Run
	changed   chan struct{}
	intent    model.TransferIntent
	status    model.CheckStatus
	highMsg   string
	mlMessage string
	verdict   string
	userCtx   string
	safeDelay time.Duration
	gen       uint64
	pending   int
	mu        sync.Mutex
	closed    bool
}

// New creates a controller for a single transfer attempt.
func New(ml bankapi.SafetyChecker, llm bankapi.ScamChecker, navigator Navigator, opts ...Option) *Controller {
	c := &Controller{
		ml:        ml,
		llm:       llm,
		navigator: navigator,
		notifier:  nopNotifier{},
		scheduler: clockScheduler{},
		guard:     guard.NewAmountThreshold(guard.DefaultThresholdPercent),
		safeDelay: DefaultSafeDelay,
		now:       time.Now,
		status:    model.StatusIdle,
		changed:   make(chan struct{}),
		logger:    slog.Default().With("component", "workflow"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// effects are callbacks collected under the lock and run after it is
// released, so collaborators may call back into the controller.
type effects []func()

// release unlocks c, runs fx and wakes waiters. Waiters do not observe the
// new state until fx has run. c.mu must be held.
func (c *Controller) release(fx effects) {
	c.pending++
	c.mu.Unlock()

	for _, f := range fx {
		f()
	}

	c.mu.Lock()
	c.pending--
	c.broadcastLocked()
	c.mu.Unlock()
}

// Start begins the workflow for the transfer carried by route. A missing
// route or credential ends the run at once, back at the transfer form.
func (c *Controller) Start(ctx context.Context, route *model.RouteState) error {
	// A refreshing token source may call the API; keep it outside c.mu.
	credErr := c.credentials()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrWorkflowClosed
	}
	if c.run != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.run = model.NewRun(model.TransferIntent{}, c.now())

	intent, err := c.precondition(route, credErr)
	if err != nil {
		c.lastErr = err
		fx := c.finishLocked(model.Exit{Kind: model.ExitTransferForm, Reason: model.ReasonMissingData})
		fx = append(fx, c.notifyFx(LevelError, MsgMissingData))
		c.release(fx)
		c.logger.Error("Safety check started without transfer data", "error", err)
		return common.NewUserError(MsgMissingData, err)
	}

	c.intent = intent
	c.run.Intent = intent
	c.logger.Info("Safety check started",
		"run_id", c.run.ID,
		"sender_account_id", intent.SenderAccountID,
		"amount", intent.Amount.String())

	decision := c.guard.Evaluate(intent.Amount, intent.SenderBalance)
	if decision.Triggered {
		c.highMsg = decision.Message
		err = c.setStatusLocked(model.StatusHighAmount)
		c.mu.Unlock()
		c.logger.Info("High amount transfer needs confirmation",
			"run_id", c.run.ID,
			"percentage", decision.Percentage.StringFixed(1))
		return err
	}
	if decision.Skipped {
		c.logger.Debug("Amount guard skipped, balance unavailable", "run_id", c.run.ID)
	}

	err = c.beginMLLocked()
	c.mu.Unlock()
	return err
}

func (c *Controller) precondition(route *model.RouteState, credErr error) (model.TransferIntent, error) {
	if route == nil {
		return model.TransferIntent{}, model.ErrMissingRouteState
	}
	intent, err := route.Intent()
	if err != nil {
		return model.TransferIntent{}, err
	}
	if credErr != nil {
		return model.TransferIntent{}, credErr
	}
	return intent, nil
}

func (c *Controller) credentials() error {
	if c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingCredentials, err)
	}
	if !tok.Valid() {
		return ErrMissingCredentials
	}
	return nil
}

// ConfirmHighAmount continues past the amount warning into the ML check.
func (c *Controller) ConfirmHighAmount() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireLocked(model.StatusHighAmount); err != nil {
		return err
	}
	c.logger.Info("High amount confirmed by user", "run_id", c.run.ID)
	return c.beginMLLocked()
}

// SubmitContext sends the user's narrative for the deeper scam analysis.
// Blank context is rejected without a network call and leaves the state
// unchanged.
func (c *Controller) SubmitContext(userContext string) error {
	c.mu.Lock()

	if err := c.requireLocked(model.StatusMLWarning); err != nil {
		c.mu.Unlock()
		return err
	}

	if strings.TrimSpace(userContext) == "" {
		c.release(effects{c.notifyFx(LevelWarning, MsgProvideContext)})
		return ErrEmptyContext
	}

	c.userCtx = userContext
	if err := c.setStatusLocked(model.StatusCheckingLLM); err != nil {
		c.mu.Unlock()
		return err
	}

	c.gen++
	gen := c.gen
	ctx := c.ctx
	prompt := BuildScamPrompt(c.intent, userContext)
	runID := c.run.ID
	c.mu.Unlock()

	c.logger.Info("Running deeper scam analysis", "run_id", runID)
	go func() {
		start := time.Now()
		verdict, err := c.llm.ScamCheck(ctx, prompt)
		c.resolveLLM(gen, verdict, err, time.Since(start))
	}()
	return nil
}

// Skip bypasses an ML warning and proceeds to confirmation.
func (c *Controller) Skip() error {
	return c.exitFrom(
		[]model.CheckStatus{model.StatusMLWarning},
		model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonSkipped})
}

// ContinueAnyway forces the transfer past an LLM warning.
func (c *Controller) ContinueAnyway() error {
	return c.exitFrom(
		[]model.CheckStatus{model.StatusLLMWarning},
		model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonContinuedAnyway})
}

// Cancel abandons the transfer and returns to the form.
func (c *Controller) Cancel() error {
	return c.exitFrom(
		[]model.CheckStatus{model.StatusHighAmount, model.StatusMLWarning, model.StatusLLMWarning},
		model.Exit{Kind: model.ExitTransferForm, Reason: model.ReasonCancelled})
}

// Back leaves the error state for the transfer form.
func (c *Controller) Back() error {
	return c.exitFrom(
		[]model.CheckStatus{model.StatusError},
		model.Exit{Kind: model.ExitTransferForm, Reason: model.ReasonCheckFailed})
}

// State returns the current status.
func (c *Controller) State() model.CheckStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SafeDelay is the pause between a safe verdict and navigation.
func (c *Controller) SafeDelay() time.Duration {
	return c.safeDelay
}

// Snapshot returns a consistent copy of the controller's state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// WaitFor blocks until cond holds for the controller's state.
func (c *Controller) WaitFor(ctx context.Context, cond func(Snapshot) bool) (Snapshot, error) {
	for {
		c.mu.Lock()
		snap := c.snapshotLocked()
		changed := c.changed
		closed := c.closed
		settled := c.pending == 0
		c.mu.Unlock()

		if settled && cond(snap) {
			return snap, nil
		}
		if closed {
			return snap, ErrWorkflowClosed
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// Await blocks until no check is in flight.
func (c *Controller) Await(ctx context.Context) (Snapshot, error) {
	return c.WaitFor(ctx, func(s Snapshot) bool {
		return s.Done() || (s.Status != model.StatusIdle && !s.Status.IsChecking())
	})
}

// Close cancels any in-flight check and pending navigation. Results that
// arrive afterwards are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.broadcastLocked()
}

func (c *Controller) exitFrom(allowed []model.CheckStatus, exit model.Exit) error {
	c.mu.Lock()
	if err := c.requireLocked(allowed...); err != nil {
		c.mu.Unlock()
		return err
	}

	from := c.status
	fx := c.finishLocked(exit)
	if exit.Kind == model.ExitTransferForm {
		fx = append(fx, c.notifyFx(LevelInfo, MsgCancelled))
	}
	runID := c.run.ID

	if exit.IsBypass() {
		c.logger.Warn("Safety warning bypassed by user",
			"run_id", runID,
			"from", from,
			"reason", exit.Reason)
	} else {
		c.logger.Info("Safety check ended", "run_id", runID, "from", from, "exit", exit.String())
	}

	c.release(fx)
	return nil
}

func (c *Controller) requireLocked(allowed ...model.CheckStatus) error {
	if c.closed {
		return ErrWorkflowClosed
	}
	if c.exit != nil {
		return fmt.Errorf("%w: workflow already exited (%s)", ErrInvalidTransition, c.exit)
	}
	for _, s := range allowed {
		if c.status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, c.status)
}

func (c *Controller) beginMLLocked() error {
	if err := c.setStatusLocked(model.StatusCheckingML); err != nil {
		return err
	}

	c.gen++
	gen := c.gen
	ctx := c.ctx
	req := bankapi.NewSafetyCheckRequest(c.intent)

	go func() {
		start := time.Now()
		verdict, err := c.ml.SafetyCheck(ctx, req)
		c.resolveML(gen, verdict, err, time.Since(start))
	}()
	return nil
}

// staleLocked reports whether a check result no longer applies.
func (c *Controller) staleLocked(gen uint64, expect model.CheckStatus) bool {
	return c.closed || c.exit != nil || gen != c.gen || c.status != expect
}

func (c *Controller) resolveML(gen uint64, verdict model.MLVerdict, err error, elapsed time.Duration) {
	c.mu.Lock()
	if c.staleLocked(gen, model.StatusCheckingML) {
		c.mu.Unlock()
		c.logger.Debug("Discarding stale safety check result")
		return
	}

	var fx effects
	var outcome Outcome
	switch {
	case err != nil:
		outcome = OutcomeError
		c.lastErr = err
		_ = c.setStatusLocked(model.StatusError)
		fx = append(fx, c.notifyFx(LevelError, MsgCheckError))
		c.logger.Error("Safety check failed", "run_id", c.run.ID, "error", err)
	case verdict.IsSafe:
		outcome = OutcomeSafe
		fx = append(fx, c.markSafeLocked()...)
	default:
		outcome = OutcomeWarning
		c.mlMessage = verdict.Message
		_ = c.setStatusLocked(model.StatusMLWarning)
		c.logger.Info("Safety check flagged transfer", "run_id", c.run.ID, "message", verdict.Message)
	}
	fx = append(fx, c.checkFx(CheckML, outcome, elapsed))
	c.release(fx)
}

func (c *Controller) resolveLLM(gen uint64, verdict model.LLMVerdict, err error, elapsed time.Duration) {
	c.mu.Lock()
	if c.staleLocked(gen, model.StatusCheckingLLM) {
		c.mu.Unlock()
		c.logger.Debug("Discarding stale scam analysis result")
		return
	}

	var fx effects
	var outcome Outcome
	switch {
	case err != nil:
		outcome = OutcomeError
		c.lastErr = err
		_ = c.setStatusLocked(model.StatusMLWarning)
		fx = append(fx, c.notifyFx(LevelError, MsgDeepCheckFailed))
		c.logger.Error("Scam analysis failed, reverting to warning", "run_id", c.run.ID, "error", err)
	case IsNotScam(verdict.Verdict):
		outcome = OutcomeSafe
		c.verdict = verdict.Verdict
		fx = append(fx, c.markSafeLocked()...)
	default:
		outcome = OutcomeWarning
		c.verdict = verdict.Verdict
		_ = c.setStatusLocked(model.StatusLLMWarning)
		c.logger.Warn("Scam analysis flagged transfer", "run_id", c.run.ID, "verdict", verdict.Verdict)
	}
	fx = append(fx, c.checkFx(CheckLLM, outcome, elapsed))
	c.release(fx)
}

// markSafeLocked enters the safe state and schedules the single navigation
// to confirmation.
func (c *Controller) markSafeLocked() effects {
	c.lastErr = nil
	_ = c.setStatusLocked(model.StatusSafe)

	gen := c.gen
	c.timer = c.scheduler.AfterFunc(c.safeDelay, func() {
		c.mu.Lock()
		if c.staleLocked(gen, model.StatusSafe) {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.release(c.finishLocked(model.Exit{Kind: model.ExitConfirmation, Reason: model.ReasonSafe}))
	})

	c.logger.Info("Transfer cleared", "run_id", c.run.ID, "redirect_in", c.safeDelay)
	return effects{c.notifyFx(LevelSuccess, MsgSafeRedirect)}
}

func (c *Controller) setStatusLocked(next model.CheckStatus) error {
	if !c.status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.status, next)
	}
	c.run.Transitions = append(c.run.Transitions, model.Transition{
		From: c.status,
		To:   next,
		At:   c.now(),
	})
	c.status = next
	c.broadcastLocked()
	return nil
}

// finishLocked records the exit and returns the navigation and observer
// callbacks.
func (c *Controller) finishLocked(exit model.Exit) effects {
	c.exit = &exit
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	c.run.Exit = exit
	c.run.FinalStatus = c.status
	c.run.MLMessage = c.mlMessage
	c.run.LLMVerdict = c.verdict
	c.run.FinishedAt = c.now()
	c.broadcastLocked()

	run := *c.run
	run.Transitions = append([]model.Transition(nil), c.run.Transitions...)
	intent := c.intent

	fx := effects{func() { c.navigator.Navigate(exit, intent) }}
	for _, o := range c.observers {
		fx = append(fx, func() { o.Finished(run) })
	}
	return fx
}

func (c *Controller) checkFx(check Check, outcome Outcome, elapsed time.Duration) func() {
	observers := c.observers
	return func() {
		for _, o := range observers {
			o.CheckCompleted(check, outcome, elapsed)
		}
	}
}

func (c *Controller) notifyFx(level Level, msg string) func() {
	notifier := c.notifier
	return func() {
		notifier.Notify(Notification{Level: level, Message: msg})
	}
}

func (c *Controller) broadcastLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:            c.status,
		Intent:            c.intent,
		HighAmountMessage: c.highMsg,
		MLMessage:         c.mlMessage,
		LLMVerdict:        c.verdict,
		Context:           c.userCtx,
		LastError:         c.lastErr,
	}
	if c.run != nil {
		snap.RunID = c.run.ID
	}
	if c.exit != nil {
		exit := *c.exit
		snap.Exit = &exit
	}
	return snap
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
