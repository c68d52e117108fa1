package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// InterruptPolicy decides what happens when a capture comes back empty while
// the interview is paused.
type InterruptPolicy int

const (
	// RetryQuestion waits out the pause and asks the same question again.
	RetryQuestion InterruptPolicy = iota
	// SkipQuestion drops the question without a record and moves on.
	SkipQuestion
)

func ParseInterruptPolicy(s string) (InterruptPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "retry":
		return RetryQuestion, nil
	case "skip":
		return SkipQuestion, nil
	}
	return RetryQuestion, fmt.Errorf("unknown interrupt policy %q", s)
}

// Policy holds every tunable decision of the controller.
type Policy struct {
	CaptureTimeout time.Duration
	MaxPhrase      time.Duration
	PausePoll      time.Duration
	Interrupt      InterruptPolicy
	FallbackText   string
	// Halt reports whether a completion failure should stop the interview.
	// Nil never halts: the fallback text is substituted and the run goes on.
	Halt func(error) bool
}

func DefaultPolicy() Policy {
	return Policy{
		CaptureTimeout: 5 * time.Second,
		MaxPhrase:      15 * time.Second,
		PausePoll:      time.Second,
		Interrupt:      RetryQuestion,
		FallbackText:   FallbackText,
	}
}

// Deps wires a Controller. Session, Capturer, Speaker and Completer are
// required.
type Deps struct {
	Session   *Session
	Catalog   Catalog
	Capturer  Capturer
	Speaker   Speaker
	Completer Completer
	Evaluator *Evaluator
	Events    Events
	Archiver  Archiver
	Logger    *log.Logger
	Policy    Policy
}

// Controller sequences one session: greet, ask every scripted question with
// a generated follow-up, say goodbye, and evaluate on demand.
type Controller struct {
	session   *Session
	catalog   Catalog
	capturer  Capturer
	speaker   Speaker
	completer Completer
	evaluator *Evaluator
	events    Events
	archiver  Archiver
	logger    *log.Logger
	policy    Policy

	runMu sync.Mutex
}

func NewController(d Deps) *Controller {
	if d.Events == nil {
		d.Events = nopEvents{}
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if len(d.Catalog.tracks) == 0 {
		d.Catalog = DefaultCatalog()
	}
	def := DefaultPolicy()
	if d.Policy.CaptureTimeout <= 0 {
		d.Policy.CaptureTimeout = def.CaptureTimeout
	}
	if d.Policy.MaxPhrase <= 0 {
		d.Policy.MaxPhrase = def.MaxPhrase
	}
	if d.Policy.PausePoll <= 0 {
		d.Policy.PausePoll = def.PausePoll
	}
	if d.Policy.FallbackText == "" {
		d.Policy.FallbackText = def.FallbackText
	}
	if d.Evaluator == nil {
		d.Evaluator = NewEvaluator(d.Completer, false)
	}
	d.Evaluator.FallbackText = d.Policy.FallbackText
	return &Controller{
		session:   d.Session,
		catalog:   d.Catalog,
		capturer:  d.Capturer,
		speaker:   d.Speaker,
		completer: d.Completer,
		evaluator: d.Evaluator,
		events:    d.Events,
		archiver:  d.Archiver,
		logger:    d.Logger.With("session", d.Session.ID()),
		policy:    d.Policy,
	}
}

func (c *Controller) Session() *Session { return c.session }

func (c *Controller) Catalog() Catalog { return c.catalog }

// Start validates the form input and moves the session to Greeting. Starting
// an already started session is a no-op.
func (c *Controller) Start(username, track string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		c.message(LevelError, "Please enter your name before starting.")
		return ErrEmptyUsername
	}
	t, ok := c.catalog.Lookup(track)
	if !ok {
		c.message(LevelError, fmt.Sprintf("Unknown interview track %q.", track))
		return fmt.Errorf("%w: %q", ErrUnknownTrack, track)
	}
	if c.session.Begin(username, t) {
		c.logger.Info("interview started", "track", t.Name, "questions", t.Len())
	}
	c.emitState()
	return nil
}

func (c *Controller) TogglePause() bool {
	paused := c.session.TogglePause()
	if paused {
		c.message(LevelInfo, "⏸ Interview paused.")
	} else {
		c.message(LevelInfo, "▶ Interview resumed.")
	}
	c.emitState()
	return paused
}

func (c *Controller) ToggleMute() bool {
	muted := c.session.ToggleMute()
	if muted {
		c.message(LevelInfo, "🔇 Audio muted.")
	} else {
		c.message(LevelInfo, "🔊 Audio unmuted.")
	}
	c.emitState()
	return muted
}

// End resets the session. A run blocked in a capture or playback finishes
// that call first and then stops without touching the fresh session.
func (c *Controller) End() {
	c.session.Reset()
	c.logger.Info("session reset")
	c.emitState()
}

// Run drives the interview to completion. A pause holds the run at the next
// step boundary. Runs are serialized: a Run that starts while an earlier one
// is still unwinding after End waits for it.
func (c *Controller) Run(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	epoch := c.session.currentEpoch()
	view := c.session.View()
	if !view.Started {
		return ErrNotStarted
	}
	if view.Completed {
		c.emitState()
		return nil
	}
	username, track := c.session.currentTrack()

	if !view.Greeted {
		greeting := Greeting(username, track.Name)
		c.utter(RoleInterviewer, greeting)
		c.say(ctx, greeting)
		if !c.session.markGreeted(epoch) {
			return nil
		}
	}

	for i := view.Index; i < track.Len(); {
		question := track.Questions[i]
		if !c.step(epoch, StateAskingQuestion, i) {
			return nil
		}
		c.events.Emit(Event{Type: EventProgress, Current: i + 1, Total: track.Len()})

		if ok, err := c.waitWhilePaused(ctx, epoch); !ok {
			return err
		}

		c.say(ctx, question)
		c.utter(RoleInterviewer, question)

		if !c.step(epoch, StateAwaitingAnswer, i) {
			return nil
		}
		answer := c.listen(ctx)
		if !c.session.alive(epoch) {
			return nil
		}
		if answer == "" && c.session.Paused() {
			i = c.interrupted(epoch, i)
			continue
		}

		if ok, err := c.waitWhilePaused(ctx, epoch); !ok {
			return err
		}
		if !c.step(epoch, StateRequestingFollowup, i) {
			return nil
		}
		followup, err := c.followup(ctx, answer)
		if err != nil {
			c.logger.Error("interview halted", "question", i+1, "err", err)
			return fmt.Errorf("%w: %v", ErrHalted, err)
		}

		if ok, err := c.waitWhilePaused(ctx, epoch); !ok {
			return err
		}
		if !c.step(epoch, StateSpeakingFollowup, i) {
			return nil
		}
		c.say(ctx, followup)
		c.utter(RoleInterviewer, followup)

		if ok, err := c.waitWhilePaused(ctx, epoch); !ok {
			return err
		}
		if !c.step(epoch, StateAwaitingFollowupAnswer, i) {
			return nil
		}
		followupAnswer := c.listen(ctx)
		if !c.session.alive(epoch) {
			return nil
		}
		if followupAnswer == "" && c.session.Paused() {
			i = c.interrupted(epoch, i)
			continue
		}

		record := TranscriptRecord{
			Question:       question,
			Answer:         answer,
			Followup:       followup,
			FollowupAnswer: followupAnswer,
		}
		if err := c.session.appendRecord(epoch, i+1, record); err != nil {
			if errors.Is(err, errSessionReset) {
				return nil
			}
			return err
		}
		c.events.Emit(Event{Type: EventRecord, Current: i + 1, Total: track.Len(), Record: &record})
		c.logger.Debug("record appended", "question", i+1)
		i++
	}

	if ok, err := c.waitWhilePaused(ctx, epoch); !ok {
		return err
	}
	if !c.step(epoch, StateFarewell, track.Len()) {
		return nil
	}
	farewell := Farewell(username)
	c.say(ctx, farewell)
	c.utter(RoleInterviewer, farewell)
	if !c.session.complete(epoch) {
		return nil
	}
	c.logger.Info("interview complete", "records", len(c.session.View().Transcript))
	c.message(LevelSuccess, "✅ Interview complete! You can now proceed to evaluation.")
	c.emitState()
	return nil
}

// Evaluate grades the completed transcript. Every call asks the model again.
func (c *Controller) Evaluate(ctx context.Context) (Report, error) {
	epoch := c.session.currentEpoch()
	view := c.session.View()
	if !view.Completed {
		c.message(LevelWarning, "⚠️ Finish the interview before requesting an evaluation.")
		return Report{}, ErrNotCompleted
	}
	if !c.step(epoch, StateEvaluationRequested, view.Index) {
		return Report{}, ErrNotCompleted
	}
	c.message(LevelInfo, "🔍 Evaluating your responses...")

	report, err := c.evaluator.Evaluate(ctx, view.Transcript)
	if err != nil {
		c.logger.Warn("evaluation completion failed", "err", err)
		c.message(LevelError, fmt.Sprintf("❌ OpenAI Error: %v", err))
	}
	if !c.session.storeScores(epoch, report.Scores) {
		return report, nil
	}
	c.events.Emit(Event{Type: EventEvaluation, Report: &report})
	c.emitState()

	if c.archiver != nil {
		if err := c.archiver.Archive(ctx, c.session.View(), report); err != nil {
			c.logger.Warn("report archive failed", "err", err)
			c.message(LevelWarning, "⚠️ Could not archive the evaluation report.")
		}
	}
	return report, nil
}

func (c *Controller) step(epoch uint64, state State, index int) bool {
	if !c.session.transition(epoch, state, index) {
		return false
	}
	c.emitState()
	return true
}

// interrupted applies the interrupt policy and returns the next index.
func (c *Controller) interrupted(epoch uint64, i int) int {
	c.logger.Debug("capture interrupted by pause", "question", i+1, "policy", c.policy.Interrupt)
	if c.policy.Interrupt == SkipQuestion {
		c.session.transition(epoch, StateAskingQuestion, i+1)
		return i + 1
	}
	return i
}

// waitWhilePaused polls the pause flag. It reports false when the run should
// stop, with the context error if that was the cause.
func (c *Controller) waitWhilePaused(ctx context.Context, epoch uint64) (bool, error) {
	warned := false
	for c.session.Paused() {
		if !c.session.alive(epoch) {
			return false, nil
		}
		if !warned {
			c.message(LevelWarning, "⏸ Interview is paused. Click the pause button to resume.")
			warned = true
		}
		t := time.NewTimer(c.policy.PausePoll)
		select {
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		case <-t.C:
		}
	}
	return c.session.alive(epoch), nil
}

func (c *Controller) say(ctx context.Context, text string) {
	if err := c.speaker.Speak(ctx, text); err != nil {
		c.logger.Warn("playback failed", "err", err)
		c.message(LevelError, fmt.Sprintf("❌ Error during playback: %v", err))
	}
}

func (c *Controller) listen(ctx context.Context) string {
	c.message(LevelInfo, "🎙 Listening... Please speak your answer.")
	text, err := c.capturer.Capture(ctx, c.policy.CaptureTimeout, c.policy.MaxPhrase)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = ErrUnintelligible
	}
	switch {
	case err == nil:
		c.message(LevelSuccess, "✅ You : "+text)
		c.utter(RoleCandidate, text)
		return text
	case errors.Is(err, ErrUnintelligible):
		c.message(LevelError, "❌ Could not understand the audio.")
	case errors.Is(err, ErrListenTimeout):
		c.message(LevelError, "❌ Listening timed out.")
	default:
		c.message(LevelError, fmt.Sprintf("❌ Error: %v", err))
	}
	c.logger.Debug("capture failed", "err", err)
	return ""
}

func (c *Controller) followup(ctx context.Context, answer string) (string, error) {
	text, err := c.completer.Complete(ctx, SystemPrompt, FollowupPrompt(answer))
	if err == nil {
		return text, nil
	}
	if c.policy.Halt != nil && c.policy.Halt(err) {
		return "", err
	}
	c.logger.Warn("follow-up completion failed", "err", err)
	c.message(LevelError, fmt.Sprintf("❌ OpenAI Error: %v", err))
	return c.policy.FallbackText, nil
}

func (c *Controller) message(level Level, text string) {
	c.events.Emit(Event{Type: EventMessage, Level: level, Text: text})
}

func (c *Controller) utter(role Role, text string) {
	c.events.Emit(Event{Type: EventUtterance, Role: role, Text: text})
}

func (c *Controller) emitState() {
	v := c.session.View()
	c.events.Emit(Event{Type: EventState, Session: &v})
}
