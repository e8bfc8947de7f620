// Package flow sequences the user through the scan-to-cooking journey as an
// explicit state machine, so illegal moves (entering cooking with no active
// session, say) are rejected instead of silently entered.
package flow

import (
	"errors"
	"fmt"
	"sync"
)

// Step is one screen of the journey.
type Step string

const (
	StepHero        Step = "hero"
	StepHistory     Step = "history"
	StepUpload      Step = "upload"
	StepScanning    Step = "scanning"
	StepIngredients Step = "ingredients"
	StepPreferences Step = "preferences"
	StepGenerating  Step = "generating"
	StepRecipes     Step = "recipes"
	StepCooking     Step = "cooking"
)

// Event is a user intent or pipeline resolution that moves the machine.
type Event string

const (
	EventStartScan    Event = "start"        // go to upload and begin a new scan
	EventViewHistory  Event = "history"      // hero -> history
	EventSubmitMedia  Event = "submit"       // media submitted, scan in flight
	EventContinue     Event = "continue"     // ingredients -> preferences
	EventRescan       Event = "rescan"       // ingredients -> upload
	EventSelectRecipe Event = "select"       // recipes -> cooking
	EventRegenerate   Event = "regenerate"   // recipes -> preferences
	EventBack         Event = "back"         // fixed predecessor map
)

var (
	ErrInvalidTransition = errors.New("invalid flow transition")
	ErrNoActiveSession   = errors.New("no active session")
	ErrNoHistory         = errors.New("no sessions in history")
)

// SessionSource answers the guard questions the machine needs: is a session
// active, and does any history exist.
type SessionSource interface {
	ActiveID() string
	Len() int
}

// backMap gives each step its fixed predecessor for the generic back action.
var backMap = map[Step]Step{
	StepHistory:     StepHero,
	StepUpload:      StepHero,
	StepIngredients: StepUpload,
	StepPreferences: StepIngredients,
	StepRecipes:     StepPreferences,
	StepCooking:     StepRecipes,
}

// sessionSteps are the steps that must not be entered without an active
// session.
var sessionSteps = map[Step]bool{
	StepIngredients: true,
	StepPreferences: true,
	StepRecipes:     true,
	StepCooking:     true,
}

// Controller is the single process-wide flow machine. It starts at hero.
type Controller struct {
	mu       sync.Mutex
	step     Step
	lastErr  string
	sessions SessionSource
}

// NewController returns a controller at the initial step.
func NewController(sessions SessionSource) *Controller {
	return &Controller{step: StepHero, sessions: sessions}
}

// Step returns the current step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// LastError returns the error surfaced by the most recent failed scan or
// generation, cleared when a new attempt starts.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Apply runs a user-triggered event through the transition table.
func (c *Controller) Apply(event Event) (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event {
	case EventStartScan:
		// A new scan can begin from any resting step.
		switch c.step {
		case StepHero, StepHistory, StepUpload, StepIngredients, StepRecipes:
			return c.enter(StepUpload)
		}
	case EventViewHistory:
		if c.step == StepHero {
			if c.sessions.Len() == 0 {
				return c.step, ErrNoHistory
			}
			return c.enter(StepHistory)
		}
	case EventSubmitMedia:
		// Spec-wise the submission happens on upload; in practice the client
		// may post media without an explicit start event first, so the same
		// resting steps are accepted.
		switch c.step {
		case StepHero, StepHistory, StepUpload, StepIngredients, StepRecipes:
			c.lastErr = ""
			return c.enter(StepScanning)
		}
	case EventContinue:
		if c.step == StepIngredients {
			return c.enter(StepPreferences)
		}
	case EventRescan:
		if c.step == StepIngredients {
			return c.enter(StepUpload)
		}
	case EventSelectRecipe:
		if c.step == StepRecipes {
			return c.enter(StepCooking)
		}
	case EventRegenerate:
		if c.step == StepRecipes {
			return c.enter(StepPreferences)
		}
	case EventBack:
		if prev, ok := backMap[c.step]; ok {
			return c.enter(prev)
		}
		return c.step, nil // hero has no predecessor
	default:
		return c.step, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, event)
	}

	return c.step, fmt.Errorf("%w: %q from step %q", ErrInvalidTransition, event, c.step)
}

// ScanResolved moves the machine out of scanning: to ingredients on success,
// back to upload with a surfaced error on failure.
func (c *Controller) ScanResolved(err error) Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepScanning {
		return c.step // stale resolution, view moved on
	}
	if err != nil {
		c.lastErr = err.Error()
		c.step = StepUpload
		return c.step
	}
	c.lastErr = ""
	c.step = StepIngredients
	return c.step
}

// BeginGenerate moves preferences -> generating.
func (c *Controller) BeginGenerate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepPreferences {
		return fmt.Errorf("%w: generate from step %q", ErrInvalidTransition, c.step)
	}
	if c.sessions.ActiveID() == "" {
		return ErrNoActiveSession
	}
	c.lastErr = ""
	c.step = StepGenerating
	return nil
}

// GenerateResolved moves the machine out of generating: to recipes on
// success, back to preferences with a surfaced error on failure.
func (c *Controller) GenerateResolved(err error) Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepGenerating {
		return c.step
	}
	if err != nil {
		c.lastErr = err.Error()
		c.step = StepPreferences
		return c.step
	}
	c.lastErr = ""
	c.step = StepRecipes
	return c.step
}

// LoadSession lands on recipes when the loaded session already has recipes,
// otherwise on ingredients. The caller has already made the session active.
func (c *Controller) LoadSession(hasRecipes bool) (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if hasRecipes {
		return c.enter(StepRecipes)
	}
	return c.enter(StepIngredients)
}

// ActiveDeleted reacts to the active session being removed: the steps that
// need a session are no longer tenable, so the machine returns to history.
func (c *Controller) ActiveDeleted() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = StepHistory
	return c.step
}

// enter applies the session guard and commits the step. Callers hold c.mu.
func (c *Controller) enter(next Step) (Step, error) {
	if sessionSteps[next] && c.sessions.ActiveID() == "" {
		return c.step, fmt.Errorf("%w: step %q", ErrNoActiveSession, next)
	}
	c.step = next
	return c.step, nil
}
