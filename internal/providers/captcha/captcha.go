package captcha

import "errors"

type WidgetID int

type Outcome string

const (
	OutcomeVerified Outcome = "verified"
	OutcomeExpired  Outcome = "expired"
	OutcomeError    Outcome = "error"
)

// Callbacks receive the widget's outcomes. They may run on any goroutine.
type Callbacks struct {
	OnVerified func(token string)
	OnExpired  func()
	OnError    func()
}

// Provider is one session's handle on the challenge widget.
type Provider interface {
	// EnsureLoaded makes sure the library script is injected and reports
	// whether it has finished loading.
	EnsureLoaded() bool
	// OnLoad runs fn once the library is loaded (immediately if it already is).
	OnLoad(fn func())
	// Render binds a widget to container. Rendering an already bound
	// container returns the existing id.
	Render(container string, cb Callbacks) (WidgetID, error)
	// Reset clears the widget's token. Unknown ids are a no-op.
	Reset(id WidgetID) error
	// Release unbinds container so the next Render creates a fresh widget.
	Release(container string)
	Close() error
}

// Deliverer accepts outcomes reported by the browser for a bound container.
type Deliverer interface {
	Deliver(container string, outcome Outcome, token string) error
}

var (
	ErrNotLoaded      = errors.New("captcha library not loaded")
	ErrClosed         = errors.New("captcha provider closed")
	ErrUnknownWidget  = errors.New("unknown captcha widget")
	ErrUnknownOutcome = errors.New("unknown captcha outcome")
	ErrEmptyToken     = errors.New("empty captcha token")
)
