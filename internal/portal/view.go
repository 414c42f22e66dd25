package portal

import (
	"github.com/yoockh/careerportal/internal/models"
	"github.com/yoockh/careerportal/internal/providers/captcha"
)

// View is the single screen a session currently shows.
type View interface {
	Name() string
	isView()
}

type Listing struct{}

type DetailApply struct {
	Job   models.JobPosting
	Error string
}

type SubmittingInFlight struct {
	Job models.JobPosting
}

type Submitted struct {
	Role string
}

func (Listing) Name() string            { return "listing" }
func (DetailApply) Name() string        { return "detail_apply" }
func (SubmittingInFlight) Name() string { return "submitting" }
func (Submitted) Name() string          { return "submitted" }

func (Listing) isView()            {}
func (DetailApply) isView()        {}
func (SubmittingInFlight) isView() {}
func (Submitted) isView()          {}

// Widget is the verifier widget bound to the apply form, if any.
type Widget struct {
	ID        captcha.WidgetID
	Container string
}

// Snapshot is a read-only copy of a session's state for rendering.
type Snapshot struct {
	SessionID      string
	View           View
	Form           models.ApplicationForm
	VerifierLoaded bool
	Widget         *Widget

	// Pending is closed when the in-flight submission resolves; nil otherwise.
	Pending <-chan struct{}
}

func (s Snapshot) InFlight() bool {
	_, ok := s.View.(SubmittingInFlight)
	return ok
}
