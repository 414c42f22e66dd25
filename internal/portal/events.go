package portal

import (
	"github.com/yoockh/careerportal/internal/models"
)

// Event is a discrete input to a Controller.
type Event interface {
	isEvent()
}

type (
	// Refresh changes nothing and returns the current snapshot.
	Refresh   struct{}
	SelectJob struct{ ID string }
	Back      struct{}
	Dismiss   struct{}
	SetFields struct{ Values map[string]string }
	// AttachFile carries either a loaded file or the intake error that
	// stopped it from loading.
	AttachFile struct {
		Kind models.FileKind
		File *models.Attachment
		Err  error
	}
	RemoveFile     struct{ Kind models.FileKind }
	VerifierLoaded struct{}
	TokenVerified  struct{ Token string }
	TokenExpired   struct{}
	VerifierFailed struct{}
	Submit         struct{}

	submissionResolved struct {
		err error
	}
)

func (Refresh) isEvent()            {}
func (SelectJob) isEvent()          {}
func (Back) isEvent()               {}
func (Dismiss) isEvent()            {}
func (SetFields) isEvent()          {}
func (AttachFile) isEvent()         {}
func (RemoveFile) isEvent()         {}
func (VerifierLoaded) isEvent()     {}
func (TokenVerified) isEvent()      {}
func (TokenExpired) isEvent()       {}
func (VerifierFailed) isEvent()     {}
func (Submit) isEvent()             {}
func (submissionResolved) isEvent() {}
