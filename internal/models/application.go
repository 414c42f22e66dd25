package models

import "time"

type OfficeWork string

const (
	OfficeWorkYes OfficeWork = "Yes"
	OfficeWorkNo  OfficeWork = "No"
)

func (o OfficeWork) Valid() bool { return o == OfficeWorkYes || o == OfficeWorkNo }

type FileKind string

const (
	FileKindCV    FileKind = "cv"
	FileKindVideo FileKind = "video"
)

// Attachment is an uploaded file held in memory until the application is sent.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

// ApplicationForm is the per-session apply state. The zero value is not the
// initial state; use NewApplicationForm.
type ApplicationForm struct {
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	LinkedIn     string     `json:"linkedin"`
	WhyApply     string     `json:"whyApply"`
	Strengths    string     `json:"strengths"`
	TeamWork     string     `json:"teamWork"`
	AdaptQuickly string     `json:"adaptQuickly"`
	OfficeWork   OfficeWork `json:"officeWork"`

	CV    *Attachment `json:"cv,omitempty"`
	Video *Attachment `json:"video,omitempty"`

	VerificationToken string `json:"-"`
}

func NewApplicationForm() ApplicationForm {
	return ApplicationForm{OfficeWork: OfficeWorkYes}
}

// Field names as they appear on the wire and in HTML forms.
const (
	FieldFirstName    = "firstName"
	FieldLastName     = "lastName"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldLinkedIn     = "linkedin"
	FieldWhyApply     = "whyApply"
	FieldStrengths    = "strengths"
	FieldTeamWork     = "teamWork"
	FieldAdaptQuickly = "adaptQuickly"
	FieldOfficeWork   = "officeWork"
)

// TextFields lists the scalar fields in submission order.
var TextFields = []string{
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldPhone,
	FieldLinkedIn,
	FieldWhyApply,
	FieldStrengths,
	FieldTeamWork,
	FieldAdaptQuickly,
	FieldOfficeWork,
}

// Get returns the value of a scalar field by wire name.
func (f *ApplicationForm) Get(name string) (string, bool) {
	switch name {
	case FieldFirstName:
		return f.FirstName, true
	case FieldLastName:
		return f.LastName, true
	case FieldEmail:
		return f.Email, true
	case FieldPhone:
		return f.Phone, true
	case FieldLinkedIn:
		return f.LinkedIn, true
	case FieldWhyApply:
		return f.WhyApply, true
	case FieldStrengths:
		return f.Strengths, true
	case FieldTeamWork:
		return f.TeamWork, true
	case FieldAdaptQuickly:
		return f.AdaptQuickly, true
	case FieldOfficeWork:
		return string(f.OfficeWork), true
	}
	return "", false
}

// Set assigns a scalar field by wire name. Unknown names and office work
// values other than Yes/No are ignored and reported as false.
func (f *ApplicationForm) Set(name, value string) bool {
	switch name {
	case FieldFirstName:
		f.FirstName = value
	case FieldLastName:
		f.LastName = value
	case FieldEmail:
		f.Email = value
	case FieldPhone:
		f.Phone = value
	case FieldLinkedIn:
		f.LinkedIn = value
	case FieldWhyApply:
		f.WhyApply = value
	case FieldStrengths:
		f.Strengths = value
	case FieldTeamWork:
		f.TeamWork = value
	case FieldAdaptQuickly:
		f.AdaptQuickly = value
	case FieldOfficeWork:
		ow := OfficeWork(value)
		if !ow.Valid() {
			return false
		}
		f.OfficeWork = ow
	default:
		return false
	}
	return true
}

// Attach replaces the held file of the given kind; the previous one is dropped.
func (f *ApplicationForm) Attach(kind FileKind, a *Attachment) {
	switch kind {
	case FileKindCV:
		f.CV = a
	case FileKindVideo:
		f.Video = a
	}
}

func (f *ApplicationForm) Remove(kind FileKind) { f.Attach(kind, nil) }

// Application is the payload sent to the submission endpoint.
type Application struct {
	Form        ApplicationForm
	Job         JobPosting
	SubmittedAt time.Time
}
