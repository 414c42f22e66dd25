package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/yoockh/careerportal/internal/models"
	"github.com/yoockh/careerportal/internal/utils"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s+()\-]+$`)
)

// FieldError is the first failing check of an application form.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// applicationInput is the submit-time view of a form. Field order is check
// order: the UI shows one message at a time.
type applicationInput struct {
	FirstName      string             `json:"firstName" validate:"notblank"`
	LastName       string             `json:"lastName" validate:"notblank"`
	Email          string             `json:"email" validate:"notblank,portal_email"`
	Phone          string             `json:"phone" validate:"omitempty,portal_phone"`
	LinkedIn       string             `json:"linkedin" validate:"omitempty,startswith=http"`
	WhyApply       string             `json:"whyApply" validate:"notblank"`
	Strengths      string             `json:"strengths" validate:"notblank"`
	TeamWork       string             `json:"teamWork" validate:"notblank"`
	AdaptQuickly   string             `json:"adaptQuickly" validate:"notblank"`
	CV             *models.Attachment `json:"cv" validate:"required"`
	RecaptchaToken string             `json:"recaptchaToken" validate:"required"`
}

// messages is keyed by "<field>.<tag>".
var messages = map[string]string{
	"firstName.notblank":      "First name is required",
	"lastName.notblank":       "Last name is required",
	"email.notblank":          "Email is required",
	"email.portal_email":      "Invalid email format",
	"phone.portal_phone":      "Invalid phone number format",
	"linkedin.startswith":     "LinkedIn URL must start with http:// or https://",
	"whyApply.notblank":       "Please answer why you applied",
	"strengths.notblank":      "Please describe your strengths and weaknesses",
	"teamWork.notblank":       "Please share your teamwork experience",
	"adaptQuickly.notblank":   "Please share your adaptation experience",
	"cv.required":             "CV/Resume is required",
	"recaptchaToken.required": "Please complete the reCAPTCHA verification",
}

var formValidator *validator.Validate

func init() {
	formValidator = validator.New()

	formValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = formValidator.RegisterValidation("notblank", validators.NotBlank)
	_ = formValidator.RegisterValidation("portal_email", matches(emailPattern))
	_ = formValidator.RegisterValidation("portal_phone", matches(phonePattern))
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// ValidateApplication returns nil when the form can be submitted, otherwise a
// *FieldError for the first failing check.
func ValidateApplication(f models.ApplicationForm) error {
	const op = "ValidateApplication"

	in := applicationInput{
		FirstName:      f.FirstName,
		LastName:       f.LastName,
		Email:          f.Email,
		Phone:          f.Phone,
		LinkedIn:       f.LinkedIn,
		WhyApply:       f.WhyApply,
		Strengths:      f.Strengths,
		TeamWork:       f.TeamWork,
		AdaptQuickly:   f.AdaptQuickly,
		CV:             f.CV,
		RecaptchaToken: f.VerificationToken,
	}

	err := formValidator.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return utils.E(utils.CodeInternal, op, "failed to validate application", err)
	}

	first := verrs[0]
	msg, ok := messages[first.Field()+"."+first.Tag()]
	if !ok {
		msg = "Invalid " + first.Field()
	}
	return &FieldError{Field: first.Field(), Message: msg}
}
