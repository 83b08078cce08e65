// Package generation declares the pipeline for every document type and runs
// requests through them: it validates the request, loads the user, builds
// the initial state and stores the finished document.
package generation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/application-agent/internal/state"
)

var (
	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUserNotFound is returned when the store has no such user.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoResume is returned for resume work when the user has no resume.
	ErrNoResume = errors.New("no resume found for user")
)

// Request is one generation request.
type Request struct {
	UserID             string             `json:"user_id" validate:"required,max=128"`
	JobDescription     string             `json:"job_description" validate:"required"`
	CompanyName        string             `json:"company_name" validate:"required,max=200"`
	DocumentType       state.DocumentType `json:"document_type" validate:"required,oneof=cover_letter cold_email resume_customization resume_suggestions"`
	JobTitle           string             `json:"job_title,omitempty" validate:"max=200"`
	CustomInstructions string             `json:"custom_instructions,omitempty" validate:"max=2000"`
	HRName             string             `json:"hr_name,omitempty" validate:"max=200"`

	// ResumeText and Profile stand in for stored user data. Stored values
	// win when the service has a store.
	ResumeText string        `json:"resume_text,omitempty"`
	Profile    state.Profile `json:"-"`
}

var validate = validator.New()

// Validate checks the request fields. Failures wrap ErrInvalidRequest and
// name the first offending field.
func (r *Request) Validate() error {
	r.JobDescription = strings.TrimSpace(r.JobDescription)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
	return err.Error()
}

func (r Request) inputs() state.Inputs {
	return state.Inputs{
		UserID:             r.UserID,
		JobDescription:     r.JobDescription,
		CompanyName:        r.CompanyName,
		JobTitle:           strings.TrimSpace(r.JobTitle),
		DocumentType:       r.DocumentType,
		CustomInstructions: strings.TrimSpace(r.CustomInstructions),
		HRName:             strings.TrimSpace(r.HRName),
		ResumeText:         r.ResumeText,
		Profile:            r.Profile,
	}
}

func needsResume(t state.DocumentType) bool {
	return t == state.ResumeCustomization || t == state.ResumeSuggestions
}
