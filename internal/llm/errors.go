package llm

import "fmt"

// APICallError is returned when the provider call itself fails.
type APICallError struct {
	Provider Provider
	Model    string
	Cause    error
}

func (e *APICallError) Error() string {
	return fmt.Sprintf("%s call to %s failed: %v", e.Provider, e.Model, e.Cause)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError is returned when no JSON object can be recovered from a reply.
type ParseError struct {
	Message string
	// Excerpt is the start of the offending reply, kept for logs.
	Excerpt string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to parse model reply: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to parse model reply: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
