package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents fetch/network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeChallenge represents anti-bot challenge pages returned instead of content
	ErrorTypeChallenge ErrorType = "challenge"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeStore represents persistence errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError represents a pipeline error scoped to one listing source
type PipelineError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeStore:
		return true
	default:
		return false
	}
}

// New creates a new PipelineError
func New(errType ErrorType, source, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *PipelineError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewChallenge creates a new anti-bot challenge error
func NewChallenge(source string) *PipelineError {
	return New(ErrorTypeChallenge, source, "blocked by anti-bot challenge page", nil)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *PipelineError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *PipelineError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *PipelineError {
	return New(ErrorTypeCache, source, message, err)
}

// NewStore creates a new persistence error
func NewStore(message string, err error) *PipelineError {
	return New(ErrorTypeStore, "", message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *PipelineError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *PipelineError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsType reports whether err is a PipelineError of the given type
func IsType(err error, errType ErrorType) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type == errType
	}
	return false
}
