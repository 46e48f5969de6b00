package sessions

import (
	"errors"
	"fmt"
)

var (
	ErrSessionActive   = errors.New("session already active")
	ErrSessionInactive = errors.New("session not active")
)

// ErrorType error severity
type ErrorType int

const (
	// ErrorTypeFatal ends the session
	ErrorTypeFatal ErrorType = iota
	// ErrorTypeRecoverable surfaces a notice and resumes listening
	ErrorTypeRecoverable
	// ErrorTypeTransient may be retried once
	ErrorTypeTransient
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeFatal:
		return "fatal"
	case ErrorTypeRecoverable:
		return "recoverable"
	case ErrorTypeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Kind names where in a turn the failure happened.
type Kind string

const (
	KindAcquisition   Kind = "acquisition"
	KindTranscription Kind = "transcription"
	KindDialogue      Kind = "dialogue"
	KindSynthesis     Kind = "synthesis"
	KindPlayback      Kind = "playback"
	KindRateLimit     Kind = "rate_limit"
)

// Error unified session error
type Error struct {
	Type    ErrorType
	Kind    Kind
	Service string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Service, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Service, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Notice is the system message shown to the user for this error.
func (e *Error) Notice() string {
	switch e.Kind {
	case KindRateLimit:
		return "Daily limit reached. Conversation stopped, please try again later."
	case KindAcquisition:
		return "Microphone unavailable. Check the device and permissions."
	default:
		return fmt.Sprintf("Sorry, the %s service failed. Please try speaking again.", e.Service)
	}
}

// IsRateLimit reports whether err is a session error of kind rate limit.
func IsRateLimit(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRateLimit
}

// IsAcquisition reports whether err is a microphone acquisition failure.
func IsAcquisition(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAcquisition
}

func NewAcquisitionError(err error) *Error {
	return &Error{
		Type:    ErrorTypeFatal,
		Kind:    KindAcquisition,
		Service: "microphone",
		Message: "failed to acquire audio input",
		Err:     err,
	}
}

func NewRateLimitError(service, message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeFatal,
		Kind:    KindRateLimit,
		Service: service,
		Message: message,
		Err:     err,
	}
}

func NewRecoverableError(kind Kind, message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeRecoverable,
		Kind:    kind,
		Service: kind.Service(),
		Message: message,
		Err:     err,
	}
}

func NewTransientError(kind Kind, message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeTransient,
		Kind:    kind,
		Service: kind.Service(),
		Message: message,
		Err:     err,
	}
}

// Service is the collaborator responsible for a kind of failure.
func (k Kind) Service() string {
	switch k {
	case KindTranscription:
		return "transcriber"
	case KindDialogue:
		return "dialogue"
	case KindSynthesis:
		return "synthesizer"
	case KindPlayback:
		return "player"
	case KindAcquisition:
		return "microphone"
	default:
		return string(k)
	}
}
