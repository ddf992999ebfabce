package analysis

import (
	"errors"
	"fmt"
)

// Status is the triage level assigned to a turn. The zero value means no
// status has been observed yet.
type Status string

const (
	StatusNone  Status = ""
	StatusGreen Status = "GREEN"
	StatusAmber Status = "AMBER"
	StatusRed   Status = "RED"
)

// ParseStatus validates a raw status string from the service.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusGreen, StatusAmber, StatusRed:
		return Status(s), nil
	}
	return StatusNone, fmt.Errorf("unknown triage status %q", s)
}

// ContextProfile is the service's estimate of who is speaking and how.
type ContextProfile struct {
	AgeGroup           string `json:"estimated_age_group"`
	CommunicationStyle string `json:"communication_style"`
	ToneAdaptation     string `json:"tone_adaptation"`
}

// TurnResult is the validated output of one analysis call. Status is the only
// field the service must provide; everything else is defaulted at the parse
// boundary so consumers never branch on absence.
type TurnResult struct {
	Transcription string
	Status        Status
	Markers       []string
	Rationale     []string

	StressScore int // 0-100
	Intent      string
	Mismatch    bool
	Sentiment   string

	Confidence      string // "High", "Medium" or "Low"
	EmotionalTone   string
	UncertaintyNote string

	SuggestedScript string
	NextSteps       []string

	Context ContextProfile
}

// ErrNoAudio is returned when Analyze is invoked without an audio payload.
// It is user-correctable and causes no outbound request.
var ErrNoAudio = errors.New("analysis: no audio payload provided")

// Kind classifies an analysis failure.
type Kind int

const (
	// KindServiceFailure covers transport errors, timeouts and non-2xx
	// responses from the service. Retryable by the user.
	KindServiceFailure Kind = iota + 1
	// KindMalformedResponse covers responses that could not be decoded into a
	// well-formed result, including a missing or unknown triage status.
	KindMalformedResponse
)

// Error is a failed analysis call. Callers must treat any Error as a complete
// no-op on session state.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServiceFailure:
		return fmt.Sprintf("analysis service failure: %v", e.cause)
	case KindMalformedResponse:
		return fmt.Sprintf("analysis response malformed: %v", e.cause)
	}
	return fmt.Sprintf("analysis error: %v", e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func serviceFailure(format string, args ...any) *Error {
	return &Error{Kind: KindServiceFailure, cause: fmt.Errorf(format, args...)}
}

func malformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedResponse, cause: fmt.Errorf(format, args...)}
}

// IsServiceFailure reports whether err is a retryable service-side failure.
func IsServiceFailure(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindServiceFailure
}

// IsMalformedResponse reports whether err is a schema-validation failure.
func IsMalformedResponse(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindMalformedResponse
}
