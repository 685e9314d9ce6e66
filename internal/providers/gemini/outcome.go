package gemini

import "fmt"

// OutcomeKind tags the result of one logical model call.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	TransientFailure
	FatalFailure
	QuotaExceeded
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case TransientFailure:
		return "transient_failure"
	case FatalFailure:
		return "fatal_failure"
	case QuotaExceeded:
		return "quota_exceeded"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// QuotaMessage is what callers see in place of the provider's quota text.
const QuotaMessage = "QUOTA_EXCEEDED"

// Outcome is produced by Executor.Execute. Payload is only set on Success.
type Outcome struct {
	Kind     OutcomeKind
	Payload  any
	Message  string
	Attempts int
	// Overloaded is set when the final failure came from an exhausted
	// "overloaded" condition.
	Overloaded bool
	// Transport is set when the request never produced a response.
	Transport bool
	// Malformed is set when the response body was not JSON.
	Malformed bool
}

func (o Outcome) OK() bool { return o.Kind == Success }

// ErrorMessage renders the failure for a caller-facing error string.
func (o Outcome) ErrorMessage() string {
	switch o.Kind {
	case Success:
		return ""
	case QuotaExceeded:
		return QuotaMessage
	}
	return o.Message
}

func succeeded(payload any, attempts int) Outcome {
	return Outcome{Kind: Success, Payload: payload, Attempts: attempts}
}

func fatal(msg string, attempts int) Outcome {
	return Outcome{Kind: FatalFailure, Message: msg, Attempts: attempts}
}
