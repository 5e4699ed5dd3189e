package notify

import "fmt"

// PublishErrorCode classifies alert delivery failures.
type PublishErrorCode string

const (
	ErrBrokerUnavailable PublishErrorCode = "BROKER_UNAVAILABLE"
	ErrPublishTimeout    PublishErrorCode = "PUBLISH_TIMEOUT"
	ErrEncodeEvent       PublishErrorCode = "ENCODE_EVENT"
)

// PublishError is a structured error for delivery failures.
type PublishError struct {
	Code      PublishErrorCode
	Message   string
	Retryable bool
	Cause     error
}

func (e *PublishError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}
