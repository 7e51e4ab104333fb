package booking

import (
	"errors"
	"net/http"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamRejected    = errors.New("upstream rejected")
	ErrBadUpstreamResponse = errors.New("bad upstream response")
	ErrInternal            = errors.New("internal error")
)

const (
	msgInternal        = "Internal server error"
	msgCreateFailed    = "Failed to create booking"
	msgLinkUnavailable = "Failed to fetch link details"
	msgBadResponse     = "Invalid response from scheduling provider"
)

// Error is a booking failure carrying the HTTP status and the message shown
// to the caller.
type Error struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(message string) *Error {
	return &Error{Kind: ErrValidation, StatusCode: http.StatusBadRequest, Message: message}
}

func configurationError(message string) *Error {
	return &Error{Kind: ErrConfiguration, StatusCode: http.StatusInternalServerError, Message: message}
}

func upstreamUnavailable(message string, err error) *Error {
	return &Error{Kind: ErrUpstreamUnavailable, StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

func upstreamRejected(status int, message string) *Error {
	return &Error{Kind: ErrUpstreamRejected, StatusCode: status, Message: message}
}

func badUpstreamResponse(err error) *Error {
	return &Error{Kind: ErrBadUpstreamResponse, StatusCode: http.StatusBadGateway, Message: msgBadResponse, Err: err}
}

// HTTPStatus maps any error to the status code returned to the caller.
func HTTPStatus(err error) int {
	var bookingErr *Error
	if errors.As(err, &bookingErr) && bookingErr.StatusCode > 0 {
		return bookingErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Message maps any error to the message returned to the caller.
func Message(err error) string {
	var bookingErr *Error
	if errors.As(err, &bookingErr) && bookingErr.Message != "" {
		return bookingErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return msgInternal
}

// Outcome is the metrics label of a booking result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrUpstreamRejected):
		return "upstream_rejected"
	case errors.Is(err, ErrBadUpstreamResponse):
		return "bad_upstream_response"
	default:
		return "internal_error"
	}
}
