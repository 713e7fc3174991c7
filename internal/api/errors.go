package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GenericErrorMessage is shown when the server did not provide a usable
// message (network failures, malformed error bodies).
const GenericErrorMessage = "Something went wrong. Please try again."

// Error is a server-rejected request (4xx/5xx). The message is extracted
// from the response body's "message" or "errors" field; budget-limit
// violations carry a budget_exceeded flag routing them to a dedicated
// "Transaction Blocked" surface instead of the generic failure path.
type Error struct {
	StatusCode     int
	Message        string
	Errors         map[string][]string
	BudgetExceeded bool
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericErrorMessage
}

// IsUnauthorized reports whether the response demands a global session
// teardown rather than per-form handling.
func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Message        string              `json:"message"`
	Errors         map[string][]string `json:"errors"`
	BudgetExceeded bool                `json:"budget_exceeded"`
}

// parseError builds an Error from a non-2xx response body. A body that is
// not valid JSON still yields a usable Error with the generic message.
func parseError(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apiErr
	}

	apiErr.Errors = eb.Errors
	apiErr.BudgetExceeded = eb.BudgetExceeded
	apiErr.Message = eb.Message
	if apiErr.Message == "" && len(eb.Errors) > 0 {
		apiErr.Message = firstValidationMessage(eb.Errors)
	}
	return apiErr
}

// firstValidationMessage picks one displayable line out of a field→messages
// validation map.
func firstValidationMessage(errs map[string][]string) string {
	for _, msgs := range errs {
		for _, m := range msgs {
			if strings.TrimSpace(m) != "" {
				return m
			}
		}
	}
	return ""
}

// AsError unwraps an *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsBudgetExceeded reports whether err is a budget-limit violation.
func IsBudgetExceeded(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.BudgetExceeded
}

// netError wraps transport-level failures so callers can distinguish them
// from server rejections: the mutation is considered not-applied and the
// form state is preserved for retry.
type netError struct {
	op  string
	err error
}

func (e *netError) Error() string {
	return fmt.Sprintf("%s: %s", e.op, GenericErrorMessage)
}

func (e *netError) Unwrap() error { return e.err }

// IsNetworkError reports whether err was a transport failure rather than a
// server rejection.
func IsNetworkError(err error) bool {
	var ne *netError
	return errors.As(err, &ne)
}
