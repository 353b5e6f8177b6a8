// Package types holds the JSON envelopes shared by every ledger API response.
// Successes wrap their payload under "data"; failures carry a code, a public
// message, and optional structured details under "error".
package types

// SuccessEnvelope wraps a successful response payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a failed request. Details is only populated
// for codes whose metadata allows it, such as validation field errors.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewErrorEnvelope builds an error envelope for the given code and public
// message. Details stay nil until the caller decides they may be exposed.
func NewErrorEnvelope(code, message string) ErrorEnvelope {
	return ErrorEnvelope{Error: APIError{Code: code, Message: message}}
}
