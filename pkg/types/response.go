package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire shape of a failed request. RequestID echoes the
// X-Request-Id assigned by the router so a shopper report can be matched
// against the logs.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
