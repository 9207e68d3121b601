package errors

const (
	HttpInternalError     = "internal_error"
	HttpInvalidJsonError  = "invalid_json"
	HttpValidationError   = "validation_failed"
	HttpRuleNotFoundError = "rule_not_found"
	HttpDuplicateRule     = "duplicate_rule"
)

// ErrorResponse is the error response body for API errors. Validation
// failures carry the field-to-reason map in Details.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
