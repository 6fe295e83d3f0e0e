package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: User & Auth errors
// 12000-12999: Problem errors
// 13000-13999: Submission errors
// 14000-14999: Judge engine errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	RequiredFieldEmpty ErrorCode = 10303

	// ========== User & Auth Errors (11000-11999) ==========

	TokenExpired     ErrorCode = 11003
	TokenInvalid     ErrorCode = 11004
	UserUpdateFailed ErrorCode = 11200

	// ========== Problem Errors (12000-12999) ==========

	ProblemNotFound ErrorCode = 12000
	TestCaseInvalid ErrorCode = 12102

	// ========== Submission Errors (13000-13999) ==========

	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	CodeTooLarge           ErrorCode = 13002
	LanguageNotSupported   ErrorCode = 13003
	SubmitTooFrequently    ErrorCode = 13004

	// ========== Judge Engine Errors (14000-14999) ==========

	// Composition (14000-14099)
	DriverTemplateInvalid ErrorCode = 14000
	LiteralUnsupported    ErrorCode = 14001

	// Execution (14100-14199)
	ExecutionBackendError ErrorCode = 14100
	RuntimeError          ErrorCode = 14101
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	DatabaseError:  "Database operation failed",
	RecordNotFound: "Record not found in database",
	CacheError:     "Cache operation failed",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	RequiredFieldEmpty: "Required field is empty",

	// User & Auth
	TokenExpired:     "Token has expired",
	TokenInvalid:     "Invalid token",
	UserUpdateFailed: "Failed to update user",

	// Problem
	ProblemNotFound: "Problem not found",
	TestCaseInvalid: "Invalid test case format",

	// Submission
	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	CodeTooLarge:           "Code is too large",
	LanguageNotSupported:   "Programming language not supported",
	SubmitTooFrequently:    "Submitting too frequently, please wait",

	// Judge engine
	DriverTemplateInvalid: "Driver template is missing a required injection marker",
	LiteralUnsupported:    "Test case value cannot be rendered for this language",
	ExecutionBackendError: "Execution backend request failed",
	RuntimeError:          "Runtime error",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == ProblemNotFound, c == SubmissionNotFound:
		return 404
	case c == TooManyRequests, c == SubmitTooFrequently:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c == ExecutionBackendError:
		return 502
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == LanguageNotSupported, c == CodeTooLarge:
		return 400
	default:
		return 500
	}
}

// IsConfig reports whether the code belongs to the configuration error family:
// problems that are operator mistakes rather than user code failures.
func (c ErrorCode) IsConfig() bool {
	switch c {
	case LanguageNotSupported, TestCaseInvalid, DriverTemplateInvalid, LiteralUnsupported:
		return true
	}
	return false
}
