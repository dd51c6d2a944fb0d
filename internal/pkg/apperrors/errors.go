package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrAccountDisabled    = errors.New("account is disabled")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
	ErrInvalidFormat    = errors.New("invalid format")
)

// Admission errors
var (
	ErrApplicationNotFound = NewCustomError(ErrResourceNotFound, "application not found")
	// ErrDuplicateApplication is returned when the contact email already owns an application.
	ErrDuplicateApplication = NewCustomError(ErrResourceAlreadyExists, "an application already exists for this email")
	// ErrStageLocked is returned when a stage is requested before the previous one is complete.
	ErrStageLocked = NewCustomError(ErrConflict, "this stage is not available yet")
	// ErrApplicationClosed is returned for edits after the application has completed.
	ErrApplicationClosed = NewCustomError(ErrConflict, "application is already completed")
	ErrCNICAlreadyUsed   = NewCustomError(ErrResourceAlreadyExists, "this CNIC is already registered with another application")
)

// Payment errors
var (
	ErrPaymentDeclined = errors.New("payment declined")
	ErrPaymentNotFound = NewCustomError(ErrResourceNotFound, "payment not found")
)

// Staff errors
var (
	ErrStaffNotFound      = NewCustomError(ErrResourceNotFound, "staff user not found")
	ErrStaffAlreadyExists = NewCustomError(ErrResourceAlreadyExists, "staff user with this email already exists")
	ErrProgramNotFound    = NewCustomError(ErrResourceNotFound, "program not found")
	ErrCriteriaNotFound   = NewCustomError(ErrResourceNotFound, "admission criteria not found")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError creates a validation failure carrying a user-facing
// message and optional per-field messages keyed by input field name.
func NewValidationError(message string, fields map[string]string) error {
	e := &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
	if len(fields) > 0 {
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		e.Details = details
	}
	return e
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails returns a copy of the error carrying details, so package-level
// sentinels can be decorated per request without being mutated.
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	c := *e
	c.Details = details
	return &c
}

// Is lets a decorated copy still match the sentinel it was copied from.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Err == e.Err && t.Message == e.Message
}

// AsCustom returns the outermost CustomError in err's chain, if any.
func AsCustom(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
