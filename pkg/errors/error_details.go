package errors

import stderrors "errors"

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-defined error message.
	// E.g. "price is not a multiple of tick size".
	Message string

	// Code (required) is the error code string, one of the ErrorCode constants.
	// E.g. "invalid_tick_size".
	Code string

	// Category places the error in the taxonomy callers branch on.
	Category Category

	// Field (optional) is the related field the error occurred on, if any.
	Field string

	// Object (optional) is the related object the error occured on, if any.
	Object interface{}
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{
		Message:  message,
		Code:     code,
		Field:    field,
		Category: CategoryUnknown,
	}
}

// NewErrorDetailsWithObject creates a new ErrorDetails struct with an associated object.
func NewErrorDetailsWithObject(message, code, field string, object interface{}) *ErrorDetails {
	return &ErrorDetails{
		Message:  message,
		Code:     code,
		Field:    field,
		Object:   object,
		Category: CategoryUnknown,
	}
}

func newCategorized(category Category, code ErrorCode, message, field string) *ErrorDetails {
	return &ErrorDetails{
		Message:  message,
		Code:     string(code),
		Field:    field,
		Category: category,
	}
}

// NewValidationError builds a validation error for field.
func NewValidationError(code ErrorCode, message, field string) *ErrorDetails {
	return newCategorized(CategoryValidation, code, message, field)
}

// NewAuthorizationError builds an authorization error.
func NewAuthorizationError(code ErrorCode, message string) *ErrorDetails {
	return newCategorized(CategoryAuthorization, code, message, "")
}

// NewStateError builds a state transition error.
func NewStateError(code ErrorCode, message string) *ErrorDetails {
	return newCategorized(CategoryState, code, message, "")
}

// NewNotFoundError builds a not found error.
func NewNotFoundError(code ErrorCode, message string) *ErrorDetails {
	return newCategorized(CategoryNotFound, code, message, "")
}

// NewExpiryError builds an expiry error.
func NewExpiryError(code ErrorCode, message string) *ErrorDetails {
	return newCategorized(CategoryExpiry, code, message, "")
}

// NewFatalError builds an unrecoverable error.
func NewFatalError(code ErrorCode, message string) *ErrorDetails {
	return newCategorized(CategoryFatal, code, message, "")
}

// Error() is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	return e.Message
}

// Is matches another *ErrorDetails carrying the same code, so sentinel comparisons work with errors.Is.
func (e *ErrorDetails) Is(target error) bool {
	t, ok := target.(*ErrorDetails)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrorCodeEquals checks whether a given `error` has a specific code.
func ErrorCodeEquals(err error, code ErrorCode) bool {
	var details *ErrorDetails
	if !stderrors.As(err, &details) {
		return false
	}

	return details.Code == string(code)
}

// CategoryOf returns the category of the first ErrorDetails found in err's chain.
func CategoryOf(err error) Category {
	var details *ErrorDetails
	if !stderrors.As(err, &details) {
		return CategoryUnknown
	}
	return details.Category
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CategoryOf(err) == CategoryValidation }

// IsAuthorization reports whether err is an authorization error.
func IsAuthorization(err error) bool { return CategoryOf(err) == CategoryAuthorization }

// IsState reports whether err is a state error.
func IsState(err error) bool { return CategoryOf(err) == CategoryState }

// IsNotFound reports whether err is a not found error.
func IsNotFound(err error) bool { return CategoryOf(err) == CategoryNotFound }

// IsExpiry reports whether err is an expiry error.
func IsExpiry(err error) bool { return CategoryOf(err) == CategoryExpiry }

// IsFatal reports whether err is a fatal error.
func IsFatal(err error) bool { return CategoryOf(err) == CategoryFatal }
