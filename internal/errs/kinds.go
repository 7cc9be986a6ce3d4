package errs

// NewNotFoundError creates a KindNotFound error.
//
// code is optional; when nil it defaults to "NOT_FOUND".
func NewNotFoundError(message string, code *string) *Error {
	formattedCode := MakeUpperCaseWithUnderscores("not found")
	if code != nil {
		formattedCode = *code
	}

	return &Error{
		Kind:    KindNotFound,
		Code:    formattedCode,
		Message: message,
	}
}

// NewValidationError creates a KindValidation error.
//
// This supports extra payload:
//   - code: optional custom code string (if nil, defaults to "VALIDATION_FAILED")
//   - fields: optional slice of field errors
func NewValidationError(message string, code *string, fields []FieldError) *Error {
	formattedCode := MakeUpperCaseWithUnderscores("validation failed")
	if code != nil {
		formattedCode = *code
	}

	return &Error{
		Kind:    KindValidation,
		Code:    formattedCode,
		Message: message,
		Fields:  fields,
	}
}

// NewConflictError creates a KindConflict error (unique or foreign key violations).
func NewConflictError(message string, code *string) *Error {
	formattedCode := MakeUpperCaseWithUnderscores("conflict")
	if code != nil {
		formattedCode = *code
	}

	return &Error{
		Kind:    KindConflict,
		Code:    formattedCode,
		Message: message,
	}
}

// NewInternalError creates a KindInternal error.
//
// The message stays generic; the real cause is reachable through errors.Unwrap.
func NewInternalError(cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    MakeUpperCaseWithUnderscores("internal error"),
		Message: "internal error: " + causeText(cause),
		cause:   cause,
	}
}

func causeText(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}
