// Package validation contains the logic for validating
// entity data before it is written.
//
// It uses the `validator` library to enforce rules (like
// required fields or email formats) defined in struct tags
// and extracts validation errors into errs.FieldError values
// the caller can understand.
package validation
