// Package sqlerr specifically handles database driver errors.
//
// It parses cryptic error codes from the database driver and
// converts them into errs.Error values (e.g., converting
// a "unique violation" into a Conflict error).
package sqlerr
