// Package errs defines the error types returned by the data-access client.
//
// Its purpose is to give callers a small, stable set of error kinds
// (not found, validation, conflict, internal) regardless of which
// driver or dialect produced the underlying failure.
package errs
