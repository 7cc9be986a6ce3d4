// Package service contains the business logic.
//
// It sits on top of the repository layer: it builds the configured client
// (computed fields, procedures, plugins, auth), and runs the demo scenario
// against the repositories, printing each result.
package service
