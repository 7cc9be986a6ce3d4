// Package utils contains small helper functions used across the project.
//
// These are usually generic helpers that don't belong to a specific domain.
package utils

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintJSON writes label followed by v as indented JSON.
//
// If the value contains unsupported types (channels, funcs, circular refs),
// the marshalling error is returned and nothing is written.
func PrintJSON(w io.Writer, label string, v any) error {
	out, err := json.MarshalIndent(v, "", "	")
	if err != nil {
		return fmt.Errorf("marshal %q: %w", label, err)
	}

	_, err = fmt.Fprintf(w, "%s %s\n", label, out)
	return err
}
