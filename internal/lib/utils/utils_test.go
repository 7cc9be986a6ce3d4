package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, "User created:", map[string]any{"email": "a@zenstack.dev"}))
	assert.Equal(t, "User created: {\n\t\"email\": \"a@zenstack.dev\"\n}\n", buf.String())

	buf.Reset()
	assert.Error(t, PrintJSON(&buf, "bad", make(chan int)))
	assert.Empty(t, buf.String())
}
