package vdl2

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Capture what command prints on stdout.  Diagnostics go to stderr
// through the logger and are not captured.
func CaptureOutput(t *testing.T, command func()) string {
	t.Helper()

	var oldStdout = os.Stdout
	defer func() {
		os.Stdout = oldStdout
	}()

	var r, w, pipeErr = os.Pipe()
	require.NoError(t, pipeErr)

	os.Stdout = w

	// Read while the command runs so a chatty command can't fill the pipe.
	var done = make(chan []byte)
	go func() {
		var b, _ = io.ReadAll(r)
		done <- b
	}()

	command()

	w.Close() //nolint:gosec

	os.Stdout = oldStdout

	return string(<-done)
}

func AssertOutputContains(t *testing.T, command func(), expectedOutputContains string) {
	t.Helper()

	assert.Contains(t, CaptureOutput(t, command), expectedOutputContains)
}
