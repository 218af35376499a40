package sharepoint

import (
	"io"
	"log/slog"
	"testing"
)

// testLogger returns a logger that discards output. Log content is not
// asserted on; tests assert on behavior.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
