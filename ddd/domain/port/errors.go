package port

import (
	"fmt"
	"strings"
)

// EncodeError reports a non-zero encoder exit, carrying the diagnostic tail
// of the process output. Spawn failures (missing binary, permissions) are NOT
// wrapped into EncodeError so callers can tell them apart.
type EncodeError struct {
	ExitCode int
	Output   string
}

func (e *EncodeError) Error() string {
	if strings.TrimSpace(e.Output) == "" {
		return fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, e.Output)
}
