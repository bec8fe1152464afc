// Package export writes flattened tables to disk and downstream stores. A run
// is the unit of output: every artifact of one pipeline invocation lands in
// one timestamped run directory, alongside its manifest and key-filter
// sidecar.
package export

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunContext identifies one pipeline invocation. It is immutable after
// creation and threaded through export, manifest and publish.
type RunContext struct {
	Trial     string
	RunID     string
	StartedAt string
}

// startedAtLayout renders UTC timestamps like 20260823T141503Z.
const startedAtLayout = "20060102T150405Z"

// NewRunContext creates a run context with a fresh run id and the current
// UTC timestamp.
func NewRunContext(trial string) RunContext {
	return RunContext{
		Trial:     trial,
		RunID:     strings.ReplaceAll(uuid.New().String(), "-", "")[:8],
		StartedAt: time.Now().UTC().Format(startedAtLayout),
	}
}

// Dir returns the run directory under base: <base>/<trial>/<started>_<run>.
func (rc RunContext) Dir(base string) string {
	return filepath.Join(base, strings.ToLower(rc.Trial), rc.StartedAt+"_"+rc.RunID)
}

// ArtifactPrefix returns the object-store prefix for this run's artifacts.
func (rc RunContext) ArtifactPrefix() string {
	return strings.ToLower(rc.Trial) + "/" + rc.StartedAt + "_" + rc.RunID
}
