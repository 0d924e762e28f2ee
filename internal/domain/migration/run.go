package migration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode selects a full scan or an incremental (modified-since) run.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// State tracks where a run is in its lifecycle. Unauthorized and fatal are
// terminal; every record-level failure is non-terminal.
type State string

const (
	StateAuthorizing  State = "authorizing"
	StateSeeding      State = "seeding"
	StateMigrating    State = "migrating"
	StateResolving    State = "resolving"
	StateReporting    State = "reporting"
	StateDone         State = "done"
	StateUnauthorized State = "unauthorized"
	StateFatal        State = "fatal"
)

// Run is one ephemeral migration execution. It is never persisted; re-runs
// are safe because every write is an idempotent natural-key upsert.
type Run struct {
	ID        uuid.UUID
	Mode      Mode
	Since     *time.Time
	StartedAt time.Time
	State     State
}

// NewRun derives the mode from the presence of a since timestamp.
func NewRun(since *time.Time, now time.Time) *Run {
	mode := ModeFull
	if since != nil {
		mode = ModeIncremental
	}
	return &Run{
		ID:        uuid.New(),
		Mode:      mode,
		Since:     since,
		StartedAt: now.UTC(),
		State:     StateAuthorizing,
	}
}

// SkipError marks a record excluded from migration, usually because a
// required parent reference did not resolve. It never aborts a phase.
type SkipError struct {
	Entity    Entity
	ForeignID string
	Reason    string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skip %s %q: %s", e.Entity, e.ForeignID, e.Reason)
}

// Skipf builds a SkipError with a formatted reason.
func Skipf(entity Entity, foreignID, format string, args ...any) *SkipError {
	return &SkipError{Entity: entity, ForeignID: foreignID, Reason: fmt.Sprintf(format, args...)}
}
