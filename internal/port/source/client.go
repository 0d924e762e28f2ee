// Package source defines the port for the legacy platform's data API.
package source

import (
	"context"
	"time"

	"github.com/atelier-hq/atelier/internal/domain/legacy"
	"github.com/atelier-hq/atelier/internal/domain/migration"
)

// Client fetches raw records from the legacy platform.
type Client interface {
	// FetchAll pages through every record of one entity type. When since is
	// non-nil, a modified-since constraint is attached to every page request.
	//
	// A page-level failure stops fetching this entity type only: FetchAll
	// returns the records accumulated so far together with the error, and
	// the caller decides whether to continue the run.
	FetchAll(ctx context.Context, entity migration.Entity, since *time.Time) ([]legacy.Record, error)
}
