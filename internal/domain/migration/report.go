package migration

import (
	"sync"
	"time"
)

// Stage names where in the pipeline an error happened.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageTransform Stage = "transform"
	StageUpsert    Stage = "upsert"
	StageResolve   Stage = "resolve"
)

// RunError is one recorded, non-terminal failure.
type RunError struct {
	Entity    Entity `json:"entity"`
	ForeignID string `json:"foreignId,omitempty"`
	Stage     Stage  `json:"stage"`
	Message   string `json:"message"`
}

// EntityCount aggregates per-entity outcomes for the run report.
type EntityCount struct {
	Seeded   int `json:"seeded"`
	Fetched  int `json:"fetched"`
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

// Report accumulates statistics and a bounded error list for one run.
// The error list is capped for response-size safety; ErrorCount in the
// snapshot always reflects the true total, so the two can diverge once
// the cap is hit.
//
// Report is safe for concurrent use by phase workers.
type Report struct {
	mu        sync.Mutex
	mode      Mode
	startedAt time.Time
	counts    map[Entity]*EntityCount
	errors    []RunError
	errTotal  int
	cap       int
	fatal     string
}

// NewReport creates a report for a run with the given error-list cap.
func NewReport(mode Mode, startedAt time.Time, errorCap int) *Report {
	return &Report{
		mode:      mode,
		startedAt: startedAt.UTC(),
		counts:    make(map[Entity]*EntityCount),
		cap:       errorCap,
	}
}

func (r *Report) count(e Entity) *EntityCount {
	c, ok := r.counts[e]
	if !ok {
		c = &EntityCount{}
		r.counts[e] = c
	}
	return c
}

// AddSeeded records pre-existing identity pairs loaded for an entity type.
func (r *Report) AddSeeded(e Entity, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count(e).Seeded += n
}

// AddFetched records raw records returned by the source for an entity type.
func (r *Report) AddFetched(e Entity, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count(e).Fetched += n
}

// AddUpserted records one successful row write.
func (r *Report) AddUpserted(e Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count(e).Upserted++
}

// AddSkipped records one excluded record.
func (r *Report) AddSkipped(e Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count(e).Skipped++
}

// Record logs a non-terminal error. The total always increments; the list
// stops growing at the cap.
func (r *Report) Record(err RunError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errTotal++
	if len(r.errors) < r.cap {
		r.errors = append(r.errors, err)
	}
}

// SetFatal marks the run as fatally aborted.
func (r *Report) SetFatal(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fatal = msg
}

// Stats is the JSON-serializable snapshot returned to the caller.
type Stats struct {
	Mode            Mode                   `json:"mode"`
	StartedAt       time.Time              `json:"startedAt"`
	PerEntityCounts map[Entity]EntityCount `json:"perEntityCounts"`
	ErrorCount      int                    `json:"errorCount"`
	Errors          []RunError             `json:"errors"`
	Fatal           string                 `json:"fatal,omitempty"`
}

// Snapshot copies the report's current state.
func (r *Report) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[Entity]EntityCount, len(r.counts))
	for e, c := range r.counts {
		counts[e] = *c
	}
	errs := make([]RunError, len(r.errors))
	copy(errs, r.errors)

	return Stats{
		Mode:            r.mode,
		StartedAt:       r.startedAt,
		PerEntityCounts: counts,
		ErrorCount:      r.errTotal,
		Errors:          errs,
		Fatal:           r.fatal,
	}
}
