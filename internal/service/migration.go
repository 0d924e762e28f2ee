package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	atotel "github.com/atelier-hq/atelier/internal/adapter/otel"
	"github.com/atelier-hq/atelier/internal/config"
	"github.com/atelier-hq/atelier/internal/domain/legacy"
	"github.com/atelier-hq/atelier/internal/domain/migration"
	"github.com/atelier-hq/atelier/internal/domain/record"
	"github.com/atelier-hq/atelier/internal/port/cache"
	"github.com/atelier-hq/atelier/internal/port/database"
	"github.com/atelier-hq/atelier/internal/port/events"
	"github.com/atelier-hq/atelier/internal/port/source"
)

// memoTTL bounds how long a fallback parent lookup stays memoized. A run is
// far shorter than this; the TTL only keeps entries from surviving forever
// if a run is abandoned mid-phase.
const memoTTL = time.Hour

// Migrator copies the full entity graph from the legacy platform into the
// target store: seed identity maps, run the entity phases in dependency
// order, resolve forward references, recompute rollups, report.
type Migrator struct {
	source  source.Client
	store   database.Store
	cache   cache.Cache
	events  events.Publisher
	metrics *atotel.Metrics
	log     *slog.Logger
	cfg     config.Migration
	now     func() time.Time
}

// NewMigrator creates a migration engine. metrics may be nil.
func NewMigrator(src source.Client, store database.Store, memo cache.Cache, pub events.Publisher, metrics *atotel.Metrics, log *slog.Logger, cfg config.Migration) *Migrator {
	return &Migrator{
		source:  src,
		store:   store,
		cache:   memo,
		events:  pub,
		metrics: metrics,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run executes one migration run. A non-nil since selects incremental mode.
// Record-level failures never abort the run; a returned error means the run
// ended fatal, and the returned stats carry whatever was accumulated plus
// the fatal marker.
func (m *Migrator) Run(ctx context.Context, since *time.Time) (stats migration.Stats, err error) {
	run := migration.NewRun(since, m.now())
	report := migration.NewReport(run.Mode, run.StartedAt, m.cfg.ErrorCap)
	log := m.log.With("run_id", run.ID, "mode", run.Mode)

	ctx, span := atotel.StartRunSpan(ctx, run.ID.String(), string(run.Mode))
	defer span.End()

	if m.metrics != nil {
		m.metrics.RunsStarted.Add(ctx, 1)
	}

	// Any panic past authorization ends the run fatal with partial stats.
	defer func() {
		if r := recover(); r != nil {
			run.State = migration.StateFatal
			report.SetFatal(fmt.Sprintf("panic: %v", r))
			log.Error("migration run aborted", "panic", r)
			stats = m.finish(ctx, run, report, log)
			err = fmt.Errorf("migration run aborted: %v", r)
		}
	}()

	log.Info("migration run started", "since", since)

	// Seed every entity type's identity map before phase 1, regardless of
	// mode. This is what makes incremental runs and soft-deleted rows
	// resolvable.
	run.State = migration.StateSeeding
	ids := migration.NewIdentities()
	for _, entity := range migration.Phases() {
		pairs, seedErr := m.store.SeedIdentity(ctx, entity, m.cfg.SeedPageSize)
		if seedErr != nil {
			run.State = migration.StateFatal
			report.SetFatal(seedErr.Error())
			log.Error("identity seeding failed", "entity", entity, "error", seedErr)
			return m.finish(ctx, run, report, log), fmt.Errorf("seed %s: %w", entity, seedErr)
		}
		ids.Merge(entity, pairs)
		report.AddSeeded(entity, len(pairs))
	}

	tc := &transformContext{ids: ids}
	tc.orgFromProject = m.memoizedProjectOrg(ctx)

	run.State = migration.StateMigrating
	for _, entity := range migration.Phases() {
		m.runPhase(ctx, run, entity, tc, report, log)

		if entity == migration.EntityOrganization {
			tc.firstOrg = firstOrganization(ids)
		}
	}

	run.State = migration.StateResolving
	m.resolveAdmins(ctx, tc.ids, report, log)
	m.recomputeRollups(ctx, report, log)

	run.State = migration.StateReporting
	stats = m.finish(ctx, run, report, log)
	run.State = migration.StateDone
	return stats, nil
}

// runPhase fetches, transforms, and upserts one entity type, then extends
// its identity map with every pair produced. One record's failure never
// aborts the phase.
func (m *Migrator) runPhase(ctx context.Context, run *migration.Run, entity migration.Entity, tc *transformContext, report *migration.Report, log *slog.Logger) {
	ctx, span := atotel.StartPhaseSpan(ctx, run.ID.String(), string(entity))
	defer span.End()

	records, err := m.source.FetchAll(ctx, entity, run.Since)
	if err != nil {
		// Fetch failure aborts this entity type's fetch only; whatever
		// pages arrived before it are still migrated.
		report.Record(migration.RunError{Entity: entity, Stage: migration.StageFetch, Message: err.Error()})
		log.Warn("fetch aborted", "entity", entity, "kept", len(records), "error", err)
	}
	report.AddFetched(entity, len(records))

	var mu sync.Mutex
	produced := make(map[string]uuid.UUID, len(records))

	g := new(errgroup.Group)
	g.SetLimit(m.cfg.Workers)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			fid, localID, recErr := m.migrateRecord(ctx, entity, rec, tc)
			if recErr != nil {
				m.recordFailure(ctx, entity, fid, recErr, report, log)
				return nil
			}
			mu.Lock()
			produced[fid] = localID
			mu.Unlock()
			report.AddUpserted(entity)
			if m.metrics != nil {
				m.metrics.RecordsUpserted.Add(ctx, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	// Later phases read this map; merging after the pool drains keeps
	// Identities lock-free.
	tc.ids.Merge(entity, produced)

	log.Info("phase completed", "entity", entity, "fetched", len(records), "upserted", len(produced))
	m.publish(ctx, "migration.phase.completed", map[string]any{
		"runId":    run.ID,
		"entity":   entity,
		"fetched":  len(records),
		"upserted": len(produced),
	}, log)
}

// migrateRecord transforms one raw record and writes it. Returns the legacy
// foreign id alongside the assigned local id.
func (m *Migrator) migrateRecord(ctx context.Context, entity migration.Entity, rec legacy.Record, tc *transformContext) (string, uuid.UUID, error) {
	fid := rec.ForeignID()

	var (
		localID uuid.UUID
		err     error
	)
	switch entity {
	case migration.EntityOrganization:
		var row record.Organization
		if row, err = transformOrganization(rec); err == nil {
			localID, err = m.store.UpsertOrganization(ctx, row)
		}
	case migration.EntityPerson:
		var row record.Person
		if row, err = transformPerson(rec, tc); err == nil {
			localID, err = m.store.UpsertPerson(ctx, row)
		}
	case migration.EntityCustomer:
		var row record.Customer
		if row, err = transformCustomer(rec, tc); err == nil {
			localID, err = m.store.UpsertCustomer(ctx, row)
		}
	case migration.EntityTaskCategory:
		var row record.TaskCategory
		if row, err = transformTaskCategory(rec, tc); err == nil {
			localID, err = m.store.UpsertTaskCategory(ctx, row)
		}
	case migration.EntitySubCustomer:
		var row record.SubCustomer
		if row, err = transformSubCustomer(rec, tc); err == nil {
			localID, err = m.store.UpsertSubCustomer(ctx, row)
		}
	case migration.EntityProject:
		var row record.Project
		if row, err = transformProject(rec, tc); err == nil {
			localID, err = m.store.UpsertProject(ctx, row)
		}
	case migration.EntityScheduleEvent:
		var row record.ScheduleEvent
		if row, err = transformScheduleEvent(rec, tc); err == nil {
			localID, err = m.store.UpsertScheduleEvent(ctx, row)
		}
	case migration.EntityProjectTask:
		var row record.ProjectTask
		if row, err = transformProjectTask(rec, tc); err == nil {
			localID, err = m.store.UpsertProjectTask(ctx, row)
		}
	case migration.EntityContact:
		var row record.Contact
		if row, err = transformContact(rec); err == nil {
			localID, err = m.store.UpsertContact(ctx, row)
		}
	case migration.EntityPipelineLink:
		var row record.PipelineLink
		if row, err = transformPipelineLink(rec); err == nil {
			localID, err = m.store.UpsertPipelineLink(ctx, row)
		}
	default:
		err = fmt.Errorf("unknown entity type %q", entity)
	}

	return fid, localID, err
}

// recordFailure classifies a record-level error into the report.
func (m *Migrator) recordFailure(ctx context.Context, entity migration.Entity, fid string, err error, report *migration.Report, log *slog.Logger) {
	stage := migration.StageUpsert
	var skip *migration.SkipError
	if errors.As(err, &skip) {
		stage = migration.StageTransform
	}

	report.AddSkipped(entity)
	report.Record(migration.RunError{Entity: entity, ForeignID: fid, Stage: stage, Message: err.Error()})
	if m.metrics != nil {
		m.metrics.RecordsSkipped.Add(ctx, 1)
	}
	log.Warn("record skipped", "entity", entity, "foreign_id", fid, "stage", stage, "error", err)
}

// resolveAdmins is the forward-reference pass: map every organization's raw
// admin foreign ids through the now-complete person map, write back the
// resolved local ids, and flag the members as administrators. Idempotent.
func (m *Migrator) resolveAdmins(ctx context.Context, ids migration.Identities, report *migration.Report, log *slog.Logger) {
	refs, err := m.store.OrganizationAdminRefs(ctx)
	if err != nil {
		report.Record(migration.RunError{Entity: migration.EntityOrganization, Stage: migration.StageResolve, Message: err.Error()})
		log.Error("admin resolution failed", "error", err)
		return
	}

	var allAdmins []uuid.UUID
	for _, ref := range refs {
		var admins []uuid.UUID
		for _, fid := range ref.ForeignIDs {
			if id, ok := ids.Resolve(migration.EntityPerson, fid); ok {
				admins = append(admins, id)
			}
		}
		if err := m.store.SetOrganizationAdmins(ctx, ref.OrgID, admins); err != nil {
			report.Record(migration.RunError{Entity: migration.EntityOrganization, Stage: migration.StageResolve, Message: err.Error()})
			log.Warn("admin write-back failed", "org_id", ref.OrgID, "error", err)
			continue
		}
		allAdmins = append(allAdmins, admins...)
	}

	if err := m.store.MarkPersonsAdmin(ctx, allAdmins); err != nil {
		report.Record(migration.RunError{Entity: migration.EntityPerson, Stage: migration.StageResolve, Message: err.Error()})
		log.Warn("admin flagging failed", "error", err)
	}
}

// recomputeRollups rebuilds every project's team rollup from a live scan of
// its schedule events, discarding the previous value.
func (m *Migrator) recomputeRollups(ctx context.Context, report *migration.Report, log *slog.Logger) {
	changed, err := m.store.RecomputeProjectTeams(ctx)
	if err != nil {
		report.Record(migration.RunError{Entity: migration.EntityProject, Stage: migration.StageResolve, Message: err.Error()})
		log.Error("team rollup recomputation failed", "error", err)
		return
	}
	log.Info("team rollups recomputed", "projects_changed", changed)
}

// finish snapshots the report, emits run-level telemetry, and publishes the
// run-completed event.
func (m *Migrator) finish(ctx context.Context, run *migration.Run, report *migration.Report, log *slog.Logger) migration.Stats {
	stats := report.Snapshot()

	if m.metrics != nil {
		if stats.Fatal != "" {
			m.metrics.RunsFailed.Add(ctx, 1)
		} else {
			m.metrics.RunsCompleted.Add(ctx, 1)
		}
		m.metrics.RunDuration.Record(ctx, m.now().Sub(run.StartedAt).Seconds())
	}

	m.publish(ctx, "migration.run.completed", map[string]any{
		"runId":      run.ID,
		"mode":       run.Mode,
		"startedAt":  run.StartedAt,
		"errorCount": stats.ErrorCount,
		"fatal":      stats.Fatal,
	}, log)

	log.Info("migration run finished",
		"duration", m.now().Sub(run.StartedAt),
		"errors", stats.ErrorCount,
		"fatal", stats.Fatal != "")
	return stats
}

// publish sends a progress event; delivery failures are logged, never fatal.
func (m *Migrator) publish(ctx context.Context, subject string, payload map[string]any, log *slog.Logger) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := m.events.Publish(ctx, subject, data); err != nil {
		log.Warn("event publish failed", "subject", subject, "error", err)
	}
}

// memoizedProjectOrg wraps the store's fallback parent lookup in the memo
// cache so repeated children of the same project hit the store once.
func (m *Migrator) memoizedProjectOrg(ctx context.Context) func(projectID uuid.UUID) (uuid.UUID, error) {
	return func(projectID uuid.UUID) (uuid.UUID, error) {
		key := "project_org:" + projectID.String()
		if data, ok, _ := m.cache.Get(ctx, key); ok {
			if id, err := uuid.FromBytes(data); err == nil {
				return id, nil
			}
		}

		orgID, err := m.store.ProjectOrganization(ctx, projectID)
		if err != nil {
			return uuid.Nil, err
		}
		_ = m.cache.Set(ctx, key, orgID[:], memoTTL)
		return orgID, nil
	}
}

// firstOrganization picks the tenant that receives ownerless records. The
// choice is arbitrary by construction; see transformContext.firstOrg.
func firstOrganization(ids migration.Identities) uuid.UUID {
	orgs := ids[migration.EntityOrganization]
	var pick uuid.UUID
	var pickKey string
	for fid, id := range orgs {
		if pickKey == "" || fid < pickKey {
			pickKey = fid
			pick = id
		}
	}
	return pick
}
