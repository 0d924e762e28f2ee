package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-hq/atelier/internal/domain/migration"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// entityTables maps entity types to their target tables. Only names listed
// here are ever interpolated into SQL.
var entityTables = map[migration.Entity]string{
	migration.EntityOrganization:  "organizations",
	migration.EntityPerson:        "persons",
	migration.EntityCustomer:      "customers",
	migration.EntityTaskCategory:  "task_categories",
	migration.EntitySubCustomer:   "sub_customers",
	migration.EntityProject:       "projects",
	migration.EntityScheduleEvent: "schedule_events",
	migration.EntityProjectTask:   "project_tasks",
	migration.EntityContact:       "contacts",
	migration.EntityPipelineLink:  "pipeline_links",
}

// SeedIdentity pages through every (id, foreign_id) pair of one entity's
// table, foreign_id not null, using keyset pagination on the primary key.
func (s *Store) SeedIdentity(ctx context.Context, entity migration.Entity, pageSize int) (map[string]uuid.UUID, error) {
	table, ok := entityTables[entity]
	if !ok {
		return nil, fmt.Errorf("seed identity: unknown entity type %q", entity)
	}

	seeded := make(map[string]uuid.UUID)
	last := uuid.Nil
	for {
		rows, err := s.pool.Query(ctx,
			fmt.Sprintf(`SELECT id, foreign_id FROM %s
			 WHERE foreign_id IS NOT NULL AND id > $1
			 ORDER BY id LIMIT $2`, table),
			last, pageSize)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", entity, err)
		}

		fetched := 0
		for rows.Next() {
			var id uuid.UUID
			var foreignID string
			if err := rows.Scan(&id, &foreignID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("seed %s: scan: %w", entity, err)
			}
			seeded[foreignID] = id
			last = id
			fetched++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("seed %s: %w", entity, err)
		}

		if fetched < pageSize {
			return seeded, nil
		}
	}
}

// ProjectOrganization looks up the tenant of an already-resolved project.
// Used as the fallback parent resolution for children whose organization
// reference arrived through an indirect path.
func (s *Store) ProjectOrganization(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error) {
	var orgID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT organization_id FROM projects WHERE id = $1`, projectID,
	).Scan(&orgID)
	if err != nil {
		return uuid.Nil, notFoundWrap(err, "project %s organization", projectID)
	}
	return orgID, nil
}

// Ping reports target store reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
