package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/atelier-hq/atelier/internal/port/database"
)

// OrganizationAdminRefs lists every organization's raw admin foreign ids for
// the forward-reference resolver pass.
func (s *Store) OrganizationAdminRefs(ctx context.Context) ([]database.AdminRefs, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, admin_foreign_ids FROM organizations ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list organization admin refs: %w", err)
	}
	defer rows.Close()

	var refs []database.AdminRefs
	for rows.Next() {
		var r database.AdminRefs
		if err := rows.Scan(&r.OrgID, &r.ForeignIDs); err != nil {
			return nil, fmt.Errorf("scan admin refs: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// SetOrganizationAdmins writes back the resolved admin local ids.
func (s *Store) SetOrganizationAdmins(ctx context.Context, orgID uuid.UUID, adminIDs []uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE organizations SET admin_ids = $2, updated_at = now() WHERE id = $1`,
		orgID, pgUUIDArray(adminIDs))
	if err != nil {
		return fmt.Errorf("set organization %s admins: %w", orgID, err)
	}
	return nil
}

// MarkPersonsAdmin flags the given persons as administrators.
func (s *Store) MarkPersonsAdmin(ctx context.Context, personIDs []uuid.UUID) error {
	if len(personIDs) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE persons SET is_admin = TRUE, updated_at = now() WHERE id = ANY($1)`,
		pgUUIDArray(personIDs))
	if err != nil {
		return fmt.Errorf("mark persons admin: %w", err)
	}
	return nil
}

// RecomputeProjectTeams rebuilds every project's team rollup as the distinct
// union of its schedule events' photographer arrays, discarding the previous
// value. Projects whose rollup already matches are left untouched, so the
// returned count reflects projects actually changed.
func (s *Store) RecomputeProjectTeams(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`WITH rollup AS (
		   SELECT p.id,
		          COALESCE(array_agg(DISTINCT pid ORDER BY pid) FILTER (WHERE pid IS NOT NULL), '{}') AS team
		   FROM projects p
		   LEFT JOIN schedule_events se ON se.project_id = p.id
		   LEFT JOIN LATERAL unnest(se.photographer_ids) AS pid ON TRUE
		   GROUP BY p.id
		 )
		 UPDATE projects SET team_ids = rollup.team, updated_at = now()
		 FROM rollup
		 WHERE projects.id = rollup.id
		   AND projects.team_ids IS DISTINCT FROM rollup.team`)
	if err != nil {
		return 0, fmt.Errorf("recompute project teams: %w", err)
	}
	return tag.RowsAffected(), nil
}
