package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/atelier-hq/atelier/internal/domain/record"
)

// Every upsert below conflicts on foreign_id and returns the row's local id,
// so writing the same legacy record twice updates in place and never
// duplicates. admin_ids and team_ids are deliberately absent from the update
// lists: both are rewritten wholesale by the resolver fixups.

func (s *Store) UpsertOrganization(ctx context.Context, row record.Organization) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO organizations (foreign_id, name, email, phone, street, city, region, postal_code, logo_url, admin_foreign_ids, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
		   street = EXCLUDED.street, city = EXCLUDED.city, region = EXCLUDED.region,
		   postal_code = EXCLUDED.postal_code, logo_url = EXCLUDED.logo_url,
		   admin_foreign_ids = EXCLUDED.admin_foreign_ids,
		   modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.Name, row.Email, row.Phone, row.Street, row.City,
		row.Region, row.PostalCode, row.LogoURL, pgTextArray(row.AdminForeignIDs), row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert organization %s: %w", row.ForeignID, err)
	}
	return id, nil
}

func (s *Store) UpsertPerson(ctx context.Context, row record.Person) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO persons (foreign_id, organization_id, first_name, last_name, email, phone, role, avatar_url, is_admin, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   organization_id = EXCLUDED.organization_id,
		   first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		   email = EXCLUDED.email, phone = EXCLUDED.phone, role = EXCLUDED.role,
		   avatar_url = EXCLUDED.avatar_url, is_admin = EXCLUDED.is_admin,
		   modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.OrganizationID, row.FirstName, row.LastName,
		row.Email, row.Phone, row.Role, row.AvatarURL, row.IsAdmin, row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert person %s: %w", row.ForeignID, err)
	}
	return id, nil
}

func (s *Store) UpsertCustomer(ctx context.Context, row record.Customer) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO customers (foreign_id, organization_id, name, email, phone, street, city, region, postal_code, status, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   organization_id = EXCLUDED.organization_id, name = EXCLUDED.name,
		   email = EXCLUDED.email, phone = EXCLUDED.phone, street = EXCLUDED.street,
		   city = EXCLUDED.city, region = EXCLUDED.region, postal_code = EXCLUDED.postal_code,
		   status = EXCLUDED.status, modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.OrganizationID, row.Name, row.Email, row.Phone,
		row.Street, row.City, row.Region, row.PostalCode, row.Status, row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert customer %s: %w", row.ForeignID, err)
	}
	return id, nil
}

func (s *Store) UpsertSubCustomer(ctx context.Context, row record.SubCustomer) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sub_customers (foreign_id, customer_id, name, email, phone, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   customer_id = EXCLUDED.customer_id, name = EXCLUDED.name,
		   email = EXCLUDED.email, phone = EXCLUDED.phone,
		   modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.CustomerID, row.Name, row.Email, row.Phone, row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert sub_customer %s: %w", row.ForeignID, err)
	}
	return id, nil
}

func (s *Store) UpsertTaskCategory(ctx context.Context, row record.TaskCategory) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO task_categories (foreign_id, organization_id, name, color, modified_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   organization_id = EXCLUDED.organization_id, name = EXCLUDED.name,
		   color = EXCLUDED.color, modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.OrganizationID, row.Name, row.Color, row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert task_category %s: %w", row.ForeignID, err)
	}
	return id, nil
}

func (s *Store) UpsertProject(ctx context.Context, row record.Project) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO projects (foreign_id, organization_id, customer_id, name, stage, event_date, venue, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   organization_id = EXCLUDED.organization_id, customer_id = EXCLUDED.customer_id,
		   name = EXCLUDED.name, stage = EXCLUDED.stage, event_date = EXCLUDED.event_date,
		   venue = EXCLUDED.venue, modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.OrganizationID, row.CustomerID, row.Name,
		row.Stage, row.EventDate, row.Venue, row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert project %s: %w", row.ForeignID, err)
	}
	return id, nil
}

func (s *Store) UpsertScheduleEvent(ctx context.Context, row record.ScheduleEvent) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO schedule_events (foreign_id, organization_id, project_id, title, starts_at, ends_at, location, photographer_ids, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   organization_id = EXCLUDED.organization_id, project_id = EXCLUDED.project_id,
		   title = EXCLUDED.title, starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
		   location = EXCLUDED.location, photographer_ids = EXCLUDED.photographer_ids,
		   modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.OrganizationID, row.ProjectID, row.Title,
		row.StartsAt, row.EndsAt, row.Location, pgUUIDArray(row.PhotographerIDs), row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert schedule_event %s: %w", row.ForeignID, err)
	}
	return id, nil
}

func (s *Store) UpsertProjectTask(ctx context.Context, row record.ProjectTask) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO project_tasks (foreign_id, organization_id, project_id, category_id, event_id, assignee_id, title, status, due_at, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   organization_id = EXCLUDED.organization_id, project_id = EXCLUDED.project_id,
		   category_id = EXCLUDED.category_id, event_id = EXCLUDED.event_id,
		   assignee_id = EXCLUDED.assignee_id, title = EXCLUDED.title,
		   status = EXCLUDED.status, due_at = EXCLUDED.due_at,
		   modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.OrganizationID, row.ProjectID, row.CategoryID,
		row.EventID, row.AssigneeID, row.Title, row.Status, row.DueAt, row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert project_task %s: %w", row.ForeignID, err)
	}
	return id, nil
}

func (s *Store) UpsertContact(ctx context.Context, row record.Contact) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO contacts (foreign_id, first_name, last_name, email, phone, company, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		   email = EXCLUDED.email, phone = EXCLUDED.phone, company = EXCLUDED.company,
		   modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.FirstName, row.LastName, row.Email, row.Phone, row.Company, row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert contact %s: %w", row.ForeignID, err)
	}
	return id, nil
}

func (s *Store) UpsertPipelineLink(ctx context.Context, row record.PipelineLink) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO pipeline_links (foreign_id, name, slug, sort_order, modified_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (foreign_id) DO UPDATE SET
		   name = EXCLUDED.name, slug = EXCLUDED.slug, sort_order = EXCLUDED.sort_order,
		   modified_at = EXCLUDED.modified_at, updated_at = now()
		 RETURNING id`,
		row.ForeignID, row.Name, row.Slug, row.SortOrder, row.ModifiedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert pipeline_link %s: %w", row.ForeignID, err)
	}
	return id, nil
}
