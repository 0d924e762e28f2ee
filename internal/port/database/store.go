// Package database defines the target-store port.
package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-hq/atelier/internal/domain/migration"
	"github.com/atelier-hq/atelier/internal/domain/record"
)

// AdminRefs pairs an organization with the raw legacy admin ids it stored
// before the person phase ran.
type AdminRefs struct {
	OrgID      uuid.UUID
	ForeignIDs []string
}

// Store is the contract the migration engine has with the target store.
// Every upsert is a natural-key (foreign id) conflict upsert: writing the
// same foreign id twice updates the existing row and returns its existing
// local id.
type Store interface {
	// SeedIdentity pages through (id, foreign_id) pairs for one entity
	// type, foreign_id not null, pageSize rows at a time.
	SeedIdentity(ctx context.Context, entity migration.Entity, pageSize int) (map[string]uuid.UUID, error)

	UpsertOrganization(ctx context.Context, row record.Organization) (uuid.UUID, error)
	UpsertPerson(ctx context.Context, row record.Person) (uuid.UUID, error)
	UpsertCustomer(ctx context.Context, row record.Customer) (uuid.UUID, error)
	UpsertSubCustomer(ctx context.Context, row record.SubCustomer) (uuid.UUID, error)
	UpsertTaskCategory(ctx context.Context, row record.TaskCategory) (uuid.UUID, error)
	UpsertProject(ctx context.Context, row record.Project) (uuid.UUID, error)
	UpsertScheduleEvent(ctx context.Context, row record.ScheduleEvent) (uuid.UUID, error)
	UpsertProjectTask(ctx context.Context, row record.ProjectTask) (uuid.UUID, error)
	UpsertContact(ctx context.Context, row record.Contact) (uuid.UUID, error)
	UpsertPipelineLink(ctx context.Context, row record.PipelineLink) (uuid.UUID, error)

	// OrganizationAdminRefs lists every organization's raw admin foreign
	// ids for the forward-reference resolver pass.
	OrganizationAdminRefs(ctx context.Context) ([]AdminRefs, error)
	// SetOrganizationAdmins writes back the resolved admin local ids.
	SetOrganizationAdmins(ctx context.Context, orgID uuid.UUID, adminIDs []uuid.UUID) error
	// MarkPersonsAdmin flags the given persons as administrators.
	MarkPersonsAdmin(ctx context.Context, personIDs []uuid.UUID) error
	// RecomputeProjectTeams rebuilds every project's team rollup from a
	// live scan of its schedule events, discarding the previous value.
	// Returns the number of projects updated.
	RecomputeProjectTeams(ctx context.Context) (int64, error)

	// ProjectOrganization is the fallback parent lookup: the tenant of an
	// already-resolved project.
	ProjectOrganization(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error)

	Ping(ctx context.Context) error
}

// StaffStore manages operator accounts for the auth gate and the admin CLI.
type StaffStore interface {
	CreateStaff(ctx context.Context, email, name, passwordHash string, isAdmin bool) (*record.Staff, error)
	StaffByEmail(ctx context.Context, email string) (*record.Staff, error)
	StaffBySessionHash(ctx context.Context, tokenHash string) (*record.Staff, error)
	CreateStaffSession(ctx context.Context, staffID uuid.UUID, tokenHash string, expiresAt time.Time) error
	UpdateStaffPassword(ctx context.Context, email, passwordHash string) error
	ListStaff(ctx context.Context) ([]record.Staff, error)
}
