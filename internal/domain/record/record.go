// Package record defines the target-store rows produced by the migration
// transformers. Every row carries a nullable legacy foreign id (unique per
// table) next to the store-issued local id; reference fields always hold
// local ids, never foreign ids.
package record

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the top-level tenant row (the studio).
//
// AdminForeignIDs is persisted raw at phase time: the persons it references
// are migrated in a later phase, so the resolver pass maps it to AdminIDs
// once the person identity map is complete.
type Organization struct {
	ID              uuid.UUID
	ForeignID       string
	Name            string
	Email           string
	Phone           string
	Street          string
	City            string
	Region          string
	PostalCode      string
	LogoURL         string
	AdminForeignIDs []string
	AdminIDs        []uuid.UUID
	ModifiedAt      *time.Time
}

// PersonRole values accepted from the legacy feed.
var PersonRoles = []string{"owner", "photographer", "editor", "coordinator"}

// PersonRoleAliases remaps retired legacy role names.
var PersonRoleAliases = map[string]string{"shooter": "photographer"}

// Person is a staff member or photographer keyed to an organization.
type Person struct {
	ID             uuid.UUID
	ForeignID      string
	OrganizationID uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Role           string
	AvatarURL      string
	IsAdmin        bool
	ModifiedAt     *time.Time
}

// CustomerStatuses is the pipeline allow-list for customer rows.
var CustomerStatuses = []string{"lead", "booked", "fulfillment", "closed"}

// CustomerStatusAliases remaps legacy pipeline names still present in old
// records.
var CustomerStatusAliases = map[string]string{"confirmed": "booked"}

// Customer is a client company keyed to an organization.
type Customer struct {
	ID             uuid.UUID
	ForeignID      string
	OrganizationID uuid.UUID
	Name           string
	Email          string
	Phone          string
	Street         string
	City           string
	Region         string
	PostalCode     string
	Status         string
	ModifiedAt     *time.Time
}

// SubCustomer is a contact person inside a customer company.
type SubCustomer struct {
	ID         uuid.UUID
	ForeignID  string
	CustomerID uuid.UUID
	Name       string
	Email      string
	Phone      string
	ModifiedAt *time.Time
}

// DefaultCategoryColor is used when a legacy category carries no color.
const DefaultCategoryColor = "#8b5cf6"

// TaskCategory is a task grouping keyed to an organization.
type TaskCategory struct {
	ID             uuid.UUID
	ForeignID      string
	OrganizationID uuid.UUID
	Name           string
	Color          string
	ModifiedAt     *time.Time
}

// ProjectStages is the allow-list for the project pipeline stage.
var ProjectStages = []string{"lead", "booked", "fulfillment", "closed"}

// ProjectStageAliases remaps retired legacy stage names.
var ProjectStageAliases = map[string]string{"confirmed": "booked"}

// Project is a shoot/engagement keyed to organization and (optionally) a
// customer. TeamIDs is a denormalized rollup recomputed from the project's
// schedule events; it is never patched incrementally.
type Project struct {
	ID             uuid.UUID
	ForeignID      string
	OrganizationID uuid.UUID
	CustomerID     *uuid.UUID
	Name           string
	Stage          string
	EventDate      *time.Time
	Venue          string
	TeamIDs        []uuid.UUID
	ModifiedAt     *time.Time
}

// ScheduleEvent is a calendar entry keyed to a project, with the persons
// shooting it.
type ScheduleEvent struct {
	ID              uuid.UUID
	ForeignID       string
	OrganizationID  uuid.UUID
	ProjectID       uuid.UUID
	Title           string
	StartsAt        *time.Time
	EndsAt          *time.Time
	Location        string
	PhotographerIDs []uuid.UUID
	ModifiedAt      *time.Time
}

// TaskStatuses is the allow-list for task states.
var TaskStatuses = []string{"open", "in_progress", "done"}

// TaskStatusAliases remaps retired legacy task states.
var TaskStatusAliases = map[string]string{"complete": "done"}

// ProjectTask is a work item keyed to a project; category, event and
// assignee are optional references.
type ProjectTask struct {
	ID             uuid.UUID
	ForeignID      string
	OrganizationID uuid.UUID
	ProjectID      uuid.UUID
	CategoryID     *uuid.UUID
	EventID        *uuid.UUID
	AssigneeID     *uuid.UUID
	Title          string
	Status         string
	DueAt          *time.Time
	ModifiedAt     *time.Time
}

// Contact is a standalone address-book entry with no cross references.
type Contact struct {
	ID         uuid.UUID
	ForeignID  string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Company    string
	ModifiedAt *time.Time
}

// PipelineLink is a standalone saved pipeline view.
type PipelineLink struct {
	ID         uuid.UUID
	ForeignID  string
	Name       string
	Slug       string
	SortOrder  int
	ModifiedAt *time.Time
}

// Staff is an operator account of the migration service itself (not a
// migrated entity). The auth gate requires IsAdmin.
type Staff struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}
