package service

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/atelier-hq/atelier/internal/domain/legacy"
	"github.com/atelier-hq/atelier/internal/domain/migration"
	"github.com/atelier-hq/atelier/internal/domain/record"
)

// transformContext carries what per-record transformers need beyond the raw
// record: the identity maps built by earlier phases, the tenant assigned to
// ownerless records, and the memoized fallback parent lookup.
type transformContext struct {
	ids migration.Identities

	// firstOrg receives ownerless task categories. The legacy feed carries
	// no owner on them; assigning everything to the first organization is
	// wrong for multi-tenant data but matches what the platform migrated
	// from day one. TODO: decide the real ownership rule with the data team
	// before a second tenant onboards.
	firstOrg uuid.UUID

	// orgFromProject derives a child's tenant from its already-resolved
	// project when the declared organization reference does not resolve.
	orgFromProject func(projectID uuid.UUID) (uuid.UUID, error)
}

// requireForeignID rejects records the legacy API served without an id.
func requireForeignID(entity migration.Entity, rec legacy.Record) (string, error) {
	fid := rec.ForeignID()
	if fid == "" {
		return "", migration.Skipf(entity, "", "record has no _id")
	}
	return fid, nil
}

// resolveOrg resolves the organization reference held in the given field,
// falling back to the record's project parent when a fallback is available.
func (tc *transformContext) resolveOrg(entity migration.Entity, fid string, rec legacy.Record, projectID uuid.UUID) (uuid.UUID, error) {
	ref := rec.Str("company")
	if orgID, ok := tc.ids.Resolve(migration.EntityOrganization, ref); ok {
		return orgID, nil
	}
	if projectID != uuid.Nil && tc.orgFromProject != nil {
		orgID, err := tc.orgFromProject(projectID)
		if err == nil {
			return orgID, nil
		}
	}
	return uuid.Nil, migration.Skipf(entity, fid, "organization %q not found", ref)
}

func transformOrganization(rec legacy.Record) (record.Organization, error) {
	fid, err := requireForeignID(migration.EntityOrganization, rec)
	if err != nil {
		return record.Organization{}, err
	}

	addr := rec.Child("address")
	return record.Organization{
		ForeignID:       fid,
		Name:            rec.Str("name"),
		Email:           rec.Str("email"),
		Phone:           rec.Str("phone_number"),
		Street:          addr.Str("street"),
		City:            addr.Str("city"),
		Region:          addr.Str("region"),
		PostalCode:      addr.Str("zip"),
		LogoURL:         rec.Str("logo"),
		AdminForeignIDs: rec.List("admins"),
		ModifiedAt:      rec.Time("modified_date"),
	}, nil
}

func transformPerson(rec legacy.Record, tc *transformContext) (record.Person, error) {
	fid, err := requireForeignID(migration.EntityPerson, rec)
	if err != nil {
		return record.Person{}, err
	}

	ref := rec.Str("company")
	orgID, ok := tc.ids.Resolve(migration.EntityOrganization, ref)
	if !ok {
		return record.Person{}, migration.Skipf(migration.EntityPerson, fid, "organization %q not found", ref)
	}

	return record.Person{
		ForeignID:      fid,
		OrganizationID: orgID,
		FirstName:      rec.Str("first_name"),
		LastName:       rec.Str("last_name"),
		Email:          rec.Str("email"),
		Phone:          rec.Str("phone_number"),
		Role:           legacy.NormalizeEnum(rec["role"], record.PersonRoles, record.PersonRoleAliases),
		AvatarURL:      rec.Str("avatar"),
		ModifiedAt:     rec.Time("modified_date"),
	}, nil
}

func transformCustomer(rec legacy.Record, tc *transformContext) (record.Customer, error) {
	fid, err := requireForeignID(migration.EntityCustomer, rec)
	if err != nil {
		return record.Customer{}, err
	}

	ref := rec.Str("parentCompany")
	orgID, ok := tc.ids.Resolve(migration.EntityOrganization, ref)
	if !ok {
		return record.Customer{}, migration.Skipf(migration.EntityCustomer, fid, "organization %q not found", ref)
	}

	addr := rec.Child("address")
	return record.Customer{
		ForeignID:      fid,
		OrganizationID: orgID,
		Name:           rec.Str("name"),
		Email:          rec.Str("email"),
		Phone:          rec.Str("phone_number"),
		Street:         addr.Str("street"),
		City:           addr.Str("city"),
		Region:         addr.Str("region"),
		PostalCode:     addr.Str("zip"),
		Status:         legacy.NormalizeEnum(rec["status"], record.CustomerStatuses, record.CustomerStatusAliases),
		ModifiedAt:     rec.Time("modified_date"),
	}, nil
}

func transformTaskCategory(rec legacy.Record, tc *transformContext) (record.TaskCategory, error) {
	fid, err := requireForeignID(migration.EntityTaskCategory, rec)
	if err != nil {
		return record.TaskCategory{}, err
	}

	if tc.firstOrg == uuid.Nil {
		return record.TaskCategory{}, migration.Skipf(migration.EntityTaskCategory, fid, "no organization to own category")
	}

	return record.TaskCategory{
		ForeignID:      fid,
		OrganizationID: tc.firstOrg,
		Name:           rec.Str("name"),
		Color:          legacy.NormalizeColor(rec["color"], record.DefaultCategoryColor),
		ModifiedAt:     rec.Time("modified_date"),
	}, nil
}

func transformSubCustomer(rec legacy.Record, tc *transformContext) (record.SubCustomer, error) {
	fid, err := requireForeignID(migration.EntitySubCustomer, rec)
	if err != nil {
		return record.SubCustomer{}, err
	}

	ref := rec.Str("customer")
	customerID, ok := tc.ids.Resolve(migration.EntityCustomer, ref)
	if !ok {
		return record.SubCustomer{}, migration.Skipf(migration.EntitySubCustomer, fid, "customer %q not found", ref)
	}

	return record.SubCustomer{
		ForeignID:  fid,
		CustomerID: customerID,
		Name:       rec.Str("name"),
		Email:      rec.Str("email"),
		Phone:      rec.Str("phone_number"),
		ModifiedAt: rec.Time("modified_date"),
	}, nil
}

func transformProject(rec legacy.Record, tc *transformContext) (record.Project, error) {
	fid, err := requireForeignID(migration.EntityProject, rec)
	if err != nil {
		return record.Project{}, err
	}

	ref := rec.Str("company")
	orgID, ok := tc.ids.Resolve(migration.EntityOrganization, ref)
	if !ok {
		return record.Project{}, migration.Skipf(migration.EntityProject, fid, "organization %q not found", ref)
	}

	// The customer reference is optional; an unresolved one is stored null.
	var customerID *uuid.UUID
	if id, ok := tc.ids.Resolve(migration.EntityCustomer, rec.Str("customer")); ok {
		customerID = &id
	}

	return record.Project{
		ForeignID:      fid,
		OrganizationID: orgID,
		CustomerID:     customerID,
		Name:           rec.Str("name"),
		Stage:          legacy.NormalizeEnum(rec["stage"], record.ProjectStages, record.ProjectStageAliases),
		EventDate:      rec.Time("event_date"),
		Venue:          rec.Str("venue"),
		ModifiedAt:     rec.Time("modified_date"),
	}, nil
}

func transformScheduleEvent(rec legacy.Record, tc *transformContext) (record.ScheduleEvent, error) {
	fid, err := requireForeignID(migration.EntityScheduleEvent, rec)
	if err != nil {
		return record.ScheduleEvent{}, err
	}

	ref := rec.Str("project")
	projectID, ok := tc.ids.Resolve(migration.EntityProject, ref)
	if !ok {
		return record.ScheduleEvent{}, migration.Skipf(migration.EntityScheduleEvent, fid, "project %q not found", ref)
	}

	orgID, err := tc.resolveOrg(migration.EntityScheduleEvent, fid, rec, projectID)
	if err != nil {
		return record.ScheduleEvent{}, err
	}

	// Photographers are optional references; unresolved entries are dropped
	// rather than written dangling.
	var photographers []uuid.UUID
	for _, pref := range rec.List("photographers") {
		if id, ok := tc.ids.Resolve(migration.EntityPerson, pref); ok {
			photographers = append(photographers, id)
		}
	}

	return record.ScheduleEvent{
		ForeignID:       fid,
		OrganizationID:  orgID,
		ProjectID:       projectID,
		Title:           rec.Str("title"),
		StartsAt:        rec.Time("start"),
		EndsAt:          rec.Time("end"),
		Location:        rec.Str("location"),
		PhotographerIDs: photographers,
		ModifiedAt:      rec.Time("modified_date"),
	}, nil
}

func transformProjectTask(rec legacy.Record, tc *transformContext) (record.ProjectTask, error) {
	fid, err := requireForeignID(migration.EntityProjectTask, rec)
	if err != nil {
		return record.ProjectTask{}, err
	}

	ref := rec.Str("project")
	projectID, ok := tc.ids.Resolve(migration.EntityProject, ref)
	if !ok {
		return record.ProjectTask{}, migration.Skipf(migration.EntityProjectTask, fid, "project %q not found", ref)
	}

	orgID, err := tc.resolveOrg(migration.EntityProjectTask, fid, rec, projectID)
	if err != nil {
		return record.ProjectTask{}, err
	}

	optional := func(entity migration.Entity, key string) *uuid.UUID {
		if id, ok := tc.ids.Resolve(entity, rec.Str(key)); ok {
			return &id
		}
		return nil
	}

	return record.ProjectTask{
		ForeignID:      fid,
		OrganizationID: orgID,
		ProjectID:      projectID,
		CategoryID:     optional(migration.EntityTaskCategory, "category"),
		EventID:        optional(migration.EntityScheduleEvent, "event"),
		AssigneeID:     optional(migration.EntityPerson, "assignee"),
		Title:          rec.Str("title"),
		Status:         legacy.NormalizeEnum(rec["status"], record.TaskStatuses, record.TaskStatusAliases),
		DueAt:          rec.Time("due_date"),
		ModifiedAt:     rec.Time("modified_date"),
	}, nil
}

func transformContact(rec legacy.Record) (record.Contact, error) {
	fid, err := requireForeignID(migration.EntityContact, rec)
	if err != nil {
		return record.Contact{}, err
	}

	return record.Contact{
		ForeignID:  fid,
		FirstName:  rec.Str("first_name"),
		LastName:   rec.Str("last_name"),
		Email:      rec.Str("email"),
		Phone:      rec.Str("phone_number"),
		Company:    rec.Str("company"),
		ModifiedAt: rec.Time("modified_date"),
	}, nil
}

func transformPipelineLink(rec legacy.Record) (record.PipelineLink, error) {
	fid, err := requireForeignID(migration.EntityPipelineLink, rec)
	if err != nil {
		return record.PipelineLink{}, err
	}

	// CoerceString rounds numeric forms to integer strings.
	sortOrder, _ := strconv.Atoi(rec.Str("sort_order"))

	return record.PipelineLink{
		ForeignID:  fid,
		Name:       rec.Str("name"),
		Slug:       rec.Str("slug"),
		SortOrder:  sortOrder,
		ModifiedAt: rec.Time("modified_date"),
	}, nil
}
