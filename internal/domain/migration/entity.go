// Package migration holds the domain model of a legacy-platform migration
// run: the entity catalog, identity maps, run states, and the run report.
package migration

// Entity identifies one migrated entity type. The string value doubles as
// the legacy API collection name.
type Entity string

const (
	EntityOrganization  Entity = "organization"
	EntityPerson        Entity = "person"
	EntityCustomer      Entity = "customer"
	EntityTaskCategory  Entity = "task_category"
	EntitySubCustomer   Entity = "sub_customer"
	EntityProject       Entity = "project"
	EntityScheduleEvent Entity = "schedule_event"
	EntityProjectTask   Entity = "project_task"
	EntityContact       Entity = "contact"
	EntityPipelineLink  Entity = "pipeline_link"
)

// Phases returns every entity type in hard dependency order: parents
// strictly before children, standalone types last.
func Phases() []Entity {
	return []Entity{
		EntityOrganization,
		EntityPerson,
		EntityCustomer,
		EntityTaskCategory,
		EntitySubCustomer,
		EntityProject,
		EntityScheduleEvent,
		EntityProjectTask,
		EntityContact,
		EntityPipelineLink,
	}
}
