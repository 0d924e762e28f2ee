package migration

import "github.com/google/uuid"

// Identities maps, per entity type, a legacy foreign id to the local id the
// target store assigned to it. Maps are created at run start, seeded from
// the store, extended after each phase, and discarded at run end.
//
// Phases run strictly sequentially and each phase only reads maps of
// earlier phases, so Identities needs no locking: a phase's own pairs are
// merged in one step after its worker pool drains.
type Identities map[Entity]map[string]uuid.UUID

// NewIdentities returns an empty map set covering every phase.
func NewIdentities() Identities {
	ids := make(Identities, len(Phases()))
	for _, e := range Phases() {
		ids[e] = make(map[string]uuid.UUID)
	}
	return ids
}

// Resolve looks up a foreign id for the given entity type.
func (ids Identities) Resolve(e Entity, foreignID string) (uuid.UUID, bool) {
	if foreignID == "" {
		return uuid.Nil, false
	}
	id, ok := ids[e][foreignID]
	return id, ok
}

// Merge folds a batch of (foreign id, local id) pairs into one entity's map.
func (ids Identities) Merge(e Entity, pairs map[string]uuid.UUID) {
	m := ids[e]
	if m == nil {
		m = make(map[string]uuid.UUID, len(pairs))
		ids[e] = m
	}
	for fid, lid := range pairs {
		m[fid] = lid
	}
}

// Len returns the number of known pairs for an entity type.
func (ids Identities) Len(e Entity) int {
	return len(ids[e])
}
