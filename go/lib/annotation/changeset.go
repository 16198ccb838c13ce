package annotation

import "github.com/pkg/errors"

// Changeset is a batch of mutations for the annotation store. Stores apply it in the
// order: created entities, created relations, updated entities, updated relations,
// deleted relations, deleted entities. Relations therefore never reference an entity
// that has not been written yet.
type Changeset struct {
	CreatedEntities  []Entity   `json:"createdEntities,omitempty"`
	CreatedRelations []Relation `json:"createdRelations,omitempty"`
	UpdatedEntities  []Entity   `json:"updatedEntities,omitempty"`
	UpdatedRelations []Relation `json:"updatedRelations,omitempty"`
	DeletedEntities  []Entity   `json:"deletedEntities,omitempty"`
	DeletedRelations []Relation `json:"deletedRelations,omitempty"`
}

func (c Changeset) Empty() bool {
	return c.Size() == 0
}

func (c Changeset) Size() int {
	return len(c.CreatedEntities) + len(c.CreatedRelations) +
		len(c.UpdatedEntities) + len(c.UpdatedRelations) +
		len(c.DeletedEntities) + len(c.DeletedRelations)
}

// DocumentIDs returns the distinct documents touched by the changeset, in first-seen order.
func (c Changeset) DocumentIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, e := range c.CreatedEntities {
		add(e.DocumentID)
	}
	for _, r := range c.CreatedRelations {
		add(r.DocumentID)
	}
	for _, e := range c.UpdatedEntities {
		add(e.DocumentID)
	}
	for _, r := range c.UpdatedRelations {
		add(r.DocumentID)
	}
	for _, r := range c.DeletedRelations {
		add(r.DocumentID)
	}
	for _, e := range c.DeletedEntities {
		add(e.DocumentID)
	}
	return ids
}

type ownedEntity struct {
	documentID, createdBy string
	key                   EntityKey
}

type ownedRelation struct {
	documentID, createdBy string
	key                   RelationKey
}

// Deduplicate checks the changeset against the stored entities and relations of the
// documents it touches, which a concurrent writer may have changed since the
// changeset was planned.
//
// A creation whose (annotator, start, end, label) already exists is dropped, and
// relations created against it are pointed at the stored entity instead. A dropped
// confirmed creation still confirms a stored suggestion. Created relations must
// reference entities of their own document; anything else is an integrity error.
func (c Changeset) Deduplicate(entities []Entity, relations []Relation) (Changeset, error) {
	deletedEntities := make(map[string]struct{}, len(c.DeletedEntities))
	for _, e := range c.DeletedEntities {
		deletedEntities[e.ID] = struct{}{}
	}
	deletedRelations := make(map[string]struct{}, len(c.DeletedRelations))
	for _, r := range c.DeletedRelations {
		deletedRelations[r.ID] = struct{}{}
	}

	byID := make(map[string]Entity, len(entities)+len(c.CreatedEntities))
	owned := make(map[ownedEntity]Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
		if _, gone := deletedEntities[e.ID]; !gone {
			owned[ownedEntity{e.DocumentID, e.CreatedBy, e.Key()}] = e
		}
	}

	out := Changeset{
		UpdatedEntities:  append([]Entity(nil), c.UpdatedEntities...),
		UpdatedRelations: append([]Relation(nil), c.UpdatedRelations...),
		DeletedEntities:  c.DeletedEntities,
		DeletedRelations: c.DeletedRelations,
	}

	remap := make(map[string]string)
	for _, e := range c.CreatedEntities {
		k := ownedEntity{e.DocumentID, e.CreatedBy, e.Key()}
		if stored, ok := owned[k]; ok {
			remap[e.ID] = stored.ID
			if stored.Suggested && !e.Suggested {
				stored.Suggested = false
				owned[k] = stored
				byID[stored.ID] = stored
				out.UpdatedEntities = append(out.UpdatedEntities, stored)
			}
			continue
		}
		owned[k] = e
		byID[e.ID] = e
		out.CreatedEntities = append(out.CreatedEntities, e)
	}

	ownedRelations := make(map[ownedRelation]Relation, len(relations))
	for _, r := range relations {
		_, gone := deletedRelations[r.ID]
		_, sourceGone := deletedEntities[r.Source]
		_, targetGone := deletedEntities[r.Target]
		if gone || sourceGone || targetGone {
			continue
		}
		key, err := RelationKeyOf(r, byID)
		if err != nil {
			// a stored relation whose endpoints are not loaded cannot collide
			continue
		}
		ownedRelations[ownedRelation{r.DocumentID, r.CreatedBy, key}] = r
	}

	for _, r := range c.CreatedRelations {
		if id, ok := remap[r.Source]; ok {
			r.Source = id
		}
		if id, ok := remap[r.Target]; ok {
			r.Target = id
		}
		source, target, err := Endpoints(r, byID)
		if err != nil {
			return Changeset{}, err
		}
		for _, endpoint := range []Entity{source, target} {
			if endpoint.DocumentID != r.DocumentID {
				return Changeset{}, errors.Wrapf(ErrCrossDocument, "relation %s references entity %s of document %s", r.ID, endpoint.ID, endpoint.DocumentID)
			}
		}

		k := ownedRelation{r.DocumentID, r.CreatedBy, RelationKey{Source: source.Key(), Target: target.Key(), LabelID: r.Label()}}
		if stored, ok := ownedRelations[k]; ok {
			if stored.Suggested && !r.Suggested {
				stored.Suggested = false
				ownedRelations[k] = stored
				out.UpdatedRelations = append(out.UpdatedRelations, stored)
			}
			continue
		}
		ownedRelations[k] = r
		out.CreatedRelations = append(out.CreatedRelations, r)
	}
	return out, nil
}
