package annotation

import "github.com/pkg/errors"

// EntityKey is the identity of an entity for matching purposes.
type EntityKey struct {
	Start   int
	End     int
	LabelID string
}

// RelationKey is the identity of a relation: both endpoint keys and the relation label.
type RelationKey struct {
	Source  EntityKey
	Target  EntityKey
	LabelID string
}

// RelationKeyOf resolves the endpoints of relation from byID and builds its key.
// A dangling endpoint is an integrity error.
func RelationKeyOf(relation Relation, byID map[string]Entity) (RelationKey, error) {
	source, target, err := Endpoints(relation, byID)
	if err != nil {
		return RelationKey{}, err
	}
	return RelationKey{
		Source:  source.Key(),
		Target:  target.Key(),
		LabelID: relation.Label(),
	}, nil
}

// Endpoints returns the source and target entities of relation.
func Endpoints(relation Relation, byID map[string]Entity) (Entity, Entity, error) {
	source, ok := byID[relation.Source]
	if !ok {
		return Entity{}, Entity{}, errors.Wrapf(ErrIntegrity, "relation %s references missing source entity %s", relation.ID, relation.Source)
	}
	target, ok := byID[relation.Target]
	if !ok {
		return Entity{}, Entity{}, errors.Wrapf(ErrIntegrity, "relation %s references missing target entity %s", relation.ID, relation.Target)
	}
	return source, target, nil
}
