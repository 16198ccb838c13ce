package propagation

import (
	"github.com/pkg/errors"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/text"
)

type ownedEntity struct {
	createdBy string
	key       annotation.EntityKey
}

type ownedRelation struct {
	createdBy string
	key       annotation.RelationKey
}

// docIndex is the working state of one document during planning. It starts from the
// stored annotations and follows every change the plan makes.
type docIndex struct {
	document annotation.Document

	offsets      *text.OffsetIndex
	offsetsErr   error
	offsetsBuilt bool

	entities    map[string]annotation.Entity
	entityOrder []string
	entityByKey map[ownedEntity]string

	relations     map[string]annotation.Relation
	relationOrder []string
	relationByKey map[ownedRelation]string
	// entity id -> ids of relations using it as source or target
	relationsOf map[string][]string
}

func newDocIndex(document annotation.Document) *docIndex {
	return &docIndex{
		document:      document,
		entities:      make(map[string]annotation.Entity),
		entityByKey:   make(map[ownedEntity]string),
		relations:     make(map[string]annotation.Relation),
		relationByKey: make(map[ownedRelation]string),
		relationsOf:   make(map[string][]string),
	}
}

func (d *docIndex) offsetIndex() (*text.OffsetIndex, error) {
	if !d.offsetsBuilt {
		d.offsets, d.offsetsErr = text.NewOffsetIndex(d.document)
		d.offsetsBuilt = true
	}
	return d.offsets, d.offsetsErr
}

// surfaceOf returns the raw text covered by tokens [start, end], or the tokens
// joined by spaces when they cannot be located in the raw text.
func (d *docIndex) surfaceOf(start, end int) string {
	offsets, err := d.offsetIndex()
	if err != nil || end >= offsets.Len() {
		return d.document.Span(start, end)
	}
	return d.document.RawText[offsets.StartOf(start):offsets.EndOf(end)]
}

func (d *docIndex) entitySurface(e annotation.Entity) string {
	if e.SurfaceText != "" {
		return e.SurfaceText
	}
	return d.surfaceOf(e.Start, e.End)
}

func (d *docIndex) putEntity(e annotation.Entity) {
	if _, ok := d.entities[e.ID]; !ok {
		d.entityOrder = append(d.entityOrder, e.ID)
	}
	d.entities[e.ID] = e
	d.entityByKey[ownedEntity{createdBy: e.CreatedBy, key: e.Key()}] = e.ID
}

func (d *docIndex) removeEntity(e annotation.Entity) {
	delete(d.entities, e.ID)
	owned := ownedEntity{createdBy: e.CreatedBy, key: e.Key()}
	if d.entityByKey[owned] == e.ID {
		delete(d.entityByKey, owned)
	}
	delete(d.relationsOf, e.ID)
}

func (d *docIndex) findEntity(createdBy string, key annotation.EntityKey) (annotation.Entity, bool) {
	id, ok := d.entityByKey[ownedEntity{createdBy: createdBy, key: key}]
	if !ok {
		return annotation.Entity{}, false
	}
	return d.entities[id], true
}

// entitiesBy returns a snapshot of the live entities created by annotator.
func (d *docIndex) entitiesBy(annotator string) []annotation.Entity {
	var entities []annotation.Entity
	for _, id := range d.entityOrder {
		if e, ok := d.entities[id]; ok && e.CreatedBy == annotator {
			entities = append(entities, e)
		}
	}
	return entities
}

func (d *docIndex) relationKey(r annotation.Relation) (annotation.RelationKey, error) {
	key, err := annotation.RelationKeyOf(r, d.entities)
	if err != nil {
		return annotation.RelationKey{}, errors.Wrapf(err, "document %s", d.document.ID)
	}
	return key, nil
}

func (d *docIndex) putRelation(r annotation.Relation) error {
	key, err := d.relationKey(r)
	if err != nil {
		return err
	}
	if _, ok := d.relations[r.ID]; !ok {
		d.relationOrder = append(d.relationOrder, r.ID)
		d.relationsOf[r.Source] = append(d.relationsOf[r.Source], r.ID)
		if r.Target != r.Source {
			d.relationsOf[r.Target] = append(d.relationsOf[r.Target], r.ID)
		}
	}
	d.relations[r.ID] = r
	d.relationByKey[ownedRelation{createdBy: r.CreatedBy, key: key}] = r.ID
	return nil
}

func (d *docIndex) removeRelation(r annotation.Relation) {
	if key, err := d.relationKey(r); err == nil {
		owned := ownedRelation{createdBy: r.CreatedBy, key: key}
		if d.relationByKey[owned] == r.ID {
			delete(d.relationByKey, owned)
		}
	}
	delete(d.relations, r.ID)
}

func (d *docIndex) findRelation(createdBy string, key annotation.RelationKey) (annotation.Relation, bool) {
	id, ok := d.relationByKey[ownedRelation{createdBy: createdBy, key: key}]
	if !ok {
		return annotation.Relation{}, false
	}
	r, ok := d.relations[id]
	return r, ok
}

// relationsBy returns a snapshot of the live relations created by annotator.
func (d *docIndex) relationsBy(annotator string) []annotation.Relation {
	var relations []annotation.Relation
	for _, id := range d.relationOrder {
		if r, ok := d.relations[id]; ok && r.CreatedBy == annotator {
			relations = append(relations, r)
		}
	}
	return relations
}

// relationsUsing returns the live relations with e as source or target.
func (d *docIndex) relationsUsing(e annotation.Entity) []annotation.Relation {
	var relations []annotation.Relation
	for _, id := range d.relationsOf[e.ID] {
		if r, ok := d.relations[id]; ok {
			relations = append(relations, r)
		}
	}
	return relations
}

type corpusIndex struct {
	docs  map[string]*docIndex
	order []string
}

// newCorpusIndex indexes the annotations of the given documents. Records of other
// documents are ignored. A relation whose endpoints are missing or belong to
// another document is an integrity error.
func newCorpusIndex(documents []annotation.Document, entities []annotation.Entity, relations []annotation.Relation) (*corpusIndex, error) {
	c := &corpusIndex{docs: make(map[string]*docIndex, len(documents))}
	for _, document := range documents {
		if _, ok := c.docs[document.ID]; ok {
			continue
		}
		c.docs[document.ID] = newDocIndex(document)
		c.order = append(c.order, document.ID)
	}
	for _, e := range entities {
		if d, ok := c.docs[e.DocumentID]; ok {
			d.putEntity(e)
		}
	}
	for _, r := range relations {
		d, ok := c.docs[r.DocumentID]
		if !ok {
			continue
		}
		if err := d.putRelation(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}
