/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package propagation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/blocklist"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
)

// Planner computes the changes a propagation makes without touching any store.
type Planner struct {
	Ontology annotation.Ontology
	// Blocklist names surface texts that are only ever acted on in the focus document.
	Blocklist *blocklist.Blocklist
	// NewID generates ids for created records. Defaults to random UUIDs.
	NewID func() string
}

// Plan applies action on focus to the corpus and returns the resulting changes.
// entities and relations are the stored records of the corpus documents. The focus
// document must be part of corpus. The returned changeset is idempotent with respect
// to the input: planning again after committing it yields an empty changeset.
func (p Planner) Plan(
	ctx context.Context,
	action Action,
	focus Focus,
	corpus []annotation.Document,
	entities []annotation.Entity,
	relations []annotation.Relation,
) (*Result, error) {

	if _, err := ParseAction(string(action)); err != nil {
		return nil, err
	}
	if focus == nil {
		return nil, errors.Wrap(annotation.ErrInvalidAction, "no focus annotation")
	}
	if strings.TrimSpace(focus.focusAnnotator()) == "" {
		return nil, errors.Wrap(annotation.ErrInvalidAction, "focus annotation has no annotator")
	}

	index, err := newCorpusIndex(corpus, entities, relations)
	if err != nil {
		return nil, err
	}
	if _, ok := index.docs[focus.focusDocument()]; !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "focus document %s is not in the corpus", focus.focusDocument())
	}

	newID := p.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	pl := &plan{
		Planner:   p,
		action:    action,
		annotator: focus.focusAnnotator(),
		corpus:    index,
		newID:     newID,
		created:   newPositions(),
		updated:   newPositions(),
	}

	switch f := focus.(type) {
	case EntityFocus:
		err = pl.entity(ctx, f)
	case *EntityFocus:
		err = pl.entity(ctx, *f)
	case RelationFocus:
		err = pl.relation(ctx, f)
	case *RelationFocus:
		err = pl.relation(ctx, *f)
	default:
		err = errors.Wrapf(annotation.ErrInvalidAction, "unsupported focus %T", focus)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Action:              action,
		Changeset:           pl.changes,
		AffectedDocumentIDs: pl.changes.DocumentIDs(),
		Skipped:             pl.skipped,
	}, nil
}

// plan is the state of one Plan call.
type plan struct {
	Planner
	action    Action
	annotator string
	corpus    *corpusIndex
	newID     func() string

	changes annotation.Changeset
	created positions
	updated positions
	skipped []Skipped
}

// positions maps record ids to their position in a list of the changeset.
type positions struct {
	entities  map[string]int
	relations map[string]int
}

func newPositions() positions {
	return positions{entities: make(map[string]int), relations: make(map[string]int)}
}

func (p *plan) skip(documentID string, err error) {
	log.Warn().Str("document_id", documentID).Str("action", string(p.action)).Err(err).Msg("skipping document")
	p.skipped = append(p.skipped, Skipped{DocumentID: documentID, Reason: err.Error()})
}

// resolveSpan validates s against d and fills in its surface text.
func (p *plan) resolveSpan(d *docIndex, s Span) (Span, error) {
	if err := annotation.ValidateSpan(s.Start, s.End, len(d.document.Tokens)); err != nil {
		return Span{}, errors.Wrapf(err, "document %s", d.document.ID)
	}
	if err := p.Ontology.ValidateEntityLabel(s.LabelID); err != nil {
		return Span{}, err
	}
	if strings.TrimSpace(s.SurfaceText) == "" {
		s.SurfaceText = d.surfaceOf(s.Start, s.End)
	}
	return s, nil
}

// ensureEntity returns the annotator's entity at s, creating it if needed. A
// confirmed entity is created or accepted with suggested=false; otherwise an
// existing entity is left as it is.
func (p *plan) ensureEntity(d *docIndex, s Span, confirmed bool) annotation.Entity {
	if existing, ok := d.findEntity(p.annotator, s.key()); ok {
		if confirmed {
			return p.acceptEntity(d, existing)
		}
		return existing
	}
	e := annotation.Entity{
		ID:          p.newID(),
		DocumentID:  d.document.ID,
		Start:       s.Start,
		End:         s.End,
		LabelID:     s.LabelID,
		CreatedBy:   p.annotator,
		Suggested:   !confirmed,
		SurfaceText: s.SurfaceText,
	}
	d.putEntity(e)
	p.created.entities[e.ID] = len(p.changes.CreatedEntities)
	p.changes.CreatedEntities = append(p.changes.CreatedEntities, e)
	return e
}

func (p *plan) acceptEntity(d *docIndex, e annotation.Entity) annotation.Entity {
	if !e.Suggested {
		return e
	}
	e.Suggested = false
	d.putEntity(e)
	if i, ok := p.created.entities[e.ID]; ok {
		p.changes.CreatedEntities[i] = e
	} else if i, ok := p.updated.entities[e.ID]; ok {
		p.changes.UpdatedEntities[i] = e
	} else {
		p.updated.entities[e.ID] = len(p.changes.UpdatedEntities)
		p.changes.UpdatedEntities = append(p.changes.UpdatedEntities, e)
	}
	return e
}

// deleteEntity removes e and every relation using it.
func (p *plan) deleteEntity(d *docIndex, e annotation.Entity) {
	if _, ok := d.entities[e.ID]; !ok {
		return
	}
	for _, r := range d.relationsUsing(e) {
		p.deleteRelation(d, r)
	}
	d.removeEntity(e)
	p.changes.DeletedEntities = append(p.changes.DeletedEntities, e)
}

// ensureRelation returns the annotator's relation between source and target, creating
// it if needed, with the same confirmation rules as ensureEntity.
func (p *plan) ensureRelation(d *docIndex, source, target annotation.Entity, label string, confirmed bool) (annotation.Relation, error) {
	key := annotation.RelationKey{Source: source.Key(), Target: target.Key(), LabelID: label}
	if existing, ok := d.findRelation(p.annotator, key); ok {
		if confirmed {
			return p.acceptRelation(d, existing), nil
		}
		return existing, nil
	}
	r := annotation.Relation{
		ID:         p.newID(),
		DocumentID: d.document.ID,
		Source:     source.ID,
		Target:     target.ID,
		LabelID:    label,
		CreatedBy:  p.annotator,
		Suggested:  !confirmed,
	}
	if err := annotation.ValidateRelation(r, source, target); err != nil {
		return annotation.Relation{}, err
	}
	if err := d.putRelation(r); err != nil {
		return annotation.Relation{}, err
	}
	p.created.relations[r.ID] = len(p.changes.CreatedRelations)
	p.changes.CreatedRelations = append(p.changes.CreatedRelations, r)
	return r, nil
}

// acceptRelation accepts r together with its suggested endpoints.
func (p *plan) acceptRelation(d *docIndex, r annotation.Relation) annotation.Relation {
	for _, id := range []string{r.Source, r.Target} {
		if e, ok := d.entities[id]; ok {
			p.acceptEntity(d, e)
		}
	}
	if !r.Suggested {
		return r
	}
	r.Suggested = false
	d.relations[r.ID] = r
	if i, ok := p.created.relations[r.ID]; ok {
		p.changes.CreatedRelations[i] = r
	} else if i, ok := p.updated.relations[r.ID]; ok {
		p.changes.UpdatedRelations[i] = r
	} else {
		p.updated.relations[r.ID] = len(p.changes.UpdatedRelations)
		p.changes.UpdatedRelations = append(p.changes.UpdatedRelations, r)
	}
	return r
}

func (p *plan) deleteRelation(d *docIndex, r annotation.Relation) {
	if _, ok := d.relations[r.ID]; !ok {
		return
	}
	d.removeRelation(r)
	p.changes.DeletedRelations = append(p.changes.DeletedRelations, r)
}
