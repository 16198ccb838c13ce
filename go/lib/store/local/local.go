// Package local is an in-memory document store and annotation repository. It is the
// fixture for engine and API tests.
package local

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
)

func New() *Store {
	return &Store{
		documents: make(map[string]annotation.Document),
		projects:  make(map[string][]string),
		entities:  make(map[string][]annotation.Entity),
		relations: make(map[string][]annotation.Relation),
		saves:     make(map[string]map[string]annotation.SaveRecord),
		scores:    make(map[string]annotation.AgreementScore),
		mut:       &sync.RWMutex{},
	}
}

type Store struct {
	documents map[string]annotation.Document
	projects  map[string][]string
	entities  map[string][]annotation.Entity
	relations map[string][]annotation.Relation
	saves     map[string]map[string]annotation.SaveRecord
	scores    map[string]annotation.AgreementScore
	mut       *sync.RWMutex
}

var (
	_ store.DocumentStore        = (*Store)(nil)
	_ store.AnnotationRepository = (*Store)(nil)
)

func (l *Store) Ready() bool {
	return true
}

func (l *Store) GetDocument(_ context.Context, id string) (annotation.Document, error) {
	l.mut.RLock()
	defer l.mut.RUnlock()

	document, ok := l.documents[id]
	if !ok {
		return annotation.Document{}, errors.Wrapf(store.ErrNotFound, "document %s", id)
	}
	return document, nil
}

func (l *Store) ListDocuments(_ context.Context, projectID string) ([]annotation.Document, error) {
	l.mut.RLock()
	defer l.mut.RUnlock()

	ids := l.projects[projectID]
	documents := make([]annotation.Document, 0, len(ids))
	for _, id := range ids {
		documents = append(documents, l.documents[id])
	}
	return documents, nil
}

func (l *Store) PutDocuments(_ context.Context, documents ...annotation.Document) error {
	l.mut.Lock()
	defer l.mut.Unlock()

	for _, document := range documents {
		if _, ok := l.documents[document.ID]; !ok {
			l.projects[document.ProjectID] = append(l.projects[document.ProjectID], document.ID)
		}
		l.documents[document.ID] = document
	}
	return nil
}

func (l *Store) ListEntities(_ context.Context, documentIDs ...string) ([]annotation.Entity, error) {
	l.mut.RLock()
	defer l.mut.RUnlock()

	var entities []annotation.Entity
	for _, id := range documentIDs {
		entities = append(entities, l.entities[id]...)
	}
	return entities, nil
}

func (l *Store) ListRelations(_ context.Context, documentIDs ...string) ([]annotation.Relation, error) {
	l.mut.RLock()
	defer l.mut.RUnlock()

	var relations []annotation.Relation
	for _, id := range documentIDs {
		relations = append(relations, l.relations[id]...)
	}
	return relations, nil
}

func (l *Store) ListSaveRecords(_ context.Context, documentIDs ...string) ([]annotation.SaveRecord, error) {
	l.mut.RLock()
	defer l.mut.RUnlock()

	var records []annotation.SaveRecord
	for _, id := range documentIDs {
		for _, record := range l.saves[id] {
			records = append(records, record)
		}
	}
	return records, nil
}

func (l *Store) PutSaveRecord(_ context.Context, record annotation.SaveRecord) error {
	l.mut.Lock()
	defer l.mut.Unlock()

	if l.saves[record.DocumentID] == nil {
		l.saves[record.DocumentID] = make(map[string]annotation.SaveRecord)
	}
	l.saves[record.DocumentID][record.AnnotatorID] = record
	return nil
}

func (l *Store) GetScore(_ context.Context, documentID string) (annotation.AgreementScore, error) {
	l.mut.RLock()
	defer l.mut.RUnlock()

	score, ok := l.scores[documentID]
	if !ok {
		return annotation.AgreementScore{}, errors.Wrapf(store.ErrNotFound, "score for document %s", documentID)
	}
	return score, nil
}

func (l *Store) PutScore(_ context.Context, documentID string, score annotation.AgreementScore) error {
	l.mut.Lock()
	defer l.mut.Unlock()

	l.scores[documentID] = score
	return nil
}

// Commit validates the whole changeset before applying any of it. Creations that
// already exist in the store are dropped.
func (l *Store) Commit(_ context.Context, changeset annotation.Changeset) error {
	l.mut.Lock()
	defer l.mut.Unlock()

	// every stored entity is passed so that a relation into another document is
	// reported as such rather than as a missing entity
	var entities []annotation.Entity
	for _, e := range l.entities {
		entities = append(entities, e...)
	}
	var relations []annotation.Relation
	for _, id := range changeset.DocumentIDs() {
		relations = append(relations, l.relations[id]...)
	}
	changeset, err := changeset.Deduplicate(entities, relations)
	if err != nil {
		return err
	}

	for _, e := range changeset.CreatedEntities {
		l.entities[e.DocumentID] = append(l.entities[e.DocumentID], e)
	}
	for _, r := range changeset.CreatedRelations {
		l.relations[r.DocumentID] = append(l.relations[r.DocumentID], r)
	}
	for _, e := range changeset.UpdatedEntities {
		for i, existing := range l.entities[e.DocumentID] {
			if existing.ID == e.ID {
				l.entities[e.DocumentID][i] = e
			}
		}
	}
	for _, r := range changeset.UpdatedRelations {
		for i, existing := range l.relations[r.DocumentID] {
			if existing.ID == r.ID {
				l.relations[r.DocumentID][i] = r
			}
		}
	}

	deletedRelations := make(map[string]struct{}, len(changeset.DeletedRelations))
	for _, r := range changeset.DeletedRelations {
		deletedRelations[r.ID] = struct{}{}
	}
	deletedEntities := make(map[string]struct{}, len(changeset.DeletedEntities))
	for _, e := range changeset.DeletedEntities {
		deletedEntities[e.ID] = struct{}{}
	}
	for _, documentID := range changeset.DocumentIDs() {
		relations := l.relations[documentID][:0]
		for _, r := range l.relations[documentID] {
			_, gone := deletedRelations[r.ID]
			_, sourceGone := deletedEntities[r.Source]
			_, targetGone := deletedEntities[r.Target]
			if !gone && !sourceGone && !targetGone {
				relations = append(relations, r)
			}
		}
		l.relations[documentID] = relations

		entities := l.entities[documentID][:0]
		for _, e := range l.entities[documentID] {
			if _, gone := deletedEntities[e.ID]; !gone {
				entities = append(entities, e)
			}
		}
		l.entities[documentID] = entities
	}
	return nil
}
