package main

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/agreement"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/consensus"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/keylock"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/metrics"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/propagation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
)

type controller struct {
	documents   store.DocumentStore
	annotations store.AnnotationRepository
	engine      *propagation.Engine
	ontology    annotation.Ontology
	locks       *keylock.Locker
	task        annotation.Task
	gold        consensus.GoldOptions
	now         func() time.Time
}

func newController(
	documents store.DocumentStore,
	annotations store.AnnotationRepository,
	planner propagation.Planner,
	task annotation.Task,
	gold consensus.GoldOptions,
) controller {
	gold.Task = task
	return controller{
		documents:   documents,
		annotations: annotations,
		engine:      propagation.NewEngine(documents, annotations, planner),
		ontology:    planner.Ontology,
		locks:       keylock.New(),
		task:        task,
		gold:        gold,
		now:         time.Now,
	}
}

// records loads a document with its entities and relations and checks every record
// against it and the ontology, so that the engines only ever see valid spans and
// known labels.
func (c controller) records(ctx context.Context, documentID string) (annotation.Document, []annotation.Entity, []annotation.Relation, error) {
	document, err := c.documents.GetDocument(ctx, documentID)
	if err != nil {
		return annotation.Document{}, nil, nil, err
	}
	entities, err := c.annotations.ListEntities(ctx, documentID)
	if err != nil {
		return annotation.Document{}, nil, nil, err
	}
	for _, e := range entities {
		if err := annotation.ValidateEntity(e, document); err != nil {
			return annotation.Document{}, nil, nil, err
		}
		if err := c.ontology.ValidateEntityLabel(e.LabelID); err != nil {
			return annotation.Document{}, nil, nil, errors.Wrapf(err, "entity %s", e.ID)
		}
	}
	var relations []annotation.Relation
	if c.task.HasRelations() {
		if relations, err = c.annotations.ListRelations(ctx, documentID); err != nil {
			return annotation.Document{}, nil, nil, err
		}
		for _, r := range relations {
			// open-schema relations carry their label as text
			if r.LabelID == "" {
				continue
			}
			if err := c.ontology.ValidateRelationLabel(r.LabelID); err != nil {
				return annotation.Document{}, nil, nil, errors.Wrapf(err, "relation %s", r.ID)
			}
		}
	}
	return document, entities, relations, nil
}

// savedBy returns the annotators who saved the document, sorted.
func (c controller) savedBy(ctx context.Context, documentID string) ([]string, error) {
	records, err := c.annotations.ListSaveRecords(ctx, documentID)
	if err != nil {
		return nil, err
	}
	annotators := make([]string, 0, len(records))
	for _, record := range records {
		annotators = append(annotators, record.AnnotatorID)
	}
	sort.Strings(annotators)
	return annotators, nil
}

// ComputeIAA scores agreement between annotators on a document. With no annotators
// given, the annotators who saved the document are compared.
func (c controller) ComputeIAA(ctx context.Context, documentID string, annotators []string) (annotation.AgreementScore, error) {
	_, entities, relations, err := c.records(ctx, documentID)
	if err != nil {
		return annotation.AgreementScore{}, err
	}
	if len(annotators) == 0 {
		if annotators, err = c.savedBy(ctx, documentID); err != nil {
			return annotation.AgreementScore{}, err
		}
	}
	score, err := agreement.ComputeIAA(annotators, entities, relations, c.task)
	if err != nil {
		metrics.AgreementComputations.WithLabelValues("error").Inc()
		return annotation.AgreementScore{}, err
	}
	metrics.AgreementComputations.WithLabelValues("ok").Inc()
	return score, nil
}

// SaveDocument marks the document complete for annotator and stores the agreement of
// everyone who has saved it. Saves of one document are serialised so that every
// stored score reflects a consistent snapshot.
func (c controller) SaveDocument(ctx context.Context, documentID, annotatorID string) (annotation.AgreementScore, error) {
	if annotatorID == "" {
		return annotation.AgreementScore{}, NewHttpError(400, errors.New("annotatorId is required"))
	}
	if _, err := c.documents.GetDocument(ctx, documentID); err != nil {
		return annotation.AgreementScore{}, err
	}

	unlock := c.locks.Lock(documentID)
	defer unlock()

	record := annotation.SaveRecord{DocumentID: documentID, AnnotatorID: annotatorID, SavedAt: c.now().UTC()}
	if err := c.annotations.PutSaveRecord(ctx, record); err != nil {
		return annotation.AgreementScore{}, err
	}
	score, err := c.ComputeIAA(ctx, documentID, nil)
	if err != nil {
		return annotation.AgreementScore{}, err
	}
	if err := c.annotations.PutScore(ctx, documentID, score); err != nil {
		return annotation.AgreementScore{}, err
	}
	return score, nil
}

func (c controller) GetScore(ctx context.Context, documentID string) (annotation.AgreementScore, error) {
	return c.annotations.GetScore(ctx, documentID)
}

// Consensus returns the strict-majority view of the selected annotators on a document.
func (c controller) Consensus(ctx context.Context, documentID string, annotators []string, matchSuggested bool) (consensus.Gold, error) {
	_, entities, relations, err := c.records(ctx, documentID)
	if err != nil {
		return consensus.Gold{}, err
	}
	aggregator := consensus.Aggregator{Policy: consensus.StrictMajority{}, MatchSuggested: matchSuggested}
	return aggregator.Document(documentID, annotators, entities, relations, c.task)
}

// ExportGold returns the gold view of every document of the project saved by enough
// annotators. Zero options fall back to the configured ones.
func (c controller) ExportGold(ctx context.Context, projectID string, options consensus.GoldOptions) ([]consensus.Gold, error) {
	if options.Threshold <= 0 {
		options.Threshold = c.gold.Threshold
	}
	if options.AnnotatorsPerDoc <= 0 {
		options.AnnotatorsPerDoc = c.gold.AnnotatorsPerDoc
	}
	options.Task = c.task

	documents, err := c.documents.ListDocuments(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(documents))
	for i, document := range documents {
		ids[i] = document.ID
	}
	saves, err := c.annotations.ListSaveRecords(ctx, ids...)
	if err != nil {
		return nil, err
	}
	entities, err := c.annotations.ListEntities(ctx, ids...)
	if err != nil {
		return nil, err
	}
	var relations []annotation.Relation
	if c.task.HasRelations() {
		if relations, err = c.annotations.ListRelations(ctx, ids...); err != nil {
			return nil, err
		}
	}

	gold := make([]consensus.Gold, 0, len(documents))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		document, ok, err := options.Document(id, saves, entities, relations)
		if err != nil {
			return nil, errors.Wrapf(err, "document %s", id)
		}
		if ok {
			gold = append(gold, document)
		}
	}
	metrics.GoldDocuments.Add(float64(len(gold)))
	return gold, nil
}

// Propagate runs one propagation over the project. Propagations of one project are
// serialised so that each plans against the annotations the previous one committed.
func (c controller) Propagate(ctx context.Context, action propagation.Action, focus propagation.Focus, projectID string) (*propagation.Result, error) {
	unlock := c.locks.Lock("project:" + projectID)
	defer unlock()

	return c.engine.Propagate(ctx, action, focus, projectID)
}
