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

// Package propagation applies one annotator decision (apply, accept or delete) to
// every lexically equal occurrence of the focus annotation across a corpus.
//
// Propagation happens in two steps. A Planner reads the corpus and its stored
// annotations and computes a changeset; the Engine then commits that changeset to
// the annotation repository in one batch. Every creation is guarded by an existence
// check on (annotator, start, end, label), so running the same action twice commits
// nothing the second time, and an aborted scan leaves the repository untouched.
package propagation

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/metrics"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
)

type Engine struct {
	Planner
	Documents   store.DocumentStore
	Annotations store.AnnotationRepository
}

func NewEngine(documents store.DocumentStore, annotations store.AnnotationRepository, planner Planner) *Engine {
	return &Engine{
		Planner:     planner,
		Documents:   documents,
		Annotations: annotations,
	}
}

// Propagate runs action on focus over every document of the project. The focus
// document is included even if it belongs to another project.
func (e *Engine) Propagate(ctx context.Context, action Action, focus Focus, projectID string) (*Result, error) {
	corpus, err := e.Documents.ListDocuments(ctx, projectID)
	if err != nil {
		return nil, errors.Wrapf(err, "list documents of project %s", projectID)
	}
	if focus != nil && !contains(corpus, focus.focusDocument()) {
		document, err := e.Documents.GetDocument(ctx, focus.focusDocument())
		if err != nil {
			return nil, err
		}
		corpus = append(corpus, document)
	}
	return e.PropagateCorpus(ctx, action, focus, corpus)
}

// PropagateCorpus runs action on focus over the given documents and commits the
// resulting changes.
func (e *Engine) PropagateCorpus(ctx context.Context, action Action, focus Focus, corpus []annotation.Document) (*Result, error) {
	kind := "unknown"
	if focus != nil {
		kind = focus.kind()
	}
	timer := prometheus.NewTimer(metrics.PropagationDuration.WithLabelValues(string(action), kind))
	defer timer.ObserveDuration()

	ids := make([]string, len(corpus))
	for i, document := range corpus {
		ids[i] = document.ID
	}
	entities, err := e.Annotations.ListEntities(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "list entities")
	}
	relations, err := e.Annotations.ListRelations(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "list relations")
	}

	result, err := e.Plan(ctx, action, focus, corpus, entities, relations)
	if err != nil {
		return nil, err
	}
	if !result.Empty() {
		if err := e.Annotations.Commit(ctx, result.Changeset); err != nil {
			return nil, errors.Wrap(err, "commit propagation")
		}
	}

	record(result)
	log.Info().
		Str("action", string(action)).
		Str("focus", kind).
		Int("documents", len(corpus)).
		Int("created", len(result.CreatedEntities)+len(result.CreatedRelations)).
		Int("updated", len(result.UpdatedEntities)+len(result.UpdatedRelations)).
		Int("deleted", len(result.DeletedEntities)+len(result.DeletedRelations)).
		Int("skipped", len(result.Skipped)).
		Msg("propagated")
	return result, nil
}

func record(result *Result) {
	action := string(result.Action)
	counts := []struct {
		kind, change string
		n            int
	}{
		{"entity", "created", len(result.CreatedEntities)},
		{"relation", "created", len(result.CreatedRelations)},
		{"entity", "updated", len(result.UpdatedEntities)},
		{"relation", "updated", len(result.UpdatedRelations)},
		{"entity", "deleted", len(result.DeletedEntities)},
		{"relation", "deleted", len(result.DeletedRelations)},
	}
	for _, c := range counts {
		metrics.PropagatedRecords.WithLabelValues(action, c.kind, c.change).Add(float64(c.n))
	}
	metrics.SkippedDocuments.WithLabelValues(action).Add(float64(len(result.Skipped)))
}

func contains(corpus []annotation.Document, id string) bool {
	for _, document := range corpus {
		if document.ID == id {
			return true
		}
	}
	return false
}
