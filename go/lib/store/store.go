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

package store

import (
	"context"

	"github.com/pkg/errors"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
)

var ErrNotFound = errors.New("not found")

// Type names a storage backend in config.
type Type string

const (
	Local         Type = "local"
	Redis         Type = "redis"
	Elasticsearch Type = "elasticsearch"
)

// DocumentStore supplies tokenized documents.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (annotation.Document, error)
	ListDocuments(ctx context.Context, projectID string) ([]annotation.Document, error)
	PutDocuments(ctx context.Context, documents ...annotation.Document) error
	Ready() bool
}

// AnnotationRepository persists entities, relations, save records and agreement scores.
// All list operations take any number of document ids so that a whole corpus is
// read in one round trip.
type AnnotationRepository interface {
	ListEntities(ctx context.Context, documentIDs ...string) ([]annotation.Entity, error)
	ListRelations(ctx context.Context, documentIDs ...string) ([]annotation.Relation, error)
	ListSaveRecords(ctx context.Context, documentIDs ...string) ([]annotation.SaveRecord, error)
	PutSaveRecord(ctx context.Context, record annotation.SaveRecord) error
	GetScore(ctx context.Context, documentID string) (annotation.AgreementScore, error)
	PutScore(ctx context.Context, documentID string, score annotation.AgreementScore) error
	// Commit applies a changeset in one batch. A created relation whose endpoints
	// exist neither in the store nor in the changeset is an integrity error. A
	// creation that already exists for its annotator is dropped
	// (see annotation.Changeset.Deduplicate).
	Commit(ctx context.Context, changeset annotation.Changeset) error
	Ready() bool
}
