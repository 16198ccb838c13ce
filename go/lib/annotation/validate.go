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

package annotation

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

var (
	ErrInvalidSpan   = errors.New("invalid span")
	ErrCrossDocument = errors.New("relation endpoints belong to another document")
	ErrUnknownLabel  = errors.New("unknown label")
	ErrIntegrity     = errors.New("annotation integrity error")
	ErrInvalidAction = errors.New("invalid action")
)

// IsValidationError returns true for errors caused by malformed input rather than by
// the state of the store.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSpan) ||
		errors.Is(err, ErrCrossDocument) ||
		errors.Is(err, ErrUnknownLabel) ||
		errors.Is(err, ErrInvalidAction)
}

// Ontology is the set of labels a project allows. The zero value allows every label.
type Ontology struct {
	EntityLabels   mapset.Set[string]
	RelationLabels mapset.Set[string]
}

func NewOntology(entityLabels, relationLabels []string) Ontology {
	return Ontology{
		EntityLabels:   mapset.NewSet[string](entityLabels...),
		RelationLabels: mapset.NewSet[string](relationLabels...),
	}
}

func (o Ontology) ValidateEntityLabel(label string) error {
	if label == "" {
		return errors.Wrap(ErrUnknownLabel, "entity label is empty")
	}
	if o.EntityLabels == nil || o.EntityLabels.Cardinality() == 0 {
		return nil
	}
	if !o.EntityLabels.Contains(label) {
		return errors.Wrapf(ErrUnknownLabel, "entity label %q", label)
	}
	return nil
}

func (o Ontology) ValidateRelationLabel(label string) error {
	if label == "" {
		return errors.Wrap(ErrUnknownLabel, "relation label is empty")
	}
	if o.RelationLabels == nil || o.RelationLabels.Cardinality() == 0 {
		return nil
	}
	if !o.RelationLabels.Contains(label) {
		return errors.Wrapf(ErrUnknownLabel, "relation label %q", label)
	}
	return nil
}

// ValidateSpan checks 0 <= start <= end < tokenCount.
func ValidateSpan(start, end, tokenCount int) error {
	if start < 0 || end < 0 {
		return errors.Wrapf(ErrInvalidSpan, "negative bounds [%d, %d]", start, end)
	}
	if start > end {
		return errors.Wrapf(ErrInvalidSpan, "start %d is after end %d", start, end)
	}
	if end >= tokenCount {
		return errors.Wrapf(ErrInvalidSpan, "end %d is out of range for %d tokens", end, tokenCount)
	}
	return nil
}

// ValidateEntity checks the entity against the document it claims to belong to.
func ValidateEntity(entity Entity, document Document) error {
	if entity.DocumentID != document.ID {
		return errors.Wrapf(ErrCrossDocument, "entity %s belongs to %s, not %s", entity.ID, entity.DocumentID, document.ID)
	}
	return errors.Wrapf(ValidateSpan(entity.Start, entity.End, len(document.Tokens)), "entity %s", entity.ID)
}

// ValidateRelation checks that both endpoints live in the relation's document.
func ValidateRelation(relation Relation, source, target Entity) error {
	if source.DocumentID != relation.DocumentID || target.DocumentID != relation.DocumentID {
		return errors.Wrapf(ErrCrossDocument, "relation %s in %s links %s and %s", relation.ID, relation.DocumentID, source.DocumentID, target.DocumentID)
	}
	if relation.Label() == "" {
		return errors.Wrapf(ErrUnknownLabel, "relation %s has no label", relation.ID)
	}
	return nil
}
