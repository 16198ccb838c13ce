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

// Package annotation holds the records shared by the agreement, consensus and
// propagation engines. Field names follow the persisted shape so that records
// can be passed to and from the annotation store without translation.
package annotation

import (
	"fmt"
	"strings"
	"time"
)

// Task is the annotation task configured on a project.
type Task string

const (
	TaskEntities             Task = "entities"
	TaskEntitiesAndRelations Task = "entities_and_relations"
)

// HasRelations returns true if relations are annotated for the task.
func (t Task) HasRelations() bool {
	return t == TaskEntitiesAndRelations
}

type Token struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

type Document struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"projectId"`
	Tokens    []Token `json:"tokens"`
	RawText   string  `json:"rawText"`
}

// Span returns the surface text of the inclusive token range [start, end].
// Tokens are joined by a single space.
func (d Document) Span(start, end int) string {
	if start < 0 || end >= len(d.Tokens) || start > end {
		return ""
	}
	values := make([]string, 0, end-start+1)
	for _, token := range d.Tokens[start : end+1] {
		values = append(values, token.Value)
	}
	return strings.Join(values, " ")
}

// Entity is an annotated token range. End is inclusive.
type Entity struct {
	ID          string `json:"id"`
	DocumentID  string `json:"documentId"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	LabelID     string `json:"labelId"`
	CreatedBy   string `json:"createdBy,omitempty"`
	Suggested   bool   `json:"suggested"`
	SurfaceText string `json:"surfaceText"`
}

func (e Entity) Key() EntityKey {
	return EntityKey{Start: e.Start, End: e.End, LabelID: e.LabelID}
}

// Length is the number of tokens the entity covers.
func (e Entity) Length() int {
	return e.End - e.Start + 1
}

// Relation is a directed, typed link between two entities of one document.
// Open-schema relations carry their label as a token range of the document
// (LabelText, LabelStart, LabelEnd) instead of a LabelID.
type Relation struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	LabelID    string `json:"labelId,omitempty"`
	LabelText  string `json:"labelText,omitempty"`
	LabelStart int    `json:"labelStart,omitempty"`
	LabelEnd   int    `json:"labelEnd,omitempty"`
	CreatedBy  string `json:"createdBy,omitempty"`
	Suggested  bool   `json:"suggested"`
}

// Label returns the identity of the relation label, covering open-schema relations.
func (r Relation) Label() string {
	if r.LabelID == "" && r.LabelText != "" {
		return fmt.Sprintf("%s|%d-%d", strings.ToLower(r.LabelText), r.LabelStart, r.LabelEnd)
	}
	return r.LabelID
}

type SaveRecord struct {
	DocumentID  string    `json:"documentId"`
	AnnotatorID string    `json:"annotatorId"`
	SavedAt     time.Time `json:"savedAt"`
}

// AgreementScore is on a 0-100 scale. Relation is nil when the project task does not
// include relation annotation.
type AgreementScore struct {
	Overall  float64  `json:"overall"`
	Entity   float64  `json:"entity"`
	Relation *float64 `json:"relation,omitempty"`
}

// EntitiesByID indexes entities by their id.
func EntitiesByID(entities []Entity) map[string]Entity {
	byID := make(map[string]Entity, len(entities))
	for _, entity := range entities {
		byID[entity.ID] = entity
	}
	return byID
}

// GroupEntities groups entities by their creator, preserving order.
func GroupEntities(entities []Entity) map[string][]Entity {
	grouped := make(map[string][]Entity)
	for _, entity := range entities {
		grouped[entity.CreatedBy] = append(grouped[entity.CreatedBy], entity)
	}
	return grouped
}

// GroupRelations groups relations by their creator, preserving order.
func GroupRelations(relations []Relation) map[string][]Relation {
	grouped := make(map[string][]Relation)
	for _, relation := range relations {
		grouped[relation.CreatedBy] = append(grouped[relation.CreatedBy], relation)
	}
	return grouped
}
