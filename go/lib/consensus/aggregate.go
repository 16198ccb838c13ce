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

// Package consensus collapses the annotations of several annotators into a single
// agreed view of a document.
package consensus

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
)

// Aggregator computes agreed annotation sets. The zero value uses StrictMajority and
// ignores the suggested flag when comparing entities.
type Aggregator struct {
	Policy Policy
	// MatchSuggested makes the suggested flag part of an entity's identity.
	MatchSuggested bool
}

type entityKey struct {
	annotation.EntityKey
	suggested bool
}

func (a Aggregator) policy() Policy {
	if a.Policy == nil {
		return StrictMajority{}
	}
	return a.Policy
}

func (a Aggregator) entityKey(e annotation.Entity) entityKey {
	key := entityKey{EntityKey: e.Key()}
	if a.MatchSuggested {
		key.suggested = e.Suggested
	}
	return key
}

// AggregateEntities is Aggregator{}.Entities.
func AggregateEntities(byAnnotator map[string][]annotation.Entity, selected []string) []annotation.Entity {
	return Aggregator{}.Entities(byAnnotator, selected)
}

// AggregateRelations is Aggregator{}.Relations.
func AggregateRelations(
	byAnnotator map[string][]annotation.Relation,
	entities []annotation.Entity,
	selected []string,
) ([]annotation.Relation, []annotation.Entity, error) {
	return Aggregator{}.Relations(byAnnotator, entities, selected)
}

// Entities returns one representative per agreed entity, in the order the selected
// annotators are given. An empty selection means every annotator in byAnnotator. A
// single selected annotator gets their own entities back. Each annotator counts at
// most once per entity.
func (a Aggregator) Entities(byAnnotator map[string][]annotation.Entity, selected []string) []annotation.Entity {
	selected = selection(selected, keysOf(byAnnotator))
	if len(selected) == 1 {
		return stripEntities(byAnnotator[selected[0]])
	}

	counts := make(map[entityKey]int)
	var order []entityKey
	representative := make(map[entityKey]annotation.Entity)
	for _, annotator := range selected {
		seen := mapset.NewThreadUnsafeSet[entityKey]()
		for _, e := range byAnnotator[annotator] {
			key := a.entityKey(e)
			if !seen.Add(key) {
				continue
			}
			if _, ok := representative[key]; !ok {
				representative[key] = e
				order = append(order, key)
			}
			counts[key]++
		}
	}

	policy := a.policy()
	agreed := make([]annotation.Entity, 0, len(order))
	for _, key := range order {
		if policy.Agreed(counts[key], len(selected)) {
			agreed = append(agreed, strip(representative[key]))
		}
	}
	return agreed
}

// Relations returns one representative per agreed relation together with the
// endpoint entities of the representatives. entities must contain the endpoints of
// every relation in byAnnotator; a missing endpoint is an integrity error.
func (a Aggregator) Relations(
	byAnnotator map[string][]annotation.Relation,
	entities []annotation.Entity,
	selected []string,
) ([]annotation.Relation, []annotation.Entity, error) {

	byID := annotation.EntitiesByID(entities)
	selected = selection(selected, keysOf(byAnnotator))

	counts := make(map[annotation.RelationKey]int)
	var order []annotation.RelationKey
	representative := make(map[annotation.RelationKey]annotation.Relation)
	for _, annotator := range selected {
		seen := mapset.NewThreadUnsafeSet[annotation.RelationKey]()
		for _, r := range byAnnotator[annotator] {
			key, err := annotation.RelationKeyOf(r, byID)
			if err != nil {
				return nil, nil, err
			}
			if !seen.Add(key) {
				continue
			}
			if _, ok := representative[key]; !ok {
				representative[key] = r
				order = append(order, key)
			}
			counts[key]++
		}
	}

	policy := a.policy()
	relations := make([]annotation.Relation, 0, len(order))
	var endpoints []annotation.Entity
	emitted := make(map[string]struct{})
	for _, key := range order {
		if len(selected) > 1 && !policy.Agreed(counts[key], len(selected)) {
			continue
		}
		r := representative[key]
		r.CreatedBy = ""
		relations = append(relations, r)
		for _, id := range []string{r.Source, r.Target} {
			if _, ok := emitted[id]; ok {
				continue
			}
			emitted[id] = struct{}{}
			endpoints = append(endpoints, strip(byID[id]))
		}
	}
	return relations, endpoints, nil
}

func strip(e annotation.Entity) annotation.Entity {
	e.CreatedBy = ""
	return e
}

func stripEntities(entities []annotation.Entity) []annotation.Entity {
	out := make([]annotation.Entity, len(entities))
	for i, e := range entities {
		out[i] = strip(e)
	}
	return out
}

// selection returns selected, or every available annotator in a stable order when
// selected is empty. Duplicate ids are dropped.
func selection(selected, available []string) []string {
	if len(selected) == 0 {
		sorted := append([]string(nil), available...)
		sort.Strings(sorted)
		return sorted
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(selected))
	for _, annotator := range selected {
		if seen.Add(annotator) {
			out = append(out, annotator)
		}
	}
	return out
}

func keysOf[T any](m map[string][]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
