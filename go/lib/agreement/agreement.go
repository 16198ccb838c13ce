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

// Package agreement scores inter-annotator agreement on a single document with
// BLEU-style clipped n-gram precision over typed, positioned annotations.
package agreement

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
)

// resolved is a relation with both endpoints looked up.
type resolved struct {
	relation annotation.Relation
	source   annotation.Entity
	target   annotation.Entity
}

// view is everything one annotator contributed to the document.
type view struct {
	entities  []annotation.Entity
	relations []resolved
}

type mode struct {
	orders []int
	build  func(v view) []sequence
}

var (
	overallMode = mode{
		orders: []int{1, 2, 3},
		build: func(v view) []sequence {
			sequences := make([]sequence, 0, len(v.relations))
			for _, r := range v.relations {
				sequences = append(sequences, sequence{entityTerm(r.source), relationTerm(r), entityTerm(r.target)})
			}
			return sequences
		},
	}

	entityMode = mode{
		orders: []int{1},
		build: func(v view) []sequence {
			// annotators who linked entities are scored on the linked entities only
			if len(v.relations) > 0 {
				seen := make(map[string]struct{})
				var sequences []sequence
				for _, r := range v.relations {
					for _, e := range []annotation.Entity{r.source, r.target} {
						if _, ok := seen[e.ID]; ok {
							continue
						}
						seen[e.ID] = struct{}{}
						sequences = append(sequences, sequence{entityTerm(e)})
					}
				}
				return sequences
			}
			sequences := make([]sequence, 0, len(v.entities))
			for _, e := range v.entities {
				sequences = append(sequences, sequence{entityTerm(e)})
			}
			return sequences
		},
	}

	relationMode = mode{
		orders: []int{1},
		build: func(v view) []sequence {
			sequences := make([]sequence, 0, len(v.relations))
			for _, r := range v.relations {
				sequences = append(sequences, sequence{relationTerm(r)})
			}
			return sequences
		},
	}
)

func entityTerm(e annotation.Entity) term {
	return term{label: e.LabelID, start: e.Start, end: e.End}
}

func relationTerm(r resolved) term {
	return term{
		relation:    true,
		label:       r.relation.Label(),
		start:       r.source.Start,
		end:         r.source.End,
		targetStart: r.target.Start,
		targetEnd:   r.target.End,
	}
}

// ComputeIAA scores the agreement of annotators on one document.
//
// entities and relations are the document's records from every annotator; each
// annotator's share is selected by CreatedBy. Spans are assumed to have been
// validated already (see annotation.ValidateEntity): the engine does not check bounds.
// A relation whose endpoint is missing from entities is an integrity error.
//
// With no annotators every score is 0, with one annotator every score is 100. With
// more, a score is the mean clipped precision over all ordered pairs of annotators,
// and is 0 as soon as one annotator has nothing to compare for that score.
// Relation is nil and Overall equals Entity when the task has no relations.
func ComputeIAA(
	annotators []string,
	entities []annotation.Entity,
	relations []annotation.Relation,
	task annotation.Task,
) (annotation.AgreementScore, error) {

	byID := annotation.EntitiesByID(entities)
	entitiesBy := annotation.GroupEntities(entities)
	relationsBy := annotation.GroupRelations(relations)

	seen := mapset.NewThreadUnsafeSet[string]()
	views := make([]view, 0, len(annotators))
	for _, annotator := range annotators {
		if !seen.Add(annotator) {
			continue
		}
		v := view{entities: entitiesBy[annotator]}
		if task.HasRelations() {
			for _, relation := range relationsBy[annotator] {
				source, target, err := annotation.Endpoints(relation, byID)
				if err != nil {
					return annotation.AgreementScore{}, err
				}
				v.relations = append(v.relations, resolved{relation: relation, source: source, target: target})
			}
		}
		views = append(views, v)
	}

	entity := round(score(views, entityMode))
	if !task.HasRelations() {
		return annotation.AgreementScore{Overall: entity, Entity: entity}, nil
	}

	relation := round(score(views, relationMode))
	return annotation.AgreementScore{
		Overall:  round(score(views, overallMode)),
		Entity:   entity,
		Relation: &relation,
	}, nil
}

func score(views []view, m mode) float64 {
	switch len(views) {
	case 0:
		return 0
	case 1:
		return 100
	}

	grams := make([][]counts, len(views))
	for i, v := range views {
		sequences := m.build(v)
		if len(sequences) == 0 {
			return 0
		}
		grams[i] = make([]counts, len(m.orders))
		for j, n := range m.orders {
			grams[i][j] = ngrams(sequences, n)
		}
	}

	var sum float64
	pairs := 0
	for i := range grams {
		for j := range grams {
			if i == j {
				continue
			}
			sum += pairScore(grams[i], grams[j])
			pairs++
		}
	}
	return 100 * sum / float64(pairs)
}

// round keeps two decimals.
func round(score float64) float64 {
	return math.Round(score*100) / 100
}
