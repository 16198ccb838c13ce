package agreement

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
)

// tokens: Paris is the capital of France
type AgreementSuite struct {
	suite.Suite
	entities  []annotation.Entity
	relations []annotation.Relation
}

func TestAgreementSuite(t *testing.T) {
	suite.Run(t, new(AgreementSuite))
}

func (s *AgreementSuite) SetupTest() {
	s.entities = nil
	s.relations = nil
	for _, annotator := range []string{"A", "B"} {
		s.addCapital(annotator)
	}
	s.entities = append(s.entities, entity("C-paris", "C", 0, 0, "LOC"))
}

func (s *AgreementSuite) addCapital(annotator string) {
	paris := entity(annotator+"-paris", annotator, 0, 0, "LOC")
	france := entity(annotator+"-france", annotator, 5, 5, "LOC")
	s.entities = append(s.entities, paris, france)
	s.relations = append(s.relations, annotation.Relation{
		ID:         annotator + "-capitalOf",
		DocumentID: "doc",
		Source:     paris.ID,
		Target:     france.ID,
		LabelID:    "capitalOf",
		CreatedBy:  annotator,
	})
}

func entity(id, annotator string, start, end int, label string) annotation.Entity {
	return annotation.Entity{ID: id, DocumentID: "doc", Start: start, End: end, LabelID: label, CreatedBy: annotator}
}

func (s *AgreementSuite) Test_single_annotator() {
	got, err := ComputeIAA([]string{"A"}, s.entities, s.relations, annotation.TaskEntitiesAndRelations)
	s.Require().NoError(err)
	s.Equal(100.0, got.Overall)
	s.Equal(100.0, got.Entity)
	s.Require().NotNil(got.Relation)
	s.Equal(100.0, *got.Relation)
}

func (s *AgreementSuite) Test_identical_annotators() {
	got, err := ComputeIAA([]string{"A", "B"}, s.entities, s.relations, annotation.TaskEntitiesAndRelations)
	s.Require().NoError(err)
	s.Equal(100.0, got.Overall)
	s.Equal(100.0, got.Entity)
	s.Equal(100.0, *got.Relation)
}

func (s *AgreementSuite) Test_annotator_without_relations() {
	got, err := ComputeIAA([]string{"A", "B", "C"}, s.entities, s.relations, annotation.TaskEntitiesAndRelations)
	s.Require().NoError(err)

	// C has no relation n-grams at all
	s.Equal(0.0, *got.Relation)
	s.Equal(0.0, got.Overall)

	// A and B are scored on their linked entities {Paris, France}, C on {Paris}:
	// A->B 1, B->A 1, A->C 0.5, B->C 0.5, C->A 1, C->B 1
	s.Equal(83.33, got.Entity)
}

func (s *AgreementSuite) Test_entities_only_task() {
	got, err := ComputeIAA([]string{"A", "C"}, s.entities, s.relations, annotation.TaskEntities)
	s.Require().NoError(err)
	s.Nil(got.Relation)
	s.Equal(75.0, got.Entity)
	s.Equal(got.Entity, got.Overall)
}

func (s *AgreementSuite) Test_duplicate_annotator_ids() {
	got, err := ComputeIAA([]string{"A", "A"}, s.entities, s.relations, annotation.TaskEntitiesAndRelations)
	s.Require().NoError(err)
	s.Equal(100.0, got.Entity)
}

func (s *AgreementSuite) Test_dangling_relation() {
	relations := append(s.relations, annotation.Relation{
		ID: "broken", DocumentID: "doc", Source: "A-paris", Target: "gone", LabelID: "capitalOf", CreatedBy: "A",
	})
	_, err := ComputeIAA([]string{"A", "B"}, s.entities, relations, annotation.TaskEntitiesAndRelations)
	s.True(errors.Is(err, annotation.ErrIntegrity))
}

func TestComputeIAA_no_annotators(t *testing.T) {
	got, err := ComputeIAA(nil, nil, nil, annotation.TaskEntitiesAndRelations)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Entity)
	assert.Equal(t, 0.0, got.Overall)
	assert.Equal(t, 0.0, *got.Relation)
}

func TestComputeIAA_identical_and_disjoint_entity_sets(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("%d annotators", n), func(t *testing.T) {
			var identical, disjoint []annotation.Entity
			var annotators []string
			for i := 0; i < n; i++ {
				annotator := fmt.Sprintf("annotator-%d", i)
				annotators = append(annotators, annotator)
				for j := 0; j < 3; j++ {
					identical = append(identical, entity(fmt.Sprintf("%s-%d", annotator, j), annotator, j*2, j*2+1, "Drug"))
					disjoint = append(disjoint, entity(fmt.Sprintf("%s-%d", annotator, j), annotator, i*10+j, i*10+j, "Drug"))
				}
			}

			got, err := ComputeIAA(annotators, identical, nil, annotation.TaskEntities)
			require.NoError(t, err)
			assert.Equal(t, 100.0, got.Entity)

			got, err = ComputeIAA(annotators, disjoint, nil, annotation.TaskEntities)
			require.NoError(t, err)
			assert.Equal(t, 0.0, got.Entity)
		})
	}
}

func TestComputeIAA_label_mismatch(t *testing.T) {
	entities := []annotation.Entity{
		entity("a", "A", 3, 3, "Drug"),
		entity("b", "B", 3, 3, "Protein"),
	}
	got, err := ComputeIAA([]string{"A", "B"}, entities, nil, annotation.TaskEntities)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Entity)
}

func TestModifiedPrecision_clipping(t *testing.T) {
	x := sequence{{label: "Drug", start: 1, end: 1}}
	y := sequence{{label: "Drug", start: 2, end: 2}}

	// the candidate repeats x three times, the reference has it once
	candidate := ngrams([]sequence{x, x, x, y}, 1)
	reference := ngrams([]sequence{x, y}, 1)
	assert.Equal(t, 0.5, modifiedPrecision(candidate, reference))
	assert.Equal(t, 1.0, modifiedPrecision(reference, candidate))
}

func TestNgrams_orders(t *testing.T) {
	seq := sequence{{label: "a"}, {label: "b", relation: true}, {label: "c"}}
	assert.Equal(t, 3, ngrams([]sequence{seq}, 1).total)
	assert.Equal(t, 2, ngrams([]sequence{seq}, 2).total)
	assert.Equal(t, 1, ngrams([]sequence{seq}, 3).total)
	assert.Equal(t, 0, ngrams([]sequence{{{label: "a"}}}, 2).total)
}
