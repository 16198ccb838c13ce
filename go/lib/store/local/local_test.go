package local

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
)

var ctx = context.Background()

func TestStore_documents(t *testing.T) {
	s := New()
	require.NoError(t, s.PutDocuments(ctx,
		annotation.Document{ID: "x", ProjectID: "p"},
		annotation.Document{ID: "y", ProjectID: "p"},
		annotation.Document{ID: "z", ProjectID: "q"},
	))
	require.NoError(t, s.PutDocuments(ctx, annotation.Document{ID: "x", ProjectID: "p", RawText: "updated"}))

	documents, err := s.ListDocuments(ctx, "p")
	require.NoError(t, err)
	require.Len(t, documents, 2)
	assert.Equal(t, "updated", documents[0].RawText)

	_, err = s.GetDocument(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStore_Commit(t *testing.T) {
	s := New()
	paris := annotation.Entity{ID: "paris", DocumentID: "x", Start: 0, End: 0, LabelID: "LOC", Suggested: true}
	france := annotation.Entity{ID: "france", DocumentID: "x", Start: 5, End: 5, LabelID: "LOC"}
	capital := annotation.Relation{ID: "r", DocumentID: "x", Source: "paris", Target: "france", LabelID: "capitalOf"}

	require.NoError(t, s.Commit(ctx, annotation.Changeset{
		CreatedEntities:  []annotation.Entity{paris, france},
		CreatedRelations: []annotation.Relation{capital},
	}))

	paris.Suggested = false
	require.NoError(t, s.Commit(ctx, annotation.Changeset{UpdatedEntities: []annotation.Entity{paris}}))
	entities, err := s.ListEntities(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []annotation.Entity{paris, france}, entities)

	// deleting an endpoint removes the relation with it
	require.NoError(t, s.Commit(ctx, annotation.Changeset{DeletedEntities: []annotation.Entity{france}}))
	relations, err := s.ListRelations(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, relations)
	entities, err = s.ListEntities(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []annotation.Entity{paris}, entities)
}

func TestStore_Commit_existing(t *testing.T) {
	s := New()
	paris := annotation.Entity{ID: "paris", DocumentID: "x", Start: 0, End: 0, LabelID: "LOC", CreatedBy: "A", Suggested: true}
	france := annotation.Entity{ID: "france", DocumentID: "x", Start: 5, End: 5, LabelID: "LOC", CreatedBy: "A", Suggested: true}
	capital := annotation.Relation{ID: "r", DocumentID: "x", Source: "paris", Target: "france", LabelID: "capitalOf", CreatedBy: "A", Suggested: true}
	require.NoError(t, s.Commit(ctx, annotation.Changeset{
		CreatedEntities:  []annotation.Entity{paris, france},
		CreatedRelations: []annotation.Relation{capital},
	}))

	// the same records planned again under new ids, the relation now confirmed
	paris2, france2, capital2 := paris, france, capital
	paris2.ID, france2.ID = "paris-2", "france-2"
	capital2.ID, capital2.Source, capital2.Target, capital2.Suggested = "r-2", "paris-2", "france-2", false
	require.NoError(t, s.Commit(ctx, annotation.Changeset{
		CreatedEntities:  []annotation.Entity{paris2, france2},
		CreatedRelations: []annotation.Relation{capital2},
	}))

	entities, err := s.ListEntities(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []annotation.Entity{paris, france}, entities)
	relations, err := s.ListRelations(ctx, "x")
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, "r", relations[0].ID)
	assert.False(t, relations[0].Suggested)
}

func TestStore_Commit_integrity(t *testing.T) {
	s := New()
	err := s.Commit(ctx, annotation.Changeset{
		CreatedEntities:  []annotation.Entity{{ID: "a", DocumentID: "x"}},
		CreatedRelations: []annotation.Relation{{ID: "r", DocumentID: "x", Source: "a", Target: "missing"}},
	})
	assert.True(t, errors.Is(err, annotation.ErrIntegrity))

	// nothing was applied
	entities, err := s.ListEntities(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, entities)

	err = s.Commit(ctx, annotation.Changeset{
		CreatedEntities:  []annotation.Entity{{ID: "a", DocumentID: "x"}, {ID: "b", DocumentID: "y"}},
		CreatedRelations: []annotation.Relation{{ID: "r", DocumentID: "x", Source: "a", Target: "b"}},
	})
	assert.True(t, errors.Is(err, annotation.ErrCrossDocument))
}

func TestStore_saves_and_scores(t *testing.T) {
	s := New()
	require.NoError(t, s.PutSaveRecord(ctx, annotation.SaveRecord{DocumentID: "x", AnnotatorID: "A"}))
	require.NoError(t, s.PutSaveRecord(ctx, annotation.SaveRecord{DocumentID: "x", AnnotatorID: "A"}))
	records, err := s.ListSaveRecords(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = s.GetScore(ctx, "x")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	require.NoError(t, s.PutScore(ctx, "x", annotation.AgreementScore{Overall: 50, Entity: 50}))
	score, err := s.GetScore(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 50.0, score.Entity)
}
