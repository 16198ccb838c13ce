package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
)

type RedisConfig struct {
	Host string
	Port int
}

// NewRedisStore returns a document store and annotation repository backed by redis.
// Documents are JSON strings, the annotations of a document are hashes keyed by
// record id (or annotator for save records), and a project is a set of document ids.
func NewRedisStore(conf RedisConfig) *RedisStore {
	return &RedisStore{
		Client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", conf.Host, conf.Port)}),
	}
}

type RedisStore struct {
	*redis.Client
}

var (
	_ store.DocumentStore        = (*RedisStore)(nil)
	_ store.AnnotationRepository = (*RedisStore)(nil)
)

func documentKey(id string) string          { return "document:" + id }
func projectKey(projectID string) string    { return "project:" + projectID + ":documents" }
func entitiesKey(documentID string) string  { return "entities:" + documentID }
func relationsKey(documentID string) string { return "relations:" + documentID }
func savesKey(documentID string) string     { return "saves:" + documentID }
func scoreKey(documentID string) string     { return "score:" + documentID }

func (r *RedisStore) Ready() bool {
	return r.Ping().Err() == nil
}

func (r *RedisStore) GetDocument(ctx context.Context, id string) (annotation.Document, error) {
	b, err := r.WithContext(ctx).Get(documentKey(id)).Bytes()
	if err == redis.Nil {
		return annotation.Document{}, errors.Wrapf(store.ErrNotFound, "document %s", id)
	} else if err != nil {
		return annotation.Document{}, err
	}
	var document annotation.Document
	return document, json.Unmarshal(b, &document)
}

func (r *RedisStore) ListDocuments(ctx context.Context, projectID string) ([]annotation.Document, error) {
	client := r.WithContext(ctx)
	ids, err := client.SMembers(projectKey(projectID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	pipe := client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(documentKey(id))
	}
	if _, err := pipe.Exec(); err != nil && err != redis.Nil {
		return nil, err
	}

	documents := make([]annotation.Document, 0, len(ids))
	for _, cmd := range cmds {
		b, err := cmd.Bytes()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return nil, err
		}
		var document annotation.Document
		if err := json.Unmarshal(b, &document); err != nil {
			return nil, err
		}
		documents = append(documents, document)
	}
	return documents, nil
}

func (r *RedisStore) PutDocuments(ctx context.Context, documents ...annotation.Document) error {
	if len(documents) == 0 {
		return nil
	}
	pipe := r.WithContext(ctx).Pipeline()
	for _, document := range documents {
		b, err := json.Marshal(document)
		if err != nil {
			return err
		}
		pipe.Set(documentKey(document.ID), b, 0)
		pipe.SAdd(projectKey(document.ProjectID), document.ID)
	}
	_, err := pipe.Exec()
	return err
}

// hashes reads one hash per document id in a single round trip.
func (r *RedisStore) hashes(ctx context.Context, key func(string) string, documentIDs []string) ([]map[string]string, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	pipe := r.WithContext(ctx).Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(documentIDs))
	for i, id := range documentIDs {
		cmds[i] = pipe.HGetAll(key(id))
	}
	if _, err := pipe.Exec(); err != nil && err != redis.Nil {
		return nil, err
	}
	res := make([]map[string]string, len(cmds))
	for i, cmd := range cmds {
		values, err := cmd.Result()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		res[i] = values
	}
	return res, nil
}

func (r *RedisStore) ListEntities(ctx context.Context, documentIDs ...string) ([]annotation.Entity, error) {
	hashes, err := r.hashes(ctx, entitiesKey, documentIDs)
	if err != nil {
		return nil, err
	}
	var entities []annotation.Entity
	for _, hash := range hashes {
		decoded, err := decodeHash[annotation.Entity](hash)
		if err != nil {
			return nil, err
		}
		sortEntities(decoded)
		entities = append(entities, decoded...)
	}
	return entities, nil
}

func (r *RedisStore) ListRelations(ctx context.Context, documentIDs ...string) ([]annotation.Relation, error) {
	hashes, err := r.hashes(ctx, relationsKey, documentIDs)
	if err != nil {
		return nil, err
	}
	var relations []annotation.Relation
	for _, hash := range hashes {
		decoded, err := decodeHash[annotation.Relation](hash)
		if err != nil {
			return nil, err
		}
		sort.Slice(decoded, func(i, j int) bool { return decoded[i].ID < decoded[j].ID })
		relations = append(relations, decoded...)
	}
	return relations, nil
}

func (r *RedisStore) ListSaveRecords(ctx context.Context, documentIDs ...string) ([]annotation.SaveRecord, error) {
	hashes, err := r.hashes(ctx, savesKey, documentIDs)
	if err != nil {
		return nil, err
	}
	var records []annotation.SaveRecord
	for _, hash := range hashes {
		decoded, err := decodeHash[annotation.SaveRecord](hash)
		if err != nil {
			return nil, err
		}
		sort.Slice(decoded, func(i, j int) bool { return decoded[i].AnnotatorID < decoded[j].AnnotatorID })
		records = append(records, decoded...)
	}
	return records, nil
}

func (r *RedisStore) PutSaveRecord(ctx context.Context, record annotation.SaveRecord) error {
	b, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.WithContext(ctx).HSet(savesKey(record.DocumentID), record.AnnotatorID, b).Err()
}

func (r *RedisStore) GetScore(ctx context.Context, documentID string) (annotation.AgreementScore, error) {
	b, err := r.WithContext(ctx).Get(scoreKey(documentID)).Bytes()
	if err == redis.Nil {
		return annotation.AgreementScore{}, errors.Wrapf(store.ErrNotFound, "score for document %s", documentID)
	} else if err != nil {
		return annotation.AgreementScore{}, err
	}
	var score annotation.AgreementScore
	return score, json.Unmarshal(b, &score)
}

func (r *RedisStore) PutScore(ctx context.Context, documentID string, score annotation.AgreementScore) error {
	b, err := json.Marshal(score)
	if err != nil {
		return err
	}
	return r.WithContext(ctx).Set(scoreKey(documentID), b, 0).Err()
}

// commitAttempts bounds the retries of a commit whose documents changed under it.
const commitAttempts = 5

// Commit writes the whole changeset in one MULTI/EXEC. The annotations of the
// touched documents are watched while the changeset is checked against them, so a
// concurrent commit to the same documents makes this one start over rather than
// write duplicates.
func (r *RedisStore) Commit(ctx context.Context, changeset annotation.Changeset) error {
	if changeset.Empty() {
		return nil
	}
	documentIDs := changeset.DocumentIDs()
	keys := make([]string, 0, 2*len(documentIDs))
	for _, id := range documentIDs {
		keys = append(keys, entitiesKey(id), relationsKey(id))
	}

	client := r.WithContext(ctx)
	for attempt := 1; ; attempt++ {
		err := client.Watch(func(tx *redis.Tx) error {
			return commitTx(tx, changeset, documentIDs)
		}, keys...)
		if err != redis.TxFailedErr {
			return err
		}
		if attempt == commitAttempts {
			return errors.Wrapf(err, "commit to documents %v", documentIDs)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func commitTx(tx *redis.Tx, changeset annotation.Changeset, documentIDs []string) error {
	var entities []annotation.Entity
	var relations []annotation.Relation
	for _, id := range documentIDs {
		hash, err := tx.HGetAll(entitiesKey(id)).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		decoded, err := decodeHash[annotation.Entity](hash)
		if err != nil {
			return err
		}
		entities = append(entities, decoded...)

		hash, err = tx.HGetAll(relationsKey(id)).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		decodedRelations, err := decodeHash[annotation.Relation](hash)
		if err != nil {
			return err
		}
		relations = append(relations, decodedRelations...)
	}

	changeset, err := changeset.Deduplicate(entities, relations)
	if err != nil {
		return err
	}
	if changeset.Empty() {
		return nil
	}
	cascade := relationsUsing(relations, changeset.DeletedEntities)

	_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
		for _, e := range append(append([]annotation.Entity{}, changeset.CreatedEntities...), changeset.UpdatedEntities...) {
			b, err := json.Marshal(e)
			if err != nil {
				return err
			}
			pipe.HSet(entitiesKey(e.DocumentID), e.ID, b)
		}
		for _, rel := range append(append([]annotation.Relation{}, changeset.CreatedRelations...), changeset.UpdatedRelations...) {
			b, err := json.Marshal(rel)
			if err != nil {
				return err
			}
			pipe.HSet(relationsKey(rel.DocumentID), rel.ID, b)
		}
		for _, rel := range append(append([]annotation.Relation{}, changeset.DeletedRelations...), cascade...) {
			pipe.HDel(relationsKey(rel.DocumentID), rel.ID)
		}
		for _, e := range changeset.DeletedEntities {
			pipe.HDel(entitiesKey(e.DocumentID), e.ID)
		}
		return nil
	})
	return err
}

func relationsUsing(relations []annotation.Relation, entities []annotation.Entity) []annotation.Relation {
	deleted := make(map[string]bool, len(entities))
	for _, e := range entities {
		deleted[e.ID] = true
	}
	var res []annotation.Relation
	for _, rel := range relations {
		if deleted[rel.Source] || deleted[rel.Target] {
			res = append(res, rel)
		}
	}
	return res
}

func decodeHash[T any](hash map[string]string) ([]T, error) {
	res := make([]T, 0, len(hash))
	for field, value := range hash {
		var v T
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return nil, errors.Wrapf(err, "decode %s", field)
		}
		res = append(res, v)
	}
	return res, nil
}

func sortEntities(entities []annotation.Entity) {
	sort.Slice(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.ID < b.ID
	})
}
