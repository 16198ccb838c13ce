package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/pkg/errors"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
)

type ElasticsearchConfig struct {
	Host  string
	Port  int
	Index string
	// MaxDocuments bounds the size of a project listing.
	MaxDocuments int `mapstructure:"max_documents"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string              `json:"_id"`
			Source annotation.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esGetResponse struct {
	Found  bool                `json:"found"`
	Source annotation.Document `json:"_source"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// NewElasticsearchStore returns a document store keeping one elasticsearch document
// per annotation document, with the document id as _id.
func NewElasticsearchStore(conf ElasticsearchConfig) (*ElasticsearchStore, error) {
	c, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{fmt.Sprintf("http://%s:%d", conf.Host, conf.Port)},
	})
	if err != nil {
		return nil, err
	}
	maxDocuments := conf.MaxDocuments
	if maxDocuments <= 0 {
		maxDocuments = 10000
	}
	return &ElasticsearchStore{
		Client:       c,
		index:        conf.Index,
		maxDocuments: maxDocuments,
	}, nil
}

type ElasticsearchStore struct {
	*elasticsearch.Client
	index        string
	maxDocuments int
}

var _ store.DocumentStore = (*ElasticsearchStore)(nil)

func (e *ElasticsearchStore) Ready() bool {
	res, err := e.Info()
	if err != nil || res.StatusCode != 200 {
		return false
	}
	return true
}

func (e *ElasticsearchStore) GetDocument(ctx context.Context, id string) (annotation.Document, error) {
	res, err := e.Get(e.index, id, e.Get.WithContext(ctx))
	if err != nil {
		return annotation.Document{}, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return annotation.Document{}, errors.Wrapf(store.ErrNotFound, "document %s", id)
	} else if res.IsError() {
		return annotation.Document{}, errors.New(res.String())
	}

	var response esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return annotation.Document{}, err
	}
	if !response.Found {
		return annotation.Document{}, errors.Wrapf(store.ErrNotFound, "document %s", id)
	}
	return response.Source, nil
}

func (e *ElasticsearchStore) ListDocuments(ctx context.Context, projectID string) ([]annotation.Document, error) {
	body, err := projectQuery(projectID)
	if err != nil {
		return nil, err
	}
	res, err := e.Search(
		e.Search.WithContext(ctx),
		e.Search.WithIndex(e.index),
		e.Search.WithBody(body),
		e.Search.WithSize(e.maxDocuments),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	} else if res.IsError() {
		return nil, errors.New(res.String())
	}
	return decodeSearch(res.Body)
}

func (e *ElasticsearchStore) PutDocuments(ctx context.Context, documents ...annotation.Document) error {
	if len(documents) == 0 {
		return nil
	}
	buf, err := bulkBody(documents)
	if err != nil {
		return err
	}
	res, err := e.Bulk(buf, e.Bulk.WithContext(ctx), e.Bulk.WithIndex(e.index), e.Bulk.WithRefresh("true"))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.New(res.String())
	}
	return checkBulk(res.Body)
}

func projectQuery(projectID string) (io.Reader, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"projectId.keyword": projectID,
			},
		},
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

func bulkBody(documents []annotation.Document) (*bytes.Buffer, error) {
	buf := bytes.NewBuffer(nil)
	for _, document := range documents {
		action, err := json.Marshal(map[string]interface{}{"index": map[string]string{"_id": document.ID}})
		if err != nil {
			return nil, err
		}
		source, err := json.Marshal(document)
		if err != nil {
			return nil, err
		}
		buf.Write(action)
		buf.WriteString("\n")
		buf.Write(source)
		buf.WriteString("\n")
	}
	return buf, nil
}

func decodeSearch(r io.Reader) ([]annotation.Document, error) {
	var response esSearchResponse
	if err := json.NewDecoder(r).Decode(&response); err != nil {
		return nil, err
	}
	documents := make([]annotation.Document, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		document := hit.Source
		if document.ID == "" {
			document.ID = hit.ID
		}
		documents = append(documents, document)
	}
	sort.Slice(documents, func(i, j int) bool { return documents[i].ID < documents[j].ID })
	return documents, nil
}

func checkBulk(r io.Reader) error {
	var response esBulkResponse
	if err := json.NewDecoder(r).Decode(&response); err != nil {
		return err
	}
	if !response.Errors {
		return nil
	}
	for _, item := range response.Items {
		for action, result := range item {
			if result.Status >= 300 {
				return errors.Errorf("bulk %s of %s failed: %s: %s", action, result.ID, result.Error.Type, result.Error.Reason)
			}
		}
	}
	return errors.New("bulk request reported errors")
}
