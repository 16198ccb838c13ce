package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	snippet_reader "gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/snippet-reader"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/snippet-reader/html"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/snippet-reader/text"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store"
	tokenizer "gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/text"
)

type CorpusFormat string

const (
	TextCorpusFormat CorpusFormat = "text"
	HTMLCorpusFormat CorpusFormat = "html"
)

// extensions returns the file extensions read for the format.
func (f CorpusFormat) extensions() []string {
	switch f {
	case TextCorpusFormat:
		return []string{".txt"}
	case HTMLCorpusFormat:
		return []string{".html", ".htm"}
	}
	return nil
}

func (f CorpusFormat) reader() (snippet_reader.Client, error) {
	switch f {
	case TextCorpusFormat:
		return text.SnippetReader{}, nil
	case HTMLCorpusFormat:
		return html.SnippetReader{}, nil
	}
	return nil, errors.Errorf("invalid corpus format %q", f)
}

// documentID is the path of file relative to root, without its extension and with
// forward slashes.
func documentID(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.ToSlash(rel), nil
}

// rawText joins the snippets of a source with newlines.
func rawText(snippets []*snippet_reader.Snippet) string {
	lines := make([]string, len(snippets))
	for i, snippet := range snippets {
		lines[i] = strings.TrimSpace(snippet.Text)
	}
	return strings.Join(lines, "\n")
}

type importer struct {
	documents store.DocumentStore
	projectID string
	format    CorpusFormat
	batchSize int
}

// sources lists the files under root that the importer reads, in lexical order.
func (im importer) sources(root string) ([]string, error) {
	extensions := make(map[string]struct{})
	for _, ext := range im.format.extensions() {
		extensions[ext] = struct{}{}
	}
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if _, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (im importer) document(root, file string, client snippet_reader.Client) (annotation.Document, error) {
	id, err := documentID(root, file)
	if err != nil {
		return annotation.Document{}, err
	}
	f, err := os.Open(file)
	if err != nil {
		return annotation.Document{}, err
	}
	defer f.Close()

	snippets, err := snippet_reader.ReadAll(client, f)
	if err != nil {
		return annotation.Document{}, errors.Wrapf(err, "reading %s", file)
	}
	return tokenizer.TokenizeDocument(id, im.projectID, rawText(snippets))
}

// Import reads every source under root and writes the documents in batches. It
// returns the number of documents written, and stops between batches when ctx is
// cancelled.
func (im importer) Import(ctx context.Context, root string) (int, error) {
	client, err := im.format.reader()
	if err != nil {
		return 0, err
	}
	files, err := im.sources(root)
	if err != nil {
		return 0, err
	}
	batchSize := im.batchSize
	if batchSize < 1 {
		batchSize = 1
	}

	written := 0
	batch := make([]annotation.Document, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := im.documents.PutDocuments(ctx, batch...); err != nil {
			return err
		}
		written += len(batch)
		log.Info().Int("documents", written).Int("total", len(files)).Msg("imported batch")
		batch = batch[:0]
		return nil
	}

	for _, file := range files {
		document, err := im.document(root, file, client)
		if err != nil {
			return written, err
		}
		if len(document.Tokens) == 0 {
			log.Warn().Str("file", file).Msg("no text, skipping")
			continue
		}
		batch = append(batch, document)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	err = flush()
	return written, err
}
