package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/store/local"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/testhelpers"
	tokenizer "gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/text"
)

func writeFile(t *testing.T, path, contents string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func Test_documentID(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{name: "top level", file: "/corpus/abstract.txt", want: "abstract"},
		{name: "nested", file: "/corpus/2021/march/abstract.html", want: "2021/march/abstract"},
	}
	for _, tt := range tests {
		t.Log(tt.name)
		got, err := documentID("/corpus", tt.file)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func Test_rawText(t *testing.T) {
	got := rawText(testhelpers.Snips(" Insulin was given. ", "Glucose fell."))
	assert.Equal(t, "Insulin was given.\nGlucose fell.", got)
	assert.Equal(t, "", rawText(nil))
}

func Test_importer_Import(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "Patients were given insulin.\n\nGlucose levels fell.\n")
	writeFile(t, filepath.Join(root, "nested", "b.txt"), "Insulin resistance")
	writeFile(t, filepath.Join(root, "empty.txt"), "\n\n")
	writeFile(t, filepath.Join(root, "ignored.html"), "<p>not text</p>")

	ctx := context.Background()
	db := local.New()
	im := importer{documents: db, projectID: "med", format: TextCorpusFormat, batchSize: 1}

	n, err := im.Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	documents, err := db.ListDocuments(ctx, "med")
	require.NoError(t, err)
	require.Len(t, documents, 2)
	assert.Equal(t, "a", documents[0].ID)
	assert.Equal(t, "Patients were given insulin.\nGlucose levels fell.", documents[0].RawText)
	assert.Equal(t, "nested/b", documents[1].ID)

	for _, document := range documents {
		_, err := tokenizer.NewOffsetIndex(document)
		assert.NoError(t, err, document.ID)
	}
}

func Test_importer_Import_html(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "page.html"), "<html><body><h1>Insulin</h1><p>Glucose <b>fell</b>.</p><script>var x;</script></body></html>")

	ctx := context.Background()
	db := local.New()
	im := importer{documents: db, projectID: "web", format: HTMLCorpusFormat, batchSize: 10}

	n, err := im.Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	document, err := db.GetDocument(ctx, "page")
	require.NoError(t, err)
	assert.NotContains(t, document.RawText, "var x")
	assert.Contains(t, document.RawText, "Insulin")
}

func Test_importer_Import_errors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "insulin")

	_, err := importer{documents: local.New(), format: "pdf"}.Import(context.Background(), root)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := importer{documents: local.New(), format: TextCorpusFormat, batchSize: 5}.Import(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)
}
