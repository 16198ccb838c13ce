// Package testhelpers builds fixtures shared by the engine and API tests.
package testhelpers

import (
	"fmt"
	"strings"

	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	snippet_reader "gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/snippet-reader"
)

// Document tokenizes raw on whitespace, so that every token is found verbatim in the
// raw text.
func Document(projectID, id, raw string) annotation.Document {
	fields := strings.Fields(raw)
	tokens := make([]annotation.Token, len(fields))
	for i, field := range fields {
		tokens[i] = annotation.Token{Index: i, Value: field}
	}
	return annotation.Document{ID: id, ProjectID: projectID, Tokens: tokens, RawText: raw}
}

// Entity is a confirmed single-label entity of annotator.
func Entity(id, documentID, annotator string, start, end int, label, surface string) annotation.Entity {
	return annotation.Entity{
		ID:          id,
		DocumentID:  documentID,
		Start:       start,
		End:         end,
		LabelID:     label,
		CreatedBy:   annotator,
		SurfaceText: surface,
	}
}

// SequentialIDs returns an id generator yielding id-1, id-2, ...
func SequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func Snips(texts ...string) []*snippet_reader.Snippet {
	snippets := make([]*snippet_reader.Snippet, len(texts))
	for i, text := range texts {
		snippets[i] = Snip(text, 0, "")
	}
	return snippets
}

func Snip(text string, offset int, xpath string) *snippet_reader.Snippet {
	return &snippet_reader.Snippet{
		Text:   text,
		Offset: offset,
		Xpath:  xpath,
	}
}
