// Package snippet_reader turns source files into text snippets with the byte offset
// they were found at. The corpus importer builds document raw text from snippets.
package snippet_reader

import (
	"io"
)

// Snippet is a run of text from a source file. Offset is the byte offset of the text
// in the source and Xpath locates it in HTML sources.
type Snippet struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
	Xpath  string `json:"xpath,omitempty"`
}

type Client interface {
	ReadSnippets(r io.Reader) <-chan Value
	ReadSnippetsWithCallback(r io.Reader, onSnippet func(*Snippet) error) error
}

// Value is sent on a snippet channel. The last value of a channel carries io.EOF or
// the error that stopped reading.
type Value struct {
	Snippet *Snippet
	Err     error
}

func ReadChannelWithCallback(snipReaderValues <-chan Value, callback func(snippet *Snippet) error) error {
	for readerValue := range snipReaderValues {
		if readerValue.Err == io.EOF {
			break
		} else if readerValue.Err != nil {
			return readerValue.Err
		}
		if err := callback(readerValue.Snippet); err != nil {
			return err
		}
	}
	return nil
}

// ReadAll collects every snippet client reads from r.
func ReadAll(client Client, r io.Reader) ([]*Snippet, error) {
	var snippets []*Snippet
	err := client.ReadSnippetsWithCallback(r, func(snippet *Snippet) error {
		snippets = append(snippets, snippet)
		return nil
	})
	return snippets, err
}
