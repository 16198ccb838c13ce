package text

import (
	"bufio"
	"io"

	snippet_reader "gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/snippet-reader"
)

// SnippetReader reads plain text one line at a time.
type SnippetReader struct{}

func (t SnippetReader) ReadSnippets(r io.Reader) <-chan snippet_reader.Value {
	return ReadSnippets(r)
}

func (t SnippetReader) ReadSnippetsWithCallback(r io.Reader, onSnippet func(*snippet_reader.Snippet) error) error {
	snips := ReadSnippets(r)
	return snippet_reader.ReadChannelWithCallback(snips, onSnippet)
}

func ReadSnippets(r io.Reader) <-chan snippet_reader.Value {
	snips := make(chan snippet_reader.Value)
	go readLines(r, snips)
	return snips
}

// readLines sends every non-empty line, then io.EOF.
func readLines(r io.Reader, values chan snippet_reader.Value) {
	defer close(values)
	scanner := bufio.NewScanner(r)
	offset := 0
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > 0 {
			values <- snippet_reader.Value{
				Snippet: &snippet_reader.Snippet{
					Text:   line,
					Offset: offset,
				},
			}
		}
		offset += len(line) + 1 // +1 for newline character
	}
	if err := scanner.Err(); err != nil {
		values <- snippet_reader.Value{Err: err}
		return
	}
	values <- snippet_reader.Value{Err: io.EOF}
}
