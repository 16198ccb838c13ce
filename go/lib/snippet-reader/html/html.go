package html

import (
	"io"

	snippet_reader "gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/snippet-reader"
	"golang.org/x/net/html"
)

var disallowedNodes = map[string]struct{}{
	"area":     {},
	"audio":    {},
	"link":     {},
	"meta":     {},
	"noscript": {},
	"script":   {},
	"source":   {},
	"style":    {},
	"input":    {},
	"textarea": {},
	"video":    {},
}

var nonBreakingNodes = map[string]struct{}{
	"span":   {},
	"sub":    {},
	"sup":    {},
	"b":      {},
	"del":    {},
	"i":      {},
	"ins":    {},
	"mark":   {},
	"q":      {},
	"s":      {},
	"strike": {},
	"strong": {},
	"u":      {},
	"big":    {},
	"small":  {},
	"a":      {},
	"emph":   {},
}

// SnippetReader reads the visible text of an HTML document, one snippet per block
// element. Inline elements are folded into their enclosing block.
type SnippetReader struct{}

func (SnippetReader) ReadSnippets(r io.Reader) <-chan snippet_reader.Value {
	return ReadSnippets(r)
}

func (s SnippetReader) ReadSnippetsWithCallback(r io.Reader, onSnippet func(*snippet_reader.Snippet) error) error {
	return ReadSnippetsWithCallback(r, onSnippet)
}

// ReadSnippets is a convenience function so that the caller doesn't need to instantiate
// a channel.
func ReadSnippets(r io.Reader) <-chan snippet_reader.Value {
	snips := make(chan snippet_reader.Value)
	go htmlToText(r, snips)
	return snips
}

func ReadSnippetsWithCallback(r io.Reader, onSnippet func(*snippet_reader.Snippet) error) error {
	snips := ReadSnippets(r)
	return snippet_reader.ReadChannelWithCallback(snips, onSnippet)
}

// extractor follows the tokens of the x/net/html tokenizer and keeps a stack of open
// tags. When a block element closes, the text collected under it is sent as one
// snippet, located at the byte offset just after its start tag.
type extractor struct {
	snips    chan<- snippet_reader.Value
	stack    htmlStack
	position int
}

func (e *extractor) send(tag *htmlTag) error {
	if len(tag.innerText) == 0 {
		return nil
	}
	e.snips <- snippet_reader.Value{
		Snippet: &snippet_reader.Snippet{
			Text:   string(append(tag.innerText, '\n')),
			Offset: tag.start,
			Xpath:  tag.xpath,
		},
	}
	return nil
}

func discard(*htmlTag) error { return nil }

// next handles one token and returns false once the tokenizer is exhausted.
func (e *extractor) next(z *html.Tokenizer) (bool, error) {
	tokenType := z.Next()
	if tokenType == html.ErrorToken {
		// io.EOF once the input is exhausted
		return false, z.Err()
	}

	// Raw must be read before any other accessor, which may rewrite the token in place.
	size := len(z.Raw())
	defer func() { e.position += size }()

	switch tokenType {
	case html.TextToken:
		if !e.stack.disallowed {
			e.stack.collectText(z.Text())
		}
	case html.StartTagToken:
		name, _ := z.TagName()
		e.stack.push(&htmlTag{name: string(name), start: e.position + size})
	case html.EndTagToken:
		return true, e.stack.pop(e.send)
	case html.SelfClosingTagToken:
		name, _ := z.TagName()
		if string(name) == "br" {
			e.stack.collectText([]byte{'\n'})
		}
		e.stack.push(&htmlTag{name: string(name), start: e.position})
		return true, e.stack.pop(discard)
	}
	return true, nil
}

// htmlToText sends the snippets of r on snips, then the error that ended reading, and
// closes the channel.
func htmlToText(r io.Reader, snips chan snippet_reader.Value) {
	defer close(snips)
	z := html.NewTokenizer(r)
	e := &extractor{snips: snips}
	for {
		more, err := e.next(z)
		if err != nil {
			snips <- snippet_reader.Value{Err: err}
			return
		}
		if !more {
			// the tokenizer reported no error, so report a clean end
			snips <- snippet_reader.Value{Err: io.EOF}
			return
		}
	}
}
