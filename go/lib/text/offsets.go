package text

import (
	"strings"

	"github.com/pkg/errors"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
)

// ErrTokenMismatch is returned when a document's tokens cannot be located in its raw text.
var ErrTokenMismatch = errors.New("tokens do not match raw text")

// OffsetIndex maps byte offsets of a document's raw text to token indexes.
type OffsetIndex struct {
	starts  map[int]int
	offsets []int
	ends    []int
}

// NewOffsetIndex locates every token of document in its raw text, in order. Tokens
// must be dense from 0 and each must occur in the raw text after the previous one.
func NewOffsetIndex(document annotation.Document) (*OffsetIndex, error) {
	index := &OffsetIndex{
		starts:  make(map[int]int, len(document.Tokens)),
		offsets: make([]int, len(document.Tokens)),
		ends:    make([]int, len(document.Tokens)),
	}
	cursor := 0
	for i, token := range document.Tokens {
		if token.Index != i {
			return nil, errors.Wrapf(ErrTokenMismatch, "document %s: token %d has index %d", document.ID, i, token.Index)
		}
		if token.Value == "" {
			return nil, errors.Wrapf(ErrTokenMismatch, "document %s: token %d is empty", document.ID, i)
		}
		found := strings.Index(document.RawText[cursor:], token.Value)
		if found < 0 {
			return nil, errors.Wrapf(ErrTokenMismatch, "document %s: token %d %q not found after byte %d", document.ID, i, token.Value, cursor)
		}
		start := cursor + found
		index.starts[start] = i
		index.offsets[i] = start
		cursor = start + len(token.Value)
		index.ends[i] = cursor
	}
	return index, nil
}

// TokenAt returns the index of the token starting at offset.
func (o *OffsetIndex) TokenAt(offset int) (int, bool) {
	i, ok := o.starts[offset]
	return i, ok
}

// StartOf returns the byte offset of token i.
func (o *OffsetIndex) StartOf(i int) int {
	return o.offsets[i]
}

// EndOf returns the byte offset just after token i.
func (o *OffsetIndex) EndOf(i int) int {
	return o.ends[i]
}

func (o *OffsetIndex) Len() int {
	return len(o.ends)
}

// Resolve converts the byte range [start, end) of a match into an inclusive token
// range of the given length. The match must start on a token boundary and end
// exactly where the last token ends.
func (o *OffsetIndex) Resolve(start, end, length int) (int, int, bool) {
	first, ok := o.TokenAt(start)
	if !ok || length < 1 {
		return 0, 0, false
	}
	last := first + length - 1
	if last >= o.Len() || o.EndOf(last) != end {
		return 0, 0, false
	}
	return first, last, true
}
