package text

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	firstGroup  = "first"
	secondGroup = "second"
)

// EscapeLiteral quotes every regex metacharacter in surface and lets any run of
// whitespace match any other run of whitespace. Every pattern built from a surface
// text goes through this function.
func EscapeLiteral(surface string) string {
	fields := strings.Fields(surface)
	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = regexp.QuoteMeta(field)
	}
	return strings.Join(quoted, `\s+`)
}

// boundaries wraps an escaped literal in \b anchors on the sides where surface
// starts or ends with an ASCII word character, the only characters \b knows about.
func boundaries(surface, escaped string) string {
	surface = strings.TrimSpace(surface)
	first, _ := utf8.DecodeRuneInString(surface)
	last, _ := utf8.DecodeLastRuneInString(surface)
	if isWordRune(first) {
		escaped = `\b` + escaped
	}
	if isWordRune(last) {
		escaped += `\b`
	}
	return escaped
}

func isWordRune(r rune) bool {
	return r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

// LiteralPattern compiles a case-insensitive, word-bounded pattern matching surface.
func LiteralPattern(surface string) (*regexp.Regexp, error) {
	if strings.TrimSpace(surface) == "" {
		return nil, errors.New("empty surface text")
	}
	return regexp.Compile(`(?i)` + boundaries(surface, EscapeLiteral(surface)))
}

// PairPattern compiles a case-insensitive pattern matching first, then gap tokens,
// then second. The two surfaces are captured in the groups returned by PairGroups.
//
// A gap token is any run of non-space text and may be glued to its neighbours, as
// punctuation split off by Tokenize is ("Paris, capital of France" has a gap of
// three tokens). A match is therefore only a candidate: the caller must check the
// token gap against the document's own tokens.
func PairPattern(first, second string, gap int) (*regexp.Regexp, error) {
	if strings.TrimSpace(first) == "" || strings.TrimSpace(second) == "" {
		return nil, errors.New("empty surface text")
	}
	if gap < 0 {
		return nil, errors.Errorf("negative gap %d", gap)
	}
	var b strings.Builder
	b.WriteString(`(?i)`)
	b.WriteString(fmt.Sprintf(`(?P<%s>%s)`, firstGroup, boundaries(first, EscapeLiteral(first))))
	if gap > 0 {
		b.WriteString(fmt.Sprintf(`(?:\s*\S+?){%d}`, gap))
	}
	b.WriteString(`\s*`)
	b.WriteString(fmt.Sprintf(`(?P<%s>%s)`, secondGroup, boundaries(second, EscapeLiteral(second))))
	return regexp.Compile(b.String())
}

// PairGroups returns the submatch indexes of the first and second surface in a
// pattern built by PairPattern.
func PairGroups(re *regexp.Regexp) (int, int) {
	return re.SubexpIndex(firstGroup), re.SubexpIndex(secondGroup)
}
