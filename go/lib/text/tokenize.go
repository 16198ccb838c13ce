package text

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/segment"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
)

const NonAlphaNumericChar = 0

// Tokenize
/**
	Tokenize splits text into tokens and calls onToken for each token found, together with
	the byte offset of the token in text.

	exactMatch controls whether the tokens are split only on whitespace or not.
	E.g. with exactMatch, "some-text" is a single token. Without exact match, it is
	three tokens: "some", "-", "text".
**/
func Tokenize(
	text string,
	onToken func(value string, offset int) error,
	exactMatch bool,
) error {

	segmenter := segment.NewWordSegmenterDirect([]byte(text))
	buffer := bytes.NewBuffer([]byte{})

	var position = 0
	var tokenOffset = 0

	flush := func() error {
		if buffer.Len() == 0 {
			return nil
		}
		err := onToken(buffer.String(), tokenOffset)
		buffer.Reset()
		return err
	}

	for segmenter.Segment() {
		segmentBytes := segmenter.Bytes()

		switch {
		case segmenter.Type() == NonAlphaNumericChar && isWhitespace(segmentBytes):
			// whitespace always ends the current token
			if err := flush(); err != nil {
				return err
			}
		case segmenter.Type() == NonAlphaNumericChar && !exactMatch:
			// punctuation is a token of its own
			if err := flush(); err != nil {
				return err
			}
			buffer.Write(segmentBytes)
			tokenOffset = position
			if err := flush(); err != nil {
				return err
			}
		default:
			if buffer.Len() == 0 {
				tokenOffset = position
			} else if !exactMatch {
				if err := flush(); err != nil {
					return err
				}
				tokenOffset = position
			}
			buffer.Write(segmentBytes)
		}
		position += len(segmentBytes)
	}
	if err := segmenter.Err(); err != nil {
		return err
	}

	// if we have something in the buffer once the segmenter has finished, send it
	return flush()
}

// TokenizeDocument builds a document whose tokens are consistent with rawText.
func TokenizeDocument(id, projectID, rawText string) (annotation.Document, error) {
	document := annotation.Document{
		ID:        id,
		ProjectID: projectID,
		RawText:   rawText,
		Tokens:    []annotation.Token{},
	}
	err := Tokenize(rawText, func(value string, _ int) error {
		document.Tokens = append(document.Tokens, annotation.Token{
			Index: len(document.Tokens),
			Value: value,
		})
		return nil
	}, false)
	return document, err
}

func isWhitespace(b []byte) bool {
	r, _ := utf8.DecodeRune(b)
	return unicode.IsSpace(r) || r < 32
}
