package propagation

import (
	"strings"

	"github.com/pkg/errors"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
)

// Action is the annotator decision being propagated.
type Action string

const (
	Apply  Action = "apply"
	Accept Action = "accept"
	Delete Action = "delete"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case Apply, Accept, Delete:
		return a, nil
	}
	return "", errors.Wrapf(annotation.ErrInvalidAction, "%q", s)
}

// Span is a labelled token range of the focus document. SurfaceText defaults to the
// raw text the range covers.
type Span struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	LabelID     string `json:"labelId"`
	SurfaceText string `json:"surfaceText,omitempty"`
}

func (s Span) length() int {
	return s.End - s.Start + 1
}

func (s Span) key() annotation.EntityKey {
	return annotation.EntityKey{Start: s.Start, End: s.End, LabelID: s.LabelID}
}

func spanOf(e annotation.Entity) Span {
	return Span{Start: e.Start, End: e.End, LabelID: e.LabelID, SurfaceText: e.SurfaceText}
}

// Focus is the annotation an annotator acted on: an EntityFocus or a RelationFocus.
type Focus interface {
	focusDocument() string
	focusAnnotator() string
	kind() string
}

type EntityFocus struct {
	DocumentID  string `json:"documentId"`
	AnnotatorID string `json:"annotatorId"`
	Span
}

func (f EntityFocus) focusDocument() string  { return f.DocumentID }
func (f EntityFocus) focusAnnotator() string { return f.AnnotatorID }
func (f EntityFocus) kind() string           { return "entity" }

// RelationFocus names its endpoints either by the ids of existing entities of the
// focus document or by spans. An id takes precedence over a span.
type RelationFocus struct {
	DocumentID      string `json:"documentId"`
	AnnotatorID     string `json:"annotatorId"`
	SourceEntityID  string `json:"sourceEntityId,omitempty"`
	TargetEntityID  string `json:"targetEntityId,omitempty"`
	Source          Span   `json:"source"`
	Target          Span   `json:"target"`
	RelationLabelID string `json:"relationLabelId"`
}

func (f RelationFocus) focusDocument() string  { return f.DocumentID }
func (f RelationFocus) focusAnnotator() string { return f.AnnotatorID }
func (f RelationFocus) kind() string           { return "relation" }
