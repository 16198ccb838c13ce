package propagation

import (
	"context"

	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/text"
)

// entity acts on the focus span in its own document, then on every lexically equal
// span elsewhere in the corpus. Two spans with the same surface text are taken to
// name the same thing wherever they occur.
func (p *plan) entity(ctx context.Context, f EntityFocus) error {
	d := p.corpus.docs[f.DocumentID]
	span, err := p.resolveSpan(d, f.Span)
	if err != nil {
		return err
	}

	switch p.action {
	case Apply, Accept:
		p.ensureEntity(d, span, true)
	case Delete:
		if e, ok := d.findEntity(p.annotator, span.key()); ok {
			p.deleteEntity(d, e)
		}
	}

	if !p.Blocklist.Allowed(span.SurfaceText) {
		log.Debug().Str("surface", span.SurfaceText).Msg("blocklisted surface is not propagated")
		return nil
	}
	if p.action == Apply {
		return p.scanEntity(ctx, f.DocumentID, span)
	}
	return p.matchEntities(ctx, span)
}

// scanEntity suggests span wherever its surface text occurs in another document.
func (p *plan) scanEntity(ctx context.Context, focusDocument string, span Span) error {
	re, err := text.LiteralPattern(span.SurfaceText)
	if err != nil {
		return err
	}
	for _, id := range p.corpus.order {
		if id == focusDocument {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d := p.corpus.docs[id]
		offsets, err := d.offsetIndex()
		if err != nil {
			p.skip(id, err)
			continue
		}
		raw := d.document.RawText
		for _, m := range re.FindAllStringIndex(raw, -1) {
			start, end, ok := offsets.Resolve(m[0], m[1], span.length())
			if !ok {
				log.Debug().Str("document_id", id).Int("offset", m[0]).Msg("match is not on token boundaries")
				continue
			}
			p.ensureEntity(d, Span{Start: start, End: end, LabelID: span.LabelID, SurfaceText: raw[m[0]:m[1]]}, false)
		}
	}
	return nil
}

// matchEntities accepts or deletes the annotator's stored entities with the label and
// surface text of span, in every document of the corpus.
func (p *plan) matchEntities(ctx context.Context, span Span) error {
	for _, id := range p.corpus.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := p.corpus.docs[id]
		for _, e := range d.entitiesBy(p.annotator) {
			if !p.sameEntity(d, e, span) {
				continue
			}
			switch p.action {
			case Accept:
				p.acceptEntity(d, e)
			case Delete:
				p.deleteEntity(d, e)
			}
		}
	}
	return nil
}

func (p *plan) sameEntity(d *docIndex, e annotation.Entity, span Span) bool {
	return e.LabelID == span.LabelID && text.SameSurface(d.entitySurface(e), span.SurfaceText)
}
