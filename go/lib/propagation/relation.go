package propagation

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/text"
)

// endpoint resolves one end of a relation focus.
func (p *plan) endpoint(d *docIndex, entityID string, span Span) (Span, error) {
	if entityID == "" {
		return p.resolveSpan(d, span)
	}
	e, ok := d.entities[entityID]
	if !ok {
		return Span{}, errors.Wrapf(annotation.ErrIntegrity, "entity %s is not in document %s", entityID, d.document.ID)
	}
	span = spanOf(e)
	span.SurfaceText = d.entitySurface(e)
	return span, nil
}

func (p *plan) relation(ctx context.Context, f RelationFocus) error {
	d := p.corpus.docs[f.DocumentID]
	source, err := p.endpoint(d, f.SourceEntityID, f.Source)
	if err != nil {
		return errors.Wrap(err, "source")
	}
	target, err := p.endpoint(d, f.TargetEntityID, f.Target)
	if err != nil {
		return errors.Wrap(err, "target")
	}
	if err := p.Ontology.ValidateRelationLabel(f.RelationLabelID); err != nil {
		return err
	}

	switch p.action {
	case Apply, Accept:
		s := p.ensureEntity(d, source, true)
		t := p.ensureEntity(d, target, true)
		if _, err := p.ensureRelation(d, s, t, f.RelationLabelID, true); err != nil {
			return err
		}
	case Delete:
		key := annotation.RelationKey{Source: source.key(), Target: target.key(), LabelID: f.RelationLabelID}
		if r, ok := d.findRelation(p.annotator, key); ok {
			p.deleteRelation(d, r)
		}
	}

	if !p.Blocklist.Allowed(source.SurfaceText) || !p.Blocklist.Allowed(target.SurfaceText) {
		log.Debug().Str("source", source.SurfaceText).Str("target", target.SurfaceText).Msg("blocklisted surface is not propagated")
		return nil
	}
	if p.action == Apply {
		return p.scanRelation(ctx, f.DocumentID, source, target, f.RelationLabelID)
	}
	return p.matchRelations(ctx, source, target, f.RelationLabelID)
}

// scanRelation suggests the relation wherever both surface texts occur in another
// document in the same order and the same number of tokens apart.
func (p *plan) scanRelation(ctx context.Context, focusDocument string, source, target Span, label string) error {
	// the pattern is written in token order, so a target that precedes its source
	// is matched first and swapped back afterwards
	forward := source.End < target.Start
	first, second := source, target
	if !forward {
		first, second = target, source
	}
	if first.End >= second.Start {
		log.Debug().Str("document_id", focusDocument).Msg("overlapping relation endpoints are not propagated")
		return nil
	}
	gap := second.Start - first.End - 1

	re, err := text.PairPattern(first.SurfaceText, second.SurfaceText, gap)
	if err != nil {
		return err
	}
	firstGroup, secondGroup := text.PairGroups(re)

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
		for _, m := range re.FindAllStringSubmatchIndex(raw, -1) {
			fStart, fEnd := m[2*firstGroup], m[2*firstGroup+1]
			sStart, sEnd := m[2*secondGroup], m[2*secondGroup+1]
			a1, a2, ok := offsets.Resolve(fStart, fEnd, first.length())
			if !ok {
				continue
			}
			b1, b2, ok := offsets.Resolve(sStart, sEnd, second.length())
			if !ok || b1-a2-1 != gap {
				log.Debug().Str("document_id", id).Int("offset", m[0]).Msg("match does not keep the token gap")
				continue
			}

			matchedFirst := Span{Start: a1, End: a2, LabelID: first.LabelID, SurfaceText: raw[fStart:fEnd]}
			matchedSecond := Span{Start: b1, End: b2, LabelID: second.LabelID, SurfaceText: raw[sStart:sEnd]}
			matchedSource, matchedTarget := matchedFirst, matchedSecond
			if !forward {
				matchedSource, matchedTarget = matchedSecond, matchedFirst
			}

			s := p.ensureEntity(d, matchedSource, false)
			t := p.ensureEntity(d, matchedTarget, false)
			if _, err := p.ensureRelation(d, s, t, label, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// matchRelations accepts or deletes the annotator's stored relations with the label
// and endpoint surface texts of the focus, in every document of the corpus.
func (p *plan) matchRelations(ctx context.Context, source, target Span, label string) error {
	for _, id := range p.corpus.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		d := p.corpus.docs[id]
		for _, r := range d.relationsBy(p.annotator) {
			if r.Label() != label {
				continue
			}
			s, t, err := annotation.Endpoints(r, d.entities)
			if err != nil {
				return err
			}
			if !p.sameEntity(d, s, source) || !p.sameEntity(d, t, target) {
				continue
			}
			switch p.action {
			case Accept:
				p.acceptRelation(d, r)
			case Delete:
				p.deleteRelation(d, r)
			}
		}
	}
	return nil
}
