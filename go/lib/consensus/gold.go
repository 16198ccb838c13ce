package consensus

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"
)

// GoldOptions configures gold export.
type GoldOptions struct {
	// Threshold is the share of AnnotatorsPerDoc that must agree, DefaultGoldThreshold if zero.
	Threshold float64
	// AnnotatorsPerDoc is the number of distinct annotators that must have saved a
	// document before it is exported. Values below 1 mean 1.
	AnnotatorsPerDoc int
	Task             annotation.Task
}

// Gold is the consensus view of one document.
type Gold struct {
	DocumentID string                `json:"documentId"`
	Annotators []string              `json:"annotators"`
	Entities   []annotation.Entity   `json:"entities"`
	Relations  []annotation.Relation `json:"relations,omitempty"`
}

func (o GoldOptions) normalised() GoldOptions {
	if o.Threshold <= 0 {
		o.Threshold = DefaultGoldThreshold
	}
	if o.AnnotatorsPerDoc < 1 {
		o.AnnotatorsPerDoc = 1
	}
	return o
}

// Document builds the gold view of a document from the records of the annotators
// who saved it. It returns false when fewer than AnnotatorsPerDoc distinct
// annotators saved the document.
func (o GoldOptions) Document(
	documentID string,
	saves []annotation.SaveRecord,
	entities []annotation.Entity,
	relations []annotation.Relation,
) (Gold, bool, error) {

	o = o.normalised()

	savedBy := mapset.NewThreadUnsafeSet[string]()
	for _, save := range saves {
		if save.DocumentID == documentID {
			savedBy.Add(save.AnnotatorID)
		}
	}
	if savedBy.Cardinality() < o.AnnotatorsPerDoc {
		return Gold{}, false, nil
	}
	annotators := savedBy.ToSlice()
	sort.Strings(annotators)

	aggregator := Aggregator{Policy: Threshold{Ratio: o.Threshold, AnnotatorsPerDoc: o.AnnotatorsPerDoc}}
	gold, err := aggregator.Document(documentID, annotators, entities, relations, o.Task)
	if err != nil {
		return Gold{}, false, err
	}
	return gold, true, nil
}

// Document aggregates the records of the selected annotators on one document. Records
// of other documents are ignored. Agreed relations point at the emitted entity with
// the same identity as their endpoint, and endpoints not agreed on their own are
// added so that the view is self-contained.
func (a Aggregator) Document(
	documentID string,
	selected []string,
	entities []annotation.Entity,
	relations []annotation.Relation,
	task annotation.Task,
) (Gold, error) {

	entities = entitiesOf(documentID, entities)
	byAnnotator := annotation.GroupEntities(entities)
	selected = selection(selected, keysOf(byAnnotator))
	gold := Gold{
		DocumentID: documentID,
		Annotators: selected,
		Entities:   a.Entities(byAnnotator, selected),
	}
	if !task.HasRelations() {
		return gold, nil
	}

	agreed, endpoints, err := a.Relations(annotation.GroupRelations(relationsOf(documentID, relations)), entities, selected)
	if err != nil {
		return Gold{}, err
	}

	idByKey := make(map[annotation.EntityKey]string, len(gold.Entities))
	for _, e := range gold.Entities {
		idByKey[e.Key()] = e.ID
	}
	remap := make(map[string]string, len(endpoints))
	for _, e := range endpoints {
		if id, ok := idByKey[e.Key()]; ok {
			remap[e.ID] = id
			continue
		}
		idByKey[e.Key()] = e.ID
		remap[e.ID] = e.ID
		gold.Entities = append(gold.Entities, e)
	}
	for i := range agreed {
		agreed[i].Source = remap[agreed[i].Source]
		agreed[i].Target = remap[agreed[i].Target]
	}
	gold.Relations = agreed
	return gold, nil
}

func entitiesOf(documentID string, entities []annotation.Entity) []annotation.Entity {
	var res []annotation.Entity
	for _, e := range entities {
		if e.DocumentID == documentID {
			res = append(res, e)
		}
	}
	return res
}

func relationsOf(documentID string, relations []annotation.Relation) []annotation.Relation {
	var res []annotation.Relation
	for _, r := range relations {
		if r.DocumentID == documentID {
			res = append(res, r)
		}
	}
	return res
}
