package propagation

import "gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/annotation"

// Skipped is a document left out of a corpus scan.
type Skipped struct {
	DocumentID string `json:"documentId"`
	Reason     string `json:"reason"`
}

// Result is the outcome of one propagation. Created, updated and deleted records are
// those of the embedded changeset, in the order they are committed.
type Result struct {
	Action Action `json:"action"`
	annotation.Changeset
	AffectedDocumentIDs []string  `json:"affectedDocumentIds"`
	Skipped             []Skipped `json:"skipped,omitempty"`
}
