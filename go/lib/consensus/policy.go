package consensus

import "math"

// DefaultGoldThreshold is the share of annotators that must agree on a record for it
// to be exported as gold.
const DefaultGoldThreshold = 0.8

// Policy decides whether a record produced by count of the selected annotators is agreed.
type Policy interface {
	Agreed(count, selected int) bool
}

// StrictMajority agrees on a record when strictly more than ceil(selected/2)
// annotators produced it. With three annotators that means all three.
type StrictMajority struct{}

func (StrictMajority) Agreed(count, selected int) bool {
	return count > int(math.Ceil(float64(selected)/2))
}

// Threshold agrees on a record when at least Ratio of the annotators produced it.
// The denominator is AnnotatorsPerDoc when set, otherwise the number of selected
// annotators.
type Threshold struct {
	Ratio            float64
	AnnotatorsPerDoc int
}

func (t Threshold) Agreed(count, selected int) bool {
	n := selected
	if t.AnnotatorsPerDoc > 0 {
		n = t.AnnotatorsPerDoc
	}
	if n == 0 {
		return false
	}
	const epsilon = 1e-9
	return float64(count)/float64(n) >= t.Ratio-epsilon
}
