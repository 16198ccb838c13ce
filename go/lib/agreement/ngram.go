package agreement

// term is one token of a scored sequence. Entity terms carry the entity label and
// span; relation terms carry the relation label and the spans of both endpoints,
// so that equal terms mean equal type and position.
type term struct {
	relation    bool
	label       string
	start       int
	end         int
	targetStart int
	targetEnd   int
}

const maxOrder = 3

// gram is an n-gram of up to maxOrder terms.
type gram struct {
	n     int
	terms [maxOrder]term
}

// sequence is the unit n-grams are drawn from; n-grams never cross sequences.
type sequence []term

// counts holds the n-gram counts of one annotator for one order.
type counts struct {
	grams map[gram]int
	total int
}

func ngrams(sequences []sequence, n int) counts {
	c := counts{grams: make(map[gram]int)}
	for _, seq := range sequences {
		for i := 0; i+n <= len(seq); i++ {
			g := gram{n: n}
			copy(g.terms[:], seq[i:i+n])
			c.grams[g]++
			c.total++
		}
	}
	return c
}

// modifiedPrecision is the BLEU clipped precision of candidate against reference:
// each candidate n-gram is credited at most as many times as it occurs in the reference.
func modifiedPrecision(candidate, reference counts) float64 {
	if candidate.total == 0 {
		return 0
	}
	matched := 0
	for g, count := range candidate.grams {
		ref := reference.grams[g]
		if ref < count {
			matched += ref
		} else {
			matched += count
		}
	}
	return float64(matched) / float64(candidate.total)
}

// pairScore averages the modified precision over every order. candidate and reference
// hold one counts value per order, in the same order.
func pairScore(candidate, reference []counts) float64 {
	if len(candidate) == 0 {
		return 0
	}
	var sum float64
	for i := range candidate {
		sum += modifiedPrecision(candidate[i], reference[i])
	}
	return sum / float64(len(candidate))
}
