package matcher

// Group holds the hypotheses about one query-side operand.
type Group struct {
	Key        string
	Hypotheses []Hypothesis
}

// GroupHypotheses partitions hyps by Key. Groups are ordered by first
// appearance of their key and keep discovery order inside.
func GroupHypotheses(hyps []Hypothesis) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, h := range hyps {
		k := h.Key()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Hypotheses = append(groups[i].Hypotheses, h)
	}
	return groups
}
