package metrics

// Distance returns the Levenshtein edit distance between a and b, counting
// insertions, deletions and substitutions of code points at cost 1. Memory is
// proportional to the shorter input.
func Distance(a, b string) int {
	s1 := []rune(a)
	s2 := []rune(b)
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, c1 := range s1 {
		curr[0] = i + 1
		for j, c2 := range s2 {
			cost := 1
			if c1 == c2 {
				cost = 0
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
