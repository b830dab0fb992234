package samples

import (
	"math/rand"
	"time"
)

// Generator produces random printable strings from a seedable source.
// A Generator is not safe for concurrent use.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// RandomString returns n characters drawn uniformly from Printable.
func (g *Generator) RandomString(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = Printable[g.rnd.Intn(len(Printable))]
	}
	return string(buf)
}

// Generate returns count random samples with lengths in [minLen, maxLen].
func (g *Generator) Generate(count, minLen, maxLen int) []string {
	if minLen < 1 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		n := minLen + g.rnd.Intn(maxLen-minLen+1)
		result = append(result, g.RandomString(n))
	}
	return result
}
