package metrics

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/verte-zerg/cipherscore/internal/cipher"
	"github.com/verte-zerg/cipherscore/internal/samples"
)

// changeSentinel replaces the first plaintext character when measuring change propagation.
const changeSentinel = 'a'

var (
	alphabetSize = float64(utf8.RuneCountInString(samples.Printable))
	// Unordered pairs of distinct printable characters.
	bigramSpace = alphabetSize * (alphabetSize - 1) / 2
)

func uniqueChars(in *Input) (float64, error) {
	return float64(len(runeCounts(in.Cipher.Encrypted()))) / alphabetSize, nil
}

func distinctSequences(in *Input) (float64, error) {
	enc := []rune(in.Cipher.Encrypted())
	seen := map[[2]rune]struct{}{}
	for i := 0; i+1 < len(enc); i++ {
		seen[[2]rune{enc[i], enc[i+1]}] = struct{}{}
	}
	return float64(len(seen)) / math.Max(1, bigramSpace), nil
}

func entropy(in *Input) (float64, error) {
	enc := in.Cipher.Encrypted()
	total := utf8.RuneCountInString(enc)
	if total == 0 {
		return 0, ErrEmptyCiphertext
	}
	h := 0.0
	for _, count := range runeCounts(enc) {
		p := float64(count) / float64(total)
		h -= p * math.Log2(p)
	}
	return h / math.Log2(alphabetSize), nil
}

func frequencyAnalysis(in *Input) (float64, error) {
	enc := in.Cipher.Encrypted()
	total := utf8.RuneCountInString(enc)
	if total == 0 {
		return 0, ErrEmptyCiphertext
	}
	most := 0
	for _, count := range runeCounts(enc) {
		if count > most {
			most = count
		}
	}
	return 1 - float64(most)/float64(total), nil
}

func lengthConsistency(in *Input) (float64, error) {
	origLen := utf8.RuneCountInString(in.Cipher.Original())
	if origLen == 0 {
		return 0, ErrEmptyOriginal
	}
	encLen := utf8.RuneCountInString(in.Cipher.Encrypted())
	return math.Abs(float64(encLen-origLen)) / float64(origLen), nil
}

func evenness(in *Input) (float64, error) {
	enc := in.Cipher.Encrypted()
	total := utf8.RuneCountInString(enc)
	if total == 0 {
		return 0, ErrEmptyCiphertext
	}
	return 1 - stddev(runeCounts(enc))/float64(total), nil
}

func reversibility(in *Input) (float64, error) {
	decrypted, err := in.Cipher.Decrypt(in.PrivateKey)
	if err != nil {
		return 0, err
	}
	if decrypted == in.Cipher.Original() {
		return 1, nil
	}
	return 0, nil
}

func changePropagation(in *Input) (float64, error) {
	enc := in.Cipher.Encrypted()
	encLen := utf8.RuneCountInString(enc)
	if encLen == 0 {
		return 0, ErrEmptyCiphertext
	}
	orig := []rune(in.Cipher.Original())
	changed := []rune{changeSentinel}
	if len(orig) > 1 {
		changed = append(changed, orig[1:]...)
	}
	variant, err := cipher.Encrypt(string(changed), in.PublicKey)
	if err != nil {
		return 0, err
	}
	return float64(Distance(enc, variant)) / float64(encLen), nil
}

// patternAnalysis compares adjacent repeats before and after encryption.
// Either side having no repeats scores 1.
func patternAnalysis(in *Input) (float64, error) {
	origRepeats := adjacentRepeats(in.Cipher.Original())
	encRepeats := adjacentRepeats(in.Cipher.Encrypted())
	if origRepeats == 0 || encRepeats == 0 {
		return 1, nil
	}
	return 1 - float64(encRepeats)/float64(origRepeats), nil
}

// correlationAnalysis counts positions where a plaintext character equals the
// ciphertext token at the same index. The two sides are different
// representations, so matches only occur for degenerate keys.
func correlationAnalysis(in *Input) (float64, error) {
	orig := []rune(in.Cipher.Original())
	if len(orig) == 0 {
		return 0, ErrEmptyOriginal
	}
	tokens := strings.Fields(in.Cipher.Encrypted())
	matches := 0
	for i := 0; i < len(orig) && i < len(tokens); i++ {
		if string(orig[i]) == tokens[i] {
			matches++
		}
	}
	return 1 - float64(matches)/float64(len(orig)), nil
}

func complexity(in *Input) (float64, error) {
	origLen := utf8.RuneCountInString(in.Cipher.Original())
	if origLen == 0 {
		return 0, ErrEmptyOriginal
	}
	return float64(utf8.RuneCountInString(in.Cipher.Encrypted())) / float64(origLen), nil
}

func randomness(in *Input) (float64, error) {
	if in.Random == nil {
		return 0, ErrNoRandomSource
	}
	n := utf8.RuneCountInString(in.Cipher.Original())
	if n == 0 {
		return 0, ErrEmptyOriginal
	}
	sample, err := cipher.Encrypt(in.Random.RandomString(n), in.PublicKey)
	if err != nil {
		return 0, err
	}
	return stddev(runeCounts(sample)) / alphabetSize, nil
}

func normalizedLevenshtein(in *Input) (float64, error) {
	decrypted, err := in.Cipher.Decrypt(in.PrivateKey)
	if err != nil {
		return 0, err
	}
	orig := in.Cipher.Original()
	longest := max(utf8.RuneCountInString(orig), utf8.RuneCountInString(decrypted))
	if longest == 0 {
		return 0, ErrEmptyOriginal
	}
	return 1 - float64(Distance(orig, decrypted))/float64(longest), nil
}

func encryptionConsistency(in *Input) (float64, error) {
	again, err := cipher.Encrypt(in.Cipher.Original(), in.PublicKey)
	if err != nil {
		return 0, err
	}
	if again == in.Cipher.Encrypted() {
		return 1, nil
	}
	return 0, nil
}

func runningTime(in *Input) (float64, error) {
	v := 1 - in.RunningTime.Seconds()
	return math.Min(1, math.Max(0, v)), nil
}

func runeCounts(s string) map[rune]int {
	counts := map[rune]int{}
	for _, r := range s {
		counts[r]++
	}
	return counts
}

func adjacentRepeats(s string) int {
	runes := []rune(s)
	repeats := 0
	for i := 0; i+1 < len(runes); i++ {
		if runes[i] == runes[i+1] {
			repeats++
		}
	}
	return repeats
}

// stddev is the population standard deviation of the counts.
func stddev(counts map[rune]int) float64 {
	if len(counts) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		sum += float64(c)
	}
	mean := sum / float64(len(counts))
	variance := 0.0
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(counts)))
}
