package metrics

// Metric identifiers, in reporting order.
const (
	UniqueChars           = "unique_chars"
	DistinctSequences     = "distinct_sequences"
	Entropy               = "entropy"
	FrequencyAnalysis     = "frequency_analysis"
	LengthConsistency     = "length_consistency"
	Evenness              = "evenness"
	Reversibility         = "reversibility"
	ChangePropagation     = "change_propagation"
	PatternAnalysis       = "pattern_analysis"
	CorrelationAnalysis   = "correlation_analysis"
	Complexity            = "complexity"
	Randomness            = "randomness"
	NormalizedLevenshtein = "normalized_levenshtein"
	EncryptionConsistency = "encryption_consistency"
	RunningTime           = "running_time"
)

// Names lists every metric in reporting order.
var Names = []string{
	UniqueChars,
	DistinctSequences,
	Entropy,
	FrequencyAnalysis,
	LengthConsistency,
	Evenness,
	Reversibility,
	ChangePropagation,
	PatternAnalysis,
	CorrelationAnalysis,
	Complexity,
	Randomness,
	NormalizedLevenshtein,
	EncryptionConsistency,
	RunningTime,
}

// IsKnown reports whether name is one of the fifteen metric identifiers.
func IsKnown(name string) bool {
	_, ok := registry[name]
	return ok
}
