// Package model defines shared data structures.
package model

import "time"

// RunConfig defines settings for one evaluation run.
type RunConfig struct {
	MaxLengthMultiplier float64
	Seed                int64
	Workers             int
	ParallelMetrics     bool
	SamplesFile         string
	WeightsFile         string
	Random              int
	Save                bool
}

// HistoryConfig defines filters for history output.
type HistoryConfig struct {
	Since *time.Time
	Last  int
}

// Evaluation captures one sample pushed through keygen, encrypt, decrypt and scoring.
type Evaluation struct {
	Position     int
	Original     string
	Encrypted    string
	Decrypted    string
	DecryptionOK bool
	DecryptError string
	RunningTime  time.Duration
	Score        float64
	Status       string
	Error        string
	Metrics      map[string]float64
}

// Run groups the evaluations of a single invocation.
type Run struct {
	ID                  string
	StartedAt           time.Time
	MaxLengthMultiplier float64
	Seed                int64
	Evaluations         []Evaluation
}

// RunAggregate summarizes a stored run for reporting.
type RunAggregate struct {
	ID           string
	StartedAt    time.Time
	Evaluations  int
	Decrypted    int
	Disqualified int
	Failed       int
	MeanScore    float64
}

// MetricAggregate aggregates one metric across evaluations.
type MetricAggregate struct {
	Name  string
	Count int
	Mean  float64
	Min   float64
	Max   float64
}
