package classifier

import (
	"fmt"
	"math"
	"sort"
)

// Prediction pairs a label with the probability the model assigned it
type Prediction struct {
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// Result is the outcome of one forward pass
type Result struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	// AllProbabilities covers every label once, in label-set order
	AllProbabilities []Prediction `json:"all_probabilities"`
}

// Rank zips probs with labels by position and picks the most likely label.
// Ties go to the label that comes first in the label set. A NaN or infinite
// score fails the whole vector.
func Rank(probs []float32, labels []string) (Result, error) {
	if len(probs) == 0 || len(probs) != len(labels) {
		return Result{}, fmt.Errorf("%w: %w (%d values, %d labels)", ErrInferenceFailure, ErrLabelMismatch, len(probs), len(labels))
	}
	if err := checkFinite(probs); err != nil {
		return Result{}, err
	}

	pairs := make([]Prediction, len(probs))
	maxIdx := 0
	for i, p := range probs {
		pairs[i] = Prediction{Label: labels[i], Probability: p}
		if p > probs[maxIdx] {
			maxIdx = i
		}
	}

	return Result{
		Label:            labels[maxIdx],
		Confidence:       probs[maxIdx],
		AllProbabilities: pairs,
	}, nil
}

func checkFinite(probs []float32) error {
	for i, p := range probs {
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return fmt.Errorf("%w: non-finite score %v at index %d", ErrInferenceFailure, p, i)
		}
	}
	return nil
}

// TopN returns the n most probable pairs, highest first. Equal probabilities
// keep their input order so the output is reproducible. pairs is not modified.
func TopN(pairs []Prediction, n int) []Prediction {
	if n <= 0 || len(pairs) == 0 {
		return []Prediction{}
	}
	sorted := make([]Prediction, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Probability > sorted[j].Probability
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Top is TopN over the result's full probability list
func (r Result) Top(n int) []Prediction {
	return TopN(r.AllProbabilities, n)
}
