// Package classifier turns model output into ranked fruit/vegetable predictions.
package classifier

import "errors"

// LabelSetVersion changes whenever Labels is reordered or extended.
// The order is part of the model's output contract.
const LabelSetVersion = 1

// Labels is the closed set the bundled model emits, in output-vector order.
var Labels = []string{
	"apple_ripe", "apple_unripe", "banana_ripe", "banana_unripe",
	"broccoli_cooked", "broccoli_raw", "carrot_cooked", "carrot_raw",
	"mango_ripe", "mango_unripe",
}

// DefaultTopN is how many predictions are shown and stored per classification
const DefaultTopN = 5

var (
	// ErrInferenceFailure means no probability vector could be produced
	ErrInferenceFailure = errors.New("inference failed")
	// ErrLabelMismatch means the vector does not line up with the label set
	ErrLabelMismatch = errors.New("probability vector does not match label set")
)

// IsKnownLabel reports whether label is part of the compiled label set
func IsKnownLabel(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}
