package classifier

import (
	"context"
	"fmt"
)

// Inferencer runs the image model: a flat NHWC tensor in, one probability per
// label out, in label-set order.
type Inferencer interface {
	Infer(ctx context.Context, tensor []float32) ([]float32, error)
	Close() error
}

// ModelSpec describes the tensor contract shared by every backend
type ModelSpec struct {
	ModelPath  string
	InputName  string
	OutputName string
	InputSize  int // square edge S; input is [1, S, S, 3]
	NumClasses int
}

// InputLen is the flat tensor length, 3*S*S
func (s ModelSpec) InputLen() int {
	return 3 * s.InputSize * s.InputSize
}

func (s ModelSpec) Validate() error {
	if s.ModelPath == "" {
		return fmt.Errorf("model path is empty")
	}
	if s.InputSize <= 0 || s.NumClasses <= 0 {
		return fmt.Errorf("invalid model spec: input size %d, classes %d", s.InputSize, s.NumClasses)
	}
	return nil
}

// CheckInput rejects a tensor of the wrong length
func (s ModelSpec) CheckInput(tensor []float32) error {
	if len(tensor) != s.InputLen() {
		return fmt.Errorf("%w: expected %d input values, got %d", ErrInferenceFailure, s.InputLen(), len(tensor))
	}
	return nil
}

// CheckOutput rejects a probability vector that does not match the label set
// or holds a non-finite score
func (s ModelSpec) CheckOutput(out []float32) error {
	if len(out) != s.NumClasses {
		return fmt.Errorf("%w: %w: model returned %d values for %d classes", ErrInferenceFailure, ErrLabelMismatch, len(out), s.NumClasses)
	}
	return checkFinite(out)
}

// Classify runs inf on tensor and ranks the output against labels
func Classify(ctx context.Context, inf Inferencer, tensor []float32, labels []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}
	probs, err := inf.Infer(ctx, tensor)
	if err != nil {
		return Result{}, err
	}
	return Rank(probs, labels)
}
