//go:build !opencv

package inference

import (
	"context"
	"fmt"

	"github.com/melvy13/fruitveg-classifier-app/classifier"
)

// OpenCVInferencer is a placeholder; every constructor call fails
type OpenCVInferencer struct{}

func NewOpenCVInferencer(spec classifier.ModelSpec) (*OpenCVInferencer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrOpenCVUnavailable
}

func (o *OpenCVInferencer) Infer(ctx context.Context, tensor []float32) ([]float32, error) {
	return nil, fmt.Errorf("%w: %v", classifier.ErrInferenceFailure, ErrOpenCVUnavailable)
}

func (o *OpenCVInferencer) Close() error { return nil }
