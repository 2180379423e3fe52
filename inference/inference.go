// Package inference holds the runtime backends behind classifier.Inferencer.
// ONNX needs the onnxruntime shared library at run time. The OpenCV backend
// is only compiled with the opencv build tag.
package inference

import (
	"errors"
	"fmt"
	"math"

	"github.com/melvy13/fruitveg-classifier-app/classifier"
)

const (
	BackendONNX   = "onnx"
	BackendOpenCV = "opencv"
)

// ErrOpenCVUnavailable is returned by the OpenCV backend in builds without
// the opencv tag
var ErrOpenCVUnavailable = errors.New("opencv backend not compiled in (build with -tags opencv)")

// Open builds the Inferencer for backend. sharedLibPath only applies to ONNX.
func Open(backend string, spec classifier.ModelSpec, sharedLibPath string) (classifier.Inferencer, error) {
	switch backend {
	case BackendONNX:
		inf, err := NewONNXInferencer(spec, sharedLibPath)
		if err != nil {
			return nil, err
		}
		return inf, nil
	case BackendOpenCV:
		inf, err := NewOpenCVInferencer(spec)
		if err != nil {
			return nil, err
		}
		return inf, nil
	default:
		return nil, fmt.Errorf("unknown inference backend '%s'", backend)
	}
}

// float32Bytes lays values out little-endian, 4 bytes each, as Mat expects
func float32Bytes(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, val := range values {
		offset := i * 4
		bits := math.Float32bits(val)
		buf[offset] = byte(bits)
		buf[offset+1] = byte(bits >> 8)
		buf[offset+2] = byte(bits >> 16)
		buf[offset+3] = byte(bits >> 24)
	}
	return buf
}
