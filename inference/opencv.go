//go:build opencv

package inference

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/melvy13/fruitveg-classifier-app/classifier"
	"gocv.io/x/gocv"
)

// OpenCVInferencer runs the model through the OpenCV DNN module. It accepts
// any format ReadNet understands (ONNX, TFLite, Caffe, ...).
type OpenCVInferencer struct {
	spec classifier.ModelSpec
	net  gocv.Net
	mu   sync.Mutex
	open bool
}

func NewOpenCVInferencer(spec classifier.ModelSpec) (*OpenCVInferencer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(spec.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not accessible: %w", err)
	}

	net := gocv.ReadNet(spec.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("ReadNet returned an empty network for %s", spec.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		log.Printf("inference.opencv: could not set default backend: %v", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		log.Printf("inference.opencv: could not set CPU target: %v", err)
	}

	log.Printf("inference.opencv: loaded model %s", spec.ModelPath)
	return &OpenCVInferencer{spec: spec, net: net, open: true}, nil
}

func (o *OpenCVInferencer) Infer(ctx context.Context, tensor []float32) ([]float32, error) {
	if err := o.spec.CheckInput(tensor); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.open {
		return nil, fmt.Errorf("%w: network closed", classifier.ErrInferenceFailure)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", classifier.ErrInferenceFailure, err)
	}

	size := o.spec.InputSize
	blob, err := gocv.NewMatWithSizesFromBytes([]int{1, size, size, 3}, gocv.MatTypeCV32F, float32Bytes(tensor))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build input blob: %v", classifier.ErrInferenceFailure, err)
	}
	defer blob.Close()

	o.net.SetInput(blob, o.spec.InputName)
	output := o.net.Forward(o.spec.OutputName)
	defer output.Close()
	if output.Empty() {
		return nil, fmt.Errorf("%w: network produced no output", classifier.ErrInferenceFailure)
	}

	flattened := output.Reshape(1, 1)
	defer flattened.Close()

	probs := make([]float32, flattened.Cols())
	for i := range probs {
		probs[i] = flattened.GetFloatAt(0, i)
	}
	if err := o.spec.CheckOutput(probs); err != nil {
		return nil, err
	}
	return probs, nil
}

func (o *OpenCVInferencer) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open {
		return nil
	}
	o.open = false
	return o.net.Close()
}
