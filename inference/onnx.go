package inference

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/melvy13/fruitveg-classifier-app/classifier"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXInferencer runs the model through onnxruntime with pre-allocated tensors.
// The tensors are shared, so Run is serialized.
type ONNXInferencer struct {
	spec         classifier.ModelSpec
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXInferencer initializes the onnxruntime environment and loads the model.
// sharedLibPath may be empty to use the library's default lookup.
func NewONNXInferencer(spec classifier.ModelSpec, sharedLibPath string) (*ONNXInferencer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if sharedLibPath != "" {
		ort.SetSharedLibraryPath(sharedLibPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	size := int64(spec.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, size, size, 3))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(spec.NumClasses)))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(spec.ModelPath,
		[]string{spec.InputName}, []string{spec.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	log.Printf("inference.onnx: loaded model %s (input %s [1,%d,%d,3], output %s [1,%d])",
		spec.ModelPath, spec.InputName, spec.InputSize, spec.InputSize, spec.OutputName, spec.NumClasses)

	return &ONNXInferencer{
		spec:         spec,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (o *ONNXInferencer) Infer(ctx context.Context, tensor []float32) ([]float32, error) {
	if err := o.spec.CheckInput(tensor); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return nil, fmt.Errorf("%w: session closed", classifier.ErrInferenceFailure)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", classifier.ErrInferenceFailure, err)
	}

	copy(o.inputTensor.GetData(), tensor)
	if err := o.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v", classifier.ErrInferenceFailure, err)
	}

	raw := o.outputTensor.GetData()
	out := make([]float32, len(raw))
	copy(out, raw)
	if err := o.spec.CheckOutput(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *ONNXInferencer) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inputTensor != nil {
		o.inputTensor.Destroy()
		o.inputTensor = nil
	}
	if o.outputTensor != nil {
		o.outputTensor.Destroy()
		o.outputTensor = nil
	}
	if o.session != nil {
		o.session.Destroy()
		o.session = nil
	}
	return ort.DestroyEnvironment()
}
