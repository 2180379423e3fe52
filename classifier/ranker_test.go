package classifier

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestRankPicksMax(t *testing.T) {
	probs := []float32{0.01, 0.02, 0.60, 0.05, 0.02, 0.10, 0.05, 0.05, 0.05, 0.05}

	res, err := Rank(probs, Labels)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if res.Label != "banana_ripe" {
		t.Errorf("expected banana_ripe, got %s", res.Label)
	}
	if res.Confidence != 0.60 {
		t.Errorf("expected confidence 0.60, got %v", res.Confidence)
	}
	if len(res.AllProbabilities) != len(Labels) {
		t.Fatalf("expected %d pairs, got %d", len(Labels), len(res.AllProbabilities))
	}
	for i, p := range res.AllProbabilities {
		if p.Label != Labels[i] || p.Probability != probs[i] {
			t.Errorf("pair %d = %+v, want {%s %v}", i, p, Labels[i], probs[i])
		}
	}
}

func TestRankTieGoesToFirstLabel(t *testing.T) {
	probs := []float32{0.1, 0.3, 0.1, 0.3, 0.2, 0, 0, 0, 0, 0}
	res, err := Rank(probs, Labels)
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if res.Label != "apple_unripe" {
		t.Errorf("expected first max apple_unripe, got %s", res.Label)
	}

	uniform := make([]float32, len(Labels))
	for i := range uniform {
		uniform[i] = 0.1
	}
	res, _ = Rank(uniform, Labels)
	if res.Label != Labels[0] {
		t.Errorf("expected %s on uniform vector, got %s", Labels[0], res.Label)
	}
}

func TestRankConfidenceIsMax(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
		{0.05, 0.15, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.05, 0.15},
		{-1, -2, -0.5, -3, -4, -5, -6, -7, -8, -9},
	}
	for _, v := range vectors {
		res, err := Rank(v, Labels)
		if err != nil {
			t.Fatalf("Rank returned error: %v", err)
		}
		max := float32(math.Inf(-1))
		for _, p := range v {
			if p > max {
				max = p
			}
		}
		if res.Confidence != max {
			t.Errorf("confidence %v != max %v for %v", res.Confidence, max, v)
		}
	}
}

func TestRankRejectsMismatchedLengths(t *testing.T) {
	_, err := Rank([]float32{0.5, 0.5}, Labels)
	if !errors.Is(err, ErrLabelMismatch) || !errors.Is(err, ErrInferenceFailure) {
		t.Errorf("expected label mismatch inference failure, got %v", err)
	}
	if _, err := Rank(nil, nil); !errors.Is(err, ErrLabelMismatch) {
		t.Errorf("expected mismatch for empty input, got %v", err)
	}
}

func TestRankRejectsNonFiniteScores(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	vectors := [][]float32{
		{nan, 0.9, 0.1},
		{0.1, nan, 0.9},
		{0.2, 0.3, inf},
		{float32(math.Inf(-1)), 0.5, 0.5},
	}
	labels := []string{"a", "b", "c"}
	for _, v := range vectors {
		res, err := Rank(v, labels)
		if !errors.Is(err, ErrInferenceFailure) {
			t.Errorf("expected inference failure for %v, got %+v (err %v)", v, res, err)
		}
		if errors.Is(err, ErrLabelMismatch) {
			t.Errorf("non-finite score is not a label mismatch: %v", err)
		}
	}
}

func TestTopNSortedStable(t *testing.T) {
	pairs := []Prediction{
		{"a", 0.1}, {"b", 0.3}, {"c", 0.3}, {"d", 0.05}, {"e", 0.2}, {"f", 0.3}, {"g", 0.01},
	}
	top := TopN(pairs, DefaultTopN)
	want := []string{"b", "c", "f", "e", "a"}
	if len(top) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(top))
	}
	for i, w := range want {
		if top[i].Label != w {
			t.Errorf("top[%d] = %s, want %s", i, top[i].Label, w)
		}
	}
	if pairs[0].Label != "a" || pairs[1].Label != "b" {
		t.Error("TopN must not reorder its input")
	}
}

func TestTopNBounds(t *testing.T) {
	pairs := []Prediction{{"x", 0.4}, {"y", 0.6}}
	if got := TopN(pairs, 5); len(got) != 2 {
		t.Errorf("expected min(5, 2) = 2 entries, got %d", len(got))
	}
	if got := TopN(pairs, 0); len(got) != 0 {
		t.Errorf("expected no entries for n=0, got %d", len(got))
	}
	if got := TopN(nil, 5); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestTopNDeterministic(t *testing.T) {
	probs := []float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}
	res, _ := Rank(probs, Labels)
	first := res.Top(5)
	for i := 0; i < 20; i++ {
		again := res.Top(5)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d differs at %d: %+v vs %+v", i, j, first[j], again[j])
			}
		}
	}
	for j, p := range first {
		if p.Label != Labels[j] {
			t.Errorf("tie order broken at %d: %s", j, p.Label)
		}
	}
}

type fixedInferencer struct {
	out []float32
	err error
}

func (f fixedInferencer) Infer(ctx context.Context, tensor []float32) ([]float32, error) {
	return f.out, f.err
}

func (f fixedInferencer) Close() error { return nil }

func TestClassify(t *testing.T) {
	probs := []float32{0, 0, 0, 0, 0, 0, 0, 0.9, 0.1, 0}
	res, err := Classify(context.Background(), fixedInferencer{out: probs}, make([]float32, 12), Labels)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if res.Label != "carrot_raw" {
		t.Errorf("expected carrot_raw, got %s", res.Label)
	}

	boom := errors.New("boom")
	_, err = Classify(context.Background(), fixedInferencer{err: boom}, nil, Labels)
	if !errors.Is(err, boom) {
		t.Errorf("expected inferencer error to pass through, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Classify(ctx, fixedInferencer{out: probs}, nil, Labels); !errors.Is(err, ErrInferenceFailure) {
		t.Errorf("expected inference failure on cancelled context, got %v", err)
	}
}

func TestModelSpecChecks(t *testing.T) {
	spec := ModelSpec{ModelPath: "m.onnx", InputSize: 4, NumClasses: 3}
	if err := spec.CheckInput(make([]float32, 48)); err != nil {
		t.Errorf("unexpected error for correct input: %v", err)
	}
	if err := spec.CheckInput(make([]float32, 47)); !errors.Is(err, ErrInferenceFailure) {
		t.Errorf("expected inference failure for short input, got %v", err)
	}
	if err := spec.CheckOutput(make([]float32, 2)); !errors.Is(err, ErrLabelMismatch) {
		t.Errorf("expected label mismatch for short output, got %v", err)
	}
	if err := spec.CheckOutput([]float32{0.5, float32(math.NaN()), 0.5}); !errors.Is(err, ErrInferenceFailure) {
		t.Errorf("expected inference failure for NaN output, got %v", err)
	}
	if err := (ModelSpec{InputSize: 4, NumClasses: 3}).Validate(); err == nil {
		t.Error("expected error for empty model path")
	}
}
