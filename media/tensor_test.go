package media

import (
	"image"
	"image/color"
	"testing"
)

func patternImage(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8((x + y) % 256), A: uint8(x * 3)})
		}
	}
	return img
}

func TestToTensorLengthAndLayout(t *testing.T) {
	const size = DefaultTargetSize
	img := patternImage(size)

	tensor := ToTensor(img)
	if len(tensor) != 3*size*size {
		t.Fatalf("expected %d values, got %d", 3*size*size, len(tensor))
	}

	for _, pt := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {223, 223}, {17, 200}} {
		x, y := pt[0], pt[1]
		px := img.NRGBAAt(x, y)
		want := []float32{float32(px.R), float32(px.G), float32(px.B)}
		for c := 0; c < 3; c++ {
			if got := tensor[TensorIndex(x, y, c, size)]; got != want[c] {
				t.Errorf("pixel (%d,%d) channel %d = %v, want %v", x, y, c, got, want[c])
			}
		}
	}
}

func TestToTensorKeepsRawRange(t *testing.T) {
	img := createTestImage(2, 2, color.NRGBA{255, 128, 0, 255})
	tensor := ToTensor(img)
	want := []float32{255, 128, 0}
	for i, v := range tensor {
		if v != want[i%3] {
			t.Fatalf("tensor[%d] = %v, want %v", i, v, want[i%3])
		}
	}
}

func TestToTensorGenericImageMatchesFastPath(t *testing.T) {
	nrgba := patternImage(16)
	for i := 3; i < len(nrgba.Pix); i += 4 {
		nrgba.Pix[i] = 255
	}
	rgba := image.NewRGBA(nrgba.Bounds())
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			rgba.Set(x, y, nrgba.At(x, y))
		}
	}

	fast := ToTensor(nrgba)
	slow := ToTensor(rgba)
	for i := range fast {
		if fast[i] != slow[i] {
			t.Fatalf("mismatch at %d: fast=%v slow=%v", i, fast[i], slow[i])
		}
	}
}

func TestToTensorOfLetterboxedImage(t *testing.T) {
	out, err := Letterbox(createTestImage(300, 150, color.NRGBA{10, 20, 30, 255}), 224)
	if err != nil {
		t.Fatalf("Letterbox returned error: %v", err)
	}
	tensor := ToTensor(out)
	if len(tensor) != 3*224*224 {
		t.Fatalf("expected %d values, got %d", 3*224*224, len(tensor))
	}
	// top-left corner is padding
	for c := 0; c < 3; c++ {
		if tensor[TensorIndex(0, 0, c, 224)] != 0 {
			t.Errorf("expected black padding at origin, channel %d", c)
		}
	}
}
