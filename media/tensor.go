package media

import (
	"image"
	"image/color"
)

// TensorChannels is the number of values written per pixel
const TensorChannels = 3

// ToTensor flattens img row by row into R, G, B float values laid out as
// NHWC with batch 1. Values stay in the 0-255 range and alpha is dropped;
// the model was exported to expect exactly this.
func ToTensor(img image.Image) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float32, TensorChannels*w*h)

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
			for x := 0; x < w; x++ {
				base := TensorChannels * (y*w + x)
				out[base+0] = float32(row[x*4+0])
				out[base+1] = float32(row[x*4+1])
				out[base+2] = float32(row[x*4+2])
			}
		}
		return out
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			base := TensorChannels * (y*w + x)
			out[base+0] = float32(c.R)
			out[base+1] = float32(c.G)
			out[base+2] = float32(c.B)
		}
	}
	return out
}

// TensorIndex is the offset of channel c for pixel (x, y) in a size-wide tensor
func TensorIndex(x, y, c, size int) int {
	return TensorChannels*(y*size+x) + c
}
