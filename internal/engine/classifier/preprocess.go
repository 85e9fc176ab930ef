package classifier

import (
	"image"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// InputSize is the square resolution the model was trained on.
const InputSize = 128

// Layout is the memory order of the model's input tensor.
type Layout int

const (
	// NHWC is [batch, height, width, channels], the Keras default.
	NHWC Layout = iota
	// NCHW is [batch, channels, height, width].
	NCHW
)

func (l Layout) String() string {
	if l == NCHW {
		return "NCHW"
	}
	return "NHWC"
}

// shape returns the input tensor shape for a batch of one.
func (l Layout) shape() ort.Shape {
	if l == NCHW {
		return ort.NewShape(1, 3, InputSize, InputSize)
	}
	return ort.NewShape(1, InputSize, InputSize, 3)
}

// Preprocess resizes img to InputSize x InputSize with a Catmull-Rom filter
// and returns its RGB channels scaled to [0, 1], packed in layout order.
// Alpha is discarded. The aspect ratio is not preserved.
func Preprocess(img image.Image, layout Layout) []float32 {
	resized := imaging.Resize(img, InputSize, InputSize, imaging.CatmullRom)

	const plane = InputSize * InputSize
	data := make([]float32, 3*plane)

	for y := 0; y < InputSize; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < InputSize; x++ {
			px := row[x*4 : x*4+3]
			r := float32(px[0]) / 255.0
			g := float32(px[1]) / 255.0
			b := float32(px[2]) / 255.0

			idx := y*InputSize + x
			switch layout {
			case NCHW:
				data[idx] = r
				data[plane+idx] = g
				data[2*plane+idx] = b
			default:
				data[idx*3] = r
				data[idx*3+1] = g
				data[idx*3+2] = b
			}
		}
	}
	return data
}
