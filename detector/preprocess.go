package detector

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-voc-eval/common"
)

// padValue is the gray used to fill the letterbox border (114/255).
const padValue = float32(114) / 255

// letterbox records how an image was placed inside the square model input.
type letterbox struct {
	scale      float32
	padX, padY float32
}

// restore maps a box from model input pixels back to source image pixels.
func (l letterbox) restore(b common.BoundingBox) common.BoundingBox {
	return common.BoundingBox{
		X1: (b.X1 - l.padX) / l.scale,
		Y1: (b.Y1 - l.padY) / l.scale,
		X2: (b.X2 - l.padX) / l.scale,
		Y2: (b.Y2 - l.padY) / l.scale,
	}
}

// newLetterbox computes the scale and padding that fit a width x height image
// into a size x size square without changing its aspect ratio.
func newLetterbox(width, height, size int) letterbox {
	scale := float32(size) / float32(max(width, height))
	w := int(float32(width)*scale + 0.5)
	h := int(float32(height)*scale + 0.5)
	return letterbox{
		scale: scale,
		padX:  float32(size-w) / 2,
		padY:  float32(size-h) / 2,
	}
}

// fillInput letterboxes img into dst as planar RGB in [0, 1].
//
// Arguments:
//   - img: The source image.
//   - size: Edge of the square model input.
//   - dst: Backing slice of the [1, 3, size, size] input tensor.
//
// Returns:
//   - letterbox: The placement used, needed to map boxes back.
//   - error: If dst is too small or the image is empty.
func fillInput(img image.Image, size int, dst []float32) (letterbox, error) {
	channel := size * size
	if len(dst) < channel*3 {
		return letterbox{}, errors.Errorf("input tensor holds %d floats, needs %d", len(dst), channel*3)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return letterbox{}, errors.New("empty image")
	}

	lb := newLetterbox(bounds.Dx(), bounds.Dy(), size)
	w := uint(float32(bounds.Dx())*lb.scale + 0.5)
	h := uint(float32(bounds.Dy())*lb.scale + 0.5)
	resized := resize.Resize(w, h, img, resize.Bilinear)

	red := dst[0:channel]
	green := dst[channel : channel*2]
	blue := dst[channel*2 : channel*3]
	for i := 0; i < channel; i++ {
		red[i], green[i], blue[i] = padValue, padValue, padValue
	}

	rb := resized.Bounds()
	offX, offY := int(lb.padX), int(lb.padY)
	for y := 0; y < rb.Dy(); y++ {
		row := (y + offY) * size
		for x := 0; x < rb.Dx(); x++ {
			r, g, b, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			i := row + x + offX
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
		}
	}
	return lb, nil
}
