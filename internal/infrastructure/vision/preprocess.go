package vision

import (
	"errors"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/kirillkom/plant-care-assistant/internal/core/domain"
)

// Preprocess turns an image into the model's CHW float32 tensor: the shorter
// side is resized to the input size with bilinear filtering, the center
// square is cropped, and each channel is scaled to [0,1] and normalized.
//
// Only the cropped square is ever rasterized, so memory stays fixed at
// input size squared whatever the source aspect ratio.
func Preprocess(img image.Image, m Manifest) ([]float32, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "preprocess image", errors.New("image has no pixels"))
	}
	size := m.InputSize
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	// resized dimensions of the full image, shorter side = size
	rw, rh := size, size
	if w < h {
		rh = h * size / w
	} else {
		rw = w * size / h
	}
	rw = max(rw, size)
	rh = max(rh, size)

	left := math.Round(float64(rw-size) / 2)
	top := math.Round(float64(rh-size) / 2)

	// source to crop: scale to the resized grid, then shift by the crop offset
	sx := float64(rw) / float64(w)
	sy := float64(rh) / float64(h)
	s2d := f64.Aff3{
		sx, 0, -float64(b.Min.X)*sx - left,
		0, sy, -float64(b.Min.Y)*sy - top,
	}

	crop := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Transform(crop, s2d, opaque(img), b, draw.Src, nil)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := crop.PixOffset(x, y)
			px := crop.Pix[off : off+3 : off+3]
			i := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(px[c]) / 255
				out[c*plane+i] = (v - m.Mean[c]) / m.Std[c]
			}
		}
	}
	return out, nil
}

// opaque drops the alpha channel of images that store straight color, so
// transparent pixels keep their color instead of turning black.
func opaque(img image.Image) image.Image {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.Paletted:
		return opaqueImage{img}
	default:
		return img
	}
}

type opaqueImage struct {
	image.Image
}

func (o opaqueImage) ColorModel() color.Model { return color.NRGBAModel }

func (o opaqueImage) At(x, y int) color.Color {
	c := color.NRGBAModel.Convert(o.Image.At(x, y)).(color.NRGBA)
	c.A = 0xff
	return c
}
