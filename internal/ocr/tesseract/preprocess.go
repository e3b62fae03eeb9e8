package tesseract

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Tesseract does noticeably better on small phone photos after a grayscale
// pass and an upscale to at least minDimension on the short side.
const minDimension = 1000

// Preprocess converts to grayscale and upscales small images, returning a
// PNG. On any decode failure the original bytes are returned untouched so
// the engine still gets a chance at the raw payload.
func Preprocess(data []byte) []byte {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return data
	}

	scale := 1.0
	if w < minDimension || h < minDimension {
		sw := float64(minDimension) / float64(w)
		sh := float64(minDimension) / float64(h)
		scale = sw
		if sh > sw {
			scale = sh
		}
	}

	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	dst := image.NewGray(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := bounds.Min.Y + y*h/nh
		for x := 0; x < nw; x++ {
			sx := bounds.Min.X + x*w/nw
			dst.Set(x, y, color.GrayModel.Convert(src.At(sx, sy)))
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return data
	}
	return out.Bytes()
}
