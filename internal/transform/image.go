package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"sipc/internal/services"
)

// lossyExtensions are re-encoded as WebP regardless of their content.
var lossyExtensions = map[string]bool{
	".jpe":  true,
	".jpg":  true,
	".jpeg": true,
	".jfif": true,
	".webp": true,
}

// ImageCodec scales and re-encodes still images.
type ImageCodec struct {
	MaxDimension int
	Quality      int
}

// Optimize decodes data, fits it into MaxDimension, and re-encodes it. ext
// must be lower-case.
func (c ImageCodec) Optimize(ext string, data []byte) (string, []byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", nil, services.Wrap(services.ErrDecode, "transform", "image", "decode "+ext, err)
	}

	toWebP := lossyExtensions[ext] || format == "webp" || (ext == ".png" && isOpaqueOrPaletted(img))
	img = c.fit(img)

	var buf bytes.Buffer
	if toWebP {
		if err := webp.Encode(&buf, asNRGBA(img), &webp.Options{Quality: float32(c.Quality)}); err != nil {
			return "", nil, services.Wrap(services.ErrUnsupported, "transform", "image", "encode webp", err)
		}
		return ".webp", buf.Bytes(), nil
	}

	switch format {
	case "png":
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		err = encoder.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, &gif.Options{NumColors: 256})
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.Quality})
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = fmt.Errorf("no encoder for %s", format)
	}
	if err != nil {
		return "", nil, services.Wrap(services.ErrUnsupported, "transform", "image", "encode "+format, err)
	}
	return ext, buf.Bytes(), nil
}

// fit scales img down so neither side exceeds MaxDimension. The larger side
// becomes exactly MaxDimension; the other is floored.
func (c ImageCodec) fit(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	width, height, ok := FitWithin(w, h, c.MaxDimension)
	if !ok {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// FitWithin returns the dimensions of a w×h image scaled to fit a limit×limit
// box, and false when no scaling is needed.
func FitWithin(w, h, limit int) (int, int, bool) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h, false
	}
	if w >= h {
		return limit, max(1, h*limit/w), true
	}
	return max(1, w*limit/h), limit, true
}

// isOpaqueOrPaletted matches PNGs stored as 8/16-bit RGB without alpha or as
// a palette; those compress better as WebP.
func isOpaqueOrPaletted(img image.Image) bool {
	switch img.(type) {
	case *image.Paletted, *image.RGBA, *image.RGBA64:
		return true
	default:
		return false
	}
}

func asNRGBA(img image.Image) image.Image {
	switch img.(type) {
	case *image.NRGBA, *image.RGBA, *image.Gray:
		return img
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
