// Package imaging prepares identity photos for embedding in examination
// reports: orientation correction, square resize and circular crop.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrImageDecode is returned when photo bytes are not a decodable image.
var ErrImageDecode = errors.New("image decode failed")

// supersample is the per-axis sample count used to anti-alias the mask edge.
const supersample = 4

// NormalizePhoto decodes raw, applies its EXIF orientation, resizes it to an
// exact size x size square (aspect ratio is not kept), crops it to the
// inscribed circle and returns the result as PNG.
func NormalizePhoto(raw []byte, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", size)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	img = Orient(img, ReadOrientation(raw))
	out := CircleCrop(Square(img, size))

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Square flattens img onto an opaque white background and scales it to
// size x size.
func Square(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// CircleMask returns an alpha mask whose opaque region is the circle
// inscribed in a size x size square. Edge pixels carry partial coverage.
func CircleMask(size int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	r2 := c * c
	n := supersample * supersample

	for py := 0; py < size; py++ {
		for px := 0; px < size; px++ {
			inside := 0
			for sy := 0; sy < supersample; sy++ {
				dy := float64(py) + (float64(sy)+0.5)/supersample - c
				for sx := 0; sx < supersample; sx++ {
					dx := float64(px) + (float64(sx)+0.5)/supersample - c
					if dx*dx+dy*dy <= r2 {
						inside++
					}
				}
			}
			mask.SetAlpha(px, py, color.Alpha{A: uint8((inside*255 + n/2) / n)})
		}
	}
	return mask
}

// CircleCrop composites src over a transparent canvas through CircleMask.
func CircleCrop(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.DrawMask(out, out.Bounds(), src, b.Min, CircleMask(b.Dx()), image.Point{}, draw.Over)
	return out
}
