package loaders

import (
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"math"
	"os"

	"github.com/df07/go-prt/pkg/core"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder
)

// DefaultGamma converts 8/16-bit encoded images to linear radiance
const DefaultGamma = 2.2

// Image is a decoded image as linear float RGB
type Image struct {
	Width    int
	Height   int
	Channels int         // Channel count of the source encoding (1 gray, 3 RGB, 4 RGBA)
	Pixels   []core.Vec3 // Row-major, top row first
}

// At returns the pixel at column x, row y
func (img *Image) At(x, y int) core.Vec3 {
	return img.Pixels[y*img.Width+x]
}

// NewUniformImage creates a width x height RGB image filled with one color
func NewUniformImage(width, height int, c core.Vec3) *Image {
	pixels := make([]core.Vec3, width*height)
	for i := range pixels {
		pixels[i] = c
	}
	return &Image{Width: width, Height: height, Channels: 3, Pixels: pixels}
}

// LoadImage loads an image file and converts it to linear float RGB
func LoadImage(filename string, gamma float64) (*Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "open image %s: %v", filename, err)
	}
	defer file.Close()

	img, err := DecodeImage(file, gamma)
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", filename)
	}
	return img, nil
}

// DecodeImage decodes a PNG, JPEG, BMP, TIFF or WebP stream.
// Encoded values are mapped to [0,1] and raised to gamma; gamma <= 0 keeps them as stored.
func DecodeImage(r io.Reader, gamma float64) (*Image, error) {
	// Decode image (auto-detects format from the stream header)
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "decode image: %v", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]core.Vec3, width*height)

	linearize := func(v uint32) float64 {
		// RGBA returns uint32 in [0, 65535], convert to [0, 1]
		f := float64(v) / 65535.0
		if gamma > 0 && gamma != 1 {
			return math.Pow(f, gamma)
		}
		return f
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			pixels[y*width+x] = core.NewVec3(linearize(r), linearize(g), linearize(b))
		}
	}

	return &Image{
		Width:    width,
		Height:   height,
		Channels: channelCount(img),
		Pixels:   pixels,
	}, nil
}

// channelCount reports how many channels the decoded source carried
func channelCount(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	}
	if opaque, ok := img.(interface{ Opaque() bool }); ok && !opaque.Opaque() {
		return 4
	}
	return 3
}
