package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/go-prt/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// TestLoadImage creates a test PNG and verifies loading
func TestLoadImage(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.png")

	// Create a simple 2x2 test image
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255}) // Top-left: white
	img.Set(1, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})     // Top-right: red
	img.Set(0, 1, color.RGBA{R: 0, G: 255, B: 0, A: 255})     // Bottom-left: green
	img.Set(1, 1, color.RGBA{R: 0, G: 0, B: 255, A: 255})     // Bottom-right: blue

	require.NoError(t, os.WriteFile(testFile, encodePNG(t, img), 0o644))

	imageData, err := LoadImage(testFile, DefaultGamma)
	require.NoError(t, err)

	assert.Equal(t, 2, imageData.Width)
	assert.Equal(t, 2, imageData.Height)
	assert.Equal(t, 3, imageData.Channels)
	require.Len(t, imageData.Pixels, 4)

	checkColor := func(name string, got, expected core.Vec3) {
		const tolerance = 0.01
		if got.Subtract(expected).Length() > tolerance {
			t.Errorf("%s: expected %v, got %v", name, expected, got)
		}
	}

	// Row-major order; pure primaries are unchanged by gamma
	checkColor("Top-left (white)", imageData.At(0, 0), core.NewVec3(1, 1, 1))
	checkColor("Top-right (red)", imageData.At(1, 0), core.NewVec3(1, 0, 0))
	checkColor("Bottom-left (green)", imageData.At(0, 1), core.NewVec3(0, 1, 0))
	checkColor("Bottom-right (blue)", imageData.At(1, 1), core.NewVec3(0, 0, 1))
}

func TestDecodeImage_Gamma(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 128})
	data := encodePNG(t, img)

	encoded := float64(128*257) / 65535.0

	tests := []struct {
		name     string
		gamma    float64
		expected float64
	}{
		{"linear passthrough", 0, encoded},
		{"gamma 1", 1, encoded},
		{"gamma 2.2", 2.2, math.Pow(encoded, 2.2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeImage(bytes.NewReader(data), tt.gamma)
			require.NoError(t, err)
			assert.Equal(t, 1, decoded.Channels)
			assert.InDelta(t, tt.expected, decoded.Pixels[0].X, 1e-9)
			assert.InDelta(t, tt.expected, decoded.Pixels[0].Z, 1e-9)
		})
	}
}

func TestDecodeImage_AlphaChannels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 100})

	decoded, err := DecodeImage(bytes.NewReader(encodePNG(t, img)), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Channels)
}

// TestLoadImageNotFound verifies error handling for missing files
func TestLoadImageNotFound(t *testing.T) {
	_, err := LoadImage("nonexistent.png", DefaultGamma)
	require.ErrorIs(t, err, core.ErrResourceLoad)
}

func TestDecodeImage_Garbage(t *testing.T) {
	_, err := DecodeImage(bytes.NewReader([]byte("definitely not an image")), DefaultGamma)
	require.ErrorIs(t, err, core.ErrResourceLoad)
}

func TestNewUniformImage(t *testing.T) {
	img := NewUniformImage(3, 2, core.NewVec3(0.5, 0.25, 1))
	assert.Equal(t, 6, len(img.Pixels))
	assert.Equal(t, core.NewVec3(0.5, 0.25, 1), img.At(2, 1))
}
