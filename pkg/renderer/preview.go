// Package renderer draws preview images of baked transport through a pinhole camera.
package renderer

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/logging"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultTileSize is the edge length of the square tiles rendered in parallel
const DefaultTileSize = 32

// previewPass separates camera jitter streams from the bake passes
const previewPass = 1 << 16

// Shader returns the outgoing radiance along a camera ray, or false on a miss
type Shader interface {
	Shade(ray core.Ray) (core.Vec3, bool)
}

// Background supplies radiance for rays that miss the mesh
type Background interface {
	Lookup(dir core.Vec3) core.Vec3
}

// Preview renders a shader through a camera
type Preview struct {
	Camera          CameraConfig
	Shader          Shader
	Background      Background // Optional; misses are black without it
	SamplesPerPixel int        // Jittered camera rays per pixel, at least 1
	TileSize        int        // Defaults to DefaultTileSize
	Workers         int        // 0 uses every CPU
	Seed            uint64
	Gamma           float64 // Display gamma; 0 writes linear values
	Logger          *slog.Logger
}

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID     int             // Unique tile identifier, also its random stream
	Bounds image.Rectangle // Pixel bounds (x0,y0,x1,y1)
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []Tile {
	var tiles []Tile
	tileID := 0

	// Calculate number of tiles in each dimension
	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, Tile{ID: tileID, Bounds: image.Rect(x0, y0, x1, y1)})
			tileID++
		}
	}

	return tiles
}

// Render traces every pixel and returns an 8-bit image. Each tile owns its
// pixels and its random stream, so the result does not depend on Workers.
func (p *Preview) Render(ctx context.Context) (*image.RGBA, RenderStats, error) {
	if p.Shader == nil {
		return nil, RenderStats{}, errors.Wrap(core.ErrConfiguration, "preview needs a shader")
	}
	width, height := p.Camera.Width, p.Camera.Height()
	if width <= 0 || height <= 0 {
		return nil, RenderStats{}, errors.Wrapf(core.ErrConfiguration, "preview size %dx%d is invalid", width, height)
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	tileSize := p.TileSize
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	camera := NewCamera(p.Camera)
	tiles := NewTileGrid(width, height, tileSize)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	tileStats := make([]RenderStats, len(tiles))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var done atomic.Int64

	for _, tile := range tiles {
		tile := tile
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tileStats[tile.ID] = p.renderTile(camera, tile, width, height, img)
			if d := done.Add(1); d%int64(max(1, len(tiles)/4)) == 0 {
				logger.Debug("preview tiles", "done", d, "total", len(tiles))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, RenderStats{}, errors.Wrap(err, "render preview")
	}

	stats := RenderStats{SamplesPerPixel: max(1, p.SamplesPerPixel)}
	for _, ts := range tileStats {
		stats.merge(ts)
	}
	stats.Elapsed = time.Since(start)
	logger.Info("rendered preview", "width", width, "height", height,
		"hit_ratio", stats.HitRatio(), "elapsed", stats.Elapsed)
	return img, stats, nil
}

// renderTile writes the pixels inside tile.Bounds; tiles never overlap
func (p *Preview) renderTile(camera *Camera, tile Tile, width, height int, img *image.RGBA) RenderStats {
	sampler := core.NewRandomSampler(core.StreamSeeds(p.Seed, previewPass, tile.ID)...)
	spp := max(1, p.SamplesPerPixel)
	stats := RenderStats{TotalPixels: tile.Bounds.Dx() * tile.Bounds.Dy()}

	for j := tile.Bounds.Min.Y; j < tile.Bounds.Max.Y; j++ {
		for i := tile.Bounds.Min.X; i < tile.Bounds.Max.X; i++ {
			var ps PixelStats
			for n := 0; n < spp; n++ {
				// A single sample goes through the pixel center
				offset := core.NewVec2(0.5, 0.5)
				if spp > 1 {
					offset = sampler.Get2D()
				}
				s := (float64(i) + offset.X) / float64(width)
				t := 1 - (float64(j)+offset.Y)/float64(height) // Row 0 is the top of the image
				ray := camera.GetRay(s, t)

				c, hit := p.Shader.Shade(ray)
				if hit {
					stats.HitSamples++
				} else if p.Background != nil {
					c = p.Background.Lookup(ray.Direction)
				}
				ps.AddSample(c)
			}
			stats.TotalSamples += spp
			img.SetRGBA(i, j, p.toRGBA(ps.GetColor()))
		}
	}
	return stats
}

func (p *Preview) toRGBA(c core.Vec3) color.RGBA {
	c = c.Clamp(0, 1)
	if p.Gamma > 0 && p.Gamma != 1 {
		c = c.GammaCorrect(p.Gamma)
	}
	return color.RGBA{
		R: uint8(c.X*255 + 0.5),
		G: uint8(c.Y*255 + 0.5),
		B: uint8(c.Z*255 + 0.5),
		A: 255,
	}
}
