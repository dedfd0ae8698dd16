package envmap

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/df07/go-prt/pkg/sh"
	"golang.org/x/sync/errgroup"
)

// Projector computes SH lighting coefficients from a cubemap
type Projector struct {
	Workers int // Parallel rows in flight; 0 uses every CPU
	Logger  *slog.Logger
}

// rowSum is the contribution of one face row
type rowSum [3]sh.Coefficients

// Project integrates the cubemap against every basis function:
//
//	coef[c][i] = sum over texels of Y_i(dir) * radiance[c] * solidAngle
//
// Rows are summed in parallel into separate slots and reduced in face/row
// order, so the result does not depend on the worker count.
func (p *Projector) Project(ctx context.Context, cm *Cubemap) (sh.LightCoefficients, error) {
	start := time.Now()
	size := cm.Size
	rows := make([]rowSum, FaceCount*size)

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for f := 0; f < FaceCount; f++ {
		for y := 0; y < size; y++ {
			face, row := Face(f), y
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				rows[int(face)*size+row] = cm.projectRow(face, row)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return sh.LightCoefficients{}, err
	}

	var light sh.LightCoefficients
	for _, r := range rows {
		for c := range light {
			light[c] = light[c].Add(r[c])
		}
	}

	if p.Logger != nil {
		p.Logger.Info("projected environment lighting",
			"face_size", size,
			"L00", light.Coefficient(0),
			"elapsed", time.Since(start))
	}
	return light, nil
}

func (cm *Cubemap) projectRow(face Face, y int) rowSum {
	var sum rowSum
	img := cm.Faces[face]
	for x := 0; x < cm.Size; x++ {
		radiance := img.At(x, y)
		weight := TexelSolidAngle(x, y, cm.Size, cm.Size)
		basis := sh.EvalAll(cm.TexelDirection(face, x, y))
		for i, b := range basis {
			w := b * weight
			sum[0][i] += radiance.X * w
			sum[1][i] += radiance.Y * w
			sum[2][i] += radiance.Z * w
		}
	}
	return sum
}

// Project projects a cubemap using default settings
func Project(ctx context.Context, cm *Cubemap) (sh.LightCoefficients, error) {
	return (&Projector{}).Project(ctx, cm)
}
