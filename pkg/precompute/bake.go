// Package precompute runs a complete bake: load inputs, project lighting and
// transport, add interreflections, and persist the coefficients.
package precompute

import (
	"context"
	"image"
	"image/png"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-prt/pkg/config"
	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/envmap"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/df07/go-prt/pkg/loaders"
	"github.com/df07/go-prt/pkg/logging"
	"github.com/df07/go-prt/pkg/prt"
	"github.com/df07/go-prt/pkg/renderer"
	"github.com/df07/go-prt/pkg/scene"
	"github.com/df07/go-prt/pkg/sh"
	"github.com/df07/go-prt/pkg/store"
	"github.com/df07/go-prt/pkg/transport"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gocloud.dev/blob"
)

// Baker runs bakes for one configuration
type Baker struct {
	Config config.Config
	Logger *slog.Logger

	// Buckets override the cubemap and output locations of Config when set.
	// The caller keeps ownership of buckets passed in here.
	CubemapBucket *blob.Bucket
	OutputBucket  *blob.Bucket
}

// Result is everything a bake produced
type Result struct {
	RunID          string
	Light          sh.LightCoefficients
	Transport      transport.Matrix
	Scene          *geometry.Scene
	Cubemap        *envmap.Cubemap
	Camera         renderer.CameraConfig
	Evaluator      *prt.Evaluator
	TransportStats transport.Stats
	BounceStats    transport.Stats // Zero unless the mode is interreflection
	Preview        *image.RGBA     // Nil unless a preview file is configured
	Elapsed        time.Duration
}

// Run executes every stage. Nothing is written unless all stages succeed.
func (b *Baker) Run(ctx context.Context) (*Result, error) {
	cfg := b.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	logger := b.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("run", res.RunID)
	logger.Info("starting bake", "mode", mode.String(), "samples", cfg.SampleCount, "workers", cfg.Workers)

	mesh, camera, err := loadGeometry(cfg)
	if err != nil {
		return nil, err
	}
	res.Scene = geometry.NewScene(mesh)
	res.Scene.RayEpsilon = cfg.RayEpsilon
	res.Camera = camera
	logger.Info("loaded geometry", "vertices", mesh.VertexCount(), "triangles", mesh.TriangleCount())
	if logger.Enabled(ctx, slog.LevelDebug) {
		stats := res.Scene.Stats()
		logger.Debug("built BVH", "nodes", stats.Nodes, "leaves", stats.Leaves, "max_depth", stats.MaxDepth, "avg_depth", stats.AvgDepth)
	}

	res.Cubemap, err = b.loadCubemap(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded cubemap", "size", res.Cubemap.Size, "location", cfg.Cubemap)

	res.Light, err = (&envmap.Projector{Workers: cfg.Workers, Logger: logger}).Project(ctx, res.Cubemap)
	if err != nil {
		return nil, errors.Wrap(err, "project lighting")
	}

	projector := &transport.Projector{
		Mode:        mode,
		SampleCount: cfg.SampleCount,
		Seed:        cfg.Seed,
		Workers:     cfg.Workers,
		Logger:      logger,
	}
	res.Transport, res.TransportStats, err = projector.Project(ctx, mesh, res.Scene)
	if err != nil {
		return nil, errors.Wrap(err, "project transport")
	}

	if mode == transport.Interreflection {
		solver := &transport.Solver{
			SampleCount: cfg.SampleCount,
			Bounces:     cfg.Bounce,
			Seed:        cfg.Seed,
			Workers:     cfg.Workers,
			Reflectance: cfg.Reflectance,
			Logger:      logger,
		}
		res.Transport, res.BounceStats, err = solver.Solve(ctx, mesh, res.Scene, res.Transport)
		if err != nil {
			return nil, errors.Wrap(err, "solve interreflection")
		}
	}

	albedo := core.NewVec3(cfg.Albedo, cfg.Albedo, cfg.Albedo)
	res.Evaluator, err = prt.NewEvaluator(res.Light, res.Transport, res.Scene, albedo)
	if err != nil {
		return nil, err
	}

	if cfg.Preview.File != "" {
		preview := &renderer.Preview{
			Camera:     res.Camera,
			Shader:     res.Evaluator,
			Background: res.Cubemap,
			Workers:    cfg.Workers,
			Seed:       cfg.Seed,
			Gamma:      loaders.DefaultGamma,
			Logger:     logger,
		}
		res.Preview, _, err = preview.Render(ctx)
		if err != nil {
			return nil, err
		}
	}

	if err := b.write(ctx, res); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	logger.Info("bake complete",
		"output", cfg.OutputLocation(),
		"zero_vertices", max(res.TransportStats.ZeroVertices, res.BounceStats.ZeroVertices),
		"elapsed", res.Elapsed)
	return res, nil
}

// Load rebuilds a Result from coefficient files written by an earlier Run
// with the same configuration, without projecting anything.
func (b *Baker) Load(ctx context.Context) (*Result, error) {
	cfg := b.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := b.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mesh, camera, err := loadGeometry(cfg)
	if err != nil {
		return nil, err
	}
	res := &Result{RunID: uuid.NewString(), Scene: geometry.NewScene(mesh), Camera: camera}
	res.Scene.RayEpsilon = cfg.RayEpsilon

	if res.Cubemap, err = b.loadCubemap(ctx); err != nil {
		return nil, err
	}

	bucket := b.OutputBucket
	if bucket == nil {
		opened, err := store.OpenBucket(ctx, cfg.OutputLocation(), false)
		if err != nil {
			return nil, err
		}
		defer opened.Close()
		bucket = opened
	}
	if res.Light, err = store.ReadLight(ctx, bucket, cfg.LightFile); err != nil {
		return nil, err
	}
	if res.Transport, err = store.ReadTransport(ctx, bucket, cfg.TransportFile, mesh); err != nil {
		return nil, err
	}

	albedo := core.NewVec3(cfg.Albedo, cfg.Albedo, cfg.Albedo)
	if res.Evaluator, err = prt.NewEvaluator(res.Light, res.Transport, res.Scene, albedo); err != nil {
		return nil, err
	}
	logger.Info("loaded coefficients", "run", res.RunID, "vertices", mesh.VertexCount(), "location", cfg.OutputLocation())
	return res, nil
}

// loadGeometry reads the PLY mesh or builds the procedural scene, and picks
// the preview camera: configured, else the scene's own, else fitted to the mesh
func loadGeometry(cfg config.Config) (*geometry.Mesh, renderer.CameraConfig, error) {
	var (
		mesh   *geometry.Mesh
		camera renderer.CameraConfig
	)
	switch {
	case strings.EqualFold(filepath.Ext(cfg.Mesh), ".pbrt"):
		pbrt, err := loaders.LoadPBRT(cfg.Mesh)
		if err != nil {
			return nil, camera, err
		}
		if mesh, err = pbrt.Mesh(filepath.Dir(cfg.Mesh)); err != nil {
			return nil, camera, errors.Wrapf(err, "PBRT file %s", cfg.Mesh)
		}
		camera = renderer.FitCamera(mesh.BoundingBox(), cfg.Preview.Width, cfg.Preview.Height)
		if pbrt.LookAt != nil {
			camera.Center, camera.LookAt, camera.Up = *pbrt.LookAt, *pbrt.LookAtTo, *pbrt.LookAtUp
			if fov := pbrt.FOV(); fov > 0 {
				camera.VFov = fov
			}
		}
	case cfg.Mesh != "":
		m, err := loaders.LoadMesh(cfg.Mesh)
		if err != nil {
			return nil, camera, err
		}
		mesh = m
		camera = renderer.FitCamera(mesh.BoundingBox(), cfg.Preview.Width, cfg.Preview.Height)
	default:
		s, err := scene.New(cfg.Scene)
		if err != nil {
			return nil, camera, err
		}
		mesh = s.Mesh
		camera = s.Camera
	}

	if c := cfg.Preview.Camera; !c.IsZero() {
		camera.Center = core.NewVec3(c.Position[0], c.Position[1], c.Position[2])
		camera.LookAt = core.NewVec3(c.LookAt[0], c.LookAt[1], c.LookAt[2])
		camera.Up = core.NewVec3(c.Up[0], c.Up[1], c.Up[2])
		if c.VFov > 0 {
			camera.VFov = c.VFov
		}
	}
	camera.Width = cfg.Preview.Width
	camera.AspectRatio = float64(cfg.Preview.Width) / float64(max(1, cfg.Preview.Height))
	return mesh, camera, nil
}

func (b *Baker) loadCubemap(ctx context.Context) (*envmap.Cubemap, error) {
	bucket := b.CubemapBucket
	if bucket == nil {
		opened, err := store.OpenBucket(ctx, b.Config.Cubemap, false)
		if err != nil {
			return nil, err
		}
		defer opened.Close()
		bucket = opened
	}
	return envmap.LoadCubemap(ctx, bucket, envmap.LoadOptions{Ext: b.Config.CubemapExt, Gamma: b.Config.Gamma})
}

func (b *Baker) write(ctx context.Context, res *Result) (err error) {
	cfg := b.Config
	bucket := b.OutputBucket
	if bucket == nil {
		opened, openErr := store.OpenBucket(ctx, cfg.OutputLocation(), true)
		if openErr != nil {
			return openErr
		}
		defer func() {
			if closeErr := opened.Close(); err == nil && closeErr != nil {
				err = errors.Wrap(core.ErrResourceLoad, closeErr.Error())
			}
		}()
		bucket = opened
	}

	// Files already written are removed again if a later one fails
	var written []string
	defer func() {
		if err != nil {
			removeKeys(context.WithoutCancel(ctx), bucket, written)
		}
	}()

	if err := store.WriteLight(ctx, bucket, cfg.LightFile, res.Light); err != nil {
		return err
	}
	written = append(written, cfg.LightFile)
	if err := store.WriteTransport(ctx, bucket, cfg.TransportFile, res.Scene.Mesh, res.Transport); err != nil {
		return err
	}
	written = append(written, cfg.TransportFile)
	if res.Preview != nil {
		if err := writePNG(ctx, bucket, cfg.Preview.File, res.Preview); err != nil {
			return err
		}
	}
	return nil
}

func removeKeys(ctx context.Context, bucket *blob.Bucket, keys []string) {
	for _, key := range keys {
		bucket.Delete(ctx, key)
	}
}

func writePNG(ctx context.Context, bucket *blob.Bucket, key string, img image.Image) error {
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := bucket.NewWriter(writeCtx, key, &blob.WriterOptions{ContentType: "image/png"})
	if err != nil {
		return errors.Wrapf(core.ErrResourceLoad, "create %s: %v", key, err)
	}
	if err := png.Encode(w, img); err != nil {
		cancel()
		w.Close()
		return errors.Wrapf(core.ErrResourceLoad, "encode %s: %v", key, err)
	}
	if err := w.Close(); err != nil {
		return errors.Wrapf(core.ErrResourceLoad, "write %s: %v", key, err)
	}
	return nil
}
