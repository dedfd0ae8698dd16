// Package config loads bake settings from YAML.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/envmap"
	"github.com/df07/go-prt/pkg/loaders"
	"github.com/df07/go-prt/pkg/store"
	"github.com/df07/go-prt/pkg/transport"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of a bake run
type Config struct {
	SampleCount   int     `yaml:"sample_count"`
	Cubemap       string  `yaml:"cubemap"`     // Directory or bucket URL holding the six faces
	CubemapExt    string  `yaml:"cubemap_ext"` // Face file extension
	Gamma         float64 `yaml:"gamma"`       // Linearization exponent for face images
	Type          string  `yaml:"type"`        // unshadowed, shadowed or interreflection
	Bounce        int     `yaml:"bounce"`      // Interreflection passes
	Seed          uint64  `yaml:"seed"`
	Workers       int     `yaml:"workers"` // 0 uses every CPU
	RayEpsilon    float64 `yaml:"ray_epsilon"`
	Reflectance   float64 `yaml:"reflectance"` // Scale on each interreflection bounce
	Albedo        float64 `yaml:"albedo"`      // Diffuse reflectance used when shading previews
	Mesh          string  `yaml:"mesh"`        // PLY or PBRT file
	Scene         string  `yaml:"scene"`       // Procedural scene name, used when Mesh is empty
	Output        string  `yaml:"output"`      // Directory or bucket URL; defaults to Cubemap
	LightFile     string  `yaml:"light_file"`
	TransportFile string  `yaml:"transport_file"`
	LogLevel      string  `yaml:"log_level"`
	Preview       Preview `yaml:"preview"`
}

// Preview configures the optional preview render
type Preview struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	File   string `yaml:"file"` // Empty disables the preview
	Camera Camera `yaml:"camera"`
}

// Camera places the preview camera; a zero camera is fitted to the mesh
type Camera struct {
	Position [3]float64 `yaml:"position"`
	LookAt   [3]float64 `yaml:"look_at"`
	Up       [3]float64 `yaml:"up"`
	VFov     float64    `yaml:"vfov"` // Vertical field of view in degrees
}

// IsZero reports whether the camera was left unset
func (c Camera) IsZero() bool {
	return c == Camera{}
}

// Default returns the configuration used for unset keys
func Default() Config {
	return Config{
		SampleCount:   100,
		CubemapExt:    envmap.DefaultExt,
		Gamma:         loaders.DefaultGamma,
		Type:          transport.Unshadowed.String(),
		Bounce:        1,
		RayEpsilon:    1e-4,
		Reflectance:   transport.DefaultReflectance,
		Albedo:        0.5,
		LightFile:     store.LightFile,
		TransportFile: store.TransportFile,
		LogLevel:      "info",
		Preview: Preview{
			Width:  256,
			Height: 256,
		},
	}
}

// Load reads a YAML file over the defaults
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(core.ErrConfiguration, "read config %s: %v", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrapf(core.ErrConfiguration, "parse config: %v", err)
	}
	return cfg, nil
}

// Mode returns the parsed transport mode
func (c Config) Mode() (transport.Mode, error) {
	return transport.ParseMode(c.Type)
}

// OutputLocation is where coefficient files are written
func (c Config) OutputLocation() string {
	if c.Output != "" {
		return c.Output
	}
	return c.Cubemap
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	if _, err := c.Mode(); err != nil {
		return err
	}
	switch {
	case c.SampleCount <= 0:
		return errors.Wrapf(core.ErrConfiguration, "sample_count must be positive, got %d", c.SampleCount)
	case c.Bounce < 0:
		return errors.Wrapf(core.ErrConfiguration, "bounce must not be negative, got %d", c.Bounce)
	case c.Cubemap == "":
		return errors.Wrap(core.ErrConfiguration, "cubemap location is required")
	case c.Mesh == "" && c.Scene == "":
		return errors.Wrap(core.ErrConfiguration, "one of mesh or scene is required")
	case c.Gamma < 0:
		return errors.Wrapf(core.ErrConfiguration, "gamma must not be negative, got %g", c.Gamma)
	case c.RayEpsilon <= 0:
		return errors.Wrapf(core.ErrConfiguration, "ray_epsilon must be positive, got %g", c.RayEpsilon)
	case c.Reflectance <= 0:
		return errors.Wrapf(core.ErrConfiguration, "reflectance must be positive, got %g", c.Reflectance)
	case c.Albedo < 0 || c.Albedo > 1:
		return errors.Wrapf(core.ErrConfiguration, "albedo must be in [0, 1], got %g", c.Albedo)
	case c.Workers < 0:
		return errors.Wrapf(core.ErrConfiguration, "workers must not be negative, got %d", c.Workers)
	case c.LightFile == "" || c.TransportFile == "":
		return errors.Wrap(core.ErrConfiguration, "light_file and transport_file must be set")
	case c.Preview.File != "" && (c.Preview.Width <= 0 || c.Preview.Height <= 0):
		return errors.Wrapf(core.ErrConfiguration, "preview size %dx%d is invalid", c.Preview.Width, c.Preview.Height)
	}
	return nil
}
