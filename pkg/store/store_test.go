package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/df07/go-prt/pkg/sh"
	"github.com/df07/go-prt/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func quad(t *testing.T) *geometry.Mesh {
	t.Helper()
	mesh, err := geometry.NewMesh([]core.Vec3{
		core.NewVec3(0, 0, 0),
		core.NewVec3(1, 0, 0),
		core.NewVec3(1, 1, 0),
		core.NewVec3(0, 1, 0),
	}, nil, []int{0, 1, 2, 0, 2, 3})
	require.NoError(t, err)
	return mesh
}

func sampleLight() sh.LightCoefficients {
	var rgb [sh.CoefficientCount]core.Vec3
	for i := range rgb {
		rgb[i] = core.NewVec3(float64(i)+0.125, -float64(i)/3, 1e-7*float64(i))
	}
	return sh.NewLightCoefficients(rgb)
}

func sampleTransport(n int) transport.Matrix {
	m := transport.NewMatrix(n)
	for v := range m {
		for i := range m[v] {
			m[v][i] = float64(v*10+i) / 7
		}
	}
	return m
}

func TestLight_RoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	light := sampleLight()
	require.NoError(t, WriteLight(ctx, bucket, LightFile, light))

	raw, err := bucket.ReadAll(ctx, LightFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "0.125 -0 0", lines[0])
	assert.Len(t, strings.Fields(lines[4]), 3)

	got, err := ReadLight(ctx, bucket, LightFile)
	require.NoError(t, err)
	assert.Equal(t, light, got)
}

func TestTransport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	mesh := quad(t)
	m := sampleTransport(mesh.VertexCount())
	require.NoError(t, WriteTransport(ctx, bucket, TransportFile, mesh, m))

	raw, err := bucket.ReadAll(ctx, TransportFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	// Vertex count, then three lines per triangle
	require.Len(t, lines, 1+3*2)
	assert.Equal(t, "4", lines[0])
	// Vertex 0 starts both triangles
	assert.Equal(t, lines[1], lines[4])
	assert.Len(t, strings.Fields(lines[2]), 9)

	got, err := ReadTransport(ctx, bucket, TransportFile, mesh)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestWriteTransport_Mismatch(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	err := WriteTransport(context.Background(), bucket, TransportFile, quad(t), transport.NewMatrix(3))
	require.ErrorIs(t, err, core.ErrResourceMismatch)
}

func TestRead_Errors(t *testing.T) {
	ctx := context.Background()
	mesh := quad(t)
	validRow := "1 2 3 4 5 6 7 8 9"
	otherRow := "9 8 7 6 5 4 3 2 1"

	tests := []struct {
		name    string
		content string
		light   bool
		kind    error
	}{
		{"light short", "1 2 3\n4 5 6\n", true, core.ErrResourceMismatch},
		{"light bad value", strings.Repeat("1 2 x\n", 9), true, core.ErrResourceLoad},
		{"light wrong width", strings.Repeat("1 2\n", 9), true, core.ErrResourceMismatch},
		{"transport wrong count", "5\n" + strings.Repeat(validRow+"\n", 6), false, core.ErrResourceMismatch},
		{"transport bad count", "four\n" + strings.Repeat(validRow+"\n", 6), false, core.ErrResourceLoad},
		{"transport missing rows", "4\n" + strings.Repeat(validRow+"\n", 5), false, core.ErrResourceMismatch},
		{"transport inconsistent vertex", "4\n" + strings.Repeat(validRow+"\n", 3) + otherRow + "\n" + strings.Repeat(validRow+"\n", 2), false, core.ErrResourceMismatch},
		{"transport empty", "\n", false, core.ErrResourceMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket := memblob.OpenBucket(nil)
			defer bucket.Close()
			require.NoError(t, bucket.WriteAll(ctx, "f.txt", []byte(tt.content), nil))

			var err error
			if tt.light {
				_, err = ReadLight(ctx, bucket, "f.txt")
			} else {
				_, err = ReadTransport(ctx, bucket, "f.txt", mesh)
			}
			require.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestRead_NotFound(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	_, err := ReadLight(context.Background(), bucket, LightFile)
	require.ErrorIs(t, err, core.ErrResourceLoad)
	assert.Contains(t, err.Error(), "not found")
}

func TestOpenBucket(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out", "nested")

	_, err := OpenBucket(ctx, dir, false)
	require.ErrorIs(t, err, core.ErrResourceLoad, "missing directory without create")

	bucket, err := OpenBucket(ctx, dir, true)
	require.NoError(t, err)
	require.NoError(t, WriteLight(ctx, bucket, LightFile, sampleLight()))
	require.NoError(t, bucket.Close())

	_, err = os.Stat(filepath.Join(dir, LightFile))
	require.NoError(t, err)

	mem, err := OpenBucket(ctx, "mem://", false)
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	_, err = OpenBucket(ctx, "nosuchscheme://bucket", false)
	require.ErrorIs(t, err, core.ErrResourceLoad)
}
