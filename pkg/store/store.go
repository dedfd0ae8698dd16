// Package store persists light and transport coefficients as text files in blob buckets.
//
// Light file: one line per SH coefficient, "R G B".
// Transport file: the vertex count, then for every triangle three lines of
// nine coefficients, one line per corner vertex, in triangle order.
package store

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/df07/go-prt/pkg/sh"
	"github.com/df07/go-prt/pkg/transport"
	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob" // mem:// buckets
	"gocloud.dev/gcerrors"
)

// Default object keys
const (
	LightFile     = "light.txt"
	TransportFile = "transport.txt"
)

// OpenBucket opens a bucket URL (mem://, file://, gs://) or a local directory path.
// Local directories are created when create is set.
func OpenBucket(ctx context.Context, location string, create bool) (*blob.Bucket, error) {
	if strings.Contains(location, "://") {
		bucket, err := blob.OpenBucket(ctx, location)
		if err != nil {
			return nil, errors.Wrapf(core.ErrResourceLoad, "open bucket %s: %v", location, err)
		}
		return bucket, nil
	}

	if location == "" {
		location = "."
	}
	if create {
		if err := os.MkdirAll(location, 0o755); err != nil {
			return nil, errors.Wrapf(core.ErrResourceLoad, "create directory %s: %v", location, err)
		}
	}
	bucket, err := fileblob.OpenBucket(location, nil)
	if err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "open directory %s: %v", location, err)
	}
	return bucket, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// writeLines writes a blob through a buffered writer, one line per callback string
func writeLines(ctx context.Context, bucket *blob.Bucket, key string, emit func(w *bufio.Writer) error) error {
	// Cancelling the writer's context before Close discards the partial blob
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	fd, err := bucket.NewWriter(writeCtx, key, nil)
	if err != nil {
		return errors.Wrapf(err, "create %s", key)
	}
	buf := bufio.NewWriterSize(fd, 1<<20) // use 1MB buffer

	if err := emit(buf); err != nil {
		cancel()
		fd.Close()
		return errors.Wrapf(err, "write %s", key)
	}
	if err := buf.Flush(); err != nil {
		cancel()
		fd.Close()
		return errors.Wrapf(err, "flush %s", key)
	}
	return errors.Wrapf(fd.Close(), "close %s", key)
}

// WriteLight writes the nine RGB light coefficients
func WriteLight(ctx context.Context, bucket *blob.Bucket, key string, light sh.LightCoefficients) error {
	return writeLines(ctx, bucket, key, func(w *bufio.Writer) error {
		for i := 0; i < sh.CoefficientCount; i++ {
			c := light.Coefficient(i)
			if _, err := w.WriteString(formatFloat(c.X) + " " + formatFloat(c.Y) + " " + formatFloat(c.Z) + "\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteTransport writes the transport matrix in triangle order; shared vertices repeat
func WriteTransport(ctx context.Context, bucket *blob.Bucket, key string, mesh *geometry.Mesh, m transport.Matrix) error {
	if m.VertexCount() != mesh.VertexCount() {
		return errors.Wrapf(core.ErrResourceMismatch, "transport has %d columns, mesh has %d vertices", m.VertexCount(), mesh.VertexCount())
	}

	return writeLines(ctx, bucket, key, func(w *bufio.Writer) error {
		if _, err := w.WriteString(strconv.Itoa(mesh.VertexCount()) + "\n"); err != nil {
			return err
		}
		fields := make([]string, sh.CoefficientCount)
		for _, tri := range mesh.Indices {
			for _, idx := range tri {
				for i, v := range m[idx] {
					fields[i] = formatFloat(v)
				}
				if _, err := w.WriteString(strings.Join(fields, " ") + "\n"); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// readLines returns the non-empty lines of a blob
func readLines(ctx context.Context, bucket *blob.Bucket, key string) ([]string, error) {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, errors.Wrapf(core.ErrResourceLoad, "%s not found", key)
		}
		return nil, errors.Wrapf(core.ErrResourceLoad, "open %s: %v", key, err)
	}
	defer r.Close()

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "read %s: %v", key, err)
	}
	return lines, nil
}

func parseFloats(line string, want int) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) != want {
		return nil, errors.Wrapf(core.ErrResourceMismatch, "expected %d values, got %d", want, len(fields))
	}
	values := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(core.ErrResourceLoad, "bad value %q", f)
		}
		values[i] = v
	}
	return values, nil
}

// ReadLight reads a light coefficient file
func ReadLight(ctx context.Context, bucket *blob.Bucket, key string) (sh.LightCoefficients, error) {
	lines, err := readLines(ctx, bucket, key)
	if err != nil {
		return sh.LightCoefficients{}, err
	}
	if len(lines) != sh.CoefficientCount {
		return sh.LightCoefficients{}, errors.Wrapf(core.ErrResourceMismatch, "%s has %d lines, want %d", key, len(lines), sh.CoefficientCount)
	}

	var rgb [sh.CoefficientCount]core.Vec3
	for i, line := range lines {
		v, err := parseFloats(line, 3)
		if err != nil {
			return sh.LightCoefficients{}, errors.Wrapf(err, "%s line %d", key, i+1)
		}
		rgb[i] = core.NewVec3(v[0], v[1], v[2])
	}
	return sh.NewLightCoefficients(rgb), nil
}

// ReadTransport reads a transport file back into one column per mesh vertex.
// Every repeated vertex must carry the same coefficients.
func ReadTransport(ctx context.Context, bucket *blob.Bucket, key string, mesh *geometry.Mesh) (transport.Matrix, error) {
	lines, err := readLines(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.Wrapf(core.ErrResourceMismatch, "%s is empty", key)
	}

	count, err := strconv.Atoi(lines[0])
	if err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "%s: bad vertex count %q", key, lines[0])
	}
	if count != mesh.VertexCount() {
		return nil, errors.Wrapf(core.ErrResourceMismatch, "%s has %d vertices, mesh has %d", key, count, mesh.VertexCount())
	}
	if want := 1 + 3*mesh.TriangleCount(); len(lines) != want {
		return nil, errors.Wrapf(core.ErrResourceMismatch, "%s has %d lines, want %d", key, len(lines), want)
	}

	m := transport.NewMatrix(count)
	seen := make([]bool, count)
	line := 1
	for t, tri := range mesh.Indices {
		for _, idx := range tri {
			v, err := parseFloats(lines[line], sh.CoefficientCount)
			if err != nil {
				return nil, errors.Wrapf(err, "%s line %d", key, line+1)
			}
			var c sh.Coefficients
			copy(c[:], v)

			if seen[idx] && m[idx] != c {
				return nil, errors.Wrapf(core.ErrResourceMismatch, "%s: vertex %d differs between triangles (triangle %d)", key, idx, t)
			}
			m[idx], seen[idx] = c, true
			line++
		}
	}
	return m, nil
}
