package loaders

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/pkg/errors"
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version  string // Usually "1.0"
	Elements []PLYElement

	VertexCount int
	FaceCount   int
	HasNormals  bool
}

// PLYElement is one element block (vertex, face, or anything else) in file order
type PLYElement struct {
	Name  string
	Count int
	Props []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// PLYData contains the vertex and face data loaded from a PLY file
type PLYData struct {
	Vertices []core.Vec3 // Vertex positions (x, y, z)
	Normals  []core.Vec3 // Per-vertex normals (nx, ny, nz) - nil if not present
	Faces    []int       // Triangle indices (3 per triangle); polygons are fan-triangulated
}

// LoadPLY loads a PLY file and returns the raw vertex and face data
func LoadPLY(filename string) (*PLYData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "open PLY file %s: %v", filename, err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, errors.Wrapf(err, "PLY file %s", filename)
	}
	return data, nil
}

// LoadMesh loads a PLY file into a validated mesh
func LoadMesh(filename string) (*geometry.Mesh, error) {
	data, err := LoadPLY(filename)
	if err != nil {
		return nil, err
	}
	return data.Mesh()
}

// Mesh converts the loaded data into a validated mesh, deriving normals when absent
func (d *PLYData) Mesh() (*geometry.Mesh, error) {
	return geometry.NewMesh(d.Vertices, d.Normals, d.Faces)
}

// ReadPLY parses a PLY stream in ascii, binary little endian, or binary big endian format
func ReadPLY(r io.Reader) (*PLYData, error) {
	reader := bufio.NewReaderSize(r, 1024*1024) // 1MB buffer

	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "parse PLY header: %v", err)
	}

	var values plyValueReader
	switch header.Format {
	case "binary_little_endian":
		values = &binaryValueReader{reader: reader, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryValueReader{reader: reader, order: binary.BigEndian}
	case "ascii":
		scanner := bufio.NewScanner(reader)
		scanner.Split(bufio.ScanWords)
		values = &asciiValueReader{scanner: scanner}
	default:
		return nil, errors.Wrapf(core.ErrResourceLoad, "unsupported PLY format: %q", header.Format)
	}

	data, err := readPLYBody(values, header)
	if err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "read PLY data: %v", err)
	}
	return data, nil
}

// parsePLYHeader parses the header up to and including end_header
func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}

	magic, err := reader.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, errors.New("missing ply magic number")
	}

	var current *PLYElement
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, errors.Wrap(err, "header ended before end_header")
		}
		line = strings.TrimSpace(line)
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) >= 3 {
				header.Format = parts[1]
				header.Version = parts[2]
			}
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, errors.Errorf("invalid element definition: %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, errors.Errorf("invalid element count: %s", parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
			current = &header.Elements[len(header.Elements)-1]

			switch parts[1] {
			case "vertex":
				header.VertexCount = count
			case "face":
				header.FaceCount = count
			}
		case "property":
			if current == nil {
				return nil, errors.New("property before any element")
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, err
			}
			current.Props = append(current.Props, prop)
			if current.Name == "vertex" && (prop.Name == "nx" || prop.Name == "ny" || prop.Name == "nz") {
				header.HasNormals = true
			}
		}
	}

	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, errors.New("invalid property definition")
	}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, errors.New("invalid list property definition")
		}
		return PLYProperty{IsList: true, ListType: parts[1], DataType: parts[2], Name: parts[3]}, nil
	}
	return PLYProperty{Type: parts[0], Name: parts[1]}, nil
}

// readPLYBody reads every element in header order, keeping vertices and faces
func readPLYBody(values plyValueReader, header *PLYHeader) (*PLYData, error) {
	data := &PLYData{
		Vertices: make([]core.Vec3, 0, header.VertexCount),
		Faces:    make([]int, 0, header.FaceCount*3), // Assuming triangular faces
	}
	if header.HasNormals {
		data.Normals = make([]core.Vec3, 0, header.VertexCount)
	}

	for _, element := range header.Elements {
		for i := 0; i < element.Count; i++ {
			switch element.Name {
			case "vertex":
				if err := readVertex(values, element.Props, header.HasNormals, data); err != nil {
					return nil, errors.Wrapf(err, "vertex %d", i)
				}
			case "face":
				if err := readFace(values, element.Props, data); err != nil {
					return nil, errors.Wrapf(err, "face %d", i)
				}
			default:
				for _, prop := range element.Props {
					if _, err := readProperty(values, prop); err != nil {
						return nil, errors.Wrapf(err, "%s %d", element.Name, i)
					}
				}
			}
		}
	}

	return data, nil
}

func readVertex(values plyValueReader, props []PLYProperty, hasNormals bool, data *PLYData) error {
	var position, normal core.Vec3
	for _, prop := range props {
		list, err := readProperty(values, prop)
		if err != nil {
			return err
		}
		if prop.IsList || len(list) == 0 {
			continue
		}
		value := list[0]
		switch prop.Name {
		case "x":
			position.X = value
		case "y":
			position.Y = value
		case "z":
			position.Z = value
		case "nx":
			normal.X = value
		case "ny":
			normal.Y = value
		case "nz":
			normal.Z = value
		}
	}

	data.Vertices = append(data.Vertices, position)
	if hasNormals {
		data.Normals = append(data.Normals, normal)
	}
	return nil
}

func readFace(values plyValueReader, props []PLYProperty, data *PLYData) error {
	for _, prop := range props {
		list, err := readProperty(values, prop)
		if err != nil {
			return err
		}
		if !prop.IsList || (prop.Name != "vertex_indices" && prop.Name != "vertex_index") {
			continue
		}
		if len(list) < 3 {
			return errors.Errorf("face has %d vertices, need at least 3", len(list))
		}
		// Fan triangulation keeps triangles unchanged
		for k := 1; k+1 < len(list); k++ {
			data.Faces = append(data.Faces, int(list[0]), int(list[k]), int(list[k+1]))
		}
	}
	return nil
}

// readProperty reads one property value, or every entry of a list property
func readProperty(values plyValueReader, prop PLYProperty) ([]float64, error) {
	if !prop.IsList {
		v, err := values.read(prop.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "property %s", prop.Name)
		}
		return []float64{v}, nil
	}

	count, err := values.read(prop.ListType)
	if err != nil {
		return nil, errors.Wrapf(err, "list count of %s", prop.Name)
	}
	if count < 0 {
		return nil, errors.Errorf("negative list count %v for %s", count, prop.Name)
	}
	list := make([]float64, int(count))
	for i := range list {
		if list[i], err = values.read(prop.DataType); err != nil {
			return nil, errors.Wrapf(err, "list entry %d of %s", i, prop.Name)
		}
	}
	return list, nil
}

// plyValueReader reads one scalar of a named PLY type
type plyValueReader interface {
	read(dataType string) (float64, error)
}

type binaryValueReader struct {
	reader *bufio.Reader
	order  binary.ByteOrder
	buf    [8]byte
}

func (b *binaryValueReader) read(dataType string) (float64, error) {
	size := getTypeSize(dataType)
	if size == 0 {
		return 0, errors.Errorf("unsupported data type: %s", dataType)
	}
	raw := b.buf[:size]
	if _, err := io.ReadFull(b.reader, raw); err != nil {
		return 0, err
	}

	switch dataType {
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(raw))), nil
	case "double", "float64":
		return math.Float64frombits(b.order.Uint64(raw)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(raw))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(raw)), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(raw))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(raw)), nil
	case "char", "int8":
		return float64(int8(raw[0])), nil
	default: // "uchar", "uint8"
		return float64(raw[0]), nil
	}
}

type asciiValueReader struct {
	scanner *bufio.Scanner
}

func (a *asciiValueReader) read(dataType string) (float64, error) {
	if getTypeSize(dataType) == 0 {
		return 0, errors.Errorf("unsupported data type: %s", dataType)
	}
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.ParseFloat(a.scanner.Text(), 64)
}

// getTypeSize returns the size in bytes of a PLY data type, 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}
