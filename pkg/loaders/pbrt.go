package loaders

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/pkg/errors"
)

// PBRTStatement represents a parsed PBRT statement
type PBRTStatement struct {
	Type       string               // Statement type (Camera, Shape, Translate, etc.)
	Subtype    string               // Subtype (perspective, trianglemesh, plymesh, etc.)
	Parameters map[string]PBRTParam // Named parameters
}

// PBRTParam represents a parameter with type and value(s)
type PBRTParam struct {
	Type   string   // Parameter type (float, integer, point3, normal, string, etc.)
	Values []string // Parameter values as strings
}

// PBRTShape is a world Shape statement with the transform in effect where it appeared
type PBRTShape struct {
	PBRTStatement
	Transform Transform
}

// Transform maps p to p*Scale + Translate. Only Translate and Scale are tracked;
// rotations are rejected by the parser.
type Transform struct {
	Scale     core.Vec3
	Translate core.Vec3
}

// IdentityTransform leaves points unchanged
func IdentityTransform() Transform {
	return Transform{Scale: core.NewVec3(1, 1, 1)}
}

// Point applies the transform to a position
func (t Transform) Point(p core.Vec3) core.Vec3 {
	return p.MultiplyVec(t.Scale).Add(t.Translate)
}

// Normal applies the inverse transpose of the scale to a normal
func (t Transform) Normal(n core.Vec3) core.Vec3 {
	return core.NewVec3(n.X/t.Scale.X, n.Y/t.Scale.Y, n.Z/t.Scale.Z).Normalize()
}

// then composes t with a transform applied before it, matching PBRT's CTM order
func (t Transform) then(m Transform) Transform {
	return Transform{
		Scale:     m.Scale.MultiplyVec(t.Scale),
		Translate: m.Translate.MultiplyVec(t.Scale).Add(t.Translate),
	}
}

// PBRTScene contains the parts of a PBRT scene file a bake can use
type PBRTScene struct {
	// Pre-WorldBegin camera placement, nil when the file has no LookAt
	LookAt   *core.Vec3 // Eye position
	LookAtTo *core.Vec3 // Look at target
	LookAtUp *core.Vec3 // Up vector
	Camera   *PBRTStatement

	Shapes []PBRTShape
}

// FOV returns the camera's "float fov" parameter, or 0 when unset
func (s *PBRTScene) FOV() float64 {
	if s.Camera == nil {
		return 0
	}
	fov, _ := s.Camera.GetFloatParam("fov")
	return fov
}

// PBRTParser encapsulates the state and logic for parsing PBRT files
type PBRTParser struct {
	scene          *PBRTScene
	ctm            Transform
	transformStack []Transform
	inWorld        bool
	statementLines []string
}

// NewPBRTParser creates a new PBRT parser instance
func NewPBRTParser() *PBRTParser {
	return &PBRTParser{
		scene: &PBRTScene{},
		ctm:   IdentityTransform(),
	}
}

// ParsePBRT parses PBRT content from an io.Reader
func ParsePBRT(reader io.Reader) (*PBRTScene, error) {
	parser := NewPBRTParser()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := parser.processLine(scanner.Text()); err != nil {
			return nil, errors.Wrapf(core.ErrResourceLoad, "line %d: %v", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "read PBRT input: %v", err)
	}

	// Process any remaining accumulated statement
	if err := parser.processAccumulatedStatement(); err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "at end of file: %v", err)
	}
	return parser.scene, nil
}

// LoadPBRT loads and parses a PBRT scene file
func LoadPBRT(filename string) (*PBRTScene, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "open PBRT file %s: %v", filename, err)
	}
	defer file.Close()

	scene, err := ParsePBRT(file)
	if err != nil {
		return nil, errors.Wrapf(err, "PBRT file %s", filename)
	}
	return scene, nil
}

// Mesh merges every shape into one mesh. plymesh filenames resolve against baseDir.
// Shapes without normals get area-weighted normals of their own before merging.
func (s *PBRTScene) Mesh(baseDir string) (*geometry.Mesh, error) {
	var (
		positions []core.Vec3
		normals   []core.Vec3
		faces     []int
	)
	for i, shape := range s.Shapes {
		part, err := shape.mesh(baseDir)
		if err != nil {
			return nil, errors.Wrapf(err, "shape %d (%s)", i, shape.Subtype)
		}
		offset := len(positions)
		for v := range part.Positions {
			positions = append(positions, shape.Transform.Point(part.Positions[v]))
			normals = append(normals, shape.Transform.Normal(part.Normals[v]))
		}
		for _, tri := range part.Indices {
			faces = append(faces, tri[0]+offset, tri[1]+offset, tri[2]+offset)
		}
	}
	if len(faces) == 0 {
		return nil, errors.Wrap(core.ErrResourceLoad, "PBRT scene has no triangle shapes")
	}
	return geometry.NewMesh(positions, normals, faces)
}

func (shape PBRTShape) mesh(baseDir string) (*geometry.Mesh, error) {
	switch shape.Subtype {
	case "trianglemesh":
		positions, err := shape.GetVec3ListParam("P")
		if err != nil {
			return nil, err
		}
		if len(positions) == 0 {
			return nil, errors.Wrap(core.ErrResourceLoad, `trianglemesh requires "point3 P"`)
		}
		faces, err := shape.GetIntListParam("indices")
		if err != nil {
			return nil, err
		}
		if faces == nil {
			if len(positions) != 3 {
				return nil, errors.Wrap(core.ErrResourceLoad, `trianglemesh without "integer indices" must have exactly 3 points`)
			}
			faces = []int{0, 1, 2}
		}
		normals, err := shape.GetVec3ListParam("N")
		if err != nil {
			return nil, err
		}
		return geometry.NewMesh(positions, normals, faces)
	case "plymesh":
		name, ok := shape.GetStringParam("filename")
		if !ok {
			return nil, errors.Wrap(core.ErrResourceLoad, `plymesh requires "string filename"`)
		}
		if !filepath.IsAbs(name) {
			name = filepath.Join(baseDir, name)
		}
		return LoadMesh(name)
	default:
		return nil, errors.Wrapf(core.ErrResourceLoad, "unsupported shape %q, only trianglemesh and plymesh are baked", shape.Subtype)
	}
}

// processAccumulatedStatement processes any accumulated statement lines and clears them
func (p *PBRTParser) processAccumulatedStatement() error {
	if len(p.statementLines) == 0 {
		return nil
	}
	fullStatement := strings.Join(p.statementLines, " ")
	p.statementLines = nil
	stmt, err := parseStatement(fullStatement)
	if err != nil {
		return errors.Wrapf(err, "parse statement %q", fullStatement)
	}
	return p.routeStatement(stmt)
}

// processLine processes a single line of PBRT input
func (p *PBRTParser) processLine(line string) error {
	line = strings.TrimSpace(stripComment(line))
	if line == "" {
		return nil
	}

	switch line {
	case "WorldBegin", "WorldEnd", "AttributeBegin", "AttributeEnd", "TransformBegin", "TransformEnd":
		if err := p.processAccumulatedStatement(); err != nil {
			return err
		}
		return p.processDirective(line)
	}

	if isStatementStart(line) {
		if err := p.processAccumulatedStatement(); err != nil {
			return err
		}
		p.statementLines = []string{line}
		return nil
	}
	if len(p.statementLines) == 0 {
		return errors.Errorf("unexpected continuation line: %s", line)
	}
	p.statementLines = append(p.statementLines, line)
	return nil
}

// stripComment drops a trailing # comment that is not inside a quoted string
func stripComment(line string) string {
	inQuotes := false
	for i, char := range line {
		switch char {
		case '"':
			inQuotes = !inQuotes
		case '#':
			if !inQuotes {
				return line[:i]
			}
		}
	}
	return line
}

func (p *PBRTParser) processDirective(directive string) error {
	switch directive {
	case "WorldBegin":
		p.inWorld = true
		p.ctm = IdentityTransform()
	case "WorldEnd":
		p.inWorld = false
	case "AttributeBegin", "TransformBegin":
		p.transformStack = append(p.transformStack, p.ctm)
	case "AttributeEnd", "TransformEnd":
		if len(p.transformStack) == 0 {
			return errors.Errorf("%s without matching begin", directive)
		}
		p.ctm = p.transformStack[len(p.transformStack)-1]
		p.transformStack = p.transformStack[:len(p.transformStack)-1]
	}
	return nil
}

// routeStatement applies a parsed statement to the parser state or the scene
func (p *PBRTParser) routeStatement(stmt *PBRTStatement) error {
	switch stmt.Type {
	case "LookAt":
		return p.parseLookAt(stmt)
	case "Camera":
		p.scene.Camera = stmt
	case "Shape":
		if p.inWorld {
			p.scene.Shapes = append(p.scene.Shapes, PBRTShape{PBRTStatement: *stmt, Transform: p.ctm})
		}
	case "Translate", "Scale":
		if !p.inWorld {
			return nil // camera space transforms are not tracked
		}
		v, err := parseVec3(stmt.Parameters["values"].Values)
		if err != nil {
			return errors.Wrapf(err, "%s", stmt.Type)
		}
		m := IdentityTransform()
		if stmt.Type == "Translate" {
			m.Translate = v
		} else {
			if v.X == 0 || v.Y == 0 || v.Z == 0 {
				return errors.New("Scale by zero")
			}
			m.Scale = v
		}
		p.ctm = p.ctm.then(m)
	case "Rotate", "Transform", "ConcatTransform":
		if p.inWorld {
			return errors.Errorf("%s is not supported, bake meshes in world space", stmt.Type)
		}
	}
	return nil
}

// parseLookAt parses a LookAt statement into scene camera vectors
func (p *PBRTParser) parseLookAt(stmt *PBRTStatement) error {
	values := stmt.Parameters["values"].Values
	if len(values) != 9 {
		return errors.Errorf("LookAt requires 9 values, got %d", len(values))
	}
	eye, err := parseVec3(values[0:3])
	if err != nil {
		return errors.Wrap(err, "LookAt eye")
	}
	at, err := parseVec3(values[3:6])
	if err != nil {
		return errors.Wrap(err, "LookAt target")
	}
	up, err := parseVec3(values[6:9])
	if err != nil {
		return errors.Wrap(err, "LookAt up")
	}
	p.scene.LookAt, p.scene.LookAtTo, p.scene.LookAtUp = &eye, &at, &up
	return nil
}

func parseVec3(values []string) (core.Vec3, error) {
	if len(values) != 3 {
		return core.Vec3{}, errors.Errorf("expected 3 values, got %d", len(values))
	}
	var xyz [3]float64
	for i, s := range values {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Vec3{}, errors.Errorf("invalid number %q", s)
		}
		xyz[i] = f
	}
	return core.NewVec3(xyz[0], xyz[1], xyz[2]), nil
}

// tokenizePBRT tokenizes a PBRT line respecting quoted strings and brackets
func tokenizePBRT(line string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	inBrackets := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, char := range line {
		switch {
		case char == '"' && !inBrackets:
			current.WriteRune(char)
			if inQuotes {
				flush()
			}
			inQuotes = !inQuotes
		case char == '[' && !inQuotes:
			flush()
			current.WriteRune(char)
			inBrackets = true
		case char == ']' && !inQuotes && inBrackets:
			current.WriteRune(char)
			flush()
			inBrackets = false
		case (char == ' ' || char == '\t') && !inQuotes && !inBrackets:
			flush()
		default:
			current.WriteRune(char)
		}
	}
	flush()
	return tokens
}

// parseStatement parses a single PBRT statement line
func parseStatement(line string) (*PBRTStatement, error) {
	// LookAt and the transform statements carry bare numbers
	for _, bare := range []string{"LookAt", "Translate", "Rotate", "Scale", "ConcatTransform", "Transform"} {
		if line == bare || strings.HasPrefix(line, bare+" ") || strings.HasPrefix(line, bare+"[") {
			values := strings.Fields(strings.NewReplacer("[", " ", "]", " ").Replace(line[len(bare):]))
			return &PBRTStatement{
				Type:       bare,
				Parameters: map[string]PBRTParam{"values": {Type: "float", Values: values}},
			}, nil
		}
	}

	// Regular statements: Type "subtype" "param type" value
	parts := tokenizePBRT(line)
	if len(parts) < 2 {
		return nil, errors.New("invalid statement format")
	}

	stmt := &PBRTStatement{
		Type:       parts[0],
		Parameters: make(map[string]PBRTParam),
	}
	parts = parts[1:]
	if strings.HasPrefix(parts[0], "\"") && strings.HasSuffix(parts[0], "\"") {
		stmt.Subtype = strings.Trim(parts[0], "\"")
		parts = parts[1:]
	}

	for i := 0; i < len(parts); {
		if !strings.HasPrefix(parts[i], "\"") {
			i++
			continue
		}
		paramParts := strings.Fields(strings.Trim(parts[i], "\""))
		i++
		if len(paramParts) != 2 {
			continue
		}

		var values []string
		if i < len(parts) {
			if strings.HasPrefix(parts[i], "[") {
				values = strings.Fields(strings.Trim(parts[i], "[] "))
			} else {
				values = []string{parts[i]}
			}
			i++
		}
		for j, v := range values {
			values[j] = strings.Trim(v, "\"")
		}
		stmt.Parameters[paramParts[1]] = PBRTParam{Type: paramParts[0], Values: values}
	}
	return stmt, nil
}

// GetFloatParam extracts a float parameter from a PBRT statement
func (stmt *PBRTStatement) GetFloatParam(name string) (float64, bool) {
	param, exists := stmt.Parameters[name]
	if !exists || len(param.Values) == 0 {
		return 0, false
	}
	val, err := strconv.ParseFloat(param.Values[0], 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// GetStringParam extracts a string parameter from a PBRT statement
func (stmt *PBRTStatement) GetStringParam(name string) (string, bool) {
	param, exists := stmt.Parameters[name]
	if !exists || len(param.Values) == 0 {
		return "", false
	}
	return param.Values[0], true
}

// GetVec3ListParam extracts a point3/normal array; nil when the parameter is absent
func (stmt *PBRTStatement) GetVec3ListParam(name string) ([]core.Vec3, error) {
	param, exists := stmt.Parameters[name]
	if !exists {
		return nil, nil
	}
	if len(param.Values)%3 != 0 {
		return nil, errors.Wrapf(core.ErrResourceLoad, "%q has %d values, not a multiple of 3", name, len(param.Values))
	}
	out := make([]core.Vec3, len(param.Values)/3)
	for i := range out {
		v, err := parseVec3(param.Values[i*3 : i*3+3])
		if err != nil {
			return nil, errors.Wrapf(core.ErrResourceLoad, "%q: %v", name, err)
		}
		out[i] = v
	}
	return out, nil
}

// GetIntListParam extracts an integer array; nil when the parameter is absent
func (stmt *PBRTStatement) GetIntListParam(name string) ([]int, error) {
	param, exists := stmt.Parameters[name]
	if !exists {
		return nil, nil
	}
	out := make([]int, len(param.Values))
	for i, s := range param.Values {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(core.ErrResourceLoad, "%q: invalid integer %q", name, s)
		}
		out[i] = v
	}
	return out, nil
}

// isStatementStart determines if a line starts a new PBRT statement
func isStatementStart(line string) bool {
	statementTypes := []string{
		"Camera", "Film", "Sampler", "Integrator", "PixelFilter", "LookAt",
		"Material", "MakeNamedMaterial", "NamedMaterial", "Texture",
		"Shape", "LightSource", "AreaLightSource",
		"Translate", "Rotate", "Scale", "Transform", "ConcatTransform",
		"ReverseOrientation", "Attribute", "Option", "ColorSpace",
	}
	for _, stmt := range statementTypes {
		if line == stmt || strings.HasPrefix(line, stmt+" ") || strings.HasPrefix(line, stmt+"[") {
			return true
		}
	}
	return false
}
