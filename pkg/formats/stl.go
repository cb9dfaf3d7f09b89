// Package formats loads room models from disk and hands them over as meshes.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

// STL format errors.
var (
	ErrTruncatedSTL = errors.New("truncated STL data")
	ErrEmptySTL     = errors.New("STL contains no triangles")
	ErrInvalidSTL   = errors.New("malformed ASCII STL")
)

const (
	stlHeaderSize = 80
	stlRecordSize = 50 // normal, 3 vertices, attribute count
)

// STL is a parsed model with vertices welded by exact position.
type STL struct {
	Name      string
	Binary    bool
	Vertices  []math.Vec3
	Triangles [][3]uint32
}

// LoadSTL reads and parses an STL file.
func LoadSTL(path string) (*STL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stl: %w", err)
	}
	s, err := ParseSTL(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadMesh reads an STL file straight into a mesh.
func LoadMesh(path string) (*mesh.Mesh, error) {
	s, err := LoadSTL(path)
	if err != nil {
		return nil, err
	}
	return s.Mesh()
}

// ParseSTL parses binary or ASCII STL data.
// Files whose size matches the binary layout are read as binary even if the
// header starts with "solid", which some exporters write.
func ParseSTL(data []byte) (*STL, error) {
	if len(data) >= stlHeaderSize+4 {
		count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
		if uint64(len(data)) == stlHeaderSize+4+uint64(count)*stlRecordSize {
			return parseBinarySTL(data, count)
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCIISTL(data)
	}
	if len(data) < stlHeaderSize+4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedSTL, len(data))
	}

	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	need := stlHeaderSize + 4 + uint64(count)*stlRecordSize
	if uint64(len(data)) < need {
		return nil, fmt.Errorf("%w: %d triangles need %d bytes, have %d", ErrTruncatedSTL, count, need, len(data))
	}
	// Trailing bytes after the last record are ignored.
	return parseBinarySTL(data, count)
}

func parseBinarySTL(data []byte, count uint32) (*STL, error) {
	if count == 0 {
		return nil, ErrEmptySTL
	}

	header := string(bytes.TrimRight(data[:stlHeaderSize], "\x00 "))
	w := newWelder(int(count))
	w.stl.Name = strings.TrimSpace(strings.TrimPrefix(header, "solid"))
	w.stl.Binary = true

	records := data[stlHeaderSize+4:]
	for i := uint32(0); i < count; i++ {
		rec := records[i*stlRecordSize:]
		// rec[0:12] is the stored normal; normals are recomputed from the winding.
		w.add(toVec3(rec[12:24]), toVec3(rec[24:36]), toVec3(rec[36:48]))
	}
	return w.stl, nil
}

func toVec3(b []byte) math.Vec3 {
	return math.Vec3{
		X: toFloat32(b[0:4]),
		Y: toFloat32(b[4:8]),
		Z: toFloat32(b[8:12]),
	}
}

func toFloat32(b []byte) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(b))
}

func parseASCIISTL(data []byte) (*STL, error) {
	w := newWelder(len(data) / 256)

	var loop []math.Vec3
	inLoop := false
	lineNo := 0

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "solid":
			if w.stl.Name == "" {
				w.stl.Name = strings.Join(fields[1:], " ")
			}
		case "outer":
			if inLoop {
				return nil, fmt.Errorf("%w: line %d: nested loop", ErrInvalidSTL, lineNo)
			}
			inLoop = true
			loop = loop[:0]
		case "vertex":
			if !inLoop {
				return nil, fmt.Errorf("%w: line %d: vertex outside loop", ErrInvalidSTL, lineNo)
			}
			if len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrInvalidSTL, lineNo)
			}
			var v [3]float32
			for k := 0; k < 3; k++ {
				f, err := strconv.ParseFloat(fields[k+1], 32)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, lineNo, err)
				}
				v[k] = float32(f)
			}
			loop = append(loop, math.Vec3{X: v[0], Y: v[1], Z: v[2]})
		case "endloop":
			if !inLoop || len(loop) != 3 {
				return nil, fmt.Errorf("%w: line %d: loop has %d vertices", ErrInvalidSTL, lineNo, len(loop))
			}
			inLoop = false
			w.add(loop[0], loop[1], loop[2])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan stl: %w", err)
	}
	if inLoop {
		return nil, fmt.Errorf("%w: unterminated loop", ErrTruncatedSTL)
	}
	if len(w.stl.Triangles) == 0 {
		return nil, ErrEmptySTL
	}
	return w.stl, nil
}

// welder deduplicates vertices by exact position.
type welder struct {
	stl   *STL
	index map[math.Vec3]uint32
}

func newWelder(triangles int) *welder {
	return &welder{
		stl: &STL{
			Vertices:  make([]math.Vec3, 0, triangles/2+3),
			Triangles: make([][3]uint32, 0, triangles),
		},
		index: make(map[math.Vec3]uint32, triangles/2+3),
	}
}

func (w *welder) vertex(v math.Vec3) uint32 {
	if i, ok := w.index[v]; ok {
		return i
	}
	i := uint32(len(w.stl.Vertices))
	w.stl.Vertices = append(w.stl.Vertices, v)
	w.index[v] = i
	return i
}

func (w *welder) add(a, b, c math.Vec3) {
	w.stl.Triangles = append(w.stl.Triangles, [3]uint32{w.vertex(a), w.vertex(b), w.vertex(c)})
}

// Mesh validates the model and builds a mesh from it.
func (s *STL) Mesh() (*mesh.Mesh, error) {
	return mesh.New(s.Vertices, s.Triangles)
}
