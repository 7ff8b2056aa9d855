package model

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer/material"
)

// ErrMalformedOBJ is returned when a Wavefront OBJ file cannot be parsed.
var ErrMalformedOBJ = errors.New("malformed obj")

// OBJData holds the parsed contents of an OBJ file before materials are resolved.
type OBJData struct {
	// Meshes holds one mesh per object, group or material switch, in file order.
	Meshes []Mesh

	// MeshMaterials holds the usemtl name active for each mesh, "" when none.
	MeshMaterials []string

	// Libraries lists the mtllib file names referenced by the file.
	Libraries []string
}

// ParseOBJ reads a Wavefront OBJ file. Faces are fan-triangulated, texture V is flipped so
// (0, 0) is the top-left texel, and identical v/vt/vn triples share one vertex.
// A missing normal is left zero.
//
// Parameters:
//   - r: the OBJ source
//
// Returns:
//   - OBJData: the parsed meshes
//   - error: ErrMalformedOBJ for bad numbers or out-of-range indices, or a read error
func ParseOBJ(r io.Reader) (OBJData, error) {
	var (
		data      OBJData
		positions [][3]float32
		uvs       [][2]float32
		normals   [][3]float32
	)

	cur := Mesh{Name: "default", MaterialIndex: -1}
	curMaterial := ""
	shared := make(map[string]uint32)

	flush := func(name string) {
		if len(cur.Indices) > 0 {
			data.Meshes = append(data.Meshes, cur)
			data.MeshMaterials = append(data.MeshMaterials, curMaterial)
		}
		cur = Mesh{Name: name, MaterialIndex: -1}
		shared = make(map[string]uint32)
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)

		switch parts[0] {
		case "v", "vn":
			v, err := parseFloats(parts[1:], 3, lineNo)
			if err != nil {
				return OBJData{}, err
			}
			if parts[0] == "v" {
				positions = append(positions, [3]float32{v[0], v[1], v[2]})
			} else {
				normals = append(normals, [3]float32{v[0], v[1], v[2]})
			}
		case "vt":
			v, err := parseFloats(parts[1:], 2, lineNo)
			if err != nil {
				return OBJData{}, err
			}
			uvs = append(uvs, [2]float32{v[0], 1 - v[1]})
		case "f":
			if len(parts) < 4 {
				return OBJData{}, fmt.Errorf("%w: line %d: face needs at least 3 vertices", ErrMalformedOBJ, lineNo)
			}
			face := make([]uint32, 0, len(parts)-1)
			for _, ref := range parts[1:] {
				if idx, ok := shared[ref]; ok {
					face = append(face, idx)
					continue
				}
				vtx, err := parseFaceVertex(ref, positions, uvs, normals, lineNo)
				if err != nil {
					return OBJData{}, err
				}
				idx := uint32(len(cur.Vertices))
				cur.Vertices = append(cur.Vertices, vtx)
				shared[ref] = idx
				face = append(face, idx)
			}
			for i := 2; i < len(face); i++ {
				cur.Indices = append(cur.Indices, face[0], face[i-1], face[i])
			}
		case "o", "g":
			name := "unnamed"
			if len(parts) > 1 {
				name = strings.Join(parts[1:], " ")
			}
			flush(name)
		case "usemtl":
			if len(parts) < 2 {
				return OBJData{}, fmt.Errorf("%w: line %d: usemtl without a name", ErrMalformedOBJ, lineNo)
			}
			if len(cur.Indices) > 0 {
				flush(cur.Name)
			}
			curMaterial = parts[1]
		case "mtllib":
			data.Libraries = append(data.Libraries, parts[1:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return OBJData{}, fmt.Errorf("failed to read obj: %w", err)
	}
	flush("")

	if len(data.Meshes) == 0 {
		return OBJData{}, fmt.Errorf("%w: no faces", ErrMalformedOBJ)
	}
	return data, nil
}

// LoadOBJ reads an OBJ file and its material libraries and builds a Model with one
// identity instance. Libraries that fail to load are logged and skipped so the model
// still renders with the default material.
//
// Parameters:
//   - path: the .obj file path
//   - options: additional options applied after the loaded meshes and materials
//
// Returns:
//   - Model: the loaded model
//   - error: error if the file cannot be read or parsed
func LoadOBJ(path string, options ...ModelBuilderOption) (Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open obj file %s: %w", path, err)
	}
	defer f.Close()

	data, err := ParseOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("obj file %s: %w", path, err)
	}

	var materials []material.Material
	for _, lib := range data.Libraries {
		libPath := filepath.Join(filepath.Dir(path), lib)
		mats, err := material.LoadMTL(libPath)
		if err != nil {
			common.Logger().Warn("material library skipped", "path", libPath, "error", err)
			continue
		}
		materials = append(materials, mats...)
	}

	byName := make(map[string]int, len(materials))
	for i, m := range materials {
		byName[m.Name()] = i
	}
	for i, name := range data.MeshMaterials {
		if idx, ok := byName[name]; ok {
			data.Meshes[i].MaterialIndex = idx
		}
	}

	opts := []ModelBuilderOption{
		WithName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))),
		WithMeshes(data.Meshes...),
		WithMaterials(materials...),
	}
	return NewModel(append(opts, options...)...), nil
}

func parseFloats(fields []string, n, lineNo int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("%w: line %d: expected %d components, got %d", ErrMalformedOBJ, lineNo, n, len(fields))
	}
	out := make([]float32, n)
	for i := range n {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q is not a number", ErrMalformedOBJ, lineNo, fields[i])
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseFaceVertex resolves a "v", "v/vt", "v//vn" or "v/vt/vn" ref. Negative indices count
// back from the most recent element.
func parseFaceVertex(ref string, positions [][3]float32, uvs [][2]float32, normals [][3]float32, lineNo int) (GPUVertex, error) {
	var v GPUVertex
	parts := strings.Split(ref, "/")

	resolve := func(s string, n int) (int, error) {
		idx, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: line %d: bad index %q", ErrMalformedOBJ, lineNo, s)
		}
		if idx < 0 {
			idx = n + idx + 1
		}
		if idx < 1 || idx > n {
			return 0, fmt.Errorf("%w: line %d: index %s out of range", ErrMalformedOBJ, lineNo, s)
		}
		return idx - 1, nil
	}

	i, err := resolve(parts[0], len(positions))
	if err != nil {
		return v, err
	}
	v.Position = positions[i]

	if len(parts) > 1 && parts[1] != "" {
		i, err := resolve(parts[1], len(uvs))
		if err != nil {
			return v, err
		}
		v.TexCoord = uvs[i]
	}
	if len(parts) > 2 && parts[2] != "" {
		i, err := resolve(parts[2], len(normals))
		if err != nil {
			return v, err
		}
		v.Normal = normals[i]
	}
	return v, nil
}
