package material

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
)

// ErrMalformedMTL is returned when a Wavefront material library cannot be parsed.
var ErrMalformedMTL = errors.New("malformed mtl")

// MTLEntry is one newmtl block of a Wavefront material library. Only the statements that
// feed the diffuse texture stage are kept: Kd, d / Tr and map_Kd.
type MTLEntry struct {
	Name       string
	Diffuse    [3]float32
	Dissolve   float32
	DiffuseMap string
}

// Options converts the entry into material options. dir resolves a relative DiffuseMap;
// an entry without a map gets no texture option.
//
// Parameters:
//   - dir: the directory the material library was read from
//
// Returns:
//   - []MaterialBuilderOption: the options describing the entry
//   - error: error if the diffuse map cannot be loaded
func (e MTLEntry) Options(dir string) ([]MaterialBuilderOption, error) {
	opts := []MaterialBuilderOption{
		WithName(e.Name),
		WithBaseColor(e.Diffuse[0], e.Diffuse[1], e.Diffuse[2], e.Dissolve),
	}
	if e.DiffuseMap == "" {
		return opts, nil
	}

	path := e.DiffuseMap
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	tex, err := common.LoadTexture(path, nil)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", e.Name, err)
	}
	return append(opts, WithDiffuseTexture(tex)), nil
}

// ParseMTL reads a Wavefront material library. Unknown statements are skipped; a property
// before the first newmtl or a malformed number fails with ErrMalformedMTL.
//
// Parameters:
//   - r: the library source
//
// Returns:
//   - []MTLEntry: the entries in file order
//   - error: error if the source is malformed or cannot be read
func ParseMTL(r io.Reader) ([]MTLEntry, error) {
	var entries []MTLEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		key, args := parts[0], parts[1:]

		if key == "newmtl" {
			if len(args) == 0 {
				return nil, fmt.Errorf("%w: line %d: newmtl without a name", ErrMalformedMTL, lineNo)
			}
			entries = append(entries, MTLEntry{
				Name:     strings.Join(args, " "),
				Diffuse:  [3]float32{1, 1, 1},
				Dissolve: 1,
			})
			continue
		}

		switch key {
		case "Kd", "d", "Tr", "map_Kd":
		default:
			continue
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: line %d: %s before newmtl", ErrMalformedMTL, lineNo, key)
		}
		cur := &entries[len(entries)-1]

		switch key {
		case "Kd":
			if len(args) < 3 {
				return nil, fmt.Errorf("%w: line %d: Kd needs 3 components", ErrMalformedMTL, lineNo)
			}
			for i := range 3 {
				v, err := parseFloat(args[i], lineNo)
				if err != nil {
					return nil, err
				}
				cur.Diffuse[i] = v
			}
		case "d", "Tr":
			if len(args) < 1 {
				return nil, fmt.Errorf("%w: line %d: %s needs a value", ErrMalformedMTL, lineNo, key)
			}
			v, err := parseFloat(args[len(args)-1], lineNo)
			if err != nil {
				return nil, err
			}
			if key == "Tr" {
				v = 1 - v
			}
			cur.Dissolve = v
		case "map_Kd":
			if len(args) == 0 {
				return nil, fmt.Errorf("%w: line %d: map_Kd without a file", ErrMalformedMTL, lineNo)
			}
			// options such as -s or -o precede the file name
			cur.DiffuseMap = args[len(args)-1]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mtl: %w", err)
	}
	return entries, nil
}

// LoadMTL reads a material library from disk and builds one Material per entry,
// loading diffuse maps relative to the library's directory.
//
// Parameters:
//   - path: the .mtl file path
//
// Returns:
//   - []Material: the materials in file order
//   - error: error if the file cannot be read, parsed, or a texture cannot be loaded
func LoadMTL(path string) ([]Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mtl file %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ParseMTL(f)
	if err != nil {
		return nil, fmt.Errorf("mtl file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	materials := make([]Material, 0, len(entries))
	for _, e := range entries {
		opts, err := e.Options(dir)
		if err != nil {
			return nil, err
		}
		materials = append(materials, NewMaterial(opts...))
	}
	common.Logger().Debug("material library loaded", "path", path, "materials", len(materials))
	return materials, nil
}

func parseFloat(s string, lineNo int) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %q is not a number", ErrMalformedMTL, lineNo, s)
	}
	return float32(v), nil
}
