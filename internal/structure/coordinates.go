// Package structure maps variants onto residue coordinates of solved protein
// structures.
package structure

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// Coordinate is one residue coordinate row from a per-structure file.
type Coordinate struct {
	Structure         string  `csv:"structure"`
	Chain             string  `csv:"chain"`
	StructurePosition string  `csv:"structure_position"`
	X                 float64 `csv:"x"`
	Y                 float64 `csv:"y"`
	Z                 float64 `csv:"z"`
}

// CoordinateSource loads the coordinate rows of one structure.
// Implementations return an error wrapping fs.ErrNotExist when the structure
// has no coordinate file.
type CoordinateSource interface {
	Coordinates(structureID string) ([]*Coordinate, error)
}

// DirSource reads comma-separated coordinate files named by structure ID from a directory.
type DirSource struct {
	Dir string
}

// NewDirSource creates a coordinate source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Coordinates reads <Dir>/<structureID>.
func (d *DirSource) Coordinates(structureID string) ([]*Coordinate, error) {
	f, err := os.Open(filepath.Join(d.Dir, structureID))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	coords, err := ReadCoordinates(f)
	if err != nil {
		return nil, fmt.Errorf("structure %s: %w", structureID, err)
	}
	return coords, nil
}

// ReadCoordinates parses a coordinate CSV. Columns other than structure, chain,
// structure_position, x, y and z are ignored.
func ReadCoordinates(r io.Reader) ([]*Coordinate, error) {
	var coords []*Coordinate
	if err := gocsv.Unmarshal(r, &coords); err != nil {
		return nil, fmt.Errorf("parse coordinates: %w", err)
	}
	return coords, nil
}

// WriteCoordinates writes coordinate rows as CSV with a header line.
func WriteCoordinates(w io.Writer, coords []*Coordinate) error {
	return gocsv.Marshal(coords, w)
}
