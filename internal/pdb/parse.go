// Package pdb fetches PDB entries and extracts residue Cα coordinates.
package pdb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pokemon-vct/pokemon/internal/structure"
)

// ParseError represents a malformed ATOM record.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pdb parse error at line %d: %s", e.Line, e.Message)
}

type residueKey struct {
	chain, position string
}

// ParseCA reads the ATOM records of the first model and returns one
// coordinate per residue, taken from its Cα atom. When a Cα has alternate
// locations the first one listed is used.
func ParseCA(r io.Reader, structureID string) ([]*structure.Coordinate, error) {
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	seen := make(map[residueKey]bool)
	var coords []*structure.Coordinate

	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if strings.HasPrefix(line, "ENDMDL") {
			break
		}
		if !strings.HasPrefix(line, "ATOM  ") {
			continue
		}
		if len(line) < 54 {
			return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("ATOM record too short (%d columns)", len(line))}
		}
		if strings.TrimSpace(line[12:16]) != "CA" {
			continue
		}

		key := residueKey{
			chain:    strings.TrimSpace(line[21:22]),
			position: strings.TrimSpace(line[22:27]),
		}
		if seen[key] {
			continue
		}

		var xyz [3]float64
		for i, col := range [3][2]int{{30, 38}, {38, 46}, {46, 54}} {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[col[0]:col[1]]), 64)
			if err != nil {
				return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("invalid coordinate %q", line[col[0]:col[1]])}
			}
			xyz[i] = v
		}

		seen[key] = true
		coords = append(coords, &structure.Coordinate{
			Structure:         structureID,
			Chain:             key.chain,
			StructurePosition: key.position,
			X:                 xyz[0],
			Y:                 xyz[1],
			Z:                 xyz[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pdb: %w", err)
	}
	return coords, nil
}
