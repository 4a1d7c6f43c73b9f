package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Residue is one residue to highlight with its effect.
type Residue struct {
	Chain    string
	Position string
	Effect   float64
}

// PyMOLWriter writes a PyMOL script that colors residues of a structure by
// effect, white for zero to red for the largest effect.
type PyMOLWriter struct {
	w *bufio.Writer
}

// NewPyMOLWriter creates a new script writer.
func NewPyMOLWriter(w io.Writer) *PyMOLWriter {
	return &PyMOLWriter{w: bufio.NewWriter(w)}
}

// Write writes the script for structureID.
func (pw *PyMOLWriter) Write(structureID string, residues []Residue) error {
	maxEffect := 0.0
	for _, r := range residues {
		if r.Effect > maxEffect {
			maxEffect = r.Effect
		}
	}

	lines := []string{
		"fetch " + structureID,
		fmt.Sprintf("alter %s, b=0.0", structureID),
		"show_as cartoon, " + structureID,
		"color white, " + structureID,
	}
	for _, r := range residues {
		lines = append(lines, fmt.Sprintf("alter resi %s and chain %s, b=%s",
			r.Position, r.Chain, strconv.FormatFloat(r.Effect, 'g', -1, 64)))
	}
	lines = append(lines,
		fmt.Sprintf("spectrum b, white_red, %s, minimum=0, maximum=%s",
			structureID, strconv.FormatFloat(maxEffect, 'g', -1, 64)),
		"zoom",
	)

	for _, l := range lines {
		if _, err := pw.w.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return pw.w.Flush()
}
