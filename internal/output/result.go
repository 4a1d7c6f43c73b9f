// Package output writes association results, simulation tables and
// structure rendering scripts.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// NA marks a gene whose kernel could not be tested.
const NA = "NA"

// ResultWriter writes one tab-delimited line per tested structure:
// gene, structure, p-value.
type ResultWriter struct {
	w      *bufio.Writer
	header bool
}

// NewResultWriter creates a new result writer.
func NewResultWriter(w io.Writer) *ResultWriter {
	return &ResultWriter{w: bufio.NewWriter(w)}
}

// WithHeader makes WriteHeader emit a column header line.
func (rw *ResultWriter) WithHeader() *ResultWriter {
	rw.header = true
	return rw
}

// WriteHeader writes the header line if enabled.
func (rw *ResultWriter) WriteHeader() error {
	if !rw.header {
		return nil
	}
	_, err := rw.w.WriteString("#gene\tstructure\tp_value\n")
	return err
}

// Write writes the p-value of one structure.
func (rw *ResultWriter) Write(gene, structureID string, p float64) error {
	return rw.line(gene, structureID, strconv.FormatFloat(p, 'g', -1, 64))
}

// WriteNA writes the untestable marker for gene.
func (rw *ResultWriter) WriteNA(gene string) error {
	return rw.line(gene, NA)
}

func (rw *ResultWriter) line(fields ...string) error {
	_, err := rw.w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// Flush flushes any buffered data.
func (rw *ResultWriter) Flush() error {
	return rw.w.Flush()
}
