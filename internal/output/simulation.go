package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// WritePhenotypes writes a two-column IID/PHENOTYPE table. Phenotypes are
// written in plink coding, 1 for controls and 2 for cases.
func WritePhenotypes(w io.Writer, individuals []string, phenotype []float64) error {
	if len(individuals) != len(phenotype) {
		return fmt.Errorf("%d individuals for %d phenotypes", len(individuals), len(phenotype))
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("IID\tPHENOTYPE\n"); err != nil {
		return err
	}
	for i, iid := range individuals {
		code := "1"
		if phenotype[i] == 1 {
			code = "2"
		}
		if _, err := bw.WriteString(iid + "\t" + code + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// PowerRow is one line of the power summary table.
type PowerRow struct {
	Gene        string
	Structure   string
	Replicates  int
	Significant int
	Degenerate  int
	Power       float64
	MeanP       float64
	MedianP     float64
}

// PowerWriter writes power estimates as a tab-delimited table.
type PowerWriter struct {
	w *bufio.Writer
}

// NewPowerWriter creates a new power table writer.
func NewPowerWriter(w io.Writer) *PowerWriter {
	return &PowerWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (pw *PowerWriter) WriteHeader() error {
	_, err := pw.w.WriteString("#gene\tstructure\treplicates\tsignificant\tdegenerate\tpower\tmean_p\tmedian_p\n")
	return err
}

// Write writes one row.
func (pw *PowerWriter) Write(r PowerRow) error {
	_, err := fmt.Fprintf(pw.w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
		r.Gene, r.Structure, r.Replicates, r.Significant, r.Degenerate,
		formatFloat(r.Power), formatFloat(r.MeanP), formatFloat(r.MedianP))
	return err
}

// Flush flushes any buffered data.
func (pw *PowerWriter) Flush() error {
	return pw.w.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
