// Package genotype reads plink --recode A genotype tables and covariate files.
package genotype

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pokemon-vct/pokemon/internal/variant"
)

// Standard plink .raw column names
const (
	ColFID       = "FID"
	ColIID       = "IID"
	ColPAT       = "PAT"
	ColMAT       = "MAT"
	ColSEX       = "SEX"
	ColPhenotype = "PHENOTYPE"
)

// ErrDuplicateVariant is returned when two dosage columns resolve to the same variant.
var ErrDuplicateVariant = errors.New("duplicate variant column")

// Column links a raw dosage column name to its variant ID.
type Column struct {
	Raw string
	ID  variant.ID
}

// Data holds the individuals that passed phenotype filtering with their
// dosages and 0/1 phenotypes.
type Data struct {
	Genotypes *Matrix
	Phenotype []float64

	// Excluded counts individuals dropped for a missing phenotype.
	Excluded int
}

// ReadRaw reads a plink .raw file. Gzipped files are detected by their magic bytes.
func ReadRaw(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genotype file: %w", err)
	}
	defer f.Close()

	r, closeFn, err := maybeGzip(f)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return ParseRaw(r)
}

// ParseRaw parses a whitespace-delimited plink .raw table. PHENOTYPE codes
// 1 (control) and 2 (case) become 0 and 1; individuals with any other code
// are excluded. Missing dosages (NA) are read as 0.
func ParseRaw(r io.Reader) (*Data, error) {
	reader := bufio.NewReader(r)
	lineNumber := 0

	var (
		header []string
		iidCol int
		phCol  int
		dosage []int
		cols   []Column
	)

	var (
		iids  []string
		pheno []float64
		flat  []float64
		excl  int
	)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read genotype line: %w", err)
		}
		if line == "" && err == io.EOF {
			break
		}
		lineNumber++

		fields := strings.Fields(line)
		switch {
		case len(fields) == 0:
		case header == nil:
			header = fields
			var herr error
			iidCol, phCol, dosage, cols, herr = parseRawHeader(header, lineNumber)
			if herr != nil {
				return nil, herr
			}
		default:
			if len(fields) != len(header) {
				return nil, &ParseError{
					Line:    lineNumber,
					Message: fmt.Sprintf("expected %d columns, found %d", len(header), len(fields)),
				}
			}
			y, ok := phenotypeClass(fields[phCol])
			if !ok {
				excl++
				break
			}
			for _, c := range dosage {
				v, perr := parseDosage(fields[c])
				if perr != nil {
					return nil, &ParseError{
						Line:    lineNumber,
						Message: fmt.Sprintf("invalid dosage %q in column %s", fields[c], header[c]),
					}
				}
				flat = append(flat, v)
			}
			iids = append(iids, fields[iidCol])
			pheno = append(pheno, y)
		}

		if err == io.EOF {
			break
		}
	}

	if header == nil {
		return nil, &ParseError{Line: lineNumber, Message: "no header line found"}
	}

	m, err := NewMatrix(iids, cols, flat)
	if err != nil {
		return nil, err
	}
	return &Data{Genotypes: m, Phenotype: pheno, Excluded: excl}, nil
}

// parseRawHeader locates IID and PHENOTYPE and maps every other non-pedigree
// column to a variant ID.
func parseRawHeader(header []string, lineNumber int) (iidCol, phCol int, dosage []int, cols []Column, err error) {
	iidCol, phCol = -1, -1
	seen := make(map[variant.ID]string)

	for i, name := range header {
		switch name {
		case ColIID:
			iidCol = i
		case ColPhenotype:
			phCol = i
		case ColFID, ColPAT, ColMAT, ColSEX:
		default:
			id, cerr := variant.FromPlinkColumn(name)
			if cerr != nil {
				return 0, 0, nil, nil, &ParseError{Line: lineNumber, Message: cerr.Error()}
			}
			if prev, dup := seen[id]; dup {
				return 0, 0, nil, nil, fmt.Errorf("%w: %s and %s both map to %s", ErrDuplicateVariant, prev, name, id)
			}
			seen[id] = name
			dosage = append(dosage, i)
			cols = append(cols, Column{Raw: name, ID: id})
		}
	}

	if iidCol < 0 {
		return 0, 0, nil, nil, &ParseError{Line: lineNumber, Message: "missing IID column"}
	}
	if phCol < 0 {
		return 0, 0, nil, nil, &ParseError{Line: lineNumber, Message: "missing PHENOTYPE column"}
	}
	return iidCol, phCol, dosage, cols, nil
}

// phenotypeClass maps plink affection codes to 0 (control) and 1 (case).
func phenotypeClass(code string) (float64, bool) {
	switch code {
	case "1":
		return 0, true
	case "2":
		return 1, true
	}
	return 0, false
}

func parseDosage(s string) (float64, error) {
	if s == "NA" || s == "." || s == "nan" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// maybeGzip wraps f in a gzip reader when it starts with the gzip magic number.
func maybeGzip(f *os.File) (io.Reader, func(), error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	}
	return br, func() {}, nil
}

// ParseError represents an error during genotype parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("genotype parse error at line %d: %s", e.Line, e.Message)
}
