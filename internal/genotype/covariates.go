package genotype

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadCovariates reads the named columns of a whitespace-delimited covariate
// file with an IID column, aligned to the order of individuals. It returns nil
// when names is empty.
func ReadCovariates(path string, individuals []string, names []string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open covariate file: %w", err)
	}
	defer f.Close()

	r, closeFn, err := maybeGzip(f)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return ParseCovariates(r, individuals, names)
}

// ParseCovariates is ReadCovariates over an io.Reader.
func ParseCovariates(r io.Reader, individuals []string, names []string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, nil
	}

	reader := bufio.NewReader(r)
	lineNumber := 0
	iidCol := -1
	var cols []int
	values := make(map[string][]float64)

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read covariate line: %w", err)
		}
		if line == "" && err == io.EOF {
			break
		}
		lineNumber++

		fields := strings.Fields(line)
		if len(fields) > 0 {
			if cols == nil {
				iidCol, cols, err = covariateHeader(fields, names, lineNumber)
				if err != nil {
					return nil, err
				}
			} else {
				if iidCol >= len(fields) {
					return nil, &ParseError{Line: lineNumber, Message: "missing IID value"}
				}
				row := make([]float64, len(cols))
				for k, c := range cols {
					if c >= len(fields) {
						return nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("missing value for %s", names[k])}
					}
					v, perr := strconv.ParseFloat(fields[c], 64)
					if perr != nil {
						return nil, &ParseError{
							Line:    lineNumber,
							Message: fmt.Sprintf("invalid value %q for %s", fields[c], names[k]),
						}
					}
					row[k] = v
				}
				values[fields[iidCol]] = row
			}
		}

		if err == io.EOF {
			break
		}
	}

	if cols == nil {
		return nil, &ParseError{Line: lineNumber, Message: "no header line found"}
	}
	if len(individuals) == 0 {
		return nil, fmt.Errorf("no individuals to align covariates to")
	}

	out := mat.NewDense(len(individuals), len(names), nil)
	for i, iid := range individuals {
		row, ok := values[iid]
		if !ok {
			return nil, fmt.Errorf("individual %s has no covariates", iid)
		}
		out.SetRow(i, row)
	}
	return out, nil
}

func covariateHeader(fields, names []string, lineNumber int) (int, []int, error) {
	pos := make(map[string]int, len(fields))
	for i, f := range fields {
		pos[f] = i
	}
	iid, ok := pos[ColIID]
	if !ok {
		return 0, nil, &ParseError{Line: lineNumber, Message: "missing IID column"}
	}
	cols := make([]int, len(names))
	for k, name := range names {
		c, ok := pos[name]
		if !ok {
			return 0, nil, &ParseError{Line: lineNumber, Message: fmt.Sprintf("missing covariate column %s", name)}
		}
		cols[k] = c
	}
	return iid, cols, nil
}

// ReadCovariateList reads covariate names, one per line.
func ReadCovariateList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open covariate list: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read covariate list: %w", err)
	}
	return names, nil
}
