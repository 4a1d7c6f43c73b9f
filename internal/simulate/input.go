package simulate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pokemon-vct/pokemon/internal/genotype"
	"github.com/pokemon-vct/pokemon/internal/variant"
)

// Variant-list column positions (VCF layout: CHROM POS ID REF ALT ...).
const (
	colChrom = 0
	colPos   = 1
	colRef   = 3
	colAlt   = 4
)

// ReadVariants reads a tab-delimited VCF-like variant list. The first line is
// a header and is skipped.
func ReadVariants(path string) ([]variant.ID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open variant file: %w", err)
	}
	defer f.Close()
	return ParseVariants(f)
}

// ParseVariants is ReadVariants over an io.Reader.
func ParseVariants(r io.Reader) ([]variant.ID, error) {
	reader := bufio.NewReader(r)
	lineNumber := 0
	var ids []variant.ID

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		if line == "" && err == io.EOF {
			break
		}
		lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if lineNumber > 1 && line != "" {
			fields := strings.Split(line, "\t")
			if len(fields) <= colAlt {
				return nil, &genotype.ParseError{
					Line:    lineNumber,
					Message: fmt.Sprintf("expected at least %d columns, found %d", colAlt+1, len(fields)),
				}
			}
			pos, perr := strconv.ParseInt(fields[colPos], 10, 64)
			if perr != nil {
				return nil, &genotype.ParseError{
					Line:    lineNumber,
					Message: fmt.Sprintf("invalid position %q", fields[colPos]),
				}
			}
			ids = append(ids, variant.Format(fields[colChrom], pos, fields[colRef], fields[colAlt]))
		}

		if err == io.EOF {
			break
		}
	}
	return ids, nil
}

// GeneFromFileName returns the gene name encoded as the prefix of a variant
// file's base name before the first underscore.
func GeneFromFileName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '_'); i > 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
