// Package variant provides variant identifiers of the form chrom:pos:ref:alt.
package variant

import (
	"fmt"
	"strconv"
	"strings"
)

// ID is a variant identifier such as "12:56477541:C:T".
type ID string

// Variant represents a single genomic variant parsed from an ID.
type Variant struct {
	Chrom string // Chromosome name (e.g., "12", "chr12")
	Pos   int64  // 1-based genomic position
	Ref   string // Reference allele
	Alt   string // Alternate allele
}

// Parse splits an identifier into its chromosome, position and alleles.
func Parse(id ID) (*Variant, error) {
	parts := strings.Split(string(id), ":")
	if len(parts) != 4 {
		return nil, fmt.Errorf("variant %q: expected chrom:pos:ref:alt", id)
	}

	pos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("variant %q: invalid position %q", id, parts[1])
	}

	return &Variant{
		Chrom: parts[0],
		Pos:   pos,
		Ref:   parts[2],
		Alt:   parts[3],
	}, nil
}

// Format builds the identifier for a chromosome, position and allele pair.
func Format(chrom string, pos int64, ref, alt string) ID {
	return ID(chrom + ":" + strconv.FormatInt(pos, 10) + ":" + ref + ":" + alt)
}

// ID returns the identifier of the variant.
func (v *Variant) ID() ID {
	return Format(v.Chrom, v.Pos, v.Ref, v.Alt)
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	return NormalizeChrom(v.Chrom)
}

// NormalizeChrom strips a leading "chr" from a chromosome name.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}

// FromPlinkColumn recovers the variant ID from a plink --recode A column name
// like "12:56477541:C:T_T" by removing the trailing "_<allele>" suffix.
func FromPlinkColumn(col string) (ID, error) {
	i := strings.LastIndexByte(col, '_')
	if i <= 0 {
		return "", fmt.Errorf("column %q: missing _<allele> suffix", col)
	}
	return ID(col[:i]), nil
}

// Set is a membership set of variant IDs.
type Set map[ID]struct{}

// NewSet builds a Set from a list of IDs.
func NewSet(ids []ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set.
func (s Set) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}
