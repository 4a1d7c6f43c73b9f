package structure

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"go.uber.org/zap"

	"github.com/pokemon-vct/pokemon/internal/refmap"
	"github.com/pokemon-vct/pokemon/internal/variant"
)

// Status describes the structural coverage found for a gene.
type Status int

const (
	// Mapped means at least one structure file was found for the gene's variants.
	Mapped Status = iota
	// NoCoverage means the reference mapping has no rows for the gene.
	NoCoverage
	// NoStructureFile means none of the referenced structures has a coordinate file.
	NoStructureFile
)

func (s Status) String() string {
	switch s {
	case Mapped:
		return "mapped"
	case NoCoverage:
		return "no PDB structure mapped to variants"
	case NoStructureFile:
		return "no PDB structure file available"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MappedRow is a variant resolved to a residue coordinate in one structure.
type MappedRow struct {
	Structure         string
	Variant           variant.ID
	Chain             string
	StructurePosition string
	X, Y, Z           float64
}

// Mapping holds the mapped rows of one structure in arrival order.
type Mapping struct {
	Structure string
	Rows      []MappedRow
}

// Result is the outcome of mapping a gene's variants.
type Result struct {
	Status     Status
	Structures []*Mapping
}

// Empty reports whether no variant was mapped.
func (r *Result) Empty() bool {
	for _, m := range r.Structures {
		if len(m.Rows) > 0 {
			return false
		}
	}
	return true
}

// ReferenceLookup finds reference-mapping rows for a transcript.
type ReferenceLookup interface {
	HasTranscript(ctx context.Context, transcript string) (bool, error)
	VariantRows(ctx context.Context, transcript string, variants []variant.ID) ([]refmap.Row, error)
}

// Mapper resolves variants to residue coordinates.
type Mapper struct {
	ref    ReferenceLookup
	coords CoordinateSource
	logger *zap.Logger
}

// NewMapper creates a mapper over a reference table and coordinate source.
func NewMapper(ref ReferenceLookup, coords CoordinateSource) *Mapper {
	return &Mapper{
		ref:    ref,
		coords: coords,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for coverage messages.
func (m *Mapper) SetLogger(l *zap.Logger) {
	m.logger = l
}

type residueKey struct {
	chain, position string
}

// Map resolves variants of gene to coordinates, one Mapping per structure
// ordered by structure ID. Structures without a coordinate file are skipped.
func (m *Mapper) Map(ctx context.Context, variants []variant.ID, gene string) (*Result, error) {
	covered, err := m.ref.HasTranscript(ctx, gene)
	if err != nil {
		return nil, err
	}
	if !covered {
		m.logger.Warn(NoCoverage.String(), zap.String("gene", gene))
		return &Result{Status: NoCoverage}, nil
	}

	refRows, err := m.ref.VariantRows(ctx, gene, variants)
	if err != nil {
		return nil, err
	}

	byStructure := make(map[string][]refmap.Row)
	for _, r := range refRows {
		byStructure[r.Structure] = append(byStructure[r.Structure], r)
	}
	ids := make([]string, 0, len(byStructure))
	for id := range byStructure {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := &Result{Status: Mapped}
	found := 0
	for _, id := range ids {
		coords, err := m.coords.Coordinates(id)
		if errors.Is(err, fs.ErrNotExist) {
			m.logger.Debug("structure file not found", zap.String("structure", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		found++

		if rows := join(id, coords, byStructure[id]); len(rows) > 0 {
			res.Structures = append(res.Structures, &Mapping{Structure: id, Rows: rows})
		}
	}

	if found == 0 {
		m.logger.Warn(NoStructureFile.String(), zap.String("gene", gene))
		return &Result{Status: NoStructureFile}, nil
	}

	m.logger.Debug("mapped variants",
		zap.String("gene", gene),
		zap.Int("structures", len(res.Structures)))
	return res, nil
}

// join inner-joins coordinate rows with reference rows of one structure on
// (structure, chain, structure_position), dropping duplicate output rows.
func join(structureID string, coords []*Coordinate, refRows []refmap.Row) []MappedRow {
	byResidue := make(map[residueKey][]variant.ID)
	for _, r := range refRows {
		k := residueKey{r.Chain, r.StructurePosition}
		byResidue[k] = append(byResidue[k], r.Varcode)
	}

	seen := make(map[MappedRow]bool)
	var out []MappedRow
	for _, c := range coords {
		if c.Structure != structureID {
			continue
		}
		for _, v := range byResidue[residueKey{c.Chain, c.StructurePosition}] {
			row := MappedRow{
				Structure:         structureID,
				Variant:           v,
				Chain:             c.Chain,
				StructurePosition: c.StructurePosition,
				X:                 c.X,
				Y:                 c.Y,
				Z:                 c.Z,
			}
			if seen[row] {
				continue
			}
			seen[row] = true
			out = append(out, row)
		}
	}
	return out
}

type locus struct {
	chrom string
	pos   int64
}

// MapByPosition tags position-reference rows with the variants at the same
// chromosome and position. Alleles are not compared. A row matched by several
// variants yields one mapped row per variant; rows without a match are dropped.
func MapByPosition(rows []refmap.PositionRow, variants []variant.ID) ([]MappedRow, error) {
	byLocus := make(map[locus][]variant.ID)
	for _, id := range variants {
		v, err := variant.Parse(id)
		if err != nil {
			return nil, err
		}
		k := locus{v.NormalizeChrom(), v.Pos}
		byLocus[k] = append(byLocus[k], id)
	}

	seen := make(map[MappedRow]bool)
	var out []MappedRow
	for _, r := range rows {
		for _, id := range byLocus[locus{variant.NormalizeChrom(r.Chrom), r.Start}] {
			row := MappedRow{
				Structure:         r.Structure,
				Variant:           id,
				Chain:             r.Chain,
				StructurePosition: r.StructurePosition,
				X:                 r.X,
				Y:                 r.Y,
				Z:                 r.Z,
			}
			if seen[row] {
				continue
			}
			seen[row] = true
			out = append(out, row)
		}
	}
	return out, nil
}

// GroupByStructure splits mapped rows into per-structure mappings ordered by
// structure ID, keeping row order within each structure.
func GroupByStructure(rows []MappedRow) []*Mapping {
	groups := make(map[string]*Mapping)
	for _, r := range rows {
		g, ok := groups[r.Structure]
		if !ok {
			g = &Mapping{Structure: r.Structure}
			groups[r.Structure] = g
		}
		g.Rows = append(g.Rows, r)
	}

	out := make([]*Mapping, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Structure < out[j].Structure })
	return out
}

// Variants returns the distinct variants of the mapping in arrival order.
func (m *Mapping) Variants() []variant.ID {
	seen := make(map[variant.ID]bool)
	var out []variant.ID
	for _, r := range m.Rows {
		if !seen[r.Variant] {
			seen[r.Variant] = true
			out = append(out, r.Variant)
		}
	}
	return out
}
