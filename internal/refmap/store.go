// Package refmap stores the transcript-indexed variant-to-structure reference
// tables in DuckDB. The tables are imported once from TSV with read_csv and
// queried per gene.
package refmap

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/pokemon-vct/pokemon/internal/variant"
)

// Row is one reference-mapping record linking a transcript's variant to a
// residue of a solved structure.
type Row struct {
	Transcript        string
	Varcode           variant.ID
	Structure         string
	Chain             string
	StructurePosition string
	X, Y, Z           float64
}

// PositionRow is one coordinate-reference record keyed by genomic position.
type PositionRow struct {
	Transcript        string
	Chrom             string
	Start             int64
	Structure         string
	Chain             string
	StructurePosition string
	X, Y, Z           float64
}

// Store manages a DuckDB connection holding the reference tables.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger

	// mu serializes use of the query_variants scratch table.
	mu sync.Mutex
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path, logger: zap.NewNop()}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// SetLogger sets the logger for load progress messages.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reference_mapping (
			transcript VARCHAR,
			varcode VARCHAR,
			structure VARCHAR,
			chain VARCHAR,
			structure_position VARCHAR,
			x DOUBLE,
			y DOUBLE,
			z DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS position_reference (
			transcript VARCHAR,
			chr VARCHAR,
			start BIGINT,
			structure VARCHAR,
			chain VARCHAR,
			structure_position VARCHAR,
			x DOUBLE,
			y DOUBLE,
			z DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS query_variants (varcode VARCHAR)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the reference_mapping table with the contents of a
// tab-separated file with columns
//
//	transcript  varcode  structure  chain  structure_position  x  y  z
func (s *Store) Load(ctx context.Context, tsvPath string) error {
	if _, err := os.Stat(tsvPath); err != nil {
		return fmt.Errorf("reference mapping: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reference_mapping`); err != nil {
		return fmt.Errorf("clear reference mapping: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO reference_mapping
		SELECT transcript, varcode, structure, chain, structure_position,
			TRY_CAST(x AS DOUBLE), TRY_CAST(y AS DOUBLE), TRY_CAST(z AS DOUBLE)
		FROM read_csv('%s', delim='\t', header=true, all_varchar=true)`, quotePath(tsvPath))

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("loading reference mapping: %w", err)
	}
	return nil
}

// LoadPositionReference replaces the position_reference table with the
// contents of a tab-separated file with columns
//
//	transcript  chr  start  structure  chain  structure_position  x  y  z
func (s *Store) LoadPositionReference(ctx context.Context, tsvPath string) error {
	if _, err := os.Stat(tsvPath); err != nil {
		return fmt.Errorf("position reference: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM position_reference`); err != nil {
		return fmt.Errorf("clear position reference: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO position_reference
		SELECT transcript, chr, TRY_CAST(start AS BIGINT), structure, chain, structure_position,
			TRY_CAST(x AS DOUBLE), TRY_CAST(y AS DOUBLE), TRY_CAST(z AS DOUBLE)
		FROM read_csv('%s', delim='\t', header=true, all_varchar=true)`, quotePath(tsvPath))

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("loading position reference: %w", err)
	}
	return nil
}

// Count returns the number of rows in the reference_mapping table.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reference_mapping").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reference mapping rows: %w", err)
	}
	return count, nil
}

// HasTranscript reports whether the reference mapping has any rows for the transcript.
func (s *Store) HasTranscript(ctx context.Context, transcript string) (bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM (SELECT 1 FROM reference_mapping WHERE transcript=? LIMIT 1)",
		transcript).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query transcript %s: %w", transcript, err)
	}
	return count > 0, nil
}

// VariantRows returns the transcript's reference rows whose varcode is one of
// variants, in file order.
func (s *Store) VariantRows(ctx context.Context, transcript string, variants []variant.ID) ([]Row, error) {
	if len(variants) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stageVariants(ctx, variants); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		m.transcript, m.varcode, m.structure, m.chain, m.structure_position, m.x, m.y, m.z
		FROM reference_mapping m
		WHERE m.transcript=? AND m.varcode IN (SELECT varcode FROM query_variants)
		ORDER BY m.rowid`, transcript)
	if err != nil {
		return nil, fmt.Errorf("query reference mapping: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var varcode string
		var x, y, z sql.NullFloat64
		if err := rows.Scan(&r.Transcript, &varcode, &r.Structure, &r.Chain, &r.StructurePosition, &x, &y, &z); err != nil {
			return nil, fmt.Errorf("scan reference mapping: %w", err)
		}
		r.Varcode = variant.ID(varcode)
		r.X, r.Y, r.Z = x.Float64, y.Float64, z.Float64
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference mapping: %w", err)
	}
	return out, nil
}

// PositionRows returns all position-reference rows for a transcript, in file order.
func (s *Store) PositionRows(ctx context.Context, transcript string) ([]PositionRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		transcript, chr, start, structure, chain, structure_position, x, y, z
		FROM position_reference
		WHERE transcript=? AND start IS NOT NULL
		ORDER BY rowid`, transcript)
	if err != nil {
		return nil, fmt.Errorf("query position reference: %w", err)
	}
	defer rows.Close()

	var out []PositionRow
	for rows.Next() {
		var r PositionRow
		var x, y, z sql.NullFloat64
		if err := rows.Scan(&r.Transcript, &r.Chrom, &r.Start, &r.Structure, &r.Chain, &r.StructurePosition, &x, &y, &z); err != nil {
			return nil, fmt.Errorf("scan position reference: %w", err)
		}
		r.X, r.Y, r.Z = x.Float64, y.Float64, z.Float64
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position reference: %w", err)
	}
	return out, nil
}

// stageVariants replaces the contents of query_variants using the Appender API.
func (s *Store) stageVariants(ctx context.Context, variants []variant.ID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM query_variants"); err != nil {
		return fmt.Errorf("clear query variants: %w", err)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "query_variants")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	staged := make(variant.Set, len(variants))
	for _, v := range variants {
		if staged.Contains(v) {
			continue
		}
		staged[v] = struct{}{}
		if err := appender.AppendRow(string(v)); err != nil {
			appender.Close()
			return fmt.Errorf("append query variant: %w", err)
		}
	}

	// Close flushes the appended rows.
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush query variants: %w", err)
	}
	return nil
}

func quotePath(p string) string {
	return strings.ReplaceAll(p, "'", "''")
}
