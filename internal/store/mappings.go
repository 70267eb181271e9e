package store

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/txmap/internal/coord"
)

// Mapping is one cached mapping row.
type Mapping struct {
	TxID   string
	TxPos  int64
	Chrom  string
	Pos    int64
	Strand string
	Status string
}

// mappingKey is the composite key for deduplicating rows before writing.
type mappingKey struct {
	txID  string
	txPos int64
}

// WriteResults batch-inserts mapping results into DuckDB using the
// Appender API. Duplicate (tx_id, tx_pos) entries are deduplicated
// before writing; bad query rows have no key and are not cached.
func (s *Store) WriteResults(results []coord.Result) error {
	if len(results) == 0 {
		return nil
	}

	seen := make(map[mappingKey]bool, len(results))
	deduped := make([]coord.Result, 0, len(results))
	for _, r := range results {
		if r.Status() == coord.StatusBadQueryRow {
			continue
		}
		k := mappingKey{r.Query.TxID, r.Query.Pos}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, r)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "mappings")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range deduped {
		m := toMapping(r)
		if err := appender.AppendRow(
			m.TxID, m.TxPos, m.Chrom, m.Pos, m.Strand, m.Status,
		); err != nil {
			return fmt.Errorf("append mapping: %w", err)
		}
	}

	return appender.Flush()
}

// toMapping flattens a result into a cache row. Failed rows keep the
// queried position and carry empty mapped columns.
func toMapping(r coord.Result) Mapping {
	m := Mapping{
		TxID:   r.Query.TxID,
		Status: r.Status(),
	}
	if r.OK() {
		m.TxPos = r.TxPos
		m.Chrom = r.Chrom
		m.Pos = r.Pos
		m.Strand = r.Strand.String()
		return m
	}
	if r.Inverted {
		m.Pos = r.Query.Pos
	} else {
		m.TxPos = r.Query.Pos
	}
	return m
}

// LookupMapping queries DuckDB for a previously cached mapping of a
// specific transcript position.
func (s *Store) LookupMapping(txID string, txPos int64) (*Mapping, error) {
	row := s.db.QueryRow(`SELECT tx_id, tx_pos, chrom, chrom_pos, strand, status
		FROM mappings
		WHERE tx_id=? AND tx_pos=?`,
		txID, txPos)

	var m Mapping
	if err := row.Scan(&m.TxID, &m.TxPos, &m.Chrom, &m.Pos, &m.Strand, &m.Status); err != nil {
		return nil, fmt.Errorf("query mapping: %w", err)
	}
	return &m, nil
}

// Count returns the number of cached mapping rows.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM mappings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mappings: %w", err)
	}
	return n, nil
}

// ClearMappings removes all cached mapping rows.
func (s *Store) ClearMappings() error {
	_, err := s.db.Exec("DELETE FROM mappings")
	return err
}
