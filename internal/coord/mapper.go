// Package coord implements transcript-to-genome coordinate mapping.
package coord

import (
	"errors"
	"fmt"

	"github.com/inodb/txmap/internal/query"
	"github.com/inodb/txmap/internal/transcript"
)

// Status values reported in the output status column.
const (
	StatusOK               = "OK"
	StatusUnknown          = "unknown_transcript"
	StatusOffsetOutOfRange = "offset_out_of_range"
	StatusNotExonic        = "not_exonic"
	StatusBadQueryRow      = "bad_query_row"
)

// OffsetOutOfRangeError reports a query position outside the transcript's
// spliced length. Offset is the position as given in the query, in the
// convention of the run.
type OffsetOutOfRangeError struct {
	TxID   string
	Offset int64
	Length int64
}

func (e *OffsetOutOfRangeError) Error() string {
	return fmt.Sprintf("transcript position %d out of range for %s (length %d)", e.Offset, e.TxID, e.Length)
}

// NotExonicError reports a genomic position that does not fall within any
// exon of the transcript (inverted mapping only).
type NotExonicError struct {
	TxID string
	Pos  int64
}

func (e *NotExonicError) Error() string {
	return fmt.Sprintf("genomic position %d is not exonic in %s", e.Pos, e.TxID)
}

// Result is the outcome of mapping one query: a (transcript position,
// genomic position) pair on success, or a per-row failure carried in Err.
// In the default direction TxPos echoes the query and Pos is computed;
// with inverted mapping Pos echoes the query and TxPos is computed.
type Result struct {
	Query    query.Query
	TxPos    int64 // Transcript position, in the convention of the run
	Chrom    string
	Pos      int64 // Genomic position
	Strand   transcript.Strand
	Inverted bool
	Err      error
}

// OK returns true if the query was mapped successfully.
func (r Result) OK() bool {
	return r.Err == nil
}

// Status returns the status string for the result's failure kind.
func (r Result) Status() string {
	var (
		unknown    *transcript.UnknownTranscriptError
		outOfRange *OffsetOutOfRangeError
		notExonic  *NotExonicError
	)
	switch {
	case r.Err == nil:
		return StatusOK
	case errors.As(r.Err, &unknown):
		return StatusUnknown
	case errors.As(r.Err, &outOfRange):
		return StatusOffsetOutOfRange
	case errors.As(r.Err, &notExonic):
		return StatusNotExonic
	default:
		return StatusBadQueryRow
	}
}

// Mapper translates transcript-relative positions to genomic coordinates
// (or the inverse). It is a pure function of registry state and query
// input: no side effects, safe for concurrent use.
type Mapper struct {
	registry *transcript.Registry
	oneBased bool
	invert   bool
}

// NewMapper creates a mapper over the given registry.
func NewMapper(r *transcript.Registry) *Mapper {
	return &Mapper{registry: r}
}

// SetOneBased configures 1-based transcript positions in [1, length]
// instead of the default 0-based positions in [0, length). Fixed for the
// whole run, not per query.
func (m *Mapper) SetOneBased(oneBased bool) {
	m.oneBased = oneBased
}

// SetInvert configures inverted mapping: query positions are genomic and
// results are transcript positions.
func (m *Mapper) SetInvert(invert bool) {
	m.invert = invert
}

// Map resolves one query to a result or a per-row failure.
func (m *Mapper) Map(q query.Query) Result {
	if q.Err != nil {
		return Result{Query: q, Inverted: m.invert, Err: q.Err}
	}

	t, err := m.registry.Lookup(q.TxID)
	if err != nil {
		return Result{Query: q, Inverted: m.invert, Err: err}
	}

	if m.invert {
		return m.mapGenomic(q, t)
	}
	return m.mapTranscript(q, t)
}

// mapTranscript maps a transcript position to a genomic position.
func (m *Mapper) mapTranscript(q query.Query, t *transcript.Transcript) Result {
	off := q.Pos
	if m.oneBased {
		off--
	}
	if off < 0 || off >= t.Length {
		return Result{Query: q, Err: &OffsetOutOfRangeError{
			TxID:   q.TxID,
			Offset: q.Pos,
			Length: t.Length,
		}}
	}

	return Result{
		Query:  q,
		TxPos:  q.Pos,
		Chrom:  t.Chrom,
		Pos:    TxToGenomic(t, off),
		Strand: t.Strand,
	}
}

// mapGenomic maps a genomic position to a transcript position.
func (m *Mapper) mapGenomic(q query.Query, t *transcript.Transcript) Result {
	off := GenomicToTx(t, q.Pos)
	if off < 0 {
		return Result{Query: q, Inverted: true, Err: &NotExonicError{
			TxID: q.TxID,
			Pos:  q.Pos,
		}}
	}

	txPos := off
	if m.oneBased {
		txPos++
	}

	return Result{
		Query:    q,
		TxPos:    txPos,
		Chrom:    t.Chrom,
		Pos:      q.Pos,
		Strand:   t.Strand,
		Inverted: true,
	}
}

// TxToGenomic converts a 0-based transcript offset to a genomic position.
// The offset must be within [0, t.Length); returns 0 otherwise.
// On the reverse strand transcript order runs opposite to genomic order,
// so positions count down from the exon's genomic end.
func TxToGenomic(t *transcript.Transcript, off int64) int64 {
	i := t.FindExonAt(off)
	if i < 0 {
		return 0
	}
	e := t.Exons[i]
	intra := off - e.TxStart

	if t.IsReverseStrand() {
		return e.End - intra
	}
	return e.Start + intra
}

// GenomicToTx converts a genomic position to a 0-based transcript offset.
// Returns -1 if the position does not fall within an exon.
// This is the inverse of TxToGenomic.
func GenomicToTx(t *transcript.Transcript, pos int64) int64 {
	for _, e := range t.Exons {
		if pos < e.Start || pos > e.End {
			continue
		}
		if t.IsReverseStrand() {
			return e.TxStart + (e.End - pos)
		}
		return e.TxStart + (pos - e.Start)
	}
	return -1
}
