// Package transcript provides the transcript exon model and registry.
package transcript

import (
	"fmt"
	"sort"
)

// Strand is the transcript orientation relative to the chromosome.
type Strand int8

const (
	// Forward transcripts read in increasing genomic-position order.
	Forward Strand = 1
	// Reverse transcripts read in decreasing genomic-position order.
	Reverse Strand = -1
)

// String returns the conventional +/- notation.
func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// ParseStrand parses the conventional +/- notation.
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+":
		return Forward, nil
	case "-":
		return Reverse, nil
	}
	return 0, fmt.Errorf("invalid strand %q (want + or -)", s)
}

// Exon is a single exon interval within a transcript.
type Exon struct {
	Start   int64 // Genomic start (1-based, inclusive)
	End     int64 // Genomic end (1-based, inclusive)
	TxStart int64 // Cumulative transcript offset (0-based) at which this exon begins
}

// Length returns the number of bases covered by the exon.
func (e Exon) Length() int64 {
	return e.End - e.Start + 1
}

// Transcript represents one transcript's spliced exon structure.
// Immutable after construction.
type Transcript struct {
	ID     string // Transcript ID (e.g. TR1, ENST00000311936)
	Chrom  string // Chromosome
	Strand Strand
	Exons  []Exon // Ordered by transcript order (ascending TxStart)
	Length int64  // Total spliced length, sum of exon lengths
}

// MalformedTranscriptError reports a transcript whose exon records are
// internally inconsistent and could not be built into a model.
type MalformedTranscriptError struct {
	ID     string
	Reason string
}

func (e *MalformedTranscriptError) Error() string {
	return fmt.Sprintf("malformed transcript %s: %s", e.ID, e.Reason)
}

// New builds a Transcript from raw exon intervals in any genomic order.
// Only Start and End of each exon are read; transcript order and
// cumulative offsets are computed here. Transcript order is genomic order
// on the forward strand and reverse genomic order on the reverse strand.
func New(id, chrom string, strand Strand, exons []Exon) (*Transcript, error) {
	if len(exons) == 0 {
		return nil, &MalformedTranscriptError{ID: id, Reason: "no exons"}
	}
	if strand != Forward && strand != Reverse {
		return nil, &MalformedTranscriptError{ID: id, Reason: fmt.Sprintf("invalid strand %d", strand)}
	}

	ordered := make([]Exon, len(exons))
	copy(ordered, exons)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	for i, e := range ordered {
		if e.Start > e.End {
			return nil, &MalformedTranscriptError{
				ID:     id,
				Reason: fmt.Sprintf("exon %d-%d has non-positive length", e.Start, e.End),
			}
		}
		if i > 0 && e.Start <= ordered[i-1].End {
			return nil, &MalformedTranscriptError{
				ID:     id,
				Reason: fmt.Sprintf("exon %d-%d overlaps exon %d-%d", e.Start, e.End, ordered[i-1].Start, ordered[i-1].End),
			}
		}
	}

	// Orient by strand: reverse-strand transcripts read their exons from
	// the highest genomic coordinate downward.
	if strand == Reverse {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	var length int64
	for i := range ordered {
		ordered[i].TxStart = length
		length += ordered[i].Length()
	}

	return &Transcript{
		ID:     id,
		Chrom:  chrom,
		Strand: strand,
		Exons:  ordered,
		Length: length,
	}, nil
}

// FindExonAt returns the index of the exon whose transcript offset range
// contains off, or -1 if off is outside [0, Length). Uses binary search
// over the cumulative offsets.
func (t *Transcript) FindExonAt(off int64) int {
	lo, hi := 0, len(t.Exons)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		e := &t.Exons[mid]
		switch {
		case off < e.TxStart:
			hi = mid - 1
		case off >= e.TxStart+e.Length():
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// IsForwardStrand returns true if the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand == Forward
}

// IsReverseStrand returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverseStrand() bool {
	return t.Strand == Reverse
}
