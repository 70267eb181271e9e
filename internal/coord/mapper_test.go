package coord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/txmap/internal/query"
	"github.com/inodb/txmap/internal/transcript"
)

// newTestRegistry builds a registry with one forward-strand and one
// reverse-strand transcript over the same exon intervals:
//
//	T1 chr1 +  exons (100,149),(200,229)  length 50+30=80
//	T2 chr1 -  exons (100,149),(200,229)  transcript order reversed
func newTestRegistry(t *testing.T) *transcript.Registry {
	t.Helper()

	r := transcript.NewRegistry()

	exons := []transcript.Exon{
		{Start: 100, End: 149},
		{Start: 200, End: 229},
	}

	t1, err := transcript.New("T1", "chr1", transcript.Forward, exons)
	require.NoError(t, err)
	require.NoError(t, r.Add(t1))

	t2, err := transcript.New("T2", "chr1", transcript.Reverse, exons)
	require.NoError(t, err)
	require.NoError(t, r.Add(t2))

	return r
}

func TestMap_ForwardStrand(t *testing.T) {
	m := NewMapper(newTestRegistry(t))

	tests := []struct {
		pos     int64
		wantPos int64
	}{
		{0, 100},
		{49, 149},
		{50, 200},
		{79, 229},
	}

	for _, tt := range tests {
		res := m.Map(query.Query{TxID: "T1", Pos: tt.pos})
		require.NoError(t, res.Err, "T1 pos %d", tt.pos)
		assert.Equal(t, "chr1", res.Chrom)
		assert.Equal(t, tt.wantPos, res.Pos, "T1 pos %d", tt.pos)
		assert.Equal(t, transcript.Forward, res.Strand)
		assert.Equal(t, StatusOK, res.Status())
	}
}

func TestMap_ReverseStrand(t *testing.T) {
	m := NewMapper(newTestRegistry(t))

	// Offset 0 is the genomic end of the highest-coordinate exon, and
	// increasing transcript offsets decrease the genomic position.
	tests := []struct {
		pos     int64
		wantPos int64
	}{
		{0, 229},
		{29, 200},
		{30, 149},
		{79, 100},
	}

	for _, tt := range tests {
		res := m.Map(query.Query{TxID: "T2", Pos: tt.pos})
		require.NoError(t, res.Err, "T2 pos %d", tt.pos)
		assert.Equal(t, tt.wantPos, res.Pos, "T2 pos %d", tt.pos)
		assert.Equal(t, transcript.Reverse, res.Strand)
	}
}

func TestMap_OffsetOutOfRange(t *testing.T) {
	m := NewMapper(newTestRegistry(t))

	for _, pos := range []int64{-1, 80, 1000} {
		res := m.Map(query.Query{TxID: "T1", Pos: pos})
		require.Error(t, res.Err, "pos %d", pos)
		assert.Equal(t, StatusOffsetOutOfRange, res.Status(), "pos %d", pos)

		var outOfRange *OffsetOutOfRangeError
		require.ErrorAs(t, res.Err, &outOfRange)
		assert.Equal(t, pos, outOfRange.Offset)
		assert.Equal(t, int64(80), outOfRange.Length)
	}
}

func TestMap_UnknownTranscript(t *testing.T) {
	m := NewMapper(newTestRegistry(t))

	res := m.Map(query.Query{TxID: "MISSING", Pos: 0})
	require.Error(t, res.Err)
	assert.Equal(t, StatusUnknown, res.Status())
}

func TestMap_BadQueryRow(t *testing.T) {
	m := NewMapper(newTestRegistry(t))

	res := m.Map(query.Query{Line: 3, Err: &query.RowError{Line: 3, Reason: "expected 2 columns, found 1"}})
	require.Error(t, res.Err)
	assert.Equal(t, StatusBadQueryRow, res.Status())
}

func TestMap_OneBased(t *testing.T) {
	m := NewMapper(newTestRegistry(t))
	m.SetOneBased(true)

	res := m.Map(query.Query{TxID: "T1", Pos: 1})
	require.NoError(t, res.Err)
	assert.Equal(t, int64(100), res.Pos)

	res = m.Map(query.Query{TxID: "T1", Pos: 80})
	require.NoError(t, res.Err)
	assert.Equal(t, int64(229), res.Pos)

	for _, pos := range []int64{0, 81} {
		res = m.Map(query.Query{TxID: "T1", Pos: pos})
		assert.Equal(t, StatusOffsetOutOfRange, res.Status(), "pos %d", pos)
	}
}

func TestTxToGenomic_MonotonicWithinExons(t *testing.T) {
	reg := newTestRegistry(t)

	t1, err := reg.Lookup("T1")
	require.NoError(t, err)
	t2, err := reg.Lookup("T2")
	require.NoError(t, err)

	// Forward: strictly increasing within exons, intron jump at the boundary.
	prev := TxToGenomic(t1, 0)
	for off := int64(1); off < t1.Length; off++ {
		pos := TxToGenomic(t1, off)
		if off == 50 {
			// Crossing from exon (100,149) to (200,229) skips the
			// 50-base intron plus the single base step.
			assert.Equal(t, int64(51), pos-prev)
		} else {
			assert.Equal(t, int64(1), pos-prev, "T1 offset %d", off)
		}
		prev = pos
	}

	// Reverse: strictly decreasing, same intron jump in the other direction.
	prev = TxToGenomic(t2, 0)
	for off := int64(1); off < t2.Length; off++ {
		pos := TxToGenomic(t2, off)
		if off == 30 {
			assert.Equal(t, int64(51), prev-pos)
		} else {
			assert.Equal(t, int64(1), prev-pos, "T2 offset %d", off)
		}
		prev = pos
	}
}

func TestGenomicToTx_RoundTrip(t *testing.T) {
	reg := newTestRegistry(t)

	for _, id := range []string{"T1", "T2"} {
		tr, err := reg.Lookup(id)
		require.NoError(t, err)

		for off := int64(0); off < tr.Length; off++ {
			pos := TxToGenomic(tr, off)
			assert.Equal(t, off, GenomicToTx(tr, pos), "%s offset %d -> genomic %d", id, off, pos)
		}
	}
}

func TestGenomicToTx_NotExonic(t *testing.T) {
	reg := newTestRegistry(t)
	t1, err := reg.Lookup("T1")
	require.NoError(t, err)

	for _, pos := range []int64{99, 150, 199, 230} {
		assert.Equal(t, int64(-1), GenomicToTx(t1, pos), "genomic %d", pos)
	}
}

func TestMap_Inverted(t *testing.T) {
	m := NewMapper(newTestRegistry(t))
	m.SetInvert(true)

	res := m.Map(query.Query{TxID: "T2", Pos: 229})
	require.NoError(t, res.Err)
	assert.True(t, res.Inverted)
	assert.Equal(t, int64(0), res.TxPos)
	assert.Equal(t, int64(229), res.Pos)

	res = m.Map(query.Query{TxID: "T1", Pos: 200})
	require.NoError(t, res.Err)
	assert.Equal(t, int64(50), res.TxPos)

	// Intronic position
	res = m.Map(query.Query{TxID: "T1", Pos: 175})
	require.Error(t, res.Err)
	assert.Equal(t, StatusNotExonic, res.Status())
}

func TestMap_InvertedOneBased(t *testing.T) {
	m := NewMapper(newTestRegistry(t))
	m.SetInvert(true)
	m.SetOneBased(true)

	res := m.Map(query.Query{TxID: "T1", Pos: 100})
	require.NoError(t, res.Err)
	assert.Equal(t, int64(1), res.TxPos)
}
