package query

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_GoodRows(t *testing.T) {
	p := NewParserFromReader(strings.NewReader("TR1\t4\nTR2\t0\n"))

	q, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "TR1", q.TxID)
	assert.Equal(t, int64(4), q.Pos)
	assert.NoError(t, q.Err)
	assert.Equal(t, 1, q.Line)

	q, err = p.Next()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "TR2", q.TxID)
	assert.Equal(t, int64(0), q.Pos)

	q, err = p.Next()
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestParser_SkipsCommentsAndBlanks(t *testing.T) {
	p := NewParserFromReader(strings.NewReader("# queries\n\nTR1\t4\n"))

	q, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "TR1", q.TxID)
	assert.Equal(t, 3, q.Line)
}

func TestParser_NoTrailingNewline(t *testing.T) {
	p := NewParserFromReader(strings.NewReader("TR1\t4"))

	q, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "TR1", q.TxID)

	q, err = p.Next()
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestParser_BadRows(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		txID   string
		reason string
	}{
		{"one column", "TR1\n", "TR1", "expected 2 columns"},
		{"three columns", "TR1\t4\textra\n", "TR1", "expected 2 columns"},
		{"non-numeric position", "TR1\tabc\n", "TR1", "invalid transcript position"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParserFromReader(strings.NewReader(tt.input))

			q, err := p.Next()
			require.NoError(t, err, "bad rows are per-row failures, not I/O errors")
			require.NotNil(t, q)
			require.Error(t, q.Err)
			assert.Equal(t, tt.txID, q.TxID)

			var rowErr *RowError
			require.ErrorAs(t, q.Err, &rowErr)
			assert.Equal(t, 1, rowErr.Line)
			assert.Contains(t, rowErr.Reason, tt.reason)
		})
	}
}

func TestParser_BadRowDoesNotStopParsing(t *testing.T) {
	p := NewParserFromReader(strings.NewReader("TR1\n TR2\t5\nTR3\t7\n"))

	var rows []*Query
	for {
		q, err := p.Next()
		require.NoError(t, err)
		if q == nil {
			break
		}
		rows = append(rows, q)
	}

	require.Len(t, rows, 3)
	assert.Error(t, rows[0].Err)
	// " TR2" keeps its leading space; ids are not trimmed.
	assert.Equal(t, " TR2", rows[1].TxID)
	assert.NoError(t, rows[2].Err)
	assert.Equal(t, "TR3", rows[2].TxID)
}

func TestNewParser_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.tsv")
	require.NoError(t, os.WriteFile(path, []byte("TR1\t4\n"), 0644))

	p, err := NewParser(path)
	require.NoError(t, err)
	defer p.Close()

	q, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "TR1", q.TxID)
	assert.Equal(t, int64(4), q.Pos)
}

func TestNewParser_GzipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.tsv.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("TR1\t4\nTR2\t10\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	p, err := NewParser(path)
	require.NoError(t, err)
	defer p.Close()

	q, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "TR1", q.TxID)

	q, err = p.Next()
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, int64(10), q.Pos)
}

func TestNewParser_MissingFile(t *testing.T) {
	_, err := NewParser(filepath.Join(t.TempDir(), "nope.tsv"))
	assert.Error(t, err)
}

func TestParser_LineNumber(t *testing.T) {
	p := NewParserFromReader(strings.NewReader("# header\nTR1\t4\n"))

	_, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, p.LineNumber())
}
