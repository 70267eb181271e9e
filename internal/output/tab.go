// Package output provides mapping result formatters.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/txmap/internal/coord"
)

// TabWriter writes mapping results in tab-delimited format, one row per
// query in input order. Failed rows carry "-" placeholders and a status
// column naming the failure kind, so downstream readers can distinguish
// success from failure unambiguously.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#tx_id",
			"tx_pos",
			"chrom",
			"chrom_pos",
			"strand",
			"status",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single mapping result. The queried position is always
// echoed in its own column (tx_pos for the default direction, chrom_pos
// for inverted mapping) so failure rows remain attributable.
func (tw *TabWriter) Write(res coord.Result) error {
	status := res.Status()
	badRow := status == coord.StatusBadQueryRow

	txID := res.Query.TxID
	if txID == "" {
		txID = "-"
	}

	txPos, chrom, chromPos, strand := "-", "-", "-", "-"
	switch {
	case res.OK():
		txPos = strconv.FormatInt(res.TxPos, 10)
		chrom = res.Chrom
		chromPos = strconv.FormatInt(res.Pos, 10)
		strand = res.Strand.String()
	case res.Inverted && !badRow:
		chromPos = strconv.FormatInt(res.Query.Pos, 10)
	case !badRow:
		txPos = strconv.FormatInt(res.Query.Pos, 10)
	}

	row := []string{txID, txPos, chrom, chromPos, strand, status}
	_, err := tw.w.WriteString(strings.Join(row, "\t") + "\n")
	return err
}

// Flush flushes buffered output.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
