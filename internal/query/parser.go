// Package query provides query file parsing functionality.
package query

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Query is one transcript-coordinate lookup request: a transcript id and
// a transcript-relative position in the convention configured for the run.
// If the source row could not be parsed, Err is set and the query is
// carried through the pipeline as a failure row.
type Query struct {
	Line int    // Input line number
	TxID string // Transcript id
	Pos  int64  // Transcript-relative position
	Err  error  // Non-nil if the row was malformed
}

// RowError reports a query row that could not be parsed. It is recorded
// as a per-row failure, never as an I/O error, so one bad row does not
// abort the batch.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("bad query row at line %d: %s", e.Line, e.Reason)
}

// RecordParser is the interface for parsers that read queries.
type RecordParser interface {
	// Next reads the next query.
	// Returns nil, nil when there are no more queries.
	Next() (*Query, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// Parser reads tab-delimited query rows: tx_id, tx_pos.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
}

// NewParser creates a query parser for the given file.
// Supports plain and gzipped files; use "-" for stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}

	p := &Parser{file: file}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	_, err = file.Read(buf)
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read query file: %w", err)
	}

	if _, err := file.Seek(0, 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek query file: %w", err)
	}

	// Gzip magic number (0x1f, 0x8b)
	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g. stdin).
func NewParserFromReader(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r)}
}

// Next reads the next query row.
// Returns nil, nil when there are no more rows. Malformed rows are
// returned as queries with Err set rather than as errors.
func (p *Parser) Next() (*Query, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read query line: %w", err)
		}
		atEOF := err == io.EOF
		if atEOF && line == "" {
			return nil, nil
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" || strings.HasPrefix(line, "#") {
			if atEOF {
				return nil, nil
			}
			continue
		}

		return p.parseLine(line), nil
	}
}

// parseLine parses a single query row. Syntax problems are recorded on
// the returned query, not returned as errors.
func (p *Parser) parseLine(line string) *Query {
	q := &Query{Line: p.lineNumber}

	fields := strings.Split(line, "\t")
	if len(fields) != 2 {
		q.Err = &RowError{
			Line:   p.lineNumber,
			Reason: fmt.Sprintf("expected 2 columns, found %d", len(fields)),
		}
		if len(fields) > 0 {
			q.TxID = fields[0]
		}
		return q
	}

	q.TxID = fields[0]

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		q.Err = &RowError{
			Line:   p.lineNumber,
			Reason: fmt.Sprintf("invalid transcript position: %s", fields[1]),
		}
		return q
	}
	q.Pos = pos

	return q
}

// Close closes the underlying file, if any.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}
