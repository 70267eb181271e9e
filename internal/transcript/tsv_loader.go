package transcript

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// TSVLoader loads transcripts from the native tab-delimited annotation
// format: one exon per row, columns
//
//	tx_id  chrom  strand  exon_start  exon_end
//
// with 1-based inclusive genomic coordinates and no header. Lines starting
// with '#' and blank lines are ignored.
type TSVLoader struct {
	path   string
	strict bool
	logger *zap.Logger
}

// NewTSVLoader creates a loader for the given file path.
func NewTSVLoader(path string) *TSVLoader {
	return &TSVLoader{path: path, logger: zap.NewNop()}
}

// SetStrict configures whether a malformed transcript fails the whole
// load. The default is lenient: the transcript is skipped with a warning
// and queries against it report unknown_transcript.
func (l *TSVLoader) SetStrict(strict bool) {
	l.strict = strict
}

// SetLogger sets the logger used for skip warnings.
func (l *TSVLoader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load parses the file and registers all well-formed transcripts.
func (l *TSVLoader) Load(r *Registry) error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open transcript file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return l.parse(reader, r)
}

// rawTranscript accumulates exon rows for one transcript id before the
// model is built.
type rawTranscript struct {
	chrom  string
	strand Strand
	exons  []Exon
}

func (l *TSVLoader) parse(reader io.Reader, r *Registry) error {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	pending := make(map[string]*rawTranscript)
	var order []string // build order, for deterministic warnings

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			return fmt.Errorf("transcript file line %d: expected 5 fields, got %d", lineNum, len(fields))
		}

		id := fields[0]
		chrom := fields[1]

		strand, err := ParseStrand(fields[2])
		if err != nil {
			return fmt.Errorf("transcript file line %d: %w", lineNum, err)
		}
		start, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return fmt.Errorf("transcript file line %d: parse exon start: %w", lineNum, err)
		}
		end, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return fmt.Errorf("transcript file line %d: parse exon end: %w", lineNum, err)
		}

		raw, ok := pending[id]
		if !ok {
			raw = &rawTranscript{chrom: chrom, strand: strand}
			pending[id] = raw
			order = append(order, id)
		} else if raw.chrom != chrom || raw.strand != strand {
			return fmt.Errorf("transcript file line %d: transcript %s changes chromosome or strand", lineNum, id)
		}

		raw.exons = append(raw.exons, Exon{Start: start, End: end})
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan transcript file: %w", err)
	}

	return buildAll(r, pending, order, l.strict, l.logger)
}

// buildAll constructs and registers transcript models from grouped exon
// rows, applying the strict/lenient malformed-transcript policy.
func buildAll(r *Registry, pending map[string]*rawTranscript, order []string, strict bool, logger *zap.Logger) error {
	for _, id := range order {
		raw := pending[id]
		t, err := New(id, raw.chrom, raw.strand, raw.exons)
		if err != nil {
			if strict {
				return err
			}
			logger.Warn("skipping malformed transcript",
				zap.String("transcript", id),
				zap.Error(err))
			continue
		}
		if err := r.Add(t); err != nil {
			return err
		}
	}
	return nil
}
