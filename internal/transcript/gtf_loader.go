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

// GTFLoader loads transcript exon structure from GENCODE-style GTF files.
// Only exon features are read; transcript id version suffixes are
// stripped for consistent lookup.
type GTFLoader struct {
	path   string
	strict bool
	logger *zap.Logger
}

// NewGTFLoader creates a loader for the given GTF file path.
func NewGTFLoader(path string) *GTFLoader {
	return &GTFLoader{path: path, logger: zap.NewNop()}
}

// SetStrict configures whether a malformed transcript fails the whole load.
func (l *GTFLoader) SetStrict(strict bool) {
	l.strict = strict
}

// SetLogger sets the logger used for skip warnings.
func (l *GTFLoader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load parses the GTF file and registers all well-formed transcripts.
func (l *GTFLoader) Load(r *Registry) error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open GTF file: %w", err)
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

func (l *GTFLoader) parse(reader io.Reader, r *Registry) error {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long attribute columns
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	pending := make(map[string]*rawTranscript)
	var order []string

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			return fmt.Errorf("GTF line %d: expected 9 fields, got %d", lineNum, len(fields))
		}
		if fields[2] != "exon" {
			continue
		}

		id := stripVersion(attributeValue(fields[8], "transcript_id"))
		if id == "" {
			continue
		}

		start, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return fmt.Errorf("GTF line %d: parse start: %w", lineNum, err)
		}
		end, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return fmt.Errorf("GTF line %d: parse end: %w", lineNum, err)
		}
		strand, err := ParseStrand(fields[6])
		if err != nil {
			return fmt.Errorf("GTF line %d: %w", lineNum, err)
		}

		raw, ok := pending[id]
		if !ok {
			raw = &rawTranscript{chrom: fields[0], strand: strand}
			pending[id] = raw
			order = append(order, id)
		} else if raw.chrom != fields[0] || raw.strand != strand {
			return fmt.Errorf("GTF line %d: transcript %s changes chromosome or strand", lineNum, id)
		}

		raw.exons = append(raw.exons, Exon{Start: start, End: end})
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan GTF: %w", err)
	}

	return buildAll(r, pending, order, l.strict, l.logger)
}

// attributeValue extracts a single attribute from a GTF attribute column.
// Format: key "value"; key "value"; ...
func attributeValue(attrStr, key string) string {
	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}
		if part[:idx] != key {
			continue
		}
		return strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")
	}
	return ""
}

// stripVersion removes the version suffix from an Ensembl-style id
// (ENST00000311936.8 -> ENST00000311936).
func stripVersion(id string) string {
	if idx := strings.IndexByte(id, '.'); idx >= 0 {
		return id[:idx]
	}
	return id
}
