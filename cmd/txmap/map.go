package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/txmap/internal/coord"
	"github.com/inodb/txmap/internal/output"
	"github.com/inodb/txmap/internal/query"
	"github.com/inodb/txmap/internal/store"
	"github.com/inodb/txmap/internal/transcript"
)

type mapOptions struct {
	transcriptsPath  string
	queriesPath      string
	outputFile       string
	inputFormat      string
	oneBased         bool
	strict           bool
	invert           bool
	workers          int
	cacheDB          string
	registryCacheDir string
	verbose          bool
}

func newMapCmd() *cobra.Command {
	var opts mapOptions

	cmd := &cobra.Command{
		Use:   "map [flags] <transcripts-file> <queries-file>",
		Short: "Map transcript coordinates to genomic coordinates",
		Long: `Map transcript-relative positions to genomic coordinates.

The transcripts file supplies exon structure, either as tab-delimited
rows (tx_id, chrom, strand, exon_start, exon_end; 1-based inclusive) or
as a GENCODE-style GTF. The queries file supplies tab-delimited rows
(tx_id, tx_pos); use '-' to read queries from stdin.

Output is one tab-delimited row per query, in input order. Failed rows
are reported with a status column, never dropped.`,
		Example: `  txmap map transcripts.tsv queries.tsv
  txmap map -o mappings.tsv transcripts.tsv queries.tsv
  txmap map --one-based gencode.v46.annotation.gtf.gz queries.tsv
  cat queries.tsv | txmap map transcripts.tsv -`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.transcriptsPath = args[0]
			opts.queriesPath = args[1]

			// Config file supplies defaults for flags the user didn't set.
			fs := cmd.Flags()
			if !fs.Changed("one-based") {
				opts.oneBased = viper.GetBool("map.one_based")
			}
			if !fs.Changed("strict") {
				opts.strict = viper.GetBool("map.strict")
			}
			if !fs.Changed("workers") {
				opts.workers = viper.GetInt("map.workers")
			}

			return runMap(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.inputFormat, "input-format", "", "Transcript input format: tsv, gtf (auto-detected if not specified)")
	cmd.Flags().BoolVar(&opts.oneBased, "one-based", false, "Use 1-based positions in [1, length] instead of 0-based in [0, length)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail the run on the first malformed transcript instead of skipping it")
	cmd.Flags().BoolVar(&opts.invert, "invert", false, "Map genomic positions to transcript positions instead")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Mapping worker count (0 = one per CPU)")
	cmd.Flags().StringVar(&opts.cacheDB, "cache-db", "", "DuckDB file to persist this run's mapping results")
	cmd.Flags().StringVar(&opts.registryCacheDir, "registry-cache", "", "Directory for the parsed-transcript cache")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress information")

	return cmd
}

func runMap(opts mapOptions) error {
	logger := newLogger(opts.verbose)
	defer logger.Sync()

	reg, err := buildRegistry(opts, logger)
	if err != nil {
		return err
	}
	logger.Info("loaded transcripts", zap.Int("count", reg.Len()))

	parser, err := query.NewParser(opts.queriesPath)
	if err != nil {
		return err
	}
	defer parser.Close()

	out := os.Stdout
	if opts.outputFile != "" {
		out, err = os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer out.Close()
	}

	mapper := coord.NewMapper(reg)
	mapper.SetOneBased(opts.oneBased)
	mapper.SetInvert(opts.invert)

	runner := coord.NewRunner(mapper)
	runner.SetWorkers(opts.workers)
	runner.SetLogger(logger)

	var writer coord.ResultWriter = output.NewTabWriter(out)

	var recorder *resultRecorder
	if opts.cacheDB != "" {
		recorder = &resultRecorder{inner: writer}
		writer = recorder
	}

	if err := runner.Run(parser, writer); err != nil {
		return err
	}

	if recorder != nil {
		if err := cacheResults(opts.cacheDB, recorder.results, logger); err != nil {
			return err
		}
	}

	return nil
}

// buildRegistry loads the transcript registry, going through the
// parsed-transcript cache when one is configured.
func buildRegistry(opts mapOptions, logger *zap.Logger) (*transcript.Registry, error) {
	reg := transcript.NewRegistry()

	if opts.registryCacheDir != "" {
		rc := store.NewRegistryCache(opts.registryCacheDir)
		src, err := store.StatFile(opts.transcriptsPath)
		if err != nil {
			return nil, fmt.Errorf("stat transcript file: %w", err)
		}

		if rc.Valid(src) {
			logger.Info("using cached registry", zap.String("dir", opts.registryCacheDir))
			if err := rc.Load(reg); err != nil {
				return nil, err
			}
			return reg, nil
		}

		if err := loadTranscripts(opts, reg, logger); err != nil {
			return nil, err
		}
		if err := rc.Write(reg, src); err != nil {
			logger.Warn("could not write registry cache", zap.Error(err))
		}
		return reg, nil
	}

	if err := loadTranscripts(opts, reg, logger); err != nil {
		return nil, err
	}
	return reg, nil
}

func loadTranscripts(opts mapOptions, reg *transcript.Registry, logger *zap.Logger) error {
	format := opts.inputFormat
	if format == "" {
		format = detectTranscriptFormat(opts.transcriptsPath)
	}

	switch format {
	case "gtf":
		loader := transcript.NewGTFLoader(opts.transcriptsPath)
		loader.SetStrict(opts.strict)
		loader.SetLogger(logger)
		return loader.Load(reg)
	case "tsv":
		loader := transcript.NewTSVLoader(opts.transcriptsPath)
		loader.SetStrict(opts.strict)
		loader.SetLogger(logger)
		return loader.Load(reg)
	default:
		return &usageError{fmt.Errorf("unknown transcript input format %q (want tsv or gtf)", format)}
	}
}

// detectTranscriptFormat detects the transcript file format by extension.
func detectTranscriptFormat(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gz") {
		lower = lower[:len(lower)-3]
	}
	if strings.HasSuffix(lower, ".gtf") {
		return "gtf"
	}
	return "tsv"
}

// cacheResults persists a run's mapping results to a DuckDB file.
func cacheResults(path string, results []coord.Result, logger *zap.Logger) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.WriteResults(results); err != nil {
		return fmt.Errorf("cache mapping results: %w", err)
	}
	logger.Info("cached mapping results",
		zap.String("db", path),
		zap.Int("rows", len(results)))
	return nil
}

// resultRecorder tees results to an inner writer while collecting them
// for the optional DuckDB cache.
type resultRecorder struct {
	inner   coord.ResultWriter
	results []coord.Result
}

func (r *resultRecorder) WriteHeader() error {
	return r.inner.WriteHeader()
}

func (r *resultRecorder) Write(res coord.Result) error {
	r.results = append(r.results, res)
	return r.inner.Write(res)
}

func (r *resultRecorder) Flush() error {
	return r.inner.Flush()
}

// newLogger builds a console logger writing to stderr. Warnings are
// always shown; --verbose adds informational progress messages.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
