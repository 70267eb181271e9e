package coord

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/txmap/internal/query"
)

// ResultWriter is the interface for writing mapping results.
type ResultWriter interface {
	WriteHeader() error
	Write(Result) error
	Flush() error
}

// Runner drives a batch: it streams queries from a parser, maps them
// through a worker pool, and writes results in strict input order.
// Per-row failures become failure rows and never abort the batch.
type Runner struct {
	mapper  *Mapper
	workers int
	logger  *zap.Logger
}

// NewRunner creates a runner for the given mapper.
func NewRunner(m *Mapper) *Runner {
	return &Runner{mapper: m, logger: zap.NewNop()}
}

// SetWorkers sets the worker pool size. 0 means one worker per CPU.
func (r *Runner) SetWorkers(workers int) {
	r.workers = workers
}

// SetLogger sets the logger for the run summary.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Run maps every query from the parser and writes one result per query,
// in input order. Returns an error only on I/O failures; individual
// query failures are reported through the writer.
func (r *Runner) Run(parser query.RecordParser, writer ResultWriter) error {
	if err := writer.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	items := make(chan WorkItem, 64)
	var parseErr error

	go func() {
		defer close(items)
		seq := 0
		for {
			q, err := parser.Next()
			if err != nil {
				parseErr = fmt.Errorf("read query: %w", err)
				return
			}
			if q == nil {
				return
			}
			items <- WorkItem{Seq: seq, Query: *q}
			seq++
		}
	}()

	results := r.mapper.ParallelMap(items, r.workers)

	total, failed := 0, 0
	if err := OrderedCollect(results, func(wr WorkResult) error {
		total++
		if !wr.Result.OK() {
			failed++
		}
		if err := writer.Write(wr.Result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	if parseErr != nil {
		return parseErr
	}

	r.logger.Info("mapped queries",
		zap.Int("total", total),
		zap.Int("failed", failed))

	return writer.Flush()
}
