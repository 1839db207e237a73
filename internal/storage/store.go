package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"sblar/internal/ddl"
	"sblar/internal/findings"
	"sblar/internal/submission"
)

// DefaultBatchSize is used when a store is opened without a batch size.
const DefaultBatchSize = 5000

// ErrWriterClosed is returned by Write after the writer stopped.
var ErrWriterClosed = errors.New("findings writer closed")

// Store writes run records and findings through a Repository.
type Store struct {
	repo      Repository
	batchSize int
	log       *zap.Logger
}

// NewStore wraps repo. batchSize <= 0 means DefaultBatchSize.
func NewStore(repo Repository, batchSize int, log *zap.Logger) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{repo: repo, batchSize: batchSize, log: log}
}

// Open opens the backend for cfg, creates the tables when autoCreate is
// set and returns a Store over it.
func Open(ctx context.Context, cfg Config, autoCreate bool, batchSize int, log *zap.Logger) (*Store, error) {
	repo, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if autoCreate {
		if err := EnsureTables(ctx, cfg.Kind, repo); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return NewStore(repo, batchSize, log), nil
}

// Close closes the repository.
func (s *Store) Close() { s.repo.Close() }

// SaveRun inserts the run record.
func (s *Store) SaveRun(ctx context.Context, run *submission.Run) error {
	if _, err := s.repo.CopyFrom(ctx, ddl.RunsTable, ddl.Runs.ColumnNames(), [][]any{RunRow(run)}); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// DiscardFindings deletes every findings row of run runID.
func (s *Store) DiscardFindings(ctx context.Context, runID string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE run_id = '%s'", ddl.FindingsTable, strings.ReplaceAll(runID, "'", "''"))
	if err := s.repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("discard findings of run %s: %w", runID, err)
	}
	return nil
}

// FindingsWriter streams findings into the findings table from a
// background loader.
type FindingsWriter struct {
	runID  string
	in     chan []any
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once

	n   int64
	err error
}

// NewFindingsWriter starts a writer for the findings of run runID. Close
// must be called to flush and release it.
func (s *Store) NewFindingsWriter(ctx context.Context, runID string) *FindingsWriter {
	ctx, cancel := context.WithCancel(ctx)
	w := &FindingsWriter{
		runID:  runID,
		in:     make(chan []any, s.batchSize),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	copyFn := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		return s.repo.CopyFrom(ctx, ddl.FindingsTable, cols, rows)
	}
	go func() {
		defer close(w.done)
		w.n, w.err = LoadBatches(ctx, s.log, ddl.Findings.ColumnNames(), w.in, s.batchSize, copyFn)
	}()
	return w
}

// Write queues the detailed findings of fs. Lightweight findings are
// skipped; the run record carries their counts.
func (w *FindingsWriter) Write(ctx context.Context, fs []findings.Finding) error {
	for _, f := range fs {
		if !f.Detailed {
			continue
		}
		select {
		case w.in <- FindingRow(w.runID, f):
		case <-w.done:
			if w.err != nil {
				return w.err
			}
			return ErrWriterClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close flushes pending rows and returns the number written and the first
// load error.
func (w *FindingsWriter) Close() (int64, error) {
	w.once.Do(func() { close(w.in) })
	<-w.done
	w.cancel()
	return w.n, w.err
}

// FindingRow lays f out in ddl.Findings column order.
func FindingRow(runID string, f findings.Finding) []any {
	return []any{
		runID,
		string(f.Phase),
		f.ValidationID,
		string(f.Severity),
		string(f.Scope),
		int64(f.RecordNo),
		nullable(f.UID),
		f.FieldName,
		f.FieldValue,
	}
}

// RunRow lays run out in ddl.Runs column order.
func RunRow(run *submission.Run) []any {
	return []any{
		run.ID,
		run.Job,
		run.Source,
		nullable(run.Checksum),
		string(run.State),
		nullable(string(run.Stage)),
		int64(run.Records),
		int64(run.Summary.Errors.Total),
		int64(run.Summary.Warnings.Total),
		run.Truncated,
		nullable(run.Error),
		run.StartedAt,
		run.FinishedAt,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
