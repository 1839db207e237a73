// This file wires one validate invocation end to end: sources, chunk
// readers, reference tables, the engine, the findings store, reports and
// metrics. It depends only on package interfaces; storage backends are
// linked in through storage/all.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"sblar/internal/config"
	"sblar/internal/datasource"
	"sblar/internal/datasource/file"
	"sblar/internal/datasource/httpds"
	"sblar/internal/engine"
	"sblar/internal/findings"
	"sblar/internal/parser"
	"sblar/internal/probe"
	"sblar/internal/refdata"
	"sblar/internal/report"
	"sblar/internal/rules"
	"sblar/internal/storage"
	"sblar/internal/submission"

	_ "sblar/internal/storage/all"
)

// Function variables used to introduce test seams.
var (
	openStoreFn = storage.Open
	now         = time.Now
	newClientFn = httpds.NewClient
)

// submissionSource is what a run needs from a source beyond Open.
type submissionSource interface {
	datasource.Source
	Head(ctx context.Context, n int) ([]byte, error)
	Checksum(ctx context.Context) (string, error)
	Close() error
}

// localSource adapts file.Local to submissionSource.
type localSource struct{ *file.Local }

func (l localSource) Head(_ context.Context, n int) ([]byte, error) { return l.Local.Head(n) }
func (localSource) Close() error                                  { return nil }

// validator holds what is shared by every submission of one invocation.
type validator struct {
	p      config.Pipeline
	rt     config.RuntimeConfig
	format report.Format
	cat    *rules.Catalog
	tables refdata.Tables
	store  *storage.Store
	client *httpds.Client
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

// runValidate validates every location in order. Rejected submissions yield
// errRejected; runs that could not complete are joined into the returned
// error and take precedence.
func runValidate(ctx context.Context, a *app, p config.Pipeline, locations []string) (err error) {
	log := a.log.With(zap.String("job", p.Job))
	v := &validator{
		p:      p,
		rt:     config.ResolveRuntime(p.Runtime),
		log:    log,
		stdout: a.stdout,
		stderr: a.stderr,
	}
	if v.format, err = report.ParseFormat(p.Output.Format); err != nil {
		return err
	}
	if v.cat, err = loadCatalog(p.Catalog); err != nil {
		return err
	}
	if v.tables, err = refdata.Load(refdata.Paths{
		NAICS:        p.Reference.NAICS,
		CensusGEOIDs: p.Reference.CensusGEOIDs,
	}); err != nil {
		return err
	}
	for name, t := range v.tables {
		log.Debug("reference table loaded", zap.String("table", name), zap.Int("codes", t.Len()))
	}

	flush := setupMetrics(p.Metrics, p.Job, log)
	defer flush()

	if p.Storage.Kind != "" {
		v.store, err = openStoreFn(ctx, storage.Config{Kind: p.Storage.Kind, DSN: p.Storage.DB.DSN},
			p.Storage.DB.AutoCreateTable, p.Storage.DB.BatchSize, log)
		if err != nil {
			return fmt.Errorf("open findings store: %w", err)
		}
		defer v.store.Close()
	}

	log.Info("validate runtime",
		zap.Int("submissions", len(locations)),
		zap.Int("chunk_rows", v.rt.ChunkRows()),
		zap.Int("max_errors", v.rt.MaxErrors),
		zap.Int("channel_buffer", v.rt.ChannelBuffer),
		zap.String("output", string(v.format)),
		zap.String("storage", p.Storage.Kind),
	)

	var (
		failures []error
		rejected int
	)
	for i, loc := range locations {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		out := reportPath(p.Output.Path, loc, i, len(locations))
		run, err := v.validateOne(ctx, loc, out)
		if err != nil {
			log.Error("submission failed", zap.String("source", loc), zap.Error(err))
			failures = append(failures, fmt.Errorf("%s: %w", loc, err))
		}
		if run == nil {
			continue
		}
		switch {
		case run.State == submission.ValidationError:
			failures = append(failures, fmt.Errorf("%s: %s", loc, run.Error))
		case !run.State.Accepted():
			rejected++
		}
	}
	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	if rejected > 0 {
		return fmt.Errorf("%d of %d submissions: %w", rejected, len(locations), errRejected)
	}
	return nil
}

// validateOne runs one submission and writes its report to out ("" means
// stdout). The run is nil when the source could not be opened.
func (v *validator) validateOne(ctx context.Context, loc, out string) (*submission.Run, error) {
	src, err := v.openSource(loc)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			v.log.Warn("close source", zap.String("source", loc), zap.Error(err))
		}
	}()

	checksum, err := src.Checksum(ctx)
	if err != nil {
		return nil, err
	}
	kind := v.p.Parser.Kind
	if kind == "" {
		head, err := src.Head(ctx, datasource.SniffLen)
		if err != nil {
			return nil, err
		}
		kind = datasource.Sniff(head)
	}
	chunks, err := parser.New(kind, src, v.p.Parser.Options, v.rt.ChunkRows(), v.log)
	if err != nil {
		return nil, err
	}

	run := submission.NewRun(v.p.Job, loc, checksum, now())
	log := v.log.With(zap.String("run_id", run.ID), zap.String("source", loc))
	log.Info("validating submission", zap.String("parser", kind), zap.String("checksum", checksum))

	eng := engine.New(v.cat, engine.Config{
		Job:           v.p.Job,
		MaxErrors:     v.rt.MaxErrors,
		ChannelBuffer: v.rt.ChannelBuffer,
		Context:       v.p.Context,
		Codes:         v.tables.CodeSets(),
	}, log)

	var (
		fw        *storage.FindingsWriter
		collected []findings.Finding
	)
	if v.store != nil {
		fw = v.store.NewFindingsWriter(ctx, run.ID)
	}
	outcome, runErr := eng.Run(ctx, chunks, func(res engine.Result) error {
		// Over-budget failures carry no field detail; the outcome counts them.
		detailed := findings.Detailed(res.Findings)
		collected = append(collected, detailed...)
		if fw != nil {
			return fw.Write(ctx, detailed)
		}
		return nil
	})
	run.Finish(outcome, runErr, now())

	var errs []error
	if fw != nil {
		n, err := fw.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("store findings: %w", err))
		}
		switch {
		case runErr != nil && (n > 0 || err != nil):
			// An aborted run keeps its run record but no findings.
			if err := v.store.DiscardFindings(context.WithoutCancel(ctx), run.ID); err != nil {
				errs = append(errs, err)
			} else {
				log.Debug("discarded findings of aborted run", zap.Int64("rows", n))
			}
		case err == nil:
			log.Debug("findings stored", zap.Int64("rows", n))
		}
		if err := v.store.SaveRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}

	if runErr == nil {
		if err := v.writeReport(out, collected); err != nil {
			errs = append(errs, err)
		}
		if v.format == report.FormatTable {
			if err := report.WriteSummary(v.stderr, outcome.Phases); err != nil {
				errs = append(errs, err)
			}
		}
	}
	v.status(run, src)
	return run, errors.Join(errs...)
}

func (v *validator) openSource(loc string) (submissionSource, error) {
	if !probe.IsURL(loc) {
		return localSource{file.NewLocal(loc)}, nil
	}
	h := v.p.Source.HTTP
	if v.client == nil {
		v.client = newClientFn(httpds.Config{
			Timeout:    time.Duration(h.TimeoutSeconds) * time.Second,
			MaxRetries: h.MaxRetries,
			UserAgent:  h.UserAgent,
			Logger:     v.log,
		})
	}
	return httpds.NewSource(v.client, loc, os.TempDir()), nil
}

func (v *validator) writeReport(path string, fs []findings.Finding) (err error) {
	if v.format == report.FormatNone {
		return nil
	}
	w := v.stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close report: %w", cerr)
			}
		}()
		w = f
	}
	if err := report.Write(w, v.cat, fs, report.Options{Format: v.format, MaxGroupSize: v.p.Output.MaxGroupSize}); err != nil {
		return fmt.Errorf("write %s report: %w", v.format, err)
	}
	return nil
}

// status prints the one-line result of a run.
func (v *validator) status(run *submission.Run, src submissionSource) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", run.Source, run.State)
	if run.Stage != "" {
		fmt.Fprintf(&b, " (%s)", run.Stage)
	}
	fmt.Fprintf(&b, ", %s records, %s errors, %s warnings",
		humanize.Comma(int64(run.Records)),
		humanize.Comma(int64(run.Summary.Errors.Total)),
		humanize.Comma(int64(run.Summary.Warnings.Total)),
	)
	if sized, ok := src.(interface{ Size() int64 }); ok && sized.Size() > 0 {
		fmt.Fprintf(&b, ", %s downloaded", humanize.IBytes(uint64(sized.Size())))
	}
	if run.Truncated {
		b.WriteString(", detail truncated")
	}
	fmt.Fprintf(&b, " in %s", run.Duration().Truncate(time.Millisecond))
	if run.Error != "" {
		fmt.Fprintf(&b, ": %s", run.Error)
	}
	fmt.Fprintln(v.stderr, b.String())
}

// reportPath derives the report file of submission i of n. With several
// submissions each report gets the submission's base name inserted before
// the extension.
func reportPath(path, loc string, i, n int) string {
	if path == "" || n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	base := strings.TrimSuffix(filepath.Base(loc), filepath.Ext(loc))
	if probe.IsURL(loc) {
		base = httpds.SafeFilenameFromURL(loc)
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if base == "" || base == "." {
		base = fmt.Sprint(i + 1)
	}
	return fmt.Sprintf("%s.%d-%s%s", stem, i+1, base, ext)
}

func loadCatalog(path string) (*rules.Catalog, error) {
	if path == "" {
		return rules.DefaultCatalog()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	cat, err := rules.LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}
