package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tsawler/pdfhtml"
	"github.com/tsawler/pdfhtml/htmldoc"
	"github.com/tsawler/pdfhtml/merge"
	"github.com/tsawler/pdfhtml/reader"
)

// CombinedName is the merged output file. It is never an input.
const CombinedName = "Combined.pdf"

// DefaultTimeout bounds the conversion of one file.
const DefaultTimeout = 2 * time.Minute

// ErrInvalidDir is returned when the input path is not a directory.
var ErrInvalidDir = errors.New("invalid directory")

// Option configures a run.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	password string
	ocrLang  string
	merge    bool
}

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithWorkers sets how many files are converted at once. The default is
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithTimeout bounds the conversion of each file. Zero disables the
// limit.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithPassword sets the password tried on encrypted inputs.
func WithPassword(password string) Option {
	return func(c *config) { c.password = password }
}

// WithOCR recognizes scanned pages with the given Tesseract languages.
func WithOCR(lang string) Option {
	return func(c *config) { c.ocrLang = lang }
}

// WithMerge controls whether CombinedName is written. It is by default.
func WithMerge(enabled bool) Option {
	return func(c *config) { c.merge = enabled }
}

// Outcome records what happened to one input file.
type Outcome struct {
	Input    string
	Output   string // HTML file, empty when conversion failed
	Pages    int
	Images   int
	Warnings []pdfhtml.Warning
	Err      error
	Duration time.Duration
}

// Summary is the result of a run. Outcomes are in input order.
type Summary struct {
	Outcomes    []Outcome
	Converted   int
	Failed      int
	Combined    string // path of the merged file, empty if none was written
	MergedPages int
	MergeErr    error
	Skipped     []error // merge sources that contributed no pages
}

// Inputs returns the PDF files of dir in lexicographic order. The match
// on the extension ignores case; CombinedName is excluded.
func Inputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		if strings.EqualFold(name, CombinedName) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}

// result carries a finished conversion to the collector. doc is kept for
// the merge even when writing the HTML failed.
type result struct {
	index    int
	outcome  Outcome
	doc      *reader.Reader
	page     *htmldoc.Document // written once the result is accepted
	parseErr error
}

// convertFile converts one input. Tests replace it.
var convertFile = convert

// Run converts every PDF in dir to a sibling HTML file and merges them
// into CombinedName. Files are converted concurrently; a failure affects
// only its own file and is recorded in the summary. The merge takes the
// inputs in name order as they complete. The returned error is reserved
// for an unusable directory and for failures to write the merged file.
func Run(ctx context.Context, dir string, opts ...Option) (*Summary, error) {
	cfg := config{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers: runtime.GOMAXPROCS(0),
		timeout: DefaultTimeout,
		merge:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDir, dir)
	}
	inputs, err := Inputs(dir)
	if err != nil {
		return nil, err
	}
	cfg.logger.Info("starting batch", "dir", dir, "files", len(inputs), "workers", cfg.workers)

	sem := make(chan struct{}, cfg.workers)
	results := make(chan result, len(inputs))
	var wg sync.WaitGroup
	for i, path := range inputs {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- result{index: i, outcome: Outcome{Input: path, Err: ctx.Err()}, parseErr: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			res, finished := convertWithTimeout(ctx, cfg, i, path)
			results <- res
			// An abandoned conversion keeps its slot until it stops.
			<-finished
		}(i, path)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{Outcomes: make([]Outcome, len(inputs))}
	var merger *merge.Merger
	if cfg.merge {
		merger = merge.New(merge.WithLogger(cfg.logger))
	}

	// Results arrive in completion order; the merger takes them in input
	// order, holding back those that finish early.
	pending := make(map[int]result)
	next := 0
	for res := range results {
		summary.Outcomes[res.index] = res.outcome
		if res.outcome.Err != nil {
			summary.Failed++
			cfg.logger.Error("conversion failed", "input", res.outcome.Input, "error", res.outcome.Err)
		} else {
			summary.Converted++
			cfg.logger.Info("converted",
				"input", res.outcome.Input,
				"output", res.outcome.Output,
				"pages", res.outcome.Pages,
				"images", res.outcome.Images,
				"warnings", len(res.outcome.Warnings),
				"duration", res.outcome.Duration)
		}
		for _, w := range res.outcome.Warnings {
			cfg.logger.Warn("partial content", "input", res.outcome.Input, "warning", w.String())
		}

		if merger == nil {
			continue
		}
		pending[res.index] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			// Skipped sources are collected by the merger.
			_ = merger.Add(merge.Source{
				Name: filepath.Base(r.outcome.Input),
				Doc:  docOrNil(r.doc),
				Err:  r.parseErr,
			})
		}
	}

	if merger != nil {
		if err := writeCombined(dir, merger, summary); err != nil {
			return summary, err
		}
		if summary.MergeErr != nil {
			cfg.logger.Error("merge failed", "error", summary.MergeErr)
		} else {
			cfg.logger.Info("merged", "output", summary.Combined, "pages", summary.MergedPages)
		}
	}
	return summary, nil
}

// docOrNil keeps a nil *reader.Reader from becoming a non-nil interface.
func docOrNil(r *reader.Reader) merge.Document {
	if r == nil {
		return nil
	}
	return r
}

// writeCombined writes the merged document through a temporary file, so
// a failed merge leaves any earlier CombinedName in place.
func writeCombined(dir string, m *merge.Merger, summary *Summary) error {
	summary.Skipped = m.Skipped()
	if m.PageCount() == 0 {
		summary.MergeErr = m.Write(io.Discard)
		return nil
	}

	tmp, err := os.CreateTemp(dir, ".combined-*.tmp")
	if err != nil {
		return fmt.Errorf("create merged file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := m.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write merged file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write merged file: %w", err)
	}
	out := filepath.Join(dir, CombinedName)
	if err := os.Rename(tmp.Name(), out); err != nil {
		return fmt.Errorf("replace %s: %w", out, err)
	}
	summary.Combined = out
	summary.MergedPages = m.PageCount()
	return nil
}

// convertWithTimeout converts one file, giving up when the per-file
// timeout expires or the conversion panics. The returned channel is
// closed when the conversion goroutine has returned; an abandoned one
// stops at its next context check and its output is never written.
func convertWithTimeout(ctx context.Context, cfg config, index int, path string) (result, <-chan struct{}) {
	var cancel context.CancelFunc
	if cfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	start := time.Now()

	done := make(chan result, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer func() {
			if r := recover(); r != nil {
				cfg.logger.Error("conversion panicked", "input", path, "panic", r, "stack", string(debug.Stack()))
				err := fmt.Errorf("conversion panicked: %v", r)
				done <- result{index: index, outcome: Outcome{Input: path, Err: err}, parseErr: err}
			}
		}()
		done <- convertFile(ctx, cfg, index, path)
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		err := fmt.Errorf("conversion aborted: %w", ctx.Err())
		res = result{index: index, outcome: Outcome{Input: path, Err: err}, parseErr: err}
	}
	if res.outcome.Err == nil {
		if err := writeHTML(&res); err != nil {
			res.outcome.Err = err
		}
	}
	res.outcome.Duration = time.Since(start)
	return res, finished
}

// writeHTML writes the page of a finished conversion next to its input.
func writeHTML(res *result) error {
	out := strings.TrimSuffix(res.outcome.Input, filepath.Ext(res.outcome.Input)) + ".html"
	if err := htmldoc.WriteFile(out, res.page); err != nil {
		return err
	}
	res.outcome.Output = out
	return nil
}

// convert parses one file and extracts its content into an HTML page.
func convert(ctx context.Context, cfg config, index int, path string) result {
	res := result{index: index, outcome: Outcome{Input: path}}
	fail := func(err error) result {
		res.outcome.Err = err
		return res
	}

	ext := pdfhtml.Open(path).Logger(cfg.logger.With("input", filepath.Base(path)))
	if cfg.password != "" {
		ext = ext.Password(cfg.password)
	}
	if cfg.ocrLang != "" {
		ext = ext.OCR(cfg.ocrLang)
	}

	doc, err := ext.Reader()
	if err != nil {
		res.parseErr = err
		return fail(err)
	}
	res.doc = doc

	converted, err := ext.Convert(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Overrun files are not merged.
			res.parseErr = err
		}
		return fail(err)
	}
	page, warnings := converted.HTML()

	res.page = page
	res.outcome.Pages = converted.Pages
	res.outcome.Images = len(page.Images)
	res.outcome.Warnings = append(converted.Warnings, warnings...)
	return res
}

// String returns a one-line account of the run.
func (s *Summary) String() string {
	line := fmt.Sprintf("%d converted, %d failed", s.Converted, s.Failed)
	switch {
	case s.Combined != "":
		line += fmt.Sprintf("; %s has %d pages", filepath.Base(s.Combined), s.MergedPages)
	case s.MergeErr != nil:
		line += "; no merged file written"
	}
	return line
}
