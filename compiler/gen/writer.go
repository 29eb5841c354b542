package gen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Writer formats and writes rendered source files in parallel.
type Writer struct {
	outDir  string
	workers int

	mu      sync.Mutex
	metrics WriterMetrics
}

// WriterMetrics tracks write performance.
type WriterMetrics struct {
	FilesWritten int
	TotalBytes   int64
}

// fileTask is a single output file: its path relative to the output
// directory and its rendered, unformatted source.
type fileTask struct {
	name string
	src  []byte
}

func newWriter(outDir string, workers int) *Writer {
	if workers <= 0 {
		workers = 1
	}
	return &Writer{outDir: outDir, workers: workers}
}

// Metrics returns the write metrics.
func (w *Writer) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// writeAll formats and writes all tasks, bounded by the worker limit.
func (w *Writer) writeAll(ctx context.Context, tasks []fileTask) error {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for _, f := range tasks {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return w.writeFile(f)
			}
		})
	}
	return eg.Wait()
}

// writeFile formats a single file with goimports (drops unused imports,
// resolves missing ones) and writes it to disk.
func (w *Writer) writeFile(f fileTask) error {
	fullPath := filepath.Join(w.outDir, f.name)
	formatted, err := imports.Process(fullPath, f.src, nil)
	if err != nil {
		// Write the unformatted source for debugging; we are already in an
		// error state, so the write error is intentionally ignored.
		debugPath := fullPath + ".error"
		_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
		_ = os.WriteFile(debugPath, f.src, 0o644)
		return fmt.Errorf("format %s: %w (unformatted written to %s)", f.name, err, debugPath)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.name, err)
	}
	if err := os.WriteFile(fullPath, formatted, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.name, err)
	}
	w.mu.Lock()
	w.metrics.FilesWritten++
	w.metrics.TotalBytes += int64(len(formatted))
	w.mu.Unlock()
	return nil
}
