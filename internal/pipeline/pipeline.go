// Package pipeline orchestrates batch runs: drawing ingestion and the
// administrative and scheduling syncs, with per-run summaries.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campus-atlas/plan-cli/internal/dxf"
	"github.com/campus-atlas/plan-cli/internal/extract"
	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/internal/reconcile"
	"github.com/campus-atlas/plan-cli/internal/source"
)

// Summary counts the outcomes of one batch run.
type Summary struct {
	mu        sync.Mutex
	Processed int
	Skipped   map[extract.SkipKind]int
}

func newSummary() *Summary {
	return &Summary{Skipped: map[extract.SkipKind]int{}}
}

func (s *Summary) addProcessed() {
	s.mu.Lock()
	s.Processed++
	s.mu.Unlock()
}

func (s *Summary) addSkip(kind extract.SkipKind) {
	s.mu.Lock()
	s.Skipped[kind]++
	s.mu.Unlock()
}

// SkippedTotal sums skips across all kinds.
func (s *Summary) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Log writes the summary at info level.
func (s *Summary) Log(name, batchID string) {
	fields := []zap.Field{
		zap.String("batch", batchID),
		zap.Int("processed", s.Processed),
		zap.Int("skipped", s.SkippedTotal()),
	}
	for kind, count := range s.Skipped {
		fields = append(fields, zap.Int("skipped_"+string(kind), count))
	}
	zap.L().Info(name+" batch complete", fields...)
}

// Pipeline runs batches against the reconciler.
type Pipeline struct {
	extractor  *extract.Extractor
	reconciler *reconcile.Reconciler
	workers    int
}

// New creates a Pipeline. workers bounds concurrent drawing parsing;
// values below 1 mean serial.
func New(ex *extract.Extractor, rec *reconcile.Reconciler, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{extractor: ex, reconciler: rec, workers: workers}
}

// IngestDrawings extracts every drawing and applies the resulting
// floors to the geometry namespace. Parsing and extraction run
// concurrently; applies are serialized because two drawings of the
// same building race on its document otherwise.
func (p *Pipeline) IngestDrawings(ctx context.Context, batch reconcile.Batch, paths []string) (*Summary, error) {
	summary := newSummary()
	floors := make(chan *model.Floor, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, path := range paths {
		g.Go(func() error {
			floor, err := p.extractFloor(path)
			if err != nil {
				if skip, ok := extract.AsSkip(err); ok {
					zap.L().Warn("skipping drawing",
						zap.String("file", path),
						zap.String("kind", string(skip.Kind)),
						zap.String("reason", skip.Reason),
					)
					summary.addSkip(skip.Kind)
					return nil
				}
				return err
			}
			select {
			case floors <- floor:
			case <-gctx.Done():
				return gctx.Err()
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(floors)
	}()

	for floor := range floors {
		if err := p.applyFloor(ctx, batch, floor, summary); err != nil {
			return summary, err
		}
	}
	if err := <-done; err != nil {
		return summary, err
	}
	return summary, nil
}

func (p *Pipeline) extractFloor(path string) (*model.Floor, error) {
	entities, err := dxf.ReadFile(path)
	if err != nil {
		return nil, extract.Skipf(extract.SkipFileFormat, "%s: %v", path, err)
	}
	return p.extractor.Extract(entities, path)
}

func (p *Pipeline) applyFloor(ctx context.Context, batch reconcile.Batch, floor *model.Floor, summary *Summary) error {
	err := p.reconciler.ApplyFloor(ctx, batch, floor)
	if err != nil {
		if skip, ok := extract.AsSkip(err); ok {
			zap.L().Warn("skipping floor",
				zap.String("b_id", floor.BuildingID),
				zap.String("f_id", floor.ID),
				zap.String("kind", string(skip.Kind)),
				zap.String("reason", skip.Reason),
			)
			summary.addSkip(skip.Kind)
			return nil
		}
		return err
	}
	summary.addProcessed()
	return nil
}

// SyncRecords applies one source's records to their building
// namespaces, serially.
func (p *Pipeline) SyncRecords(ctx context.Context, batch reconcile.Batch, records []source.Record) (*Summary, error) {
	summary := newSummary()
	for _, rec := range records {
		err := p.reconciler.ApplyNamespace(ctx, batch, rec.BuildingID, rec.Namespace)
		if err != nil {
			if skip, ok := extract.AsSkip(err); ok {
				zap.L().Warn("skipping record",
					zap.String("b_id", rec.BuildingID),
					zap.String("kind", string(skip.Kind)),
					zap.String("reason", skip.Reason),
				)
				summary.addSkip(skip.Kind)
				continue
			}
			return summary, err
		}
		summary.addProcessed()
	}
	return summary, nil
}
