package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/campus-atlas/plan-cli/internal/extract"
	"github.com/campus-atlas/plan-cli/internal/merge"
	"github.com/campus-atlas/plan-cli/internal/model"
	"github.com/campus-atlas/plan-cli/internal/pipeline"
	"github.com/campus-atlas/plan-cli/internal/reconcile"
	"github.com/campus-atlas/plan-cli/internal/repo"
	"github.com/campus-atlas/plan-cli/pkg/geocode"
)

// env wires the shared dependencies every command needs.
type env struct {
	repo       repo.Repository
	reconciler *reconcile.Reconciler
	pipeline   *pipeline.Pipeline
}

// initEnv builds the repository, merger, resolver and pipeline from
// the loaded config and runs migrations.
func initEnv(ctx context.Context) (*env, error) {
	r, err := openRepo(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.Migrate(ctx); err != nil {
		r.Close()
		return nil, err
	}

	gc := geocode.NewClient(cfg.Geocoder.BaseURL,
		geocode.WithRateLimit(cfg.Geocoder.RPS),
		geocode.WithUserAgent(cfg.Geocoder.UserAgent),
	)

	merger, err := merge.NewMerger(nil, cfg.Merge.NameKeywords, gc)
	if err != nil {
		r.Close()
		return nil, err
	}

	categories, err := model.LoadCategoryTable(cfg.Extract.CategoryTable)
	if err != nil {
		zap.L().Warn("category table unavailable, rooms stay uncategorized", zap.Error(err))
		categories = model.NewCategoryTable(nil)
	}

	floors, err := extract.LoadFloorTable(cfg.Extract.FloorTable)
	if err != nil {
		r.Close()
		return nil, err
	}

	extractor := extract.New(extract.Config{
		OutlineLayers: cfg.Extract.OutlineLayers,
		LabelLayers:   cfg.Extract.LabelLayers,
		TitleLayers:   cfg.Extract.TitleLayers,
		Scale:         cfg.Extract.Scale,
	}, floors)

	resolver := &pipeline.LabelResolver{Categories: categories}
	rec := reconcile.New(r, merger, resolver)

	return &env{
		repo:       r,
		reconciler: rec,
		pipeline:   pipeline.New(extractor, rec, 4),
	}, nil
}

func openRepo(ctx context.Context) (repo.Repository, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return repo.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return repo.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (e *env) Close() {
	if err := e.repo.Close(); err != nil {
		zap.L().Warn("closing repository", zap.Error(err))
	}
}
