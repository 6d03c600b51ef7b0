// Package app assembles the diagnosis engine and its collaborators from
// configuration. Every binary starts through Build.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"symptom-checker/internal/catalog"
	"symptom-checker/internal/classifier"
	"symptom-checker/internal/config"
	"symptom-checker/internal/dataset"
	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/history"
	"symptom-checker/internal/llm"
	"symptom-checker/internal/ranker"
	"symptom-checker/internal/report"
	"symptom-checker/internal/scheduler"
	"symptom-checker/internal/storage"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Config   *config.Config
	Engine   *diagnosis.Engine
	Recorder storage.Recorder
	History  *history.Manager
	// Renderer is nil when PDF reports are disabled.
	Renderer *report.Renderer
	// DB is nil for the file history backend.
	DB Pinger

	closers []func()
}

// Build loads the data, trains both classifiers and wires the engine. Any
// data or schema problem is returned and the caller must not serve.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	train, err := dataset.Load(cfg.TrainingPath, cfg.LabelColumn)
	if err != nil {
		return nil, fmt.Errorf("load training data: %w", err)
	}
	eval, err := dataset.Load(cfg.TestingPath, cfg.LabelColumn)
	if err != nil {
		return nil, fmt.Errorf("load evaluation data: %w", err)
	}
	if err := train.CheckSchema(eval); err != nil {
		return nil, fmt.Errorf("evaluation data: %w", err)
	}
	log.Printf("app: feature matrix has %d rows, %d symptoms, %d conditions",
		train.Len(), train.Width(), len(train.Labels()))

	opts := classifier.Options{MaxDepth: cfg.TreeMaxDepth}
	primary, err := trainTree("primary", train, eval, cfg.PrimaryTestRatio, cfg.PrimarySeed, opts)
	if err != nil {
		return nil, err
	}
	secondary, err := trainTree("secondary", train, eval, cfg.SecondaryTestRatio, cfg.SecondarySeed, opts)
	if err != nil {
		return nil, err
	}

	rk, err := ranker.New(train, cfg.RelatedLimit)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(catalog.Paths{
		Severity:    cfg.SeverityPath,
		Description: cfg.DescriptionPath,
		Precaution:  cfg.PrecautionPath,
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	a := &App{Config: cfg, History: history.NewManager()}
	if err := a.openRecorder(ctx); err != nil {
		return nil, err
	}

	deps := diagnosis.Deps{
		Space:       train,
		Primary:     primary,
		Secondary:   secondary,
		Ranker:      rk,
		Reference:   cat,
		Recorder:    a.Recorder,
		Transcripts: a.History,
	}
	client, err := llm.NewFactory(cfg).CreateClient(cfg.LLMProvider)
	switch {
	case err != nil:
		log.Printf("app: disease/drug lookups disabled: %v", err)
	case client == nil:
		log.Printf("app: disease/drug lookups disabled (provider %s)", cfg.LLMProvider)
	default:
		deps.Info = llm.NewInfoService(client)
	}

	if cfg.ReportFontPath != "" {
		r, err := report.NewRenderer(cfg.ReportFontPath)
		if err != nil {
			log.Printf("app: PDF reports disabled: %v", err)
		} else {
			a.Renderer = r
		}
	}

	a.Engine, err = diagnosis.NewEngine(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func trainTree(name string, m, eval *dataset.Matrix, ratio float64, seed int64, opts classifier.Options) (*classifier.Tree, error) {
	fit, holdout, err := m.Split(ratio, seed)
	if err != nil {
		return nil, fmt.Errorf("split for %s classifier: %w", name, err)
	}
	started := time.Now()
	tree, err := classifier.Train(fit, opts)
	if err != nil {
		return nil, fmt.Errorf("train %s classifier: %w", name, err)
	}
	holdAcc, err := tree.Accuracy(holdout)
	if err != nil {
		return nil, err
	}
	evalAcc, err := tree.Accuracy(eval)
	if err != nil {
		return nil, err
	}
	log.Printf("app: %s tree trained in %s (depth %d, %d leaves), holdout accuracy %.3f, evaluation accuracy %.3f",
		name, time.Since(started).Round(time.Millisecond), tree.Depth(), tree.Leaves(), holdAcc, evalAcc)
	return tree, nil
}

func (a *App) openRecorder(ctx context.Context) error {
	switch a.Config.HistoryBackend {
	case config.BackendPostgres:
		pool, err := storage.Connect(ctx, a.Config.DatabaseURL)
		if err != nil {
			return err
		}
		rec, err := storage.NewPostgresRecorder(ctx, pool)
		if err != nil {
			pool.Close()
			return err
		}
		a.Recorder = rec
		a.DB = rec
		a.closers = append(a.closers, rec.Close)
	default:
		rec, err := storage.NewFileRecorder(a.Config.HistoryFilePath)
		if err != nil {
			return err
		}
		a.Recorder = rec
	}
	log.Printf("app: audit trail backend %s", a.Config.HistoryBackend)
	return nil
}

// Scheduler returns the sweep and daily report jobs, not yet started.
// publish may be nil.
func (a *App) Scheduler(publish func(ctx context.Context, summary string) error) *scheduler.Scheduler {
	s := scheduler.New()
	s.Add(scheduler.SweepJob(a.Config.SweepSchedule, a.Engine, a.Config.SessionTTL))
	s.Add(scheduler.ReportJob(a.Config.ReportSchedule, a.Recorder, time.Now, publish))
	return s
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
