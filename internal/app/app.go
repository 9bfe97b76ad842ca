package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calcvoice/calcvoice/internal/capture"
	"github.com/calcvoice/calcvoice/internal/eventlog"
	"github.com/calcvoice/calcvoice/internal/httpapi"
	"github.com/calcvoice/calcvoice/internal/intent"
	"github.com/calcvoice/calcvoice/internal/jobs"
	"github.com/calcvoice/calcvoice/internal/notifications"
	"github.com/calcvoice/calcvoice/internal/store"
	"github.com/calcvoice/calcvoice/internal/voice"
)

type App struct {
	cfg      Config
	logger   *log.Logger
	db       *pgxpool.Pool
	store    *store.Store
	eventLog *eventlog.Logger
	discord  *notifications.Discord
	device   *capture.StreamDevice
	engine   *voice.Engine
	retrain  *jobs.RetrainJob
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := store.New(db)
	el := eventlog.New(db)
	discord := notifications.NewDiscord(cfg.DiscordWebhookURL, logger)

	// Migrations are applied externally by the CI deploy job (docker exec psql).
	// No automatic migration runner at startup.

	corpusSize, err := bootstrapCorpus(ctx, s, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	interp, err := buildInterpreter(ctx, s)
	if err != nil {
		db.Close()
		return nil, err
	}

	device := capture.NewStreamDevice(cfg.SampleRate)
	transcriber := capture.NewDeepgramTranscriber(capture.DeepgramConfig{
		APIKey: cfg.DeepgramAPIKey,
		Model:  cfg.DeepgramModel,
	})

	engine := voice.NewEngine(voice.Config{
		Device:            device,
		Transcriber:       transcriber,
		Interpreter:       interp,
		Logger:            logger,
		Recorder:          el,
		Utterances:        s,
		Notifier:          discord,
		EnergyThreshold:   cfg.EnergyThreshold,
		GapTimeout:        cfg.GapTimeout,
		AcquireTimeout:    cfg.AcquireTimeout,
		MaxSegment:        cfg.MaxSegment,
		CalibrationWindow: cfg.CalibrationDur,
		StopWait:          cfg.StopWait,
	})

	retrain := jobs.NewRetrainJob(s, interp, discord, logger, cfg.RetrainInterval, corpusSize)

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		store:    s,
		eventLog: el,
		discord:  discord,
		device:   device,
		engine:   engine,
		retrain:  retrain,
	}, nil
}

// bootstrapCorpus seeds the default labeled phrases into an empty
// training table so a fresh deployment has a working classifier.
func bootstrapCorpus(ctx context.Context, s *store.Store, logger *log.Logger) (int, error) {
	count, err := s.CountTrainingSamples(ctx)
	if err != nil {
		return 0, fmt.Errorf("count training samples: %w", err)
	}
	if count > 0 {
		return count, nil
	}

	defaults := intent.DefaultSamples()
	records := make([]store.TrainingSample, 0, len(defaults))
	for _, smp := range defaults {
		records = append(records, store.TrainingSample{Text: smp.Text, Label: smp.Label})
	}
	inserted, err := s.InsertTrainingSamples(ctx, records, store.SourceDefault)
	if err != nil {
		return 0, fmt.Errorf("seed training samples: %w", err)
	}
	logger.Printf("seeded %d default training samples", inserted)
	return inserted, nil
}

func buildInterpreter(ctx context.Context, s *store.Store) (*intent.Interpreter, error) {
	records, err := s.ListTrainingSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("load training corpus: %w", err)
	}
	samples := make([]intent.Sample, 0, len(records))
	for _, r := range records {
		samples = append(samples, intent.Sample{Text: r.Text, Label: r.Label})
	}
	model, err := intent.BuildModel(samples)
	if err != nil {
		return nil, fmt.Errorf("build intent model: %w", err)
	}
	return intent.NewInterpreter(model), nil
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		JWTSecret:         a.cfg.JWTSecret,
		JWTExpiry:         a.cfg.JWTExpiry,
		AdminPassword:     a.cfg.AdminPassword,
		KeepaliveInterval: a.cfg.KeepaliveInterval,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.store, a.eventLog, a.engine, a.device, a.retrain)
}

// RetrainJob returns the background retrain job for lifecycle control.
func (a *App) RetrainJob() *jobs.RetrainJob {
	return a.retrain
}

// Engine returns the voice session engine.
func (a *App) Engine() *voice.Engine {
	return a.engine
}

func (a *App) Close() error {
	if a.engine != nil {
		_ = a.engine.Stop()
	}
	if a.device != nil {
		_ = a.device.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
