package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lehigh-university-libraries/albumgen/internal/analysis"
	"github.com/lehigh-university-libraries/albumgen/internal/config"
	"github.com/lehigh-university-libraries/albumgen/internal/gemini"
	"github.com/lehigh-university-libraries/albumgen/internal/generation"
	"github.com/lehigh-university-libraries/albumgen/internal/imagegen"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/ollama"
	"github.com/lehigh-university-libraries/albumgen/internal/openai"
	"github.com/lehigh-university-libraries/albumgen/internal/providers"
	"github.com/lehigh-university-libraries/albumgen/internal/session"
	"github.com/lehigh-university-libraries/albumgen/internal/storage"
)

// app is everything a command needs, built from configuration.
type app struct {
	cfg    *config.Config
	store  storage.Store
	creds  *config.Credentials
	engine *session.Engine
}

type appOption func(*session.Deps)

func withImageObserver(fn func(models.GeneratedImage)) appOption {
	return func(d *session.Deps) {
		d.OnImage = fn
	}
}

func newApp(ctx context.Context, opts *rootOptions, options ...appOption) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, storage.Options{
		Backend:       cfg.Store,
		DataDir:       cfg.DataDir,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	creds := config.NewCredentials(store)
	provider, analysisCreds := newAnalysisProvider(cfg, creds)

	deps := session.Deps{
		Store:               store,
		Analyzer:            analysis.New(provider, cfg.AnalysisModel),
		Pipeline:            generation.NewPipeline(imagegen.New(cfg.ImageModel, creds.Key), cfg.MaxReferenceImages, cfg.PoseSeed),
		Credentials:         creds,
		AnalysisCredentials: analysisCreds,
	}
	for _, o := range options {
		o(&deps)
	}

	engine := session.New(deps, session.Options{
		MaxAssets:         cfg.MaxAssets,
		DefaultImageCount: cfg.DefaultImageCount,
	})
	if err := engine.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	slog.Debug("Configured albumgen",
		"store", cfg.Store,
		"data_dir", cfg.DataDir,
		"analysis_provider", cfg.AnalysisProvider,
		"analysis_model", cfg.AnalysisModel,
		"image_model", cfg.ImageModel)

	return &app{cfg: cfg, store: store, creds: creds, engine: engine}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("Failed to close store", "err", err)
	}
}

// newAnalysisProvider selects the vision model used for identity analysis.
// Generation always uses Gemini and the shared key; the returned checker
// gates analysis when its provider authenticates differently.
func newAnalysisProvider(cfg *config.Config, creds *config.Credentials) (providers.Provider, session.CredentialChecker) {
	switch cfg.AnalysisProvider {
	case "ollama":
		return ollama.New(cfg.OllamaURL), noCredentials{}
	case "openai":
		return openai.New(), envCredential("OPENAI_API_KEY")
	default:
		return gemini.New(creds.Key), creds
	}
}

type noCredentials struct{}

func (noCredentials) Check(context.Context) error {
	return nil
}

type envCredential string

func (e envCredential) Check(context.Context) error {
	if os.Getenv(string(e)) == "" {
		return fmt.Errorf("%s is not set: %w", string(e), models.ErrCredentialMissing)
	}
	return nil
}
