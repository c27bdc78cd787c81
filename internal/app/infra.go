package app

import (
	"context"
	"fmt"

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/config"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/gate"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/logger"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/pipeline"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/session"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage/chat"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage/elevenlabs"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage/tesseract"
	"github.com/HiranMayiNathi23/ai-reading-companion/internal/telemetry"
)

type Infra struct {
	Store    *session.MemoryStore
	Reaper   *session.Reaper
	Gate     *gate.Gate
	Adapters pipeline.Adapters

	// FlushTelemetry stops the OpenTelemetry providers.
	FlushTelemetry func(context.Context) error
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	flush, err := telemetry.Init(ctx, telemetry.Options{Exporter: cfg.TelemetryExporter})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	logger.Info("telemetry ready", map[string]any{"exporter": cfg.TelemetryExporter})

	store := session.NewMemoryStore(session.WithTTL(cfg.SessionTTL))
	logger.Info("session store ready", map[string]any{
		"ttl":           cfg.SessionTTL.String(),
		"reap_interval": cfg.ReapInterval.String(),
	})

	adapters, err := setupAdapters(cfg)
	if err != nil {
		_ = flush(ctx)
		return nil, err
	}

	return &Infra{
		Store:    store,
		Reaper:   session.NewReaper(store, cfg.ReapInterval),
		Gate:     gate.New(cfg.StageTimeout),
		Adapters: adapters,

		FlushTelemetry: flush,
	}, nil
}

func setupAdapters(cfg config.Config) (pipeline.Adapters, error) {
	registry := chat.NewRegistry(
		chat.NewOpenAIClient(cfg.OpenAIAPIKey,
			chat.WithOpenAIBaseURL(cfg.OpenAIBaseURL),
			chat.WithOpenAIModel(cfg.OpenAIModel),
		),
		chat.NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel),
	)

	backend, err := registry.Get(cfg.ChatProvider)
	if err != nil {
		return pipeline.Adapters{}, fmt.Errorf("chat provider: %w", err)
	}
	if backend.Name() == "openai" && cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; text stages will fail", nil)
	}
	logger.Info("chat backend ready", map[string]any{"provider": backend.Name()})

	stages := chat.NewStages(backend)
	adapters := pipeline.Adapters{
		OCR:        tesseract.New(cfg.OCRLanguage),
		Translator: stages,
		Summarizer: stages,
		Characters: stages,
	}
	if cfg.CorrectionEnabled {
		adapters.Corrector = stages
	}

	if cfg.ElevenLabsAPIKey != "" {
		adapters.TTS = elevenlabs.New(cfg.ElevenLabsAPIKey,
			elevenlabs.WithVoice(cfg.ElevenLabsVoice),
			elevenlabs.WithModel(cfg.ElevenLabsModel),
		)
		logger.Info("tts ready", nil)
	} else {
		logger.Warn("ELEVENLABS_API_KEY is not set; text-to-speech disabled", nil)
	}

	return adapters, nil
}
