// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Bot mode: the repost-detection bot plus its health server
//   - HTTP mode: the health and metrics server alone
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/repost-bot/internal/bot"
	"github.com/lueurxax/repost-bot/internal/core/links"
	"github.com/lueurxax/repost-bot/internal/core/media"
	"github.com/lueurxax/repost-bot/internal/platform/config"
	"github.com/lueurxax/repost-bot/internal/platform/observability"
	"github.com/lueurxax/repost-bot/internal/platform/settings"
	"github.com/lueurxax/repost-bot/internal/process/dedup"
)

const errBotInit = "bot initialization failed: %w"

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg    *config.Config
	msgs   config.Messages
	logger *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, msgs config.Messages, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		msgs:   msgs,
		logger: logger,
	}
}

// MirrorDomains converts the configured mirror lists into the fixer's table.
func MirrorDomains(cfg *config.Config) links.MirrorDomains {
	return links.MirrorDomains{
		links.PlatformTwitter:   cfg.TwitterMirrorDomains,
		links.PlatformTikTok:    cfg.TikTokMirrorDomains,
		links.PlatformInstagram: cfg.InstagramMirrorDomains,
	}
}

// NewEngine builds the dedup engine from configuration.
func (a *App) NewEngine() (*dedup.Engine, error) {
	mirrors := MirrorDomains(a.cfg)
	canon := links.NewCanonicalizer(mirrors)

	engine, err := dedup.NewEngine(dedup.Deps{
		Canonicalizer: canon,
		Fixer:         links.NewFixer(canon, mirrors),
		Reducer:       media.NewImageReducer(),
		Differ:        media.NewYIQDiffer(),
		Settings:      settings.New(a.cfg.DefaultThreshold, a.cfg.DefaultResolution, a.cfg.SimilarPixelRatio),
	}, a.cfg.DedupCacheSize, a.logger)
	if err != nil {
		return nil, fmt.Errorf("dedup engine: %w", err)
	}

	return engine, nil
}

// RunHTTP runs only the health and metrics server.
func (a *App) RunHTTP(ctx context.Context) error {
	a.logger.Info().Msg("Starting HTTP-only mode")

	srv := observability.NewServer(a.cfg.HealthPort, nil, a.logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunBot runs the bot and the health server until ctx ends or either fails.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("Starting bot mode")

	engine, err := a.NewEngine()
	if err != nil {
		return fmt.Errorf(errBotInit, err)
	}

	fetcher := links.NewWebFetcher(a.cfg.MediaFetchRPS, a.cfg.MediaFetchTimeout, a.cfg.MediaMaxBytes)
	transcoder := media.NewTranscoder(a.cfg.FFmpegPath, a.cfg.TranscodeTempDir, a.cfg.TranscodeTimeout, a.logger)

	b, err := bot.New(a.cfg, a.msgs, engine, fetcher, transcoder, a.logger)
	if err != nil {
		return fmt.Errorf(errBotInit, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		srv := observability.NewServer(a.cfg.HealthPort, b.Ready, a.logger)
		if err := srv.Start(gctx); err != nil {
			return fmt.Errorf("health server start: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return b.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return ctx.Err()
}
